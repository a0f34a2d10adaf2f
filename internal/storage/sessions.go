package storage

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the per-phone-number conversation state. ThreadID is empty
// until the first assistant call and never reassigned while the session
// lives.
type Session struct {
	SessionID   string    `json:"session_id"`
	Phone       string    `json:"phone"`
	ThreadID    string    `json:"thread_id"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
}

type sessionEntry struct {
	mu      sync.Mutex // serializes thread creation for this session
	session Session
}

// SessionStore maps phone numbers to conversation sessions and owns their
// expiry sweep. All state is process-memory only.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	ttl      time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a SessionStore.
type Option func(*SessionStore)

// WithClock overrides the store's time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *SessionStore) {
		s.now = now
	}
}

// NewSessionStore creates an empty store whose sessions expire after ttl of
// inactivity.
func NewSessionStore(ttl time.Duration, opts ...Option) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*sessionEntry),
		ttl:      ttl,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetOrCreate returns the session for phone, refreshing its LastUpdated
// timestamp, or creates a fresh one with no thread. The returned Session is
// a copy; callers never hold a reference into the map.
func (s *SessionStore) GetOrCreate(phone string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOrCreateLocked(phone).session
}

func (s *SessionStore) getOrCreateLocked(phone string) *sessionEntry {
	if entry, ok := s.sessions[phone]; ok {
		entry.session.LastUpdated = s.now()
		return entry
	}

	now := s.now()
	entry := &sessionEntry{
		session: Session{
			SessionID:   uuid.NewString(),
			Phone:       phone,
			CreatedAt:   now,
			LastUpdated: now,
		},
	}
	s.sessions[phone] = entry
	log.Printf("Session created for %s", phone)
	return entry
}

// EnsureThread returns the session's thread ID, invoking create at most once
// per session to mint one. The create call runs under a per-session lock so
// two concurrent first messages from the same number share a single thread.
func (s *SessionStore) EnsureThread(phone string, create func() (string, error)) (string, error) {
	s.mu.Lock()
	entry := s.getOrCreateLocked(phone)
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.session.ThreadID != "" {
		return entry.session.ThreadID, nil
	}

	threadID, err := create()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	entry.session.ThreadID = threadID
	s.mu.Unlock()

	log.Printf("Created new thread %s for %s", threadID, phone)
	return threadID, nil
}

// SweepExpired removes every session whose LastUpdated precedes now less the
// store TTL. A session touched exactly TTL ago survives.
func (s *SessionStore) SweepExpired(now time.Time) {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	for phone, entry := range s.sessions {
		if entry.session.LastUpdated.Before(cutoff) {
			delete(s.sessions, phone)
			log.Printf("Cleaned up expired session for %s", phone)
		}
	}
}

// StartSweeper runs SweepExpired on a fixed interval until Stop is called.
func (s *SessionStore) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SweepExpired(s.now())
			case <-s.done:
				return
			}
		}
	}()
}

// Stop halts the sweeper goroutine. Safe to call more than once.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

// Len reports the number of live sessions, for monitoring.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
