package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Chirraag/lionhead/internal/storage"
)

// FallbackReply is sent to the end user when a run ends in any state other
// than completed.
const FallbackReply = "I'm having trouble processing your request right now. Please try again."

// ErrRunTimeout reports that a run was still pending after the poll budget
// was spent.
var ErrRunTimeout = errors.New("assistant run did not finish in time")

// AssistantBackend is the subset of the Assistants API the driver consumes.
type AssistantBackend interface {
	CreateThread(ctx context.Context) (string, error)
	AddMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (string, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error
	LatestMessage(ctx context.Context, threadID string) (*ThreadMessage, error)
}

// Reply is the outcome of one inbound message: the text echoed to the sender
// and the outbound message identifier.
type Reply struct {
	Text      string
	MessageID string
}

// ConversationService drives one assistant exchange per inbound SMS: session
// resolution, run polling, tool round-trips and the outbound reply.
type ConversationService struct {
	sessions     *storage.SessionStore
	backend      AssistantBackend
	messenger    Messenger
	dispatcher   *ToolDispatcher
	assistantID  string
	pollInterval time.Duration
	maxPolls     int
}

// NewConversationService wires the driver to its collaborators.
func NewConversationService(
	sessions *storage.SessionStore,
	backend AssistantBackend,
	messenger Messenger,
	dispatcher *ToolDispatcher,
	assistantID string,
	pollInterval time.Duration,
	maxPolls int,
) *ConversationService {
	return &ConversationService{
		sessions:     sessions,
		backend:      backend,
		messenger:    messenger,
		dispatcher:   dispatcher,
		assistantID:  assistantID,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// HandleInboundMessage runs the full exchange for one inbound SMS and
// returns the reply that was sent. A thread created before a later failure
// is kept on the session, so a retry reuses it instead of leaking threads.
func (s *ConversationService) HandleInboundMessage(ctx context.Context, phone, text string) (*Reply, error) {
	s.sessions.GetOrCreate(phone)

	threadID, err := s.sessions.EnsureThread(phone, func() (string, error) {
		return s.backend.CreateThread(ctx)
	})
	if err != nil {
		return nil, err
	}

	if err := s.backend.AddMessage(ctx, threadID, "user", text); err != nil {
		return nil, err
	}

	runID, err := s.backend.CreateRun(ctx, threadID, s.assistantID)
	if err != nil {
		return nil, err
	}

	run, err := s.waitForRun(ctx, threadID, runID)
	if err != nil && !errors.Is(err, ErrRunTimeout) {
		return nil, err
	}

	// One tool round-trip per inbound message. A second requires_action
	// after resubmission falls through to the fallback reply.
	if run.Status == StatusRequiresAction && run.RequiredAction != nil {
		log.Printf("Run %s requires action - handling function calls", runID)

		calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
		outputs := make([]ToolOutput, 0, len(calls))
		for _, call := range calls {
			outputs = append(outputs, s.dispatcher.Dispatch(call))
		}

		if err := s.backend.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
			return nil, err
		}

		run, err = s.waitForRun(ctx, threadID, runID)
		if err != nil && !errors.Is(err, ErrRunTimeout) {
			return nil, err
		}
	}

	responseText := ""
	if run.Status == StatusCompleted {
		latest, err := s.backend.LatestMessage(ctx, threadID)
		if err != nil {
			return nil, err
		}
		if latest.Role == "assistant" {
			responseText = latest.Text
		}
	} else {
		log.Printf("Run %s ended with status: %s", runID, run.Status)
		if run.LastError != nil {
			log.Printf("Run %s error details: %s: %s", runID, run.LastError.Code, run.LastError.Message)
		}
		responseText = FallbackReply
	}

	sid, err := s.messenger.SendSMS(phone, responseText)
	if err != nil {
		return nil, err
	}

	return &Reply{Text: responseText, MessageID: sid}, nil
}

// waitForRun polls until the run leaves the pending statuses. A run still
// pending after maxPolls is returned alongside ErrRunTimeout rather than
// blocking the request forever.
func (s *ConversationService) waitForRun(ctx context.Context, threadID, runID string) (*Run, error) {
	run, err := s.backend.GetRun(ctx, threadID, runID)
	if err != nil {
		return nil, err
	}

	for polls := 0; isPending(run.Status); polls++ {
		if polls >= s.maxPolls {
			log.Printf("Run %s still %s after %d polls - giving up", runID, run.Status, polls)
			return run, ErrRunTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}

		run, err = s.backend.GetRun(ctx, threadID, runID)
		if err != nil {
			return nil, err
		}
	}

	return run, nil
}

func isPending(status string) bool {
	switch status {
	case StatusQueued, StatusRunning, StatusInProgress:
		return true
	}
	return false
}
