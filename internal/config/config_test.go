package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresAssistantID(t *testing.T) {
	t.Setenv("OPENAI_ASSISTANT_ID", "")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "OPENAI_ASSISTANT_ID")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENAI_ASSISTANT_ID", "asst_123")
	t.Setenv("PORT", "")
	t.Setenv("LEAD_NOTIFICATION_PHONE", "")
	t.Setenv("ASSISTANT_POLL_INTERVAL", "")
	t.Setenv("ASSISTANT_MAX_POLLS", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("SESSION_SWEEP_INTERVAL", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "asst_123", cfg.AssistantID)
	require.Equal(t, "3000", cfg.Port)
	require.Equal(t, DefaultLeadNotificationPhone, cfg.LeadNotificationPhone)
	require.Equal(t, time.Second, cfg.PollInterval)
	require.Equal(t, 120, cfg.MaxPolls)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, time.Hour, cfg.SweepInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENAI_ASSISTANT_ID", "asst_123")
	t.Setenv("PORT", "8080")
	t.Setenv("LEAD_NOTIFICATION_PHONE", "+15559998888")
	t.Setenv("ASSISTANT_POLL_INTERVAL", "250ms")
	t.Setenv("ASSISTANT_MAX_POLLS", "30")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("SESSION_SWEEP_INTERVAL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "+15559998888", cfg.LeadNotificationPhone)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.Equal(t, 30, cfg.MaxPolls)
	require.Equal(t, time.Hour, cfg.SessionTTL)
	require.Equal(t, 5*time.Minute, cfg.SweepInterval)
}

func TestLoadIgnoresGarbageNumbers(t *testing.T) {
	t.Setenv("OPENAI_ASSISTANT_ID", "asst_123")
	t.Setenv("ASSISTANT_POLL_INTERVAL", "soon")
	t.Setenv("ASSISTANT_MAX_POLLS", "lots")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, time.Second, cfg.PollInterval)
	require.Equal(t, 120, cfg.MaxPolls)
}
