package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultLeadNotificationPhone receives qualified-lead alerts unless
// LEAD_NOTIFICATION_PHONE overrides it.
const DefaultLeadNotificationPhone = "+17478375004"

// Config holds all environment-sourced settings for the service.
type Config struct {
	// Twilio credentials and sender number
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// OpenAI Assistants backend
	OpenAIAPIKey string
	AssistantID  string

	// Outbound number for qualified-lead notifications
	LeadNotificationPhone string

	// HTTP listener
	Port string

	// Run polling
	PollInterval time.Duration
	MaxPolls     int

	// Conversation session lifecycle
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables. The assistant ID is
// required; everything else has a default or degrades gracefully.
func Load() (*Config, error) {
	assistantID := os.Getenv("OPENAI_ASSISTANT_ID")
	if assistantID == "" {
		return nil, fmt.Errorf("OPENAI_ASSISTANT_ID environment variable is not set")
	}

	cfg := &Config{
		TwilioAccountSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:       os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:      os.Getenv("TWILIO_PHONE_NUMBER"),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		AssistantID:           assistantID,
		LeadNotificationPhone: getEnv("LEAD_NOTIFICATION_PHONE", DefaultLeadNotificationPhone),
		Port:                  getEnv("PORT", "3000"),
		PollInterval:          getDuration("ASSISTANT_POLL_INTERVAL", time.Second),
		MaxPolls:              getInt("ASSISTANT_MAX_POLLS", 120),
		SessionTTL:            getDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval:         getDuration("SESSION_SWEEP_INTERVAL", time.Hour),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
