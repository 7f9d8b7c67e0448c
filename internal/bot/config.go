package bot

import (
	"time"
)

// Config represents the configuration for the bot
type Config struct {
	Token string
	// Long polling timeout for getUpdates
	PollTimeout time.Duration
	// Days covered by /stats
	StatsDays int
	// Hours offered in the reminder time menu
	ReminderHours []int
}

// DefaultConfig returns the default bot configuration
func DefaultConfig(token string) *Config {
	return &Config{
		Token:         token,
		PollTimeout:   60 * time.Second,
		StatsDays:     7,
		ReminderHours: []int{8, 12, 15, 18, 21},
	}
}
