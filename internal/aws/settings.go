package aws

import (
	"sync"
	"time"
)

const (
	DefaultPresignExpiry = 15 * time.Minute
	DefaultPollInterval  = 10 * time.Second
)

// Settings configures the AWS-backed services.
type Settings struct {
	Region        string
	PresignExpiry time.Duration
	PollInterval  time.Duration
}

// Config holds the Settings shared by the services built from it. Services read it on
// every call, so an Update takes effect on the next request.
type Config struct {
	mu sync.RWMutex
	s  Settings
}

// NewConfig creates a Config, filling unset durations with defaults.
func NewConfig(s Settings) *Config {
	if s.PresignExpiry <= 0 {
		s.PresignExpiry = DefaultPresignExpiry
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	return &Config{s: s}
}

// Get returns a copy of the current settings.
func (c *Config) Get() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.s
}

// Update changes the settings in place.
func (c *Config) Update(fn func(*Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.s)
}
