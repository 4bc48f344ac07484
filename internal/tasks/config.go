package tasks

import "time"

// Config sizes the worker pool shared by the maintenance queues. Attempts,
// backoff, timeout and retention are set per queue by each task's Config.
type Config struct {
	// Workers is the number of concurrent task workers.
	Workers int

	// ReleaseAfter returns tasks held by a crashed worker to the queue.
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished tasks past their retention are removed.
	CleanupInterval time.Duration
}

// DefaultConfig returns the settings used for any zero field.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.ReleaseAfter <= 0 {
		c.ReleaseAfter = d.ReleaseAfter
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}
