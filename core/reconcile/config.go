package reconcile

import "time"

// Config holds tuning for the reconciliation sweeps.
type Config struct {
	// ChunkSize is the number of rows loaded per sweep chunk.
	ChunkSize int `mapstructure:"chunk_size" default:"500"`
	// Workers bounds the number of order numbers recomputed in parallel.
	Workers int `mapstructure:"workers" default:"8"`
	// RematchIntervalSeconds schedules the background rematch sweep. Zero disables it.
	RematchIntervalSeconds int `mapstructure:"rematch_interval_seconds" default:"300"`
}

// Normalized returns a copy with non-positive sizes replaced by sane defaults.
func (c Config) Normalized() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 500
	}
	if c.Workers <= 0 {
		c.Workers = 8
	}
	return c
}

// RematchInterval returns the background sweep interval.
func (c Config) RematchInterval() time.Duration {
	return time.Duration(c.RematchIntervalSeconds) * time.Second
}
