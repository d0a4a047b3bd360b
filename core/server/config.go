package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Port is the port where the server will listen.
	Port string `mapstructure:"port" default:"8080"`
	// ApiKey is the secret key required to access the API.
	ApiKey string `mapstructure:"api_key" default:""`
	// BodyLimitMB caps request bodies; import batches are the largest payloads.
	BodyLimitMB int `mapstructure:"body_limit_mb" default:"16"`
	// ReadTimeoutSeconds bounds reading a request.
	ReadTimeoutSeconds int `mapstructure:"read_timeout_seconds" default:"30"`
	// WriteTimeoutSeconds bounds writing a response. Sweeps triggered over HTTP can be slow.
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds" default:"300"`
}

// Fiber builds the Fiber application config.
func (c Config) Fiber() fiber.Config {
	limit := c.BodyLimitMB
	if limit <= 0 {
		limit = 4
	}
	return fiber.Config{
		AppName:               "glass-tracker",
		DisableStartupMessage: true,
		BodyLimit:             limit * 1024 * 1024,
		ReadTimeout:           seconds(c.ReadTimeoutSeconds),
		WriteTimeout:          seconds(c.WriteTimeoutSeconds),
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	if c.Port == "" {
		return ":8080"
	}
	return ":" + c.Port
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
