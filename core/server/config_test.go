package server_test

import (
	"testing"
	"time"

	"glass-tracker/core/server"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Fiber(t *testing.T) {
	tests := []struct {
		name      string
		cfg       server.Config
		bodyLimit int
		read      time.Duration
		addr      string
	}{
		{"Defaults", server.Config{Port: "8080", BodyLimitMB: 16, ReadTimeoutSeconds: 30}, 16 << 20, 30 * time.Second, ":8080"},
		{"Zero values", server.Config{}, 4 << 20, 0, ":8080"},
		{"Custom port", server.Config{Port: "9090", BodyLimitMB: 1}, 1 << 20, 0, ":9090"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := tt.cfg.Fiber()
			assert.Equal(t, tt.bodyLimit, fc.BodyLimit)
			assert.Equal(t, tt.read, fc.ReadTimeout)
			assert.True(t, fc.DisableStartupMessage)
			assert.Equal(t, tt.addr, tt.cfg.Addr())
		})
	}
}
