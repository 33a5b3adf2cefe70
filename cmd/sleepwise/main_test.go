package main

import (
	"testing"

	"sleepwise/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestNeedsSupabase(t *testing.T) {
	tests := []struct {
		backend, mode string
		want          bool
	}{
		{config.BackendSupabase, config.AuthModeJWT, true},
		{config.BackendPostgres, config.AuthModeSupabase, true},
		{config.BackendPostgres, config.AuthModeJWT, false},
		{config.BackendMemory, config.AuthModeJWT, false},
	}
	for _, tt := range tests {
		c := config.Default()
		c.Store.Backend = tt.backend
		c.Auth.Mode = tt.mode
		assert.Equal(t, tt.want, needsSupabase(c), "%s/%s", tt.backend, tt.mode)
	}
}

func TestDependencyChecks(t *testing.T) {
	c := config.Default()
	c.Store.Backend = config.BackendPostgres
	c.Auth.Mode = config.AuthModeJWT
	c.Redis.Enabled = true

	var names []string
	for _, dc := range dependencyChecks(c) {
		names = append(names, dc.name)
	}
	assert.Equal(t, []string{"postgres", "prediction", "redis"}, names)
}

func TestSubcommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "migrate", "check", "replay", "mcp"} {
		cmd, _, err := rootCmd.Find([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
