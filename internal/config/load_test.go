package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets environment variables for the duration of a test.
// An empty value unsets the variable.
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for name, value := range envVars {
		original, had := os.LookupEnv(name)
		if value == "" {
			require.NoError(t, os.Unsetenv(name))
		} else {
			require.NoError(t, os.Setenv(name, value), "Failed to set environment variable %s", name)
		}
		t.Cleanup(func() {
			if had {
				os.Setenv(name, original)
			} else {
				os.Unsetenv(name)
			}
		})
	}
}

// TestLoadDefaults verifies the defaults when nothing is configured.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, map[string]string{
		"CARDFARM_SERVER_PORT":          "",
		"CARDFARM_SERVER_LOG_LEVEL":     "",
		"CARDFARM_BROKER_JOB_TIMEOUT":   "",
		"CARDFARM_BROKER_SHARED_SECRET": "",
		"CARDFARM_WORKER_SHARED_SECRET": "",
	})

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Broker.JobTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Broker.ResultTTL)
	assert.Equal(t, time.Minute, cfg.Broker.SweepInterval)
	assert.Equal(t, 5*time.Second, cfg.Worker.ReconnectDelay)
	assert.Empty(t, cfg.Broker.SharedSecret)
}

// TestLoadFromEnv verifies that environment variables override defaults.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"CARDFARM_SERVER_PORT":            "9090",
		"CARDFARM_SERVER_LOG_LEVEL":       "debug",
		"CARDFARM_BROKER_JOB_TIMEOUT":     "2s",
		"CARDFARM_BROKER_SHARED_SECRET":   "thisisasecretkeythatis32charslong!!",
		"CARDFARM_WORKER_BROKER_URL":      "ws://broker:9090/workers/connect",
		"CARDFARM_WORKER_NAME":            "render-1",
		"CARDFARM_WORKER_RECONNECT_DELAY": "250ms",
	})

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Broker.JobTimeout)
	assert.Equal(t, "thisisasecretkeythatis32charslong!!", cfg.Broker.SharedSecret)
	assert.Equal(t, "ws://broker:9090/workers/connect", cfg.Worker.BrokerURL)
	assert.Equal(t, "render-1", cfg.Worker.Name)
	assert.Equal(t, 250*time.Millisecond, cfg.Worker.ReconnectDelay)
}

// TestLoadValidationErrors verifies that invalid values are rejected.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Invalid port number",
			envVars: map[string]string{"CARDFARM_SERVER_PORT": "999999"},
		},
		{
			name:    "Invalid log level",
			envVars: map[string]string{"CARDFARM_SERVER_LOG_LEVEL": "loud"},
		},
		{
			name:    "Short shared secret",
			envVars: map[string]string{"CARDFARM_BROKER_SHARED_SECRET": "tooshort"},
		},
		{
			name:    "Invalid broker url",
			envVars: map[string]string{"CARDFARM_WORKER_BROKER_URL": "not a url"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t, tc.envVars)

			cfg, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), "validation failed")
			assert.Nil(t, cfg)
		})
	}
}
