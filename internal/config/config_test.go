package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{"DB_DSN": "postgres://localhost/telemed"}))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.PaymentGracePeriod)
	assert.Equal(t, 15*time.Minute, cfg.CallWindowLead)
	assert.Equal(t, 10*time.Minute, cfg.DocumentLinkTTL)
	assert.Equal(t, 2, cfg.DocumentViewRetries)
	assert.Equal(t, 14*24*time.Hour, cfg.BookingHorizon())
	assert.NotEmpty(t, cfg.DocumentLinkSecret)
	assert.NoError(t, cfg.Timing().Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		"DB_DSN":                "postgres://localhost/telemed",
		"PAYMENT_GRACE_PERIOD":  "45m",
		"SWEEP_INTERVAL":        "30s",
		"DOCUMENT_VIEW_RETRIES": "0",
		"BOOKING_HORIZON_DAYS":  "7",
	}))
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, cfg.Timing().GracePeriod)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Zero(t, cfg.DocumentViewRetries)
	assert.Equal(t, 7, cfg.BookingHorizonDays)
}

func TestFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"missing dsn", map[string]string{}},
		{"bad duration", map[string]string{"DB_DSN": "x", "NO_SHOW_AFTER": "soon"}},
		{"zero grace", map[string]string{"DB_DSN": "x", "PAYMENT_GRACE_PERIOD": "0s"}},
		{"negative retries", map[string]string{"DB_DSN": "x", "DOCUMENT_VIEW_RETRIES": "-1"}},
		{"no secret in production", map[string]string{"DB_DSN": "x", "ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(envOf(tt.vars))
			assert.Error(t, err)
		})
	}
}
