package config

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	for _, k := range []string{"DATABASE_URL", "PORT", "JWT_SECRET", "CONTEXT_TIMEOUT", "CORS_ALLOWED_ORIGINS", "EMAIL_PROVIDER",
		"ADMISSION_MAX_RETRIES", "ADMISSION_LOCK_TIMEOUT", "ATTENDANCE_SWEEP_INTERVAL", "NOTIFY_TIMEOUT", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Contains(t, cfg.DBUrl, "bookclub")
	assert.Equal(t, "dev-secret", cfg.JWTSecret)
	assert.Equal(t, 10*time.Second, cfg.ContextTimeout)
	assert.Equal(t, "noop", cfg.Email.Provider)
	assert.Equal(t, 3, cfg.AdmissionMaxRetries)
	assert.Equal(t, 2*time.Second, cfg.AdmissionLockTimeout)
	assert.Equal(t, time.Hour, cfg.AttendanceSweepInterval)
	assert.Empty(t, cfg.CORSAllowedOrigins)
	assert.Empty(t, cfg.OTLPEndpoint)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("PORT", "9090")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("EMAIL_PROVIDER", "ses")
	t.Setenv("ADMISSION_MAX_RETRIES", "5")
	t.Setenv("ADMISSION_LOCK_TIMEOUT", "750ms")
	t.Setenv("ATTENDANCE_SWEEP_INTERVAL", "15m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "ses", cfg.Email.Provider)
	assert.Equal(t, 5, cfg.AdmissionMaxRetries)
	assert.Equal(t, 750*time.Millisecond, cfg.AdmissionLockTimeout)
	assert.Equal(t, 15*time.Minute, cfg.AttendanceSweepInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "bad duration", env: map[string]string{"CONTEXT_TIMEOUT": "soon"}, wantErr: "CONTEXT_TIMEOUT"},
		{name: "bad integer", env: map[string]string{"ADMISSION_MAX_RETRIES": "many"}, wantErr: "ADMISSION_MAX_RETRIES"},
		{name: "negative retries", env: map[string]string{"ADMISSION_MAX_RETRIES": "-1"}, wantErr: "must not be negative"},
		{name: "production without secret", env: map[string]string{"GO_ENV": "production", "JWT_SECRET": ""}, wantErr: "JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "production", "warn").Info("hidden")
	assert.Empty(t, buf.String())

	newLogger(&buf, "production", "warn").Warn("shown")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "bookclub", rec["service"])

	buf.Reset()
	newLogger(&buf, "development", "").Debug("hidden")
	assert.Empty(t, buf.String())
}
