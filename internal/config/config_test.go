package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("PORT", "")
	t.Setenv("CARD_API_TIMEOUT", "")

	cfg := Load()

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.CardAPITimeout)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "Development")
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_DURATION", "2h")
	t.Setenv("CARD_API_TIMEOUT", "not-a-duration")

	cfg := Load()

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.SessionDuration)
	assert.Equal(t, 10*time.Second, cfg.CardAPITimeout, "invalid duration falls back to default")
}

func TestValidate(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("SECRET_KEY", "")

	cfg := Load()
	require.Error(t, cfg.Validate(), "default secret must be rejected in production")

	cfg.SecretKey = "a-real-secret"
	require.NoError(t, cfg.Validate())

	cfg.Environment = "development"
	cfg.SecretKey = defaultSecretKey
	require.NoError(t, cfg.Validate())

	cfg.CardAPITimeout = 0
	assert.Error(t, cfg.Validate())
}
