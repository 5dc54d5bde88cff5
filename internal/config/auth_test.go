package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTConfig(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		issuer  string
		hours   string
		wantErr bool
		wantTTL time.Duration
	}{
		{name: "defaults", secret: "s3cret", wantTTL: 24 * time.Hour},
		{name: "custom expiration", secret: "s3cret", hours: "72", wantTTL: 72 * time.Hour},
		{name: "missing secret", wantErr: true},
		{name: "non-numeric hours", secret: "s3cret", hours: "soon", wantErr: true},
		{name: "zero hours", secret: "s3cret", hours: "0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			t.Setenv("JWT_ISSUER", tt.issuer)
			t.Setenv("JWT_EXPIRATION_HOURS", tt.hours)

			cfg, err := NewJWTConfig()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.Secret)
			assert.Equal(t, "cv-match", cfg.Issuer)
			assert.Equal(t, tt.wantTTL, cfg.TokenTTL)
		})
	}
}

func TestNewPasswordConfig(t *testing.T) {
	tests := []struct {
		name     string
		cost     string
		wantErr  bool
		wantCost int
	}{
		{name: "default cost", cost: "", wantCost: 12},
		{name: "custom cost", cost: "10", wantCost: 10},
		{name: "too low", cost: "4", wantErr: true},
		{name: "too high", cost: "20", wantErr: true},
		{name: "non-numeric", cost: "cheap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BCRYPT_COST", tt.cost)
			cfg, err := NewPasswordConfig()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCost, cfg.BcryptCost)
		})
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	cfg := &PasswordConfig{BcryptCost: 10}
	hash, err := cfg.HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, cfg.VerifyPassword("hunter2", hash))
	assert.False(t, cfg.VerifyPassword("hunter3", hash))
}
