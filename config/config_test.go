package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("INSTANCE_ID", "node-1")
	t.Setenv("WEBRTC_ICE_URLS", "stun:a.test:3478, turn:b.test:3478")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "node-1", cfg.Instance.ID)
	assert.Equal(t, 30*time.Second, cfg.Instance.LeaseTTL)
	assert.Equal(t, []string{"stun:a.test:3478", "turn:b.test:3478"}, cfg.WebRTC.ICEUrls)
	assert.Equal(t, 60*time.Second, cfg.Conference.LivenessTimeout)
	assert.Equal(t, time.Hour, cfg.Conference.EndedRetention)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("CONFERENCE_LIVENESS_TIMEOUT_SEC", "10")
	t.Setenv("CONFERENCE_PING_INTERVAL_SEC", "10")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("CONFERENCE_PING_INTERVAL_SEC", "5")
	t.Setenv("CONFERENCE_LEASE_TTL_SEC", "2")
	_, err = Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "conf", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/conf?sslmode=disable", c.DSN())
	c.URL = "postgres://override"
	assert.Equal(t, "postgres://override", c.DSN())

	c.MaxConns, c.MinConns, c.LogLevel = 20, 2, "info"
	pool := c.Pool()
	assert.Equal(t, "postgres://override", pool.DSN)
	assert.Equal(t, int32(20), pool.MaxConns)
	assert.Equal(t, int32(2), pool.MinConns)
	assert.Equal(t, "info", pool.LogLevel)
}
