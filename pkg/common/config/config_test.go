package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Minute, cfg.PercentileCacheTTL)
	assert.Equal(t, 1.0, cfg.RenderScale)
	assert.Empty(t, cfg.RegistryURL)
	assert.Equal(t, []string{"upload", "file"}, cfg.ImportSources)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,,")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("RENDER_SCALE", "2.5")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("READ_TIMEOUT", "soon")

	cfg := Load()
	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 2.5, cfg.RenderScale)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.ReadTimeout, "unparseable values fall back")
}

func TestStringSliceFallsBackWhenBlank(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " , ")
	assert.Equal(t, []string{"*"}, Load().AllowedOrigins)
}
