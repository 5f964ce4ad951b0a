package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadPortsByService(t *testing.T) {
	tests := []struct {
		name        string
		service     string
		httpPort    string
		metricsPort string
	}{
		{name: "ledger service", service: "ledger-service", httpPort: "8000", metricsPort: "9100"},
		{name: "notifier has no public port", service: "settlement-notifier", httpPort: "", metricsPort: "9101"},
		{name: "bot", service: "ledger-bot", httpPort: "", metricsPort: "9102"},
		{name: "unknown service falls back", service: "other", httpPort: "8000", metricsPort: "9100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SERVICE_NAME", tt.service)
			cfg := Load()
			assert.Equal(t, tt.service, cfg.ServiceName)
			assert.Equal(t, tt.httpPort, cfg.HTTPPort)
			assert.Equal(t, tt.metricsPort, cfg.MetricsPort)
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVICE_NAME", "ledger-service")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TTL", "5s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("HTTP_PORT_LEDGER", "18000")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers())
	assert.Equal(t, 5*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "18000", cfg.HTTPPort)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadInvalidDurationUsesDefault(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
}
