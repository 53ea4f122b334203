package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 3004, cfg.Port)
	assert.Equal(t, 36*time.Hour, cfg.OfferRecencyWindow)
	assert.Equal(t, 5, cfg.CrawlerMaxConcurrency)
	assert.Equal(t, "BGN", cfg.LocalCurrency)
	assert.Equal(t, "cf8384df-f073-477f-b2fb-e5643eeb974e", cfg.CategoryDefaultParentID)
	assert.Equal(t, 2*time.Minute, cfg.CrawlLockWait)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("OFFER_RECENCY_WINDOW", "12h")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOCAL_CURRENCY", "EUR")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 12*time.Hour, cfg.OfferRecencyWindow)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "EUR", cfg.LocalCurrency)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero crawl slots", key: "CRAWLER_MAX_CONCURRENCY", value: "0"},
		{name: "attribute threshold above one", key: "VARIATION_ATTRIBUTE_THRESHOLD", value: "1.5"},
		{name: "currency code length", key: "LOCAL_CURRENCY", value: "LEVA"},
		{name: "outlier factor", key: "PRICE_OUTLIER_FACTOR", value: "1"},
		{name: "otlp protocol", key: "OTEL_EXPORTER_OTLP_PROTOCOL", value: "udp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load("does-not-exist.env")
			assert.Error(t, err)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := Config{
		DatabaseHost:     "db",
		DatabasePort:     "5432",
		DatabaseUserName: "sage",
		DatabasePassword: "secret",
		DatabaseName:     "sage",
		DatabaseSSLMode:  "disable",
	}
	assert.Equal(t, "host=db port=5432 user=sage password=secret dbname=sage sslmode=disable", cfg.DatabaseDSN())
}
