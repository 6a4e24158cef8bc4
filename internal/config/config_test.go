package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-kasir/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"APP_ENV":              "",
		"PORT":                 "",
		"TAX_RATE_BPS":         "",
		"CURRENCY_CODE":        "",
		"CORS_ALLOWED_ORIGINS": "",
		"CATALOG_CACHE_TTL":    "",
		"IDEMPOTENCY_TTL":      "",
		"MAX_BODY_BYTES":       "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, int32(0), cfg.TaxRateBps)
	require.Equal(t, "USD", cfg.CurrencyCode)
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
}

func TestLoadTaxRate(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"TAX_RATE_BPS": "825",
	})
	require.NoError(t, err)
	require.Equal(t, int32(825), cfg.TaxRateBps)
}

func TestLoadTaxRateOutOfRange(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"TAX_RATE_BPS": "10001",
	})
	require.Error(t, err)
}

func TestLoadTaxRateNotNumeric(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"TAX_RATE_BPS": "8.25",
	})
	require.Error(t, err)
}

func TestLoadCORSOrigins(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"CORS_ALLOWED_ORIGINS": "https://pos.example.com, https://admin.example.com",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"https://pos.example.com", "https://admin.example.com"}, cfg.CORSAllowedOrigins)
}

func TestHTTPAddrWithColon(t *testing.T) {
	cfg := &config.Config{Port: ":9090"}
	require.Equal(t, ":9090", cfg.HTTPAddr())
}
