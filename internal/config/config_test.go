package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.GRPC.Addr)
	assert.Equal(t, "dev-token", cfg.GRPC.APIToken)
	assert.True(t, cfg.HTTP.Enabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Quotes.CacheTTL)
	assert.Equal(t, 5*time.Second, cfg.Trading.LockTimeout)
	assert.Equal(t, 24*time.Hour, cfg.Snapshot.Interval)
	assert.True(t, cfg.Snapshot.RunOnStart)
	assert.Equal(t, "demo_trader", cfg.Seed.AccountName)
	assert.Equal(t, "100000", cfg.InitialBalance().String())
	assert.True(t, cfg.FeePercent().IsZero())
	assert.Equal(t, time.UTC, cfg.Location())

	// keyless providers are on; finnhub/alpaca need credentials first
	assert.Equal(t, []string{"yahoo"}, cfg.Chain(domain.AssetClassStock))
	assert.Equal(t, []string{"binance", "yahoo"}, cfg.Chain(domain.AssetClassCrypto))
	assert.Equal(t, 60, cfg.Providers["finnhub"].RequestsPerMinute)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrade.yaml")
	yaml := `
grpc:
  api_token: file-token
database:
  driver: postgres
  dsn: host=localhost dbname=papertrade sslmode=disable
providers:
  static:
    enabled: true
    prices:
      AAPL: "150"
      BTCUSD: "60000"
chains:
  stock: [static]
trading:
  fee_percent: "0.1"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("PAPERTRADE_GRPC_API_TOKEN", "env-token")
	t.Setenv("PAPERTRADE_QUOTES_CACHE_TTL", "30s")
	t.Setenv("PAPERTRADE_PROVIDERS_FINNHUB_ENABLED", "true")
	t.Setenv("PAPERTRADE_PROVIDERS_FINNHUB_API_KEY", "fh-key")
	t.Setenv("PAPERTRADE_CHAINS_ETF", "finnhub,static")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.GRPC.APIToken, "env wins over file")
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Quotes.CacheTTL)
	assert.Equal(t, "0.1", cfg.FeePercent().String())
	assert.Equal(t, []string{"static"}, cfg.Chain(domain.AssetClassStock))
	assert.Equal(t, []string{"finnhub", "static"}, cfg.Chain(domain.AssetClassETF))

	fh := cfg.ProviderSettings("finnhub")
	assert.Equal(t, "fh-key", fh.APIKey)
	assert.Equal(t, 5*time.Second, fh.Timeout)

	// viper lowercases map keys; the static provider normalizes them back
	static := cfg.ProviderSettings("static")
	assert.Equal(t, "150", static.Prices["aapl"])
}

func TestLoad_ProviderSectionsMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrade.yaml")
	yaml := `
providers:
  static:
    enabled: true
    prices:
      ETHUSD: "3000"
  iex:
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "iex"`)

	yaml = `
providers:
  static:
    enabled: true
    prices:
      ETHUSD: "3000"
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("PAPERTRADE_PROVIDERS_ALPACA_ENABLED", "true")
	t.Setenv("PAPERTRADE_PROVIDERS_ALPACA_API_KEY", "ak")
	t.Setenv("PAPERTRADE_PROVIDERS_ALPACA_API_SECRET", "as")

	cfg, err := Load(path)
	require.NoError(t, err)

	binance := cfg.Providers["binance"]
	assert.True(t, binance.Enabled, "providers absent from the file keep their defaults")
	assert.Equal(t, 5*time.Second, binance.Timeout)
	assert.Equal(t, 60, cfg.Providers["finnhub"].RequestsPerMinute)
	assert.Equal(t, []string{"binance", "yahoo", "static"}, cfg.Chain(domain.AssetClassCrypto))
	assert.Equal(t, []string{"alpaca", "yahoo", "static"}, cfg.Chain(domain.AssetClassStock))

	alpaca := cfg.ProviderSettings("alpaca")
	assert.Equal(t, "ak", alpaca.APIKey)
	assert.Equal(t, "as", alpaca.APISecret)
	assert.Equal(t, "3000", cfg.ProviderSettings("static").Prices["ethusd"])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"zero ttl", func(c *Config) { c.Quotes.CacheTTL = 0 }, "quotes.cache_ttl"},
		{"negative lock timeout", func(c *Config) { c.Trading.LockTimeout = -time.Second }, "trading.lock_timeout"},
		{"negative fee", func(c *Config) { c.Trading.FeePercent = "-1" }, "fee_percent"},
		{"bad fee", func(c *Config) { c.Trading.FeePercent = "lots" }, "fee_percent"},
		{"bad balance", func(c *Config) { c.Seed.InitialBalance = "x" }, "initial_balance"},
		{"bad location", func(c *Config) { c.Snapshot.Location = "Mars/Olympus" }, "snapshot.location"},
		{"unknown chain provider", func(c *Config) { c.Chains.Crypto = []string{"kraken"} }, "kraken"},
		{"unknown provider section", func(c *Config) { c.Providers["iex"] = ProviderConfig{} }, "iex"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
