// Package config loads the static server configuration from an optional YAML
// file, a .env file and PAPERTRADE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/simaogato/papertrade-backend/internal/adapter/provider"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. PAPERTRADE_GRPC_ADDR
const EnvPrefix = "PAPERTRADE"

// Config is loaded once at startup
type Config struct {
	GRPC      GRPCConfig                `mapstructure:"grpc"`
	HTTP      HTTPConfig                `mapstructure:"http"`
	Database  DatabaseConfig            `mapstructure:"database"`
	Quotes    QuotesConfig              `mapstructure:"quotes"`
	Providers map[string]ProviderConfig `mapstructure:"providers"`
	Chains    ChainsConfig              `mapstructure:"chains"`
	Trading   TradingConfig             `mapstructure:"trading"`
	Snapshot  SnapshotConfig            `mapstructure:"snapshot"`
	PriceFeed PriceFeedConfig           `mapstructure:"pricefeed"`
	Seed      SeedConfig                `mapstructure:"seed"`
	Log       LogConfig                 `mapstructure:"log"`
}

type GRPCConfig struct {
	Addr     string `mapstructure:"addr"`
	APIToken string `mapstructure:"api_token"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type QuotesConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ProviderConfig configures one quote provider. Prices is only read by the
// static provider.
type ProviderConfig struct {
	Enabled           bool              `mapstructure:"enabled"`
	APIKey            string            `mapstructure:"api_key"`
	APISecret         string            `mapstructure:"api_secret"`
	BaseURL           string            `mapstructure:"base_url"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute"`
	Burst             int               `mapstructure:"burst"`
	Prices            map[string]string `mapstructure:"prices"`
}

// ChainsConfig lists provider names in fallback order per asset class
type ChainsConfig struct {
	Stock  []string `mapstructure:"stock"`
	ETF    []string `mapstructure:"etf"`
	Crypto []string `mapstructure:"crypto"`
}

type TradingConfig struct {
	FeePercent  string        `mapstructure:"fee_percent"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

type SnapshotConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	RunOnStart bool          `mapstructure:"run_on_start"`
	Location   string        `mapstructure:"location"`
}

type PriceFeedConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type SeedConfig struct {
	File           string `mapstructure:"file"`
	AccountName    string `mapstructure:"account_name"`
	InitialBalance string `mapstructure:"initial_balance"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("grpc.addr", ":8080")
	v.SetDefault("grpc.api_token", "dev-token")
	v.SetDefault("http.enabled", true)
	v.SetDefault("http.addr", ":8081")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "papertrade.db")
	v.SetDefault("quotes.cache_ttl", 10*time.Second)

	for _, name := range provider.Names {
		key := "providers." + name + "."
		v.SetDefault(key+"enabled", name == "yahoo" || name == "binance")
		v.SetDefault(key+"api_key", "")
		v.SetDefault(key+"api_secret", "")
		v.SetDefault(key+"base_url", "")
		v.SetDefault(key+"timeout", 5*time.Second)
		v.SetDefault(key+"requests_per_minute", 0)
		v.SetDefault(key+"burst", 0)
	}
	// finnhub free tier
	v.SetDefault("providers.finnhub.requests_per_minute", 60)
	v.SetDefault("providers.static.prices", map[string]string{})

	v.SetDefault("chains.stock", []string{"finnhub", "alpaca", "yahoo", "static"})
	v.SetDefault("chains.etf", []string{"finnhub", "alpaca", "yahoo", "static"})
	v.SetDefault("chains.crypto", []string{"binance", "yahoo", "static"})

	v.SetDefault("trading.fee_percent", "0")
	v.SetDefault("trading.lock_timeout", 5*time.Second)
	v.SetDefault("snapshot.interval", 24*time.Hour)
	v.SetDefault("snapshot.run_on_start", true)
	v.SetDefault("snapshot.location", "UTC")
	v.SetDefault("pricefeed.interval", 5*time.Second)
	v.SetDefault("seed.file", "")
	v.SetDefault("seed.account_name", "demo_trader")
	v.SetDefault("seed.initial_balance", "100000")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads .env (if present), then the YAML file at path (if non-empty),
// then PAPERTRADE_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Providers = providerConfigs(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// providerConfigs resolves every known provider key by key, so a file section
// merges with the defaults and PAPERTRADE_PROVIDERS_<NAME>_* overrides apply.
// Sections naming unknown providers are kept empty for Validate to reject.
func providerConfigs(v *viper.Viper) map[string]ProviderConfig {
	out := make(map[string]ProviderConfig, len(provider.Names))
	for name := range v.GetStringMap("providers") {
		out[name] = ProviderConfig{}
	}
	for _, name := range provider.Names {
		key := "providers." + name + "."
		out[name] = ProviderConfig{
			Enabled:           v.GetBool(key + "enabled"),
			APIKey:            v.GetString(key + "api_key"),
			APISecret:         v.GetString(key + "api_secret"),
			BaseURL:           v.GetString(key + "base_url"),
			Timeout:           v.GetDuration(key + "timeout"),
			RequestsPerMinute: v.GetInt(key + "requests_per_minute"),
			Burst:             v.GetInt(key + "burst"),
			Prices:            v.GetStringMapString(key + "prices"),
		}
	}
	return out
}

// Validate checks the configuration for values the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	if c.GRPC.Addr == "" {
		errs = append(errs, errors.New("grpc.addr is required"))
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required when http is enabled"))
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be sqlite or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	for key, d := range map[string]time.Duration{
		"quotes.cache_ttl":     c.Quotes.CacheTTL,
		"trading.lock_timeout": c.Trading.LockTimeout,
		"snapshot.interval":    c.Snapshot.Interval,
		"pricefeed.interval":   c.PriceFeed.Interval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, d))
		}
	}

	if fee, err := decimal.NewFromString(c.Trading.FeePercent); err != nil {
		errs = append(errs, fmt.Errorf("trading.fee_percent: %w", err))
	} else if fee.IsNegative() {
		errs = append(errs, fmt.Errorf("trading.fee_percent cannot be negative"))
	}
	if bal, err := decimal.NewFromString(c.Seed.InitialBalance); err != nil {
		errs = append(errs, fmt.Errorf("seed.initial_balance: %w", err))
	} else if bal.IsNegative() {
		errs = append(errs, fmt.Errorf("seed.initial_balance cannot be negative"))
	}
	if _, err := time.LoadLocation(c.Snapshot.Location); err != nil {
		errs = append(errs, fmt.Errorf("snapshot.location: %w", err))
	}

	for name := range c.Providers {
		if !slices.Contains(provider.Names, name) {
			errs = append(errs, fmt.Errorf("unknown provider %q", name))
		}
	}
	for class, names := range c.chainsByClass() {
		for _, name := range names {
			if !slices.Contains(provider.Names, name) {
				errs = append(errs, fmt.Errorf("chains.%s names unknown provider %q", class, name))
			}
		}
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) chainsByClass() map[domain.AssetClass][]string {
	return map[domain.AssetClass][]string{
		domain.AssetClassStock:  c.Chains.Stock,
		domain.AssetClassETF:    c.Chains.ETF,
		domain.AssetClassCrypto: c.Chains.Crypto,
	}
}

// Chain returns the configured fallback order for an asset class, keeping
// only enabled providers
func (c *Config) Chain(class domain.AssetClass) []string {
	var names []string
	for _, name := range c.chainsByClass()[class] {
		if c.Providers[name].Enabled {
			names = append(names, name)
		}
	}
	return names
}

// ProviderSettings converts a provider section into factory settings
func (c *Config) ProviderSettings(name string) provider.Settings {
	p := c.Providers[name]
	return provider.Settings{
		APIKey:            p.APIKey,
		APISecret:         p.APISecret,
		BaseURL:           p.BaseURL,
		Timeout:           p.Timeout,
		RequestsPerMinute: p.RequestsPerMinute,
		Burst:             p.Burst,
		Prices:            p.Prices,
	}
}

// FeePercent returns trading.fee_percent. Call after Validate.
func (c *Config) FeePercent() decimal.Decimal {
	return decimal.RequireFromString(c.Trading.FeePercent)
}

// InitialBalance returns seed.initial_balance. Call after Validate.
func (c *Config) InitialBalance() decimal.Decimal {
	return decimal.RequireFromString(c.Seed.InitialBalance)
}

// Location returns snapshot.location, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Snapshot.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}
