package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"AssetDash/internal/model"
)

// Config holds all application configuration. It is built once at startup and
// passed down explicitly.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`
	Cache struct {
		Path         string `yaml:"path"`          // empty keeps the cache in memory
		RefreshToday bool   `yaml:"refresh_today"` // re-fetch today's bar on every request
	} `yaml:"cache"`
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Assets []model.Asset `yaml:"assets"`
	Log    struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json or pretty
		Dir    string `yaml:"dir"`    // empty disables file logging
	} `yaml:"log"`
	Schedule struct {
		WarmCron string `yaml:"warm_cron"` // empty disables the cache warmer
		WarmDays int    `yaml:"warm_days"` // calendar days warmed, ending today
	} `yaml:"schedule"`
	Proxy string `yaml:"proxy"`
}

// DefaultAssets is the watch list used when the config file names none.
var DefaultAssets = []model.Asset{
	{Name: "아이렌", Symbol: "IREN"},
	{Name: "로켓랩", Symbol: "RKLB"},
	{Name: "비트코인", Symbol: "BTC-USD"},
	{Name: "이더리움", Symbol: "ETH-USD"},
	{Name: "원달러환율", Symbol: "KRW=X"},
	{Name: "금", Symbol: "GC=F"},
	{Name: "은", Symbol: "SI=F"},
	{Name: "구리", Symbol: "HG=F"},
	{Name: "나스닥100", Symbol: "^IXIC"},
	{Name: "S&P500", Symbol: "^GSPC"},
}

// Load reads the optional .env file and the optional YAML file at path, then
// applies environment variable overrides and defaults. Variables already set
// in the environment win over .env entries.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	cfg.Cache.Path = "data/prices.db"

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("WEB_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("WEB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("WEB_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v, ok := os.LookupEnv("CACHE_PATH"); ok {
		cfg.Cache.Path = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		cfg.Log.Dir = v
	}
	if v := os.Getenv("WARM_CRON"); v != "" {
		cfg.Schedule.WarmCron = v
	}

	// Defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if len(cfg.Assets) == 0 {
		cfg.Assets = append([]model.Asset(nil), DefaultAssets...)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "pretty"
	}
	if cfg.Schedule.WarmDays == 0 {
		cfg.Schedule.WarmDays = 365
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("assets must not be empty")
	}
	seen := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("assets[%d].symbol is required", i)
		}
		if seen[a.Symbol] {
			return fmt.Errorf("assets[%d]: duplicate symbol %s", i, a.Symbol)
		}
		seen[a.Symbol] = true
	}
	if c.Schedule.WarmDays < 1 {
		return fmt.Errorf("schedule.warm_days must be positive, got %d", c.Schedule.WarmDays)
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("log.format must be json or pretty, got %q", c.Log.Format)
	}
	return nil
}

// Addr is the listen address of the web server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DisplayHost is the host to print in URLs; wildcard binds show as loopback.
func (c *Config) DisplayHost() string {
	if c.Server.Host == "0.0.0.0" || c.Server.Host == "::" {
		return "127.0.0.1"
	}
	return c.Server.Host
}

// Asset looks up a configured asset by symbol.
func (c *Config) Asset(symbol string) (model.Asset, bool) {
	for _, a := range c.Assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return model.Asset{}, false
}
