package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ExchangeEndpoints struct {
	RESTEndpoint string `yaml:"rest_endpoint"`
	WSEndpoint   string `yaml:"ws_endpoint"`
}

type Config struct {
	Redis struct {
		Addr      string `yaml:"addr"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Registry struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"registry"`

	Server struct {
		Port         int      `yaml:"port"`
		APIKeys      []string `yaml:"api_keys"`      // static keys for the read API
		SessionToken string   `yaml:"session_token"` // dashboard session boundary
	} `yaml:"server"`

	Exchanges struct {
		OKX   ExchangeEndpoints `yaml:"okx"`
		Aster ExchangeEndpoints `yaml:"aster"`
	} `yaml:"exchanges"`

	Collection struct {
		CallTimeoutMs      int  `yaml:"call_timeout_ms"`
		MaxConcurrency     int  `yaml:"max_concurrency"`
		SyncTradeHistory   bool `yaml:"sync_trade_history"`
		TradeLookbackHours int  `yaml:"trade_lookback_hours"`
	} `yaml:"collection"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	if env := os.Getenv("CONFIG_FILE"); env != "" {
		path = env
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if dsn := os.Getenv("REGISTRY_DB"); dsn != "" {
		cfg.Registry.DBPath = dsn
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Collection.CallTimeoutMs) * time.Millisecond
}

func (c *Config) TradeLookback() time.Duration {
	return time.Duration(c.Collection.TradeLookbackHours) * time.Hour
}

func (c *Config) applyDefaults() {
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "monitor"
	}
	if c.Registry.DBPath == "" {
		c.Registry.DBPath = "accounts.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Collection.CallTimeoutMs == 0 {
		c.Collection.CallTimeoutMs = 10000
	}
	if c.Collection.MaxConcurrency == 0 {
		c.Collection.MaxConcurrency = 8
	}
	if c.Collection.TradeLookbackHours == 0 {
		c.Collection.TradeLookbackHours = 24
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Exchanges.OKX.RESTEndpoint == "" {
		c.Exchanges.OKX.RESTEndpoint = "https://www.okx.com"
	}
	if c.Exchanges.Aster.RESTEndpoint == "" {
		c.Exchanges.Aster.RESTEndpoint = "https://fapi.asterdex.com"
	}
}
