package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Prepare PrepareConfig `yaml:"prepare" mapstructure:"prepare"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Session SessionConfig `yaml:"session" mapstructure:"session"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Palette PaletteConfig `yaml:"palette" mapstructure:"palette"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the source dataset.
type DataConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
}

// PrepareConfig tunes the cleaning pipeline.
type PrepareConfig struct {
	ExcludedYears       []int   `yaml:"excluded_years" mapstructure:"excluded_years"`
	SuspiciousThreshold float64 `yaml:"suspicious_threshold" mapstructure:"suspicious_threshold"`
}

// CacheConfig bounds the view memoization cache.
type CacheConfig struct {
	ViewEntries int `yaml:"view_entries" mapstructure:"view_entries"`
}

// SessionConfig configures per-user dashboard sessions.
type SessionConfig struct {
	TTLMinutes int `yaml:"ttl_minutes" mapstructure:"ttl_minutes"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// StoreConfig configures the snapshot database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures dataset downloads.
type FetchConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// PaletteConfig points at an optional type-of-work color file.
type PaletteConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, config file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FLOODAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.path", "data/dpwh_flood_control_projects.csv")
	v.SetDefault("data.delimiter", ",")
	v.SetDefault("prepare.excluded_years", []int{2018, 2019, 2020, 2021, 2025})
	v.SetDefault("prepare.suspicious_threshold", 0.99)
	v.SetDefault("cache.view_entries", 256)
	v.SetDefault("session.ttl_minutes", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "floodaudit.db")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the values a command needs. mode is the command family:
// "prepare" (load, prepare, export, analyze), "serve", "snapshot" or "fetch".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Data.Path == "" {
		problems = append(problems, "data.path is required")
	}
	if len([]rune(c.Data.Delimiter)) != 1 {
		problems = append(problems, "data.delimiter must be a single character")
	}
	if c.Prepare.SuspiciousThreshold <= 0 || c.Prepare.SuspiciousThreshold > 1 {
		problems = append(problems, "prepare.suspicious_threshold must be in (0, 1]")
	}

	switch mode {
	case "prepare":
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
			problems = append(problems, "server.rate_limit and server.rate_burst must be > 0")
		}
		if c.Cache.ViewEntries <= 0 {
			problems = append(problems, "cache.view_entries must be > 0")
		}
	case "snapshot":
		switch c.Store.Driver {
		case "sqlite", "postgres":
		default:
			problems = append(problems, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	case "fetch":
		if c.Fetch.URL == "" {
			problems = append(problems, "fetch.url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// DelimiterRune returns the configured CSV delimiter.
func (d DataConfig) DelimiterRune() rune {
	r := []rune(d.Delimiter)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
