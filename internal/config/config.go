// Package config loads teamtemp settings from defaults, an optional YAML
// file and environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/pfrederiksen/teamtemp/internal/logger"
	"github.com/pfrederiksen/teamtemp/internal/payload"
	"github.com/pfrederiksen/teamtemp/internal/source"
)

// Environment variables read by Load.
const (
	EnvConfig      = "TEAMTEMP_CONFIG"
	EnvCacheTTL    = "CACHE_TTL_SEC"
	EnvDefaultURL  = "TEAMTEMP_URL"
	EnvSourcesJSON = "SOURCES_JSON"
	EnvPort        = "PORT"
	EnvDatabaseURL = "DATABASE_URL"
	EnvStore       = "TEAMTEMP_STORE"
	EnvDataDir     = "TEAMTEMP_DATA_DIR"
	EnvLogLevel    = "TEAMTEMP_LOG_LEVEL"
	EnvWorkers     = "TEAMTEMP_WORKERS"
)

// Store kinds.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	Scrape ScrapeConfig `yaml:"scrape"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`

	// Seed lists the sources added to an empty registry. It takes
	// precedence over SourcesJSON and DefaultURL.
	Seed        []source.Seed `yaml:"seed"`
	SourcesJSON string        `yaml:"sources_json"`
	DefaultURL  string        `yaml:"default_url"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type ScrapeConfig struct {
	Variable  string        `yaml:"variable"`
	Workers   int           `yaml:"workers"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type StoreConfig struct {
	Kind        string `yaml:"kind"`
	DataDir     string `yaml:"data_dir"`
	DatabaseURL string `yaml:"database_url"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ShutdownTimeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			TTL: 600 * time.Second,
		},
		Scrape: ScrapeConfig{
			Variable: payload.DefaultVariable,
			Workers:  4,
			Timeout:  30 * time.Second,
		},
		Store: StoreConfig{
			DataDir: "~/.local/share/teamtemp",
		},
		Log: LogConfig{
			Level: string(logger.LevelInfo),
		},
	}
}

// Load builds the configuration. path names an optional YAML file; when it
// is empty TEAMTEMP_CONFIG is consulted. Environment variables override the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		overlay, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if err := mergo.Merge(cfg, overlay, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	cfg.finalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvCacheTTL); v != "" {
		secs, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvCacheTTL, err)
		}
		c.Cache.TTL = time.Duration(secs) * time.Second
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		c.Scrape.Workers = n
	}
	if v := os.Getenv(EnvDefaultURL); v != "" {
		c.DefaultURL = v
	}
	if v := os.Getenv(EnvSourcesJSON); v != "" {
		c.SourcesJSON = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Store.DatabaseURL = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store.Kind = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return nil
}

// finalize fills values that depend on other settings.
func (c *Config) finalize() {
	c.Store.Kind = strings.ToLower(strings.TrimSpace(c.Store.Kind))
	if c.Store.Kind == "" {
		if c.Store.DatabaseURL != "" {
			c.Store.Kind = StorePostgres
		} else {
			c.Store.Kind = StoreFile
		}
	}
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be > 0")
	}
	if c.Scrape.Workers < 1 {
		return fmt.Errorf("scrape workers must be >= 1")
	}
	if c.Scrape.Timeout <= 0 {
		return fmt.Errorf("scrape timeout must be > 0")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Store.Kind {
	case StoreFile, StoreSQLite:
		if c.Store.DataDir == "" {
			return fmt.Errorf("store data_dir is required for %s store", c.Store.Kind)
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("%s is required for postgres store", EnvDatabaseURL)
		}
	default:
		return fmt.Errorf("unsupported store kind %q (use file, sqlite or postgres)", c.Store.Kind)
	}

	if _, err := c.Seeds(); err != nil {
		return err
	}
	return nil
}

// Seeds returns the sources applied to an empty registry: the seed list,
// else SOURCES_JSON, else the single default URL.
func (c *Config) Seeds() ([]source.Seed, error) {
	if len(c.Seed) > 0 {
		return c.Seed, nil
	}
	if strings.TrimSpace(c.SourcesJSON) != "" {
		seeds, err := source.ParseSeeds(c.SourcesJSON)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvSourcesJSON, err)
		}
		return seeds, nil
	}
	if c.DefaultURL != "" {
		return []source.Seed{{URL: c.DefaultURL}}, nil
	}
	return nil, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
