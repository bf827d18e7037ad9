package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"cycleview/internal/analyzer"
)

const (
	DefaultBaseURL    = "https://zenfinity-intern-api-104290304048.europe-west1.run.app"
	DefaultLimit      = 100
	DefaultDateLayout = analyzer.DefaultDateLayout
)

type APIConfig struct {
	BaseURL  string        `yaml:"baseUrl"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
	Limit    int           `yaml:"limit"` // cycles per list request
}

type DisplayConfig struct {
	DateLayout string `yaml:"dateLayout"` // layout used when searching start dates
	Timezone   string `yaml:"timezone"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"` // "file" or "redis"
	TTL     time.Duration `yaml:"ttl"`
	Redis   RedisConfig   `yaml:"redis"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type Config struct {
	API     APIConfig     `yaml:"api"`
	Devices []string      `yaml:"devices"`
	Display DisplayConfig `yaml:"display"`
	Cache   CacheConfig   `yaml:"cache"`
	Server  ServerConfig  `yaml:"server"`
	Debug   bool          `yaml:"-"`
}

// Default returns a config with every field populated.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 30 * time.Second,
			Limit:   DefaultLimit,
		},
		Display: DisplayConfig{
			DateLayout: DefaultDateLayout,
			Timezone:   "Local",
		},
		Cache: CacheConfig{
			Backend: "file",
			TTL:     5 * time.Minute,
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads filename on top of the defaults and applies environment
// overrides. A missing file is not an error.
func Load(filename string) (*Config, error) {
	c := Default()

	buf, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(buf, c); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	}

	c.applyEnv(os.Getenv)
	c.fillDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("ALLOWED_IMEIS"); v != "" {
		c.Devices = ParseDeviceList(v)
	}
	if v := getenv("CYCLEVIEW_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := getenv("CYCLEVIEW_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("CYCLEVIEW_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = d.API.BaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout <= 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.API.Limit <= 0 {
		c.API.Limit = d.API.Limit
	}
	if c.Display.DateLayout == "" {
		c.Display.DateLayout = d.Display.DateLayout
	}
	if c.Display.Timezone == "" {
		c.Display.Timezone = d.Display.Timezone
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = d.Cache.TTL
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
}

func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display.timezone: %w", err)
	}
	return nil
}

// Location resolves display.timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" || c.Display.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}

// Allowed reports whether imei is one of the configured devices.
func (c *Config) Allowed(imei string) bool {
	for _, d := range c.Devices {
		if d == imei {
			return true
		}
	}
	return false
}

// ParseDeviceList splits a comma-separated IMEI list, trimming blanks.
func ParseDeviceList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
