// Package config loads uploader settings from qppupload.yml and the
// environment. Environment variables override the file; defaults fill
// whatever neither sets.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultListenAddr = "127.0.0.1:8085"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Config holds uploader settings.
type Config struct {
	// BaseURL is the root of the Submissions service API.
	BaseURL string `yaml:"baseUrl,omitempty"`

	// Token is the caller's bearer token. Usually supplied per invocation
	// rather than stored in the file.
	Token string `yaml:"token,omitempty"`

	// OrganizationID selects the organization the caller acts for.
	OrganizationID string `yaml:"organizationId,omitempty"`

	// Timeout bounds each HTTP request to the service.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxConcurrentWrites caps concurrent measurement-set writes; 0 means
	// no cap.
	MaxConcurrentWrites int `yaml:"maxConcurrentWrites,omitempty"`

	// ListenAddr is where `serve` and `mcp --http` listen.
	ListenAddr string `yaml:"listenAddr,omitempty"`

	Log LogConfig `yaml:"log,omitempty"`
}

// LogConfig configures logging.Setup.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Environment variable names.
const (
	EnvBaseURL             = "QPP_BASE_URL"
	EnvToken               = "QPP_TOKEN"
	EnvOrganizationID      = "QPP_ORGANIZATION_ID"
	EnvTimeout             = "QPP_TIMEOUT"
	EnvMaxConcurrentWrites = "QPP_MAX_CONCURRENT_WRITES"
	EnvListenAddr          = "QPP_LISTEN_ADDR"
	EnvLogLevel            = "QPP_LOG_LEVEL"
	EnvLogFormat           = "QPP_LOG_FORMAT"
)

// Load reads qppupload.yml or qppupload.yaml from dir, applies environment
// overrides and defaults. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg, err := loadFile(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func loadFile(dir string) (*Config, error) {
	for _, name := range []string{"qppupload.yml", "qppupload.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg Config
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &Config{}, nil
}

// applyEnv overrides fields from getenv; unset variables leave the field alone.
func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.BaseURL, EnvBaseURL)
	setString(&c.Token, EnvToken)
	setString(&c.OrganizationID, EnvOrganizationID)
	setString(&c.ListenAddr, EnvListenAddr)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)

	if v := getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		c.Timeout = d
	}
	if v := getenv(EnvMaxConcurrentWrites); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxConcurrentWrites, err)
		}
		c.MaxConcurrentWrites = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// Validate checks the settings an upload needs. It is called by commands
// that talk to the service, not by Load, so `--version` and friends work
// without a base URL.
func (c *Config) Validate() error {
	var errs []error
	if c.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base URL is required (%s or baseUrl)", EnvBaseURL))
	} else if u, err := url.Parse(c.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("base URL %q is not an absolute URL", c.BaseURL))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.MaxConcurrentWrites < 0 {
		errs = append(errs, fmt.Errorf("maxConcurrentWrites must not be negative, got %d", c.MaxConcurrentWrites))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation: %w", errors.Join(errs...))
	}
	return nil
}
