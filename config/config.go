// Package config loads the settings consumed by the websocket market client.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"time"

	"github.com/IvanTurko/bitfinex-ws-go/sdkerr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultURL              = "wss://api-pub.bitfinex.com/ws/2"
	DefaultWriteTimeout     = 300 * time.Millisecond
	DefaultHandshakeTimeout = 10 * time.Second
)

// Config is passed to the client constructor. Nothing here is read from
// process-wide state.
type Config struct {
	// URL is the websocket endpoint.
	URL string `yaml:"url"`
	// AllowedVersions lists the protocol versions accepted in the server's
	// info event. A mismatch closes the connection.
	AllowedVersions  []int         `yaml:"allowed_versions"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	// LogLevel is used by the CLI: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with every default applied.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	c.AllowedVersions = slices.Clone(c.AllowedVersions)
	c.applyDefaults()
	return c
}

// Load reads a YAML config file, expands ${VAR} references, applies
// defaults and validates the result.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if len(c.AllowedVersions) == 0 {
		c.AllowedVersions = []int{2}
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.URL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("url: %w", err))
	case u.Scheme != "ws" && u.Scheme != "wss":
		errs = append(errs, fmt.Errorf("url: scheme must be ws or wss, got %q", u.Scheme))
	case u.Host == "":
		errs = append(errs, errors.New("url: host is required"))
	}

	if len(c.AllowedVersions) == 0 {
		errs = append(errs, errors.New("allowed_versions: at least one version is required"))
	}
	for _, v := range c.AllowedVersions {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("allowed_versions: invalid version %d", v))
		}
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	if len(errs) > 0 {
		return sdkerr.NewSDKError().
			WithSubsys("config").
			WithOp("Config.Validate").
			WithKind(sdkerr.ErrConfiguration).
			WithCause(errors.Join(errs...))
	}
	return nil
}

// VersionAllowed reports whether v is in AllowedVersions.
func (c Config) VersionAllowed(v int) bool {
	return slices.Contains(c.AllowedVersions, v)
}
