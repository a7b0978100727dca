package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL   = "http://127.0.0.1:8085"
	DefaultTimeout   = 60 * time.Second
	TransportHTTP    = "http"
	TransportNATS    = "nats"
	defaultTransport = TransportHTTP
)

// Config holds CLI configuration.
type Config struct {
	BaseURL    string        `yaml:"baseURL"`
	Timeout    time.Duration `yaml:"timeout"`
	Transport  string        `yaml:"transport"`
	NATSURL    string        `yaml:"natsURL"`
	PrettyJSON *bool         `yaml:"prettyJSON"`
}

// Load reads a config file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config file failed: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	if err := applyDefaults(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) error {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	if cfg.Transport == "" {
		cfg.Transport = defaultTransport
	}
	if cfg.Transport != TransportHTTP && cfg.Transport != TransportNATS {
		return fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if cfg.Transport == TransportNATS && cfg.NATSURL == "" {
		return fmt.Errorf("natsURL is required for the nats transport")
	}
	if cfg.PrettyJSON == nil {
		value := true
		cfg.PrettyJSON = &value
	}
	return nil
}
