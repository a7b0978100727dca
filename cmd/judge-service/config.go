package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/sandbox/engine"
	"codejudge/internal/judge/sandbox/profile"
	"codejudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8085"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 60 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultQueueWait       = 2 * time.Second
	defaultHandlerTimeout  = 60 * time.Second
)

const (
	sandboxModeIsolated = "isolated"
	sandboxModeDocker   = "docker"
	sandboxModeDirect   = "direct"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// WorkerConfig holds worker pool settings.
type WorkerConfig struct {
	PoolSize  int           `yaml:"poolSize"`
	QueueWait time.Duration `yaml:"queueWait"`
}

// JudgeConfig holds judge work settings.
type JudgeConfig struct {
	WorkRoot     string `yaml:"workRoot"`
	MaxCodeBytes int    `yaml:"maxCodeBytes"`
	MaxTestCases int    `yaml:"maxTestCases"`
}

// SandboxConfig holds sandbox backend settings.
type SandboxConfig struct {
	Mode                 string `yaml:"mode"`
	CgroupRoot           string `yaml:"cgroupRoot"`
	SeccompDir           string `yaml:"seccompDir"`
	HelperPath           string `yaml:"helperPath"`
	StdoutStderrMaxBytes int64  `yaml:"stdoutStderrMaxBytes"`
	EnableSeccomp        bool   `yaml:"enableSeccomp"`
	EnableCgroup         bool   `yaml:"enableCgroup"`
	EnableNamespaces     bool   `yaml:"enableNamespaces"`
	DockerHost           string `yaml:"dockerHost"`
}

// NATSConfig holds queue transport settings. An empty URL disables it.
type NATSConfig struct {
	URL            string        `yaml:"url"`
	Name           string        `yaml:"name"`
	QueueGroup     string        `yaml:"queueGroup"`
	Concurrency    int           `yaml:"concurrency"`
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
	MessageTTL     time.Duration `yaml:"messageTTL"`
	MaxReconnects  int           `yaml:"maxReconnects"`
	ReconnectWait  time.Duration `yaml:"reconnectWait"`
}

// LanguageConfig holds language definitions layered over the built-in table.
type LanguageConfig struct {
	Languages []profile.LanguageSpec `yaml:"languages"`
}

// AppConfig holds judge-service config.
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Logger   logger.Config  `yaml:"logger"`
	Worker   WorkerConfig   `yaml:"worker"`
	Judge    JudgeConfig    `yaml:"judge"`
	Sandbox  SandboxConfig  `yaml:"sandbox"`
	NATS     NATSConfig     `yaml:"nats"`
	Language LanguageConfig `yaml:"language"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 1
	}
	if cfg.Worker.QueueWait == 0 {
		cfg.Worker.QueueWait = defaultQueueWait
	}
	cfg.Sandbox.Mode = strings.ToLower(strings.TrimSpace(cfg.Sandbox.Mode))
	switch cfg.Sandbox.Mode {
	case "":
		cfg.Sandbox.Mode = sandboxModeIsolated
	case sandboxModeIsolated, sandboxModeDocker, sandboxModeDirect:
	default:
		return nil, fmt.Errorf("unknown sandbox mode %q", cfg.Sandbox.Mode)
	}
	if cfg.NATS.URL != "" {
		if cfg.NATS.Concurrency <= 0 {
			cfg.NATS.Concurrency = cfg.Worker.PoolSize
		}
		if cfg.NATS.HandlerTimeout == 0 {
			cfg.NATS.HandlerTimeout = defaultHandlerTimeout
		}
	}
	return &cfg, nil
}

// languages layers configured entries over the built-in table; an entry
// with a built-in id replaces it.
func (c LanguageConfig) languages() []profile.LanguageSpec {
	return append(profile.DefaultLanguages(), c.Languages...)
}

func (s SandboxConfig) toEngineConfig() engine.Config {
	return engine.Config{
		CgroupRoot:           s.CgroupRoot,
		SeccompDir:           s.SeccompDir,
		HelperPath:           s.HelperPath,
		StdoutStderrMaxBytes: s.StdoutStderrMaxBytes,
		EnableSeccomp:        s.EnableSeccomp,
		EnableCgroup:         s.EnableCgroup,
		EnableNamespaces:     s.EnableNamespaces,
	}
}

func (n NATSConfig) toMQConfig() mq.NATSConfig {
	return mq.NATSConfig{
		URL:           n.URL,
		Name:          n.Name,
		MaxReconnects: n.MaxReconnects,
		ReconnectWait: n.ReconnectWait,
	}
}

func (n NATSConfig) toSubscribeOptions() *mq.SubscribeOptions {
	return &mq.SubscribeOptions{
		QueueGroup:     n.QueueGroup,
		Concurrency:    n.Concurrency,
		HandlerTimeout: n.HandlerTimeout,
		MessageTTL:     n.MessageTTL,
	}
}
