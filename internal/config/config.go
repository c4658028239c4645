// Package config provides configuration management for the application
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/octobridge/octobridge/consts"
	apperrors "github.com/octobridge/octobridge/pkg/errors"
	"github.com/octobridge/octobridge/pkg/logger"
	"github.com/octobridge/octobridge/pkg/telemetry"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Forge     ForgeConfig      `yaml:"forge"`
	Slack     SlackConfig      `yaml:"slack"`
	Backport  BackportConfig   `yaml:"backport"`
	Repos     RepoRegistry     `yaml:"repos"`
	Users     UserRegistry     `yaml:"users"`
	// BotUser is the forge login of the bot account. Events authored by
	// this account are never relayed, and it is never a direct recipient.
	BotUser string `yaml:"bot_user"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// ForgeConfig represents forge API access configuration
type ForgeConfig struct {
	// Host is the forge host name, e.g. "github.com" or a GHE host
	Host string `yaml:"host"`
	// APIBaseURL overrides the API base URL for self-hosted forges,
	// e.g. "https://git.example.com/api/v3/". Empty means github.com.
	APIBaseURL string `yaml:"api_base_url"`
	// Token is the personal access token used for API calls
	Token string `yaml:"token"`
	// CloneBaseURL overrides the base URL for git clones. Empty derives
	// it from Host.
	CloneBaseURL string `yaml:"clone_base_url"`
}

// SlackConfig represents chat service configuration
type SlackConfig struct {
	Enabled bool `yaml:"enabled"`
	// WebhookURL is the incoming webhook endpoint used to post messages
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// BackportConfig represents backport job execution configuration
type BackportConfig struct {
	Enabled bool `yaml:"enabled"`
	// QueueSize is the capacity of the in-memory job queue
	QueueSize int `yaml:"queue_size"`
	// Workers is the number of concurrent job workers
	Workers int `yaml:"workers"`
	// WorkDir is the directory used for temporary git clones
	WorkDir string `yaml:"work_dir"`
	// JobTimeout bounds a single cherry-pick job
	JobTimeout time.Duration `yaml:"job_timeout"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Logging: logger.Config{
			Level:  "info",
			Format: "text",
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			Prometheus: telemetry.PrometheusConfig{
				Enabled: false,
				Port:    9090,
			},
		},
		Forge: ForgeConfig{
			Host: "github.com",
		},
		Slack: SlackConfig{
			Enabled: true,
			Timeout: 10 * time.Second,
		},
		Backport: BackportConfig{
			Enabled:    true,
			QueueSize:  100,
			Workers:    1,
			WorkDir:    os.TempDir(),
			JobTimeout: 10 * time.Minute,
		},
		BotUser: consts.DefaultBotUser,
	}
}

// Load loads configuration from a file, falling back to defaults for
// unset fields
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.Wrap(apperrors.ErrCodeConfigNotFound,
				fmt.Sprintf("config file not found: %s", path), err)
		}
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigInvalid,
			"failed to read config file", err)
	}

	// Expand environment variables in the config content
	expanded := expandEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeConfigParse,
			"failed to parse config file", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} expressions
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		name, def := parts[1], parts[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return def
	})
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.New(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid server port: %d", c.Server.Port))
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		return apperrors.New(apperrors.ErrCodeConfigInvalid,
			"slack is enabled but webhook_url is empty")
	}
	if c.Backport.Enabled && c.Backport.QueueSize <= 0 {
		return apperrors.New(apperrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid backport queue size: %d", c.Backport.QueueSize))
	}
	if c.BotUser == "" {
		c.BotUser = consts.DefaultBotUser
	}
	return nil
}

// Addr returns the server listen address
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
