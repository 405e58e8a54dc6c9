// Package config provides configuration management for PageFoundry.
//
// Configuration is loaded from:
// 1. config.yaml file (optional)
// 2. Environment variables (standard names like SERVER_PORT, GITHUB_TOKEN)
// 3. Default values
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	apperrors "pagefoundry.io/foundry/internal/pkg/errors"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	GitHub      GitHubConfig      `mapstructure:"github"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Validation  ValidationConfig  `mapstructure:"validation"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	Worker      WorkerConfig      `mapstructure:"worker"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// CredentialsConfig identifies the student this instance acts for. Intake
// requests must present both values.
type CredentialsConfig struct {
	StudentEmail  string `mapstructure:"student_email"`
	StudentSecret string `mapstructure:"student_secret"`
}

// GitHubConfig contains repository publishing settings.
type GitHubConfig struct {
	Token        string        `mapstructure:"token"`
	Username     string        `mapstructure:"username"`
	APIBaseURL   string        `mapstructure:"api_base_url"`
	PagesTimeout time.Duration `mapstructure:"pages_timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// LLMConfig contains generation provider settings. Any OpenAI-compatible
// endpoint works via base_url.
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ValidationConfig contains validation stage settings.
type ValidationConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// NotifyConfig contains evaluation callback delivery settings. RetryDelays
// is the backoff schedule between attempts; attempts total len(delays)+1.
type NotifyConfig struct {
	PostTimeout time.Duration   `mapstructure:"post_timeout"`
	RetryDelays []time.Duration `mapstructure:"retry_delays"`
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	GeneralPoolSize  int `mapstructure:"general_pool_size"`
	OutboundPoolSize int `mapstructure:"outbound_pool_size"`
}

// Load reads configuration from file and environment variables.
// No env prefix: standard names like SERVER_PORT, LOG_LEVEL, GITHUB_TOKEN.
// Nested keys map with underscores: credentials.student_secret →
// CREDENTIALS_STUDENT_SECRET.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pagefoundry")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for critical configuration errors. Publishing and
// generation credentials are required: the pipeline cannot run without them.
func (c *Config) Validate() error {
	required := []struct {
		key string
		ok  bool
	}{
		{"credentials.student_email", c.Credentials.StudentEmail != ""},
		{"credentials.student_secret", c.Credentials.StudentSecret != ""},
		{"github.token", c.GitHub.Token != ""},
		{"github.username", c.GitHub.Username != ""},
		{"llm.api_key", c.LLM.APIKey != ""},
		{"notify.retry_delays", len(c.Notify.RetryDelays) > 0},
	}
	for _, r := range required {
		if !r.ok {
			return apperrors.Internal(apperrors.CodeConfigurationFault,
				fmt.Sprintf("%s must not be empty", r.key))
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// GitHub
	v.SetDefault("github.api_base_url", "https://api.github.com")
	v.SetDefault("github.pages_timeout", "5m")
	v.SetDefault("github.poll_interval", "10s")

	// LLM
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.timeout", "2m")

	// Validation
	v.SetDefault("validation.fetch_timeout", "10s")

	// Notify: exponential backoff, six attempts total.
	v.SetDefault("notify.post_timeout", "15s")
	v.SetDefault("notify.retry_delays", []string{"1s", "2s", "4s", "8s", "16s"})

	// Worker pools
	v.SetDefault("worker.general_pool_size", 50)
	v.SetDefault("worker.outbound_pool_size", 25)
}
