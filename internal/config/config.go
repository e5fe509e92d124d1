// Package config loads second-mind configuration from defaults, an optional
// YAML file, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SECOND_MIND"

// Config is the full application configuration.
type Config struct {
	DB         string           `mapstructure:"db"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Router     RouterConfig     `mapstructure:"router"`
	Generation GenerationConfig `mapstructure:"generation"`
	Assistant  AssistantConfig  `mapstructure:"assistant"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`

	// ConfigFile is the config file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type RouterConfig struct {
	Model            string        `mapstructure:"model"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Timeout          time.Duration `mapstructure:"timeout"`
	CoreIdentityFile string        `mapstructure:"core_identity_file"`
}

type GenerationConfig struct {
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type AssistantConfig struct {
	Name  string `mapstructure:"name"`
	Owner string `mapstructure:"owner"`
}

type HistoryConfig struct {
	MaxExchanges int `mapstructure:"max_exchanges"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// providerKeyEnv maps a provider to the conventional API key variable used
// when llm.api_key is unset.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

type loader struct {
	configFile string
	envFiles   []string
	homeDir    string
}

// Option configures Load.
type Option func(*loader)

// WithConfigFile reads path, which must exist.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFiles replaces the default .env.local and .env lookups. Missing
// files are skipped.
func WithEnvFiles(paths ...string) Option {
	return func(l *loader) { l.envFiles = paths }
}

// WithHomeDir overrides the home directory used for default paths.
func WithHomeDir(dir string) Option {
	return func(l *loader) { l.homeDir = dir }
}

// Load builds a Config. Precedence, highest first: environment (including
// values from .env files that were not already set), config file, defaults.
func Load(opts ...Option) (*Config, error) {
	l := &loader{envFiles: []string{".env.local", ".env"}}
	for _, opt := range opts {
		opt(l)
	}
	if l.homeDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		l.homeDir = home
	}

	if err := loadEnvFiles(l.envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, l.homeDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.AddConfigPath(dataDir(l.homeDir))
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigFile = v.ConfigFileUsed()

	if cfg.LLM.APIKey == "" {
		if env, ok := providerKeyEnv[strings.ToLower(cfg.LLM.Provider)]; ok {
			cfg.LLM.APIKey = os.Getenv(env)
		}
	}
	if cfg.DB == "" {
		cfg.DB = DefaultDBPath(l.homeDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultDBPath returns the database path under home.
func DefaultDBPath(home string) string {
	return filepath.Join(dataDir(home), "memory.db")
}

func dataDir(home string) string {
	return filepath.Join(home, ".second-mind")
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("db", DefaultDBPath(home))

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("router.model", "claude-haiku-4-5-20251001")
	v.SetDefault("router.max_tokens", 256)
	v.SetDefault("router.timeout", "10s")
	v.SetDefault("router.core_identity_file", "Gaurav.md")

	v.SetDefault("generation.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("generation.max_tokens", 2048)
	v.SetDefault("generation.timeout", "30s")

	v.SetDefault("assistant.name", "Second Mind")
	v.SetDefault("assistant.owner", "Gaurav")

	v.SetDefault("history.max_exchanges", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

func loadEnvFiles(paths []string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 0 || c.Server.Port > 65535:
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	case c.Router.MaxTokens <= 0:
		return fmt.Errorf("router.max_tokens must be positive, got %d", c.Router.MaxTokens)
	case c.Generation.MaxTokens <= 0:
		return fmt.Errorf("generation.max_tokens must be positive, got %d", c.Generation.MaxTokens)
	case c.Generation.Timeout <= 0:
		return fmt.Errorf("generation.timeout must be positive, got %s", c.Generation.Timeout)
	case c.Router.Timeout < 0:
		return fmt.Errorf("router.timeout must not be negative, got %s", c.Router.Timeout)
	case c.History.MaxExchanges < 0:
		return fmt.Errorf("history.max_exchanges must not be negative, got %d", c.History.MaxExchanges)
	}
	return nil
}
