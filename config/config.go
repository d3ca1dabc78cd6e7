// Package config loads runtime configuration for SupportMesh deployments
// and builds agent trees from declarative YAML specs.
//
// Runtime settings follow a fixed precedence: built-in defaults, then an
// optional YAML file, then SUPPORTMESH_* environment variables. Tree specs
// are plain YAML documents describing the node hierarchy; Build turns them
// into a live core.Agent tree against a model and tool adapter.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hupe1980/supportmesh/logging"
)

// Provider names accepted by Config.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

// Config holds all runtime settings for a deployment.
type Config struct {
	// Provider selects the model backend: anthropic, openai or mock.
	Provider string `mapstructure:"provider"`
	// Model names the provider model. Empty uses the adapter's default.
	Model string `mapstructure:"model"`

	Logging   LoggingConfig   `mapstructure:"logging"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

// LimitsConfig bounds concurrent work and per-turn model spend.
type LimitsConfig struct {
	// MaxConcurrentTurns caps turns in flight across all sessions. Zero
	// means unlimited.
	MaxConcurrentTurns int `mapstructure:"max_concurrent_turns"`
	// MaxModelCallsPerTurn caps model calls one turn may spend across all
	// nodes. Zero means unlimited.
	MaxModelCallsPerTurn int `mapstructure:"max_model_calls_per_turn"`
}

// TimeoutsConfig bounds the runtime's blocking operations.
type TimeoutsConfig struct {
	// Model bounds each completion call.
	Model time.Duration `mapstructure:"model"`
	// Classify bounds each routing classification.
	Classify time.Duration `mapstructure:"classify"`
	// Tool bounds each tool execution.
	Tool time.Duration `mapstructure:"tool"`
	// Turn bounds end-to-end processing of one turn. Zero disables it.
	Turn time.Duration `mapstructure:"turn"`
}

// RetentionConfig whitelists the scratch entries that survive turn
// boundaries. Everything else is cleared when a turn ends.
type RetentionConfig struct {
	Keys     []string `mapstructure:"keys"`
	Prefixes []string `mapstructure:"prefixes"`
}

// Load reads configuration with the following precedence, highest first:
//
//  1. SUPPORTMESH_* environment variables (SUPPORTMESH_LOGGING_LEVEL,
//     SUPPORTMESH_LIMITS_MAX_CONCURRENT_TURNS, ...)
//  2. the YAML file at path; an empty path skips the file
//  3. built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("SUPPORTMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		// Defaults always validate; a failure here is a programming error.
		panic(err)
	}

	return cfg
}

// Validate checks enum fields and rejects negative limits and timeouts.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown provider %q (want %s, %s or %s)",
			c.Provider, ProviderAnthropic, ProviderOpenAI, ProviderMock)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q (want json or text)", c.Logging.Format)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q (want debug, info, warn or error)", c.Logging.Level)
	}

	if c.Limits.MaxConcurrentTurns < 0 {
		return fmt.Errorf("limits.max_concurrent_turns must not be negative, got %d", c.Limits.MaxConcurrentTurns)
	}

	if c.Limits.MaxModelCallsPerTurn < 0 {
		return fmt.Errorf("limits.max_model_calls_per_turn must not be negative, got %d", c.Limits.MaxModelCallsPerTurn)
	}

	for name, d := range map[string]time.Duration{
		"timeouts.model":    c.Timeouts.Model,
		"timeouts.classify": c.Timeouts.Classify,
		"timeouts.tool":     c.Timeouts.Tool,
		"timeouts.turn":     c.Timeouts.Turn,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative, got %s", name, d)
		}
	}

	return nil
}

// Logger builds a structured logger from the logging section.
func (c *Config) Logger() logging.Logger {
	return logging.NewSlogLogger(logging.ParseLevel(c.Logging.Level), c.Logging.Format, c.Logging.AddSource)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", ProviderAnthropic)
	v.SetDefault("model", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("limits.max_concurrent_turns", 16)
	v.SetDefault("limits.max_model_calls_per_turn", 40)

	v.SetDefault("timeouts.model", "30s")
	v.SetDefault("timeouts.classify", "5s")
	v.SetDefault("timeouts.tool", "10s")
	v.SetDefault("timeouts.turn", "0s")

	v.SetDefault("retention.keys", []string{})
	v.SetDefault("retention.prefixes", []string{})
}
