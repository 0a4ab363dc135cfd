package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Jobs    JobsConfig    `yaml:"jobs" mapstructure:"jobs"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "postgres" or "sqlite"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig holds LLM API settings.
type LLMConfig struct {
	Key             string  `yaml:"key" mapstructure:"key"`
	Model           string  `yaml:"model" mapstructure:"model"`
	MaxTokens       int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs     int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerMin  int     `yaml:"requests_per_min" mapstructure:"requests_per_min"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
}

// ScoringConfig holds importance-scoring service settings.
type ScoringConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServicePolicy configures retry behavior for one external-service class.
type ServicePolicy struct {
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	WaitMs      int `yaml:"wait_ms" mapstructure:"wait_ms"`
	JitterMs    int `yaml:"jitter_ms" mapstructure:"jitter_ms"`
}

// RetryConfig configures the per-service retry policies. Attempt counts
// are configuration, not hard-coded invariants.
type RetryConfig struct {
	LLM ServicePolicy `yaml:"llm" mapstructure:"llm"`
	RPC ServicePolicy `yaml:"rpc" mapstructure:"rpc"`
}

// JobsConfig configures the job tracker and worker pool.
type JobsConfig struct {
	Workers           int `yaml:"workers" mapstructure:"workers"`
	QueueDepth        int `yaml:"queue_depth" mapstructure:"queue_depth"`
	RetentionMins     int `yaml:"retention_mins" mapstructure:"retention_mins"`
	MaxTracked        int `yaml:"max_tracked" mapstructure:"max_tracked"`
	SweepIntervalSecs int `yaml:"sweep_interval_secs" mapstructure:"sweep_interval_secs"`
}

// MetricsConfig configures metric aggregation behavior.
type MetricsConfig struct {
	// CountFallbackAsError decides whether a fallback-completed run
	// increments the error-rate numerator or only the degraded counter.
	CountFallbackAsError bool `yaml:"count_fallback_as_error" mapstructure:"count_fallback_as_error"`
}

// ServerConfig configures the HTTP job API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("NOTICIAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// SetDefaults registers every configuration default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "noticias.db")
	v.SetDefault("store.timeout_secs", 30)

	v.SetDefault("llm.model", "claude-haiku-4-5-20251001")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_secs", 60)
	v.SetDefault("llm.requests_per_min", 50)
	v.SetDefault("llm.temperature", 0.1)

	v.SetDefault("scoring.base_url", "http://localhost:8100")
	v.SetDefault("scoring.timeout_secs", 10)

	v.SetDefault("retry.llm.max_attempts", 3)
	v.SetDefault("retry.llm.wait_ms", 5000)
	v.SetDefault("retry.llm.jitter_ms", 1000)
	v.SetDefault("retry.rpc.max_attempts", 2)
	v.SetDefault("retry.rpc.wait_ms", 2000)

	v.SetDefault("jobs.workers", 10)
	v.SetDefault("jobs.queue_depth", 100)
	v.SetDefault("jobs.retention_mins", 60)
	v.SetDefault("jobs.max_tracked", 1000)
	v.SetDefault("jobs.sweep_interval_secs", 60)

	v.SetDefault("metrics.count_fallback_as_error", false)

	v.SetDefault("server.port", 8080)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that the fields required by the given mode ("run",
// "serve", "migrate") are present and within bounds. It collects every
// problem rather than stopping at the first.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run", "serve", "migrate":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "postgres" && c.Store.Driver != "sqlite" {
		problems = append(problems, "store.driver must be postgres or sqlite")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	if mode == "run" || mode == "serve" {
		if c.LLM.Key == "" {
			problems = append(problems, "llm.key is required")
		}
		if c.Retry.LLM.MaxAttempts < 1 || c.Retry.LLM.MaxAttempts > 10 {
			problems = append(problems, "retry.llm.max_attempts must be between 1 and 10")
		}
		if c.Retry.RPC.MaxAttempts < 1 || c.Retry.RPC.MaxAttempts > 10 {
			problems = append(problems, "retry.rpc.max_attempts must be between 1 and 10")
		}
	}

	if mode == "serve" {
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		if c.Jobs.Workers < 1 || c.Jobs.Workers > 100 {
			problems = append(problems, "jobs.workers must be between 1 and 100")
		}
		if c.Jobs.QueueDepth < 1 {
			problems = append(problems, "jobs.queue_depth must be > 0")
		}
		if c.Jobs.MaxTracked < 1 {
			problems = append(problems, "jobs.max_tracked must be > 0")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
