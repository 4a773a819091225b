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
	Content   ContentConfig   `yaml:"content" mapstructure:"content"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	Pricing   PricingConfig   `yaml:"pricing" mapstructure:"pricing"`
	Mongo     MongoConfig     `yaml:"mongo" mapstructure:"mongo"`
	RunLog    RunLogConfig    `yaml:"runlog" mapstructure:"runlog"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ContentConfig configures the lexicon content API client.
type ContentConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Key         string  `yaml:"key" mapstructure:"key"`
	LocationID  string  `yaml:"location_id" mapstructure:"location_id"`
	BlogID      string  `yaml:"blog_id" mapstructure:"blog_id"`
	CacheDir    string  `yaml:"cache_dir" mapstructure:"cache_dir"`
	PageSize    int     `yaml:"page_size" mapstructure:"page_size"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EnrichConfig configures batching and snapshot behavior.
type EnrichConfig struct {
	BatchSize      int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelaySecs int    `yaml:"batch_delay_secs" mapstructure:"batch_delay_secs"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
	SnapshotJSON   string `yaml:"snapshot_json" mapstructure:"snapshot_json"`
	SnapshotCSV    string `yaml:"snapshot_csv" mapstructure:"snapshot_csv"`
}

// PricingConfig holds per-model token pricing (USD per 1K tokens).
type PricingConfig struct {
	Models map[string]ModelRate `yaml:"models" mapstructure:"models"`
}

// ModelRate holds per-1K-token pricing for one model.
type ModelRate struct {
	InputPer1K  float64 `yaml:"input_per_1k" mapstructure:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k" mapstructure:"output_per_1k"`
}

// MongoConfig configures the document store sink.
type MongoConfig struct {
	URI        string `yaml:"uri" mapstructure:"uri"`
	Database   string `yaml:"database" mapstructure:"database"`
	Collection string `yaml:"collection" mapstructure:"collection"`
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// RunLogConfig configures the local run history database.
type RunLogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("EXICON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secret keys default to empty so AutomaticEnv can bind them
	// during Unmarshal.
	v.SetDefault("content.base_url", "https://backend.leadconnectorhq.com")
	v.SetDefault("content.key", "")
	v.SetDefault("content.location_id", "")
	v.SetDefault("content.blog_id", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("content.cache_dir", ".exicon-cache")
	v.SetDefault("content.page_size", 100)
	v.SetDefault("content.timeout_secs", 30)
	v.SetDefault("content.rate_per_sec", 4)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("enrich.batch_size", 10)
	v.SetDefault("enrich.batch_delay_secs", 5)
	v.SetDefault("enrich.max_retries", 2)
	v.SetDefault("enrich.snapshot_json", "exercises-enriched.json")
	v.SetDefault("enrich.snapshot_csv", "exercises-enriched.csv")
	v.SetDefault("pricing.models", map[string]any{
		"claude-sonnet-4-5-20250929": map[string]any{
			"input_per_1k":  0.003,
			"output_per_1k": 0.015,
		},
		"claude-haiku-4-5-20251001": map[string]any{
			"input_per_1k":  0.0008,
			"output_per_1k": 0.004,
		},
	})
	v.SetDefault("mongo.database", "exicon")
	v.SetDefault("mongo.collection", "exercises")
	v.SetDefault("mongo.batch_size", 50)
	v.SetDefault("runlog.path", "exicon-runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that the settings a command depends on are present.
func (c *Config) Validate(scope string) error {
	switch scope {
	case "enrich":
		if c.Anthropic.Key == "" {
			return eris.New("config: EXICON_ANTHROPIC_KEY is required")
		}
		if c.Content.LocationID == "" || c.Content.BlogID == "" {
			return eris.New("config: content.location_id and content.blog_id are required")
		}
	case "sync":
		if c.Mongo.URI == "" {
			return eris.New("config: EXICON_MONGO_URI is required")
		}
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
