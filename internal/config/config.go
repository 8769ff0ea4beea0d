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
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	ContactOut ContactOutConfig `yaml:"contactout" mapstructure:"contactout"`
	Jina       JinaConfig       `yaml:"jina" mapstructure:"jina"`
	Resend     ResendConfig     `yaml:"resend" mapstructure:"resend"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Scrape     ScrapeConfig     `yaml:"scrape" mapstructure:"scrape"`
	Retry      RetryConfig      `yaml:"retry" mapstructure:"retry"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	ClassifyModel  string `yaml:"classify_model" mapstructure:"classify_model"`
	ExtractModel   string `yaml:"extract_model" mapstructure:"extract_model"`
	CopywriteModel string `yaml:"copywrite_model" mapstructure:"copywrite_model"`
}

// ContactOutConfig holds enrichment provider settings.
type ContactOutConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	SearchLimit    int     `yaml:"search_limit" mapstructure:"search_limit"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	SearchBaseURL string `yaml:"search_base_url" mapstructure:"search_base_url"`
}

// ResendConfig holds outbound email settings.
type ResendConfig struct {
	Key  string `yaml:"key" mapstructure:"key"`
	From string `yaml:"from" mapstructure:"from"`
}

// NotionConfig holds the optional prospect-export settings.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	ProspectDB string `yaml:"prospect_db" mapstructure:"prospect_db"`
}

// OutreachConfig configures email draft generation and sending.
type OutreachConfig struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
}

// ScrapeConfig configures the web-scrape handler.
type ScrapeConfig struct {
	MaxSearchResults int     `yaml:"max_search_results" mapstructure:"max_search_results"`
	ContentCharLimit int     `yaml:"content_char_limit" mapstructure:"content_char_limit"`
	PagesPerSec      float64 `yaml:"pages_per_sec" mapstructure:"pages_per_sec"`
}

// RetryConfig configures outbound call retries.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// ServerConfig configures the HTTP API.
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

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "prospects.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.classify_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.extract_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.copywrite_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("contactout.base_url", "https://api.contactout.com/v1")
	v.SetDefault("contactout.requests_per_sec", 5)
	v.SetDefault("contactout.search_limit", 25)
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.search_base_url", "https://s.jina.ai")
	v.SetDefault("outreach.batch_size", 10)
	v.SetDefault("scrape.max_search_results", 5)
	v.SetDefault("scrape.content_char_limit", 18000)
	v.SetDefault("scrape.pages_per_sec", 1)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 1000)
	v.SetDefault("retry.max_backoff_ms", 30000)

	// AutomaticEnv only resolves keys viper already knows about, so keys
	// without defaults (credentials, mostly) need explicit bindings or their
	// PROSPECT_* variables are silently ignored.
	for _, key := range []string{
		"anthropic.key",
		"contactout.key",
		"jina.key",
		"resend.key",
		"resend.from",
		"notion.token",
		"notion.prospect_db",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

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
