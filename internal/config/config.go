package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Portfolio Portfolio `mapstructure:"portfolio"`
	Signals   Signals   `mapstructure:"signals"`
	LLM       LLM       `mapstructure:"llm"`
	Market    Market    `mapstructure:"market"`
	Backtest  Backtest  `mapstructure:"backtest"`
	Logger    Logger    `mapstructure:"logger"`
	Server    Server    `mapstructure:"server"`
	Database  Database  `mapstructure:"database"`
}

// Portfolio holds the configuration for the simulated account.
type Portfolio struct {
	InitialCash        float64 `mapstructure:"initial_cash"`
	AllocationFraction float64 `mapstructure:"allocation_fraction"`
	LogDir             string  `mapstructure:"log_dir"`
}

// Signals holds the validation policy applied to model output.
type Signals struct {
	MinConfidence            float64 `mapstructure:"min_confidence"`
	AllowSellWithoutPosition bool    `mapstructure:"allow_sell_without_position"`
}

// LLM holds the configuration for the language-model classifier.
type LLM struct {
	Provider       string  `mapstructure:"provider"`
	ApiKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	SystemPrompt   string  `mapstructure:"system_prompt"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	Retries        int     `mapstructure:"retries"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	ApiLogPath     string  `mapstructure:"api_log_path"`
}

// Market holds the configuration for the market data source.
type Market struct {
	Source         string  `mapstructure:"source"`
	DataDir        string  `mapstructure:"data_dir"`
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Backtest holds the configuration for the day-by-day driver.
type Backtest struct {
	Symbols      []string `mapstructure:"symbols"`
	HistoryStart string   `mapstructure:"history_start"`
	StartDate    string   `mapstructure:"start_date"`
	EndDate      string   `mapstructure:"end_date"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("portfolio.initial_cash", 100000)
	v.SetDefault("portfolio.allocation_fraction", 0.20)
	v.SetDefault("portfolio.log_dir", "logs")

	v.SetDefault("signals.min_confidence", 0.6)
	v.SetDefault("signals.allow_sell_without_position", false)

	v.SetDefault("llm.provider", "deepseek")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.base_url", "https://api.deepseek.com")
	v.SetDefault("llm.model", "deepseek-chat")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.max_tokens", 2500)
	v.SetDefault("llm.timeout_seconds", 300)
	v.SetDefault("llm.retries", 3)
	v.SetDefault("llm.rate_limit", 1) // requests per second
	v.SetDefault("llm.rate_limit_burst", 1)
	v.SetDefault("llm.api_log_path", "logs/api_debug_log.jsonl")

	v.SetDefault("market.source", "csv")
	v.SetDefault("market.data_dir", "processed")
	v.SetDefault("market.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market.rate_limit", 2)
	v.SetDefault("market.rate_limit_burst", 2)

	v.SetDefault("backtest.symbols", []string{})
	v.SetDefault("backtest.history_start", "2025-01-01")
	v.SetDefault("backtest.start_date", "")
	v.SetDefault("backtest.end_date", "")

	v.SetDefault("database.dsn", "logs/paper_trader.db")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("server.port", 8080)
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory, if present, is loaded into the
// process environment first so secrets can stay out of config.yml.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config") // name of config file (without extension)
	v.SetConfigType("yml")

	// Allow environment variables to override config file
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	SetDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

// Validate checks the values that the portfolio pipeline relies on.
func (c Config) Validate() error {
	if c.Portfolio.InitialCash < 0 {
		return fmt.Errorf("portfolio.initial_cash must not be negative, got %v", c.Portfolio.InitialCash)
	}
	if c.Portfolio.AllocationFraction <= 0 || c.Portfolio.AllocationFraction > 1 {
		return fmt.Errorf("portfolio.allocation_fraction must be in (0,1], got %v", c.Portfolio.AllocationFraction)
	}
	if c.Signals.MinConfidence < 0 || c.Signals.MinConfidence > 1 {
		return fmt.Errorf("signals.min_confidence must be in [0,1], got %v", c.Signals.MinConfidence)
	}
	switch c.LLM.Provider {
	case "deepseek", "openai", "gemini":
	default:
		return fmt.Errorf("unknown llm.provider %q", c.LLM.Provider)
	}
	switch c.Market.Source {
	case "csv", "yahoo":
	default:
		return fmt.Errorf("unknown market.source %q", c.Market.Source)
	}
	return nil
}
