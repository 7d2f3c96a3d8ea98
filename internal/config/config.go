// Package config loads application configuration from a YAML file and
// SCOUT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	DispatchDelay   time.Duration `mapstructure:"dispatch_delay"`
	RetentionWindow time.Duration `mapstructure:"retention_window"`
	Region          string        `mapstructure:"region"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	LogLevel        string        `mapstructure:"log_level"`

	// UseMemory switches to in-memory stores; state is then lost on
	// restart and every listed character looks new again.
	UseMemory   bool   `mapstructure:"use_memory"`
	PostgresDSN string `mapstructure:"postgres_dsn"`

	Eligibility  EligibilityConfig  `mapstructure:"eligibility"`
	WoWProgress  WoWProgressConfig  `mapstructure:"wowprogress"`
	RaiderIO     RaiderIOConfig     `mapstructure:"raiderio"`
	WarcraftLogs WarcraftLogsConfig `mapstructure:"warcraftlogs"`
	Discord      DiscordConfig      `mapstructure:"discord"`
	Gemini       GeminiConfig       `mapstructure:"gemini"`
}

// EligibilityConfig controls which candidates pass evaluation.
type EligibilityConfig struct {
	Tiers              []string `mapstructure:"tiers"`
	RequireCuttingEdge bool     `mapstructure:"require_cutting_edge"`
	RequiredLanguage   string   `mapstructure:"required_language"`
}

// WoWProgressConfig configures the listing collector.
type WoWProgressConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	FlareSolverrURL string `mapstructure:"flaresolverr_url"`
}

// RaiderIOConfig configures the raid profile source.
type RaiderIOConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// WarcraftLogsConfig configures the rankings source. Empty credentials
// disable the source.
type WarcraftLogsConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// DiscordConfig configures notification delivery.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// GeminiConfig configures the optional AI summarizer. An empty API key
// disables it.
type GeminiConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// Load reads configuration from the given file (optional), .env and
// SCOUT_* environment variables, then validates it.
func Load(configFile string) (*Config, error) {
	// .env is a development convenience; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("poll_interval", "5m")
	v.SetDefault("dispatch_delay", "5s")
	v.SetDefault("retention_window", "720h")
	v.SetDefault("region", "eu")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("use_memory", false)
	v.SetDefault("postgres_dsn", "")
	v.SetDefault("eligibility.tiers", []string{"manaforge-omega", "liberation-of-undermine"})
	v.SetDefault("eligibility.require_cutting_edge", false)
	v.SetDefault("eligibility.required_language", "")
	v.SetDefault("wowprogress.base_url", "https://www.wowprogress.com")
	v.SetDefault("wowprogress.flaresolverr_url", "")
	// Empty defaults keep these keys visible to AutomaticEnv so they
	// can be set from the environment without a config file.
	v.SetDefault("raiderio.api_key", "")
	v.SetDefault("warcraftlogs.client_id", "")
	v.SetDefault("warcraftlogs.client_secret", "")
	v.SetDefault("discord.webhook_url", "")
	v.SetDefault("gemini.url", "")
	v.SetDefault("gemini.api_key", "")
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.RetentionWindow < c.PollInterval {
		return fmt.Errorf("retention_window (%v) must be at least poll_interval (%v)", c.RetentionWindow, c.PollInterval)
	}
	if c.DispatchDelay < 0 {
		return fmt.Errorf("dispatch_delay must not be negative, got %v", c.DispatchDelay)
	}
	if !c.UseMemory && c.PostgresDSN == "" {
		return fmt.Errorf("postgres_dsn is required unless use_memory is set")
	}
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	if (c.WarcraftLogs.ClientID == "") != (c.WarcraftLogs.ClientSecret == "") {
		return fmt.Errorf("warcraftlogs client_id and client_secret must be set together")
	}
	return nil
}
