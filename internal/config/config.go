package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTickers is the watch list used when none is configured.
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA"}

// Config holds all application configuration.
type Config struct {
	Tickers  []string `yaml:"tickers"`
	Strategy struct {
		WindowSize      int     `yaml:"window_size"`
		BandMultiplier  float64 `yaml:"band_multiplier"`
		StopLossPercent float64 `yaml:"stop_loss_percent"`
	} `yaml:"strategy"`
	DataSource struct {
		Provider  string `yaml:"provider"` // alpaca, yahoo or mock
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		Feed      string `yaml:"feed"`
	} `yaml:"data_source"`
	Schedule struct {
		PollCron string `yaml:"poll_cron"`
		TrimCron string `yaml:"trim_cron"`
	} `yaml:"schedule"`
	Database struct {
		Driver      string `yaml:"driver"` // sqlite, postgres or none
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Channel  string        `yaml:"channel"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Holdings struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"holdings"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Strategy numbers are seeded before parsing so an explicit zero survives to
// Validate instead of being replaced by the default.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Strategy.WindowSize = 7800
	cfg.Strategy.BandMultiplier = 2
	cfg.Strategy.StopLossPercent = 5

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = splitList(v)
	}
	if v := os.Getenv("WINDOW_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WINDOW_SIZE: %w", err)
		}
		c.Strategy.WindowSize = n
	}
	if v := os.Getenv("BAND_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BAND_MULTIPLIER: %w", err)
		}
		c.Strategy.BandMultiplier = f
	}
	if v := os.Getenv("STOP_LOSS_PERCENT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STOP_LOSS_PERCENT: %w", err)
		}
		c.Strategy.StopLossPercent = f
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		c.DataSource.Provider = v
	}
	if v := os.Getenv("APCA_API_DATA_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		c.DataSource.APISecret = v
	}
	if v := os.Getenv("CRON_POLL"); v != "" {
		c.Schedule.PollCron = v
	}
	if v := os.Getenv("CRON_TRIM"); v != "" {
		c.Schedule.TrimCron = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.PostgresURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	if v := os.Getenv("HOLDINGS_FILE"); v != "" {
		c.Holdings.StateFile = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Tickers) == 0 {
		c.Tickers = append([]string(nil), DefaultTickers...)
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "alpaca"
	}
	c.DataSource.Provider = strings.ToLower(c.DataSource.Provider)
	if c.Schedule.PollCron == "" {
		c.Schedule.PollCron = "0 * * * * 1-5"
	}
	if c.Schedule.TrimCron == "" {
		c.Schedule.TrimCron = "0 30 23 * * *"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/band_sentinel.db"
	}
	if c.Redis.Channel == "" {
		c.Redis.Channel = "bandsentinel:signals"
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 10 * time.Minute
	}
	if c.Holdings.StateFile == "" {
		c.Holdings.StateFile = "data/holdings.json"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if len(c.Tickers) == 0 {
		return fmt.Errorf("tickers must not be empty")
	}
	if c.Strategy.WindowSize < 2 {
		return fmt.Errorf("strategy.window_size must be at least 2")
	}
	if c.Strategy.BandMultiplier <= 0 {
		return fmt.Errorf("strategy.band_multiplier must be positive")
	}
	if c.Strategy.StopLossPercent <= 0 || c.Strategy.StopLossPercent >= 100 {
		return fmt.Errorf("strategy.stop_loss_percent must be in (0, 100)")
	}
	switch c.DataSource.Provider {
	case "alpaca":
		if c.DataSource.APIKey == "" || c.DataSource.APISecret == "" {
			return fmt.Errorf("data_source.api_key and data_source.api_secret are required for alpaca")
		}
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	switch c.Database.Driver {
	case "sqlite", "none":
	case "postgres":
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("database.postgres_url is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver %q is not supported", c.Database.Driver)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}
