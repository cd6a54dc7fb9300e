package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PriceStation/internal/alert"
)

// DefaultPath is where the config file is looked up unless CONFIG_PATH is set.
const DefaultPath = "configs/config.yaml"

// DefaultRetention keeps full granularity for three days. Zero or a negative
// retention disables the collapse.
const DefaultRetention = 72 * time.Hour

// SlotConfig is a daily summary time, "HH:MM" in UTC.
type SlotConfig struct {
	Name string `yaml:"name"`
	At   string `yaml:"at"`
}

// Config holds all application configuration.
type Config struct {
	DataDir string `yaml:"data_dir"`
	Proxy   string `yaml:"proxy"`
	Store   struct {
		Retention time.Duration `yaml:"retention"`
		Backup    bool          `yaml:"backup"`
	} `yaml:"store"`
	RateLimit struct {
		MinInterval time.Duration `yaml:"min_interval"`
		YearDelay   time.Duration `yaml:"year_delay"`
	} `yaml:"rate_limit"`
	Yahoo struct {
		Interval    string        `yaml:"interval"`
		Backfill    time.Duration `yaml:"backfill"`
		MinInterval time.Duration `yaml:"min_interval"`
	} `yaml:"yahoo"`
	Gold struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"gold"`
	Mock bool `yaml:"mock"`
	Line struct {
		ChannelAccessToken string `yaml:"channel_access_token"`
		UserID             string `yaml:"user_id"`
	} `yaml:"line"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		Polling  bool   `yaml:"polling"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		PollCron  string `yaml:"poll_cron"`
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Alerts struct {
		StateFile string       `yaml:"state_file"`
		Rules     []alert.Rule `yaml:"rules"`
	} `yaml:"alerts"`
	Summary struct {
		Slots   []SlotConfig `yaml:"slots"`
		Symbols []string     `yaml:"symbols"`
	} `yaml:"summary"`
}

// Path returns CONFIG_PATH or the default location.
func Path() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	// Set before decoding so an explicit "retention: 0" survives.
	cfg.Store.Retention = DefaultRetention

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
	if v := os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"); v != "" {
		c.Line.ChannelAccessToken = v
	}
	if v := os.Getenv("LINE_USER_ID"); v != "" {
		c.Line.UserID = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("RATE_LIMIT_INTERVAL"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_INTERVAL: %w", err)
		}
		c.RateLimit.MinInterval = d
	}
	return nil
}

// parseDuration accepts Go durations ("90s") or plain seconds ("90").
func parseDuration(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.RateLimit.MinInterval == 0 {
		c.RateLimit.MinInterval = 60 * time.Second
	}
	if c.RateLimit.YearDelay == 0 {
		c.RateLimit.YearDelay = 300 * time.Second
	}
	if c.Yahoo.Interval == "" {
		c.Yahoo.Interval = "1d"
	}
	if c.Yahoo.Backfill == 0 {
		c.Yahoo.Backfill = 30 * 24 * time.Hour
	}
	if c.Yahoo.MinInterval == 0 {
		c.Yahoo.MinInterval = 2 * time.Second
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = filepath.Join(c.DataDir, "station.db")
	}
	if c.Schedule.PollCron == "" {
		c.Schedule.PollCron = "0 */15 * * * *"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 0 * * *"
	}
	if c.Alerts.StateFile == "" {
		c.Alerts.StateFile = filepath.Join(c.DataDir, "alert_state.json")
	}
	if len(c.Summary.Slots) == 0 {
		c.Summary.Slots = []SlotConfig{
			{Name: "morning", At: "02:00"},
			{Name: "noon", At: "04:50"},
			{Name: "afternoon", At: "09:00"},
		}
	}
	if len(c.Summary.Symbols) == 0 {
		c.Summary.Symbols = []string{"Gold", "USDTWD", "USDVND", "BTC", "TSMC", "UMC", "Creative", "IntlGold"}
	}
}

// LimiterState is the rate-limit state file for an upstream.
func (c *Config) LimiterState(source string) string {
	if source == "bot" {
		return filepath.Join(c.DataDir, ".last_query_time")
	}
	return filepath.Join(c.DataDir, ".last_query_time_"+source)
}

// DailyMarker is the file remembering the last once-per-day update.
func (c *Config) DailyMarker() string {
	return filepath.Join(c.DataDir, "last_daily_update.txt")
}

// SummarySlots converts the configured slots.
func (c *Config) SummarySlots() ([]alert.Slot, error) {
	out := make([]alert.Slot, 0, len(c.Summary.Slots))
	for _, s := range c.Summary.Slots {
		t, err := time.Parse("15:04", s.At)
		if err != nil {
			return nil, fmt.Errorf("summary slot %q: %w", s.Name, err)
		}
		out = append(out, alert.Slot{
			Name:   s.Name,
			Offset: time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute,
		})
	}
	return out, nil
}

// LineEnabled reports whether LINE credentials are configured.
func (c *Config) LineEnabled() bool {
	return c.Line.ChannelAccessToken != "" && c.Line.UserID != ""
}

// TelegramEnabled reports whether Telegram credentials are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks durations, schedule and alert rules.
func (c *Config) Validate() error {
	if c.RateLimit.MinInterval < 0 {
		return fmt.Errorf("rate_limit.min_interval must not be negative")
	}
	if c.RateLimit.YearDelay < 0 {
		return fmt.Errorf("rate_limit.year_delay must not be negative")
	}
	if c.Yahoo.Backfill < 0 || c.Yahoo.MinInterval < 0 {
		return fmt.Errorf("yahoo durations must not be negative")
	}
	if (c.Line.ChannelAccessToken == "") != (c.Line.UserID == "") {
		return fmt.Errorf("line.channel_access_token and line.user_id must be set together")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if _, err := c.SummarySlots(); err != nil {
		return err
	}
	for i, r := range c.Alerts.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("alerts.rules[%d]: %w", i, err)
		}
	}
	return nil
}
