package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"tennisluv/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Backend    BackendConfig    `yaml:"backend"`
	Booking    BookingConfig    `yaml:"booking"`
	Web        WebConfig        `yaml:"web"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Redis      RedisConfig      `yaml:"redis"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	Exports    ExportConfig     `yaml:"exports"`
	Google     GoogleConfig     `yaml:"google"`
	Bot        BotConfig        `yaml:"bot"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	// SubmitMode is "range" or "per_hour".
	SubmitMode      string `yaml:"submit_mode"`
	CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
}

type BookingConfig struct {
	OpeningHour          int                `yaml:"opening_hour"`
	ClosingHour          int                `yaml:"closing_hour"`
	DefaultMaxDailyHours int                `yaml:"default_max_daily_hours"`
	Courts               []models.Court     `yaml:"courts"`
	EntryTypes           []models.EntryType `yaml:"entry_types"`
	// Timezone decides which calendar day is "today" for the club.
	Timezone string `yaml:"timezone"`
}

// Location resolves Timezone.
func (b BookingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return nil, fmt.Errorf("booking timezone %q: %w", b.Timezone, err)
	}
	return loc, nil
}

type WebConfig struct {
	Port           int             `yaml:"port"`
	SessionCookie  string          `yaml:"session_cookie"`
	SessionTTL     int             `yaml:"session_ttl"`
	CSRFKey        string          `yaml:"csrf_key"`
	SecureCookies  bool            `yaml:"secure_cookies"`
	TrustedOrigins []string        `yaml:"trusted_origins"`
	CORSOrigins    []string        `yaml:"cors_origins"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	LandingPage    string          `yaml:"landing_page"`
	// LoginAttempts per client and minute, shared by web and bot.
	LoginAttempts int `yaml:"login_attempts"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	Debug    bool   `yaml:"debug"`
}

type BotConfig struct {
	RateLimitMessages int `yaml:"rate_limit_messages"`
	RateLimitWindow   int `yaml:"rate_limit_window"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	EntriesSpreadSheetID  string `yaml:"entries_spreadsheet_id"`
	SheetName             string `yaml:"sheet_name"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional outside of local development
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend base_url %q must be an http(s) URL", c.Backend.BaseURL)
	}
	switch c.Backend.SubmitMode {
	case "range", "per_hour":
	default:
		return fmt.Errorf("unknown backend submit_mode %q", c.Backend.SubmitMode)
	}

	b := c.Booking
	if b.OpeningHour < 0 || b.ClosingHour > 23 || b.OpeningHour > b.ClosingHour {
		return fmt.Errorf("invalid opening hours %d..%d", b.OpeningHour, b.ClosingHour)
	}
	if b.DefaultMaxDailyHours < 0 || b.DefaultMaxDailyHours > 24 {
		return fmt.Errorf("default_max_daily_hours must be within 0..24, got %d", b.DefaultMaxDailyHours)
	}
	if _, err := b.Location(); err != nil {
		return err
	}
	return ValidateCourts(b.Courts)
}

func ValidateCourts(courts []models.Court) error {
	ids := make(map[int64]bool)
	for _, court := range courts {
		if court.ID <= 0 {
			return fmt.Errorf("court '%s' has invalid ID %d", court.Name, court.ID)
		}
		if ids[court.ID] {
			return fmt.Errorf("duplicate court ID found: %d", court.ID)
		}
		ids[court.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "tennisluv"
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 10
	}
	if c.Backend.SubmitMode == "" {
		c.Backend.SubmitMode = "range"
	}
	if c.Backend.CacheTTLSeconds == 0 {
		c.Backend.CacheTTLSeconds = models.CourtsCacheTTL
	}

	if c.Booking.OpeningHour == 0 && c.Booking.ClosingHour == 0 {
		c.Booking.OpeningHour = models.DefaultOpeningHour
		c.Booking.ClosingHour = models.DefaultClosingHour
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = models.DefaultTimezone
	}
	if c.Booking.DefaultMaxDailyHours == 0 {
		c.Booking.DefaultMaxDailyHours = models.DefaultMaxDailyBookingHours
	}
	if len(c.Booking.Courts) == 0 {
		for i := 1; i <= models.DefaultCourtCount; i++ {
			c.Booking.Courts = append(c.Booking.Courts, models.Court{ID: int64(i), Name: fmt.Sprintf("Tennisplatz %d", i)})
		}
	}

	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.SessionCookie == "" {
		c.Web.SessionCookie = "tl_session"
	}
	if c.Web.SessionTTL == 0 {
		c.Web.SessionTTL = models.DefaultSessionTTL
	}
	if c.Web.LoginAttempts == 0 {
		c.Web.LoginAttempts = models.LoginAttempts
	}
	if c.Web.RateLimit.RPS == 0 {
		c.Web.RateLimit.RPS = 10
	}
	if c.Web.RateLimit.Burst == 0 {
		c.Web.RateLimit.Burst = 20
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Bot.RateLimitMessages == 0 {
		c.Bot.RateLimitMessages = models.RateLimitMessages
	}
	if c.Bot.RateLimitWindow == 0 {
		c.Bot.RateLimitWindow = models.RateLimitWindow
	}
	if c.Google.SheetName == "" {
		c.Google.SheetName = "Entries"
	}
}
