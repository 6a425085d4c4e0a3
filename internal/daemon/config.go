// Package daemon loads configuration and wires the store, the dashboard
// service and the HTTP API into a running process.
package daemon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/Rhymond/go-money"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pawbank/allowance/internal/app/dashboard"
	"github.com/pawbank/allowance/internal/app/engagement"
	"github.com/pawbank/allowance/internal/domain"
)

// ConfigFileName is the config file inside the home directory.
const ConfigFileName = "config.toml"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Config is the on-disk configuration (~/.allowance/config.toml).
type Config struct {
	Home string `toml:"-"`

	Profile     ProfileConfig     `toml:"profile"`
	Store       StoreConfig       `toml:"store"`
	API         APIConfig         `toml:"api"`
	Metrics     MetricsConfig     `toml:"metrics"`
	Calendar    CalendarConfig    `toml:"calendar"`
	Celebration CelebrationConfig `toml:"celebration"`
	Log         LogConfig         `toml:"log"`
	Quests      []domain.Quest    `toml:"quests"`
}

// ProfileConfig describes the account owner.
type ProfileConfig struct {
	KidName        string `toml:"kid_name"`
	Currency       string `toml:"currency"`
	StreakDaysSeed int    `toml:"streak_days_seed"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `toml:"driver"` // "sqlite" or "memory"
	Path   string `toml:"path"`   // data directory; defaults to Home
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// MetricsConfig toggles the /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// CalendarConfig sets where days and weeks begin.
type CalendarConfig struct {
	Timezone  string `toml:"timezone"`   // IANA name; "" or "Local" for the system zone
	WeekStart string `toml:"week_start"` // weekday name
}

// CelebrationConfig controls the completion celebration.
type CelebrationConfig struct {
	Duration string `toml:"duration"`
}

// LogConfig controls zap.
type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	Home        string `env:"ALLOWANCE_HOME"`
	APIHost     string `env:"ALLOWANCE_API_HOST"`
	APIPort     int    `env:"ALLOWANCE_API_PORT"`
	LogLevel    string `env:"ALLOWANCE_LOG_LEVEL"`
	StoreDriver string `env:"ALLOWANCE_STORE_DRIVER"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Profile: ProfileConfig{
			KidName:        "Jennifer",
			Currency:       "USD",
			StreakDaysSeed: 4,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Calendar: CalendarConfig{
			Timezone:  "Local",
			WeekStart: "sunday",
		},
		Celebration: CelebrationConfig{
			Duration: "2s",
		},
		Log: LogConfig{
			Level: "info",
		},
		Quests: domain.DefaultQuests(),
	}
}

// HomeDir returns $ALLOWANCE_HOME or ~/.allowance.
func HomeDir() string {
	var ov envOverrides
	if err := env.Parse(&ov); err == nil && ov.Home != "" {
		return ov.Home
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".allowance"
	}
	return filepath.Join(home, ".allowance")
}

// LoadConfig reads home/config.toml over the defaults, applies environment
// overrides and validates the result. A missing file is not an error.
func LoadConfig(home string) (Config, error) {
	cfg := DefaultConfig()
	if home == "" {
		home = HomeDir()
	}
	cfg.Home = home

	path := filepath.Join(home, ConfigFileName)
	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if ov.APIHost != "" {
		c.API.Host = ov.APIHost
	}
	if ov.APIPort != 0 {
		c.API.Port = ov.APIPort
	}
	if ov.LogLevel != "" {
		c.Log.Level = ov.LogLevel
	}
	if ov.StoreDriver != "" {
		c.Store.Driver = ov.StoreDriver
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error
	if money.GetCurrency(strings.ToUpper(c.Profile.Currency)) == nil {
		errs = append(errs, fmt.Errorf("profile.currency: unknown currency %q", c.Profile.Currency))
	}
	if c.Profile.StreakDaysSeed < 0 {
		errs = append(errs, fmt.Errorf("profile.streak_days_seed: must not be negative"))
	}
	switch c.Store.Driver {
	case DriverSQLite, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver: %q is not sqlite or memory", c.Store.Driver))
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port: %d out of range", c.API.Port))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("calendar.timezone: %w", err))
	}
	if _, err := engagement.ParseWeekday(c.Calendar.WeekStart); err != nil {
		errs = append(errs, fmt.Errorf("calendar.week_start: %w", err))
	}
	if _, err := c.CelebrationDuration(); err != nil {
		errs = append(errs, fmt.Errorf("celebration.duration: %w", err))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if len(c.Quests) == 0 {
		errs = append(errs, fmt.Errorf("quests: at least one quest is required"))
	}
	seen := make(map[string]bool, len(c.Quests))
	for _, q := range c.Quests {
		if err := q.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[q.ID] {
			errs = append(errs, fmt.Errorf("quest %q: duplicate id", q.ID))
		}
		seen[q.ID] = true
	}
	return errors.Join(errs...)
}

// DataDir returns the directory holding the database.
func (c Config) DataDir() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Home != "" {
		return c.Home
	}
	return HomeDir()
}

// Location resolves calendar.timezone.
func (c Config) Location() (*time.Location, error) {
	switch tz := strings.TrimSpace(c.Calendar.Timezone); tz {
	case "", "Local", "local":
		return time.Local, nil
	default:
		return time.LoadLocation(tz)
	}
}

// CelebrationDuration parses celebration.duration.
func (c Config) CelebrationDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.Celebration.Duration)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// Dashboard converts the config into the service configuration.
func (c Config) Dashboard() (dashboard.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return dashboard.Config{}, err
	}
	weekStart, err := engagement.ParseWeekday(c.Calendar.WeekStart)
	if err != nil {
		return dashboard.Config{}, err
	}
	d, err := c.CelebrationDuration()
	if err != nil {
		return dashboard.Config{}, err
	}
	quests := make([]domain.Quest, len(c.Quests))
	copy(quests, c.Quests)
	return dashboard.Config{
		KidName:             c.Profile.KidName,
		Currency:            strings.ToUpper(c.Profile.Currency),
		CelebrationDuration: d,
		Quests: engagement.Config{
			Quests:     quests,
			Calendar:   engagement.Calendar{Location: loc, WeekStart: weekStart},
			StreakSeed: c.Profile.StreakDaysSeed,
		},
	}, nil
}

// Encode writes the config as TOML.
func (c Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Addr returns host:port for the API listener.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

// ─── Logging ────────────────────────────────────────────────────────────────

// NewLogger builds the process logger from the log section.
func NewLogger(lc LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	config := zap.NewProductionConfig()
	if lc.Development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
