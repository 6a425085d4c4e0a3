package daemon

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap/zapcore"

	"github.com/pawbank/allowance/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8787 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8787)
	}
	if cfg.Profile.KidName != "Jennifer" {
		t.Errorf("Profile.KidName = %q, want %q", cfg.Profile.KidName, "Jennifer")
	}
	if cfg.Store.Driver != DriverSQLite {
		t.Errorf("Store.Driver = %q, want %q", cfg.Store.Driver, DriverSQLite)
	}
	if cfg.Celebration.Duration != "2s" {
		t.Errorf("Celebration.Duration = %q, want %q", cfg.Celebration.Duration, "2s")
	}
	if len(cfg.Quests) != 2 {
		t.Errorf("len(Quests) = %d, want 2", len(cfg.Quests))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := LoadConfig(home)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Home != home || cfg.DataDir() != home {
		t.Errorf("Home/DataDir = %q/%q, want %q", cfg.Home, cfg.DataDir(), home)
	}
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	home := t.TempDir()
	data := `
[profile]
kid_name = "Sam"
currency = "eur"

[api]
port = 9000

[calendar]
timezone = "UTC"
week_start = "tuesday"

[celebration]
duration = "500ms"

[[quests]]
id = "feed-cat"
title = "Feed the cat"
reward = 1.5
tint = "Lavender"
frequency = "daily"
`
	if err := os.WriteFile(filepath.Join(home, ConfigFileName), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(home)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Profile.KidName != "Sam" || cfg.API.Port != 9000 || cfg.API.Host != "127.0.0.1" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Quests) != 1 || cfg.Quests[0].ID != "feed-cat" || cfg.Quests[0].Tint != domain.TintLavender {
		t.Errorf("Quests = %+v, want only feed-cat", cfg.Quests)
	}

	dc, err := cfg.Dashboard()
	if err != nil {
		t.Fatalf("Dashboard() error: %v", err)
	}
	if dc.Currency != "EUR" || dc.CelebrationDuration != 500*time.Millisecond {
		t.Errorf("dashboard config = %+v", dc)
	}
	if dc.Quests.Calendar.WeekStart != time.Tuesday || dc.Quests.Calendar.Location != time.UTC {
		t.Errorf("calendar = %+v", dc.Quests.Calendar)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("ALLOWANCE_API_HOST", "0.0.0.0")
	t.Setenv("ALLOWANCE_API_PORT", "9999")
	t.Setenv("ALLOWANCE_LOG_LEVEL", "debug")
	t.Setenv("ALLOWANCE_STORE_DRIVER", "memory")

	cfg, err := LoadConfig(home)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.API.Host != "0.0.0.0" || cfg.API.Port != 9999 {
		t.Errorf("API = %+v", cfg.API)
	}
	if cfg.Log.Level != "debug" || cfg.Store.Driver != DriverMemory {
		t.Errorf("Log/Store = %q/%q", cfg.Log.Level, cfg.Store.Driver)
	}
}

func TestHomeDir_Env(t *testing.T) {
	t.Setenv("ALLOWANCE_HOME", "/srv/allowance")
	if got := HomeDir(); got != "/srv/allowance" {
		t.Errorf("HomeDir() = %q", got)
	}
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	home := t.TempDir()
	os.WriteFile(filepath.Join(home, ConfigFileName), []byte("[api\nport = "), 0o600)
	if _, err := LoadConfig(home); err == nil {
		t.Error("malformed TOML should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"currency", func(c *Config) { c.Profile.Currency = "DOGE" }, "profile.currency"},
		{"driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"port", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"timezone", func(c *Config) { c.Calendar.Timezone = "Mars/Olympus" }, "calendar.timezone"},
		{"week start", func(c *Config) { c.Calendar.WeekStart = "someday" }, "calendar.week_start"},
		{"duration", func(c *Config) { c.Celebration.Duration = "-1s" }, "celebration.duration"},
		{"log level", func(c *Config) { c.Log.Level = "chatty" }, "log.level"},
		{"no quests", func(c *Config) { c.Quests = nil }, "at least one quest"},
		{"bad reward", func(c *Config) { c.Quests[0].Reward = 0 }, "bike-to-school"},
		{"bad frequency", func(c *Config) { c.Quests[0].Frequency = "monthly" }, "frequency"},
		{"duplicate", func(c *Config) { c.Quests[1].ID = c.Quests[0].ID }, "duplicate id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	var back Config
	if _, err := toml.Decode(buf.String(), &back); err != nil {
		t.Fatalf("decode encoded config: %v\n%s", err, buf.String())
	}
	if back.API != cfg.API || back.Profile != cfg.Profile || len(back.Quests) != len(cfg.Quests) {
		t.Errorf("round trip mismatch:\n%s", buf.String())
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(LogConfig{Level: "warn"})
	if err != nil {
		t.Fatal(err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be disabled at warn level")
	}
	if _, err := NewLogger(LogConfig{Level: "loud"}); err == nil {
		t.Error("unknown level should fail")
	}
}
