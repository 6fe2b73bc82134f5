package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultListen             = "127.0.0.1:8080"
	DefaultLocation           = "US"
	DefaultTimeFormat         = "24"
	DefaultHolidayWindowDays  = 90
	DefaultNotificationOffset = 60
	DefaultReloadCron         = "0 0 * * *"
	DefaultHolidayCacheSize   = 1024
	DefaultDatabaseMaxConns   = 4
	DefaultHolidayCacheDir    = "/var/lib/calendario/holiday-cache"
	EnvDatabaseURL            = "CALENDARIO_DATABASE_URL"
	defaultConfigTempPattern  = ".calendario-config-*.tmp"
)

// DatabaseConfig holds the Postgres connection used for events and settings.
// An empty URL keeps events and settings in memory.
type DatabaseConfig struct {
	URL      string `yaml:"url" json:"url"`
	MaxConns int32  `yaml:"max_conns" json:"max_conns"`
}

// AgendaConfig tunes the grouped agenda.
type AgendaConfig struct {
	// HolidayWindowDays is how many days after today holidays are
	// precomputed for.
	HolidayWindowDays int `yaml:"holiday_window_days" json:"holiday_window_days"`

	// DefaultNotificationOffset is the lead time in minutes applied when a
	// new event does not carry one.
	DefaultNotificationOffset int `yaml:"default_notification_offset" json:"default_notification_offset"`

	// ReloadCron reloads the agenda periodically so the "today" group follows
	// the wall clock.
	ReloadCron string `yaml:"reload_cron" json:"reload_cron"`
}

// DefaultsConfig seeds the settings table on first run.
type DefaultsConfig struct {
	Location   string `yaml:"location" json:"location"`
	TimeFormat string `yaml:"time_format" json:"time_format"`
}

// HolidayCalendarConfig points at an ICS calendar that contributes holidays
// for one region. Exactly one of Path or URL should be set.
type HolidayCalendarConfig struct {
	Region string `yaml:"region" json:"region"`
	Path   string `yaml:"path,omitempty" json:"path,omitempty"`
	URL    string `yaml:"url,omitempty" json:"url,omitempty"`
}

type HolidaysConfig struct {
	CacheSize int                     `yaml:"cache_size" json:"cache_size"`
	CacheDir  string                  `yaml:"cache_dir" json:"cache_dir"`
	Calendars []HolidayCalendarConfig `yaml:"calendars" json:"calendars"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone used to derive calendar days. "Local" or
	// empty means the host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Database DatabaseConfig `yaml:"database" json:"database"`
	Agenda   AgendaConfig   `yaml:"agenda" json:"agenda"`
	Defaults DefaultsConfig `yaml:"defaults" json:"defaults"`
	Holidays HolidaysConfig `yaml:"holidays" json:"holidays"`

	// Metrics exposes /metrics when true.
	Metrics bool `yaml:"metrics" json:"metrics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   DefaultListen,
		Timezone: "Local",
		LogLevel: "info",
		Database: DatabaseConfig{
			MaxConns: DefaultDatabaseMaxConns,
		},
		Agenda: AgendaConfig{
			HolidayWindowDays:         DefaultHolidayWindowDays,
			DefaultNotificationOffset: DefaultNotificationOffset,
			ReloadCron:                DefaultReloadCron,
		},
		Defaults: DefaultsConfig{
			Location:   DefaultLocation,
			TimeFormat: DefaultTimeFormat,
		},
		Holidays: HolidaysConfig{
			CacheSize: DefaultHolidayCacheSize,
			CacheDir:  DefaultHolidayCacheDir,
			Calendars: []HolidayCalendarConfig{},
		},
		Metrics:   true,
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs (e.g., older versions) still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = DefaultDatabaseMaxConns
	}
	if c.Agenda.HolidayWindowDays <= 0 {
		c.Agenda.HolidayWindowDays = DefaultHolidayWindowDays
	}
	if c.Agenda.DefaultNotificationOffset < 0 {
		c.Agenda.DefaultNotificationOffset = DefaultNotificationOffset
	}
	if c.Agenda.ReloadCron == "" {
		c.Agenda.ReloadCron = DefaultReloadCron
	}
	c.Defaults.Location = strings.ToUpper(strings.TrimSpace(c.Defaults.Location))
	if c.Defaults.Location == "" {
		c.Defaults.Location = DefaultLocation
	}
	switch c.Defaults.TimeFormat {
	case "12", "24":
		// ok
	default:
		c.Defaults.TimeFormat = DefaultTimeFormat
	}
	if c.Holidays.CacheSize <= 0 {
		c.Holidays.CacheSize = DefaultHolidayCacheSize
	}
	if c.Holidays.CacheDir == "" {
		c.Holidays.CacheDir = DefaultHolidayCacheDir
	}
	if c.Holidays.Calendars == nil {
		c.Holidays.Calendars = []HolidayCalendarConfig{}
	}
	for i := range c.Holidays.Calendars {
		c.Holidays.Calendars[i].Region = strings.ToUpper(strings.TrimSpace(c.Holidays.Calendars[i].Region))
	}
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if u := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); u != "" {
		c.Database.URL = u
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
//
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	// Keys absent from the file keep their defaults, so an explicit zero
	// (e.g. default_notification_offset: 0) survives.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file in the same directory, then rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, defaultConfigTempPattern)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
