package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLocation, cfg.Defaults.Location)
	assert.Equal(t, DefaultHolidayWindowDays, cfg.Agenda.HolidayWindowDays)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`
listen: ":9000"
defaults:
  location: " it "
  time_format: "36"
holidays:
  calendars:
    - region: gb
      path: /tmp/gb.ics
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "IT", cfg.Defaults.Location)
	assert.Equal(t, DefaultTimeFormat, cfg.Defaults.TimeFormat)
	assert.Equal(t, DefaultReloadCron, cfg.Agenda.ReloadCron)
	assert.Equal(t, DefaultNotificationOffset, cfg.Agenda.DefaultNotificationOffset)
	require.Len(t, cfg.Holidays.Calendars, 1)
	assert.Equal(t, "GB", cfg.Holidays.Calendars[0].Region)
}

func TestApplyEnvOverridesDatabaseURL(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "postgres://env/db")
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, got.BasicAuth)
	assert.Equal(t, "u", got.BasicAuth.Username)
}

func TestLoadKeepsExplicitZeroOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agenda:\n  default_notification_offset: 0\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Agenda.DefaultNotificationOffset)
	assert.Equal(t, DefaultHolidayWindowDays, cfg.Agenda.HolidayWindowDays)
	assert.Equal(t, DefaultReloadCron, cfg.Agenda.ReloadCron)
}

func TestEmptyDatabaseURLStaysEmpty(t *testing.T) {
	t.Setenv(EnvDatabaseURL, "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, int32(DefaultDatabaseMaxConns), cfg.Database.MaxConns)

	assert.Empty(t, DefaultConfig().Database.URL)
}
