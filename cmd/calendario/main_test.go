package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendario/internal/agenda"
	"calendario/internal/config"
	appLog "calendario/internal/log"
	"calendario/internal/model"
)

func TestPrintAgenda(t *testing.T) {
	color.NoColor = true

	at := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	groups := []agenda.Group{
		{
			Title:    "2024-03-04",
			Emphasis: true,
			Data: []agenda.Item{
				{Kind: agenda.KindHoliday, Key: agenda.HolidayKey("2024-03-04"), At: model.DayStart(at, time.UTC), Description: "Alpha"},
				{Kind: agenda.KindEvent, Key: agenda.ConfirmedKey(1), At: at, Description: "standup", Event: &model.Event{
					ID: 1, Description: "standup", Date: at, Notification: true, NotificationMinOffset: 10,
				}},
			},
		},
		{Title: "2024-03-05", Data: []agenda.Item{}},
		{Title: "2024-04-01", Data: []agenda.Item{}},
	}

	var buf bytes.Buffer
	printAgenda(&buf, groups, model.TimeFormat24, time.UTC, "2024-03-31")
	out := buf.String()

	assert.Contains(t, out, "2024-03-04  Mon, Mar 4, 2024\n")
	assert.Contains(t, out, "  * Alpha\n")
	assert.Contains(t, out, "  09:30  standup  (You will be notified on Mar 4, 2024 09:20)\n")
	assert.Contains(t, out, "2024-03-05  Tue, Mar 5, 2024\n  (nothing scheduled)\n")
	assert.NotContains(t, out, "2024-04-01")
}

func TestAgendaCommand_MemoryStore(t *testing.T) {
	color.NoColor = true
	appLog.SetOutput(&bytes.Buffer{})
	t.Setenv(config.EnvDatabaseURL, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\n"), 0o600))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"agenda", "--config", path, "--days", "3"})
	require.NoError(t, root.Execute())

	today := model.DayKey(time.Now(), time.UTC)
	assert.Contains(t, out.String(), today)
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	appLog.SetOutput(&bytes.Buffer{})
	t.Setenv(config.EnvDatabaseURL, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: UTC\n"), 0o600))

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"migrate", "status", "--config", path})
	assert.ErrorContains(t, root.Execute(), "database.url is not configured")
}
