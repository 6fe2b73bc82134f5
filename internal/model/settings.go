package model

import (
	"strings"
	"time"
)

// Setting names recognized by the settings table.
const (
	SettingLocation   = "location"
	SettingTimeFormat = "timeFormat"
)

// TimeFormat selects 12- or 24-hour clock display.
type TimeFormat string

const (
	TimeFormat12 TimeFormat = "12"
	TimeFormat24 TimeFormat = "24"
)

// Valid reports whether tf is one of the supported formats.
func (tf TimeFormat) Valid() bool {
	return tf == TimeFormat12 || tf == TimeFormat24
}

// Layout returns the Go time layout for tf. Unknown values render as 24h.
func (tf TimeFormat) Layout() string {
	if tf == TimeFormat12 {
		return "03:04 PM"
	}
	return "15:04"
}

// Settings is the snapshot of user preferences the agenda works with.
type Settings struct {
	Location   string     `json:"location"`
	TimeFormat TimeFormat `json:"timeFormat"`
}

// DefaultSettings mirrors the values shown before the user picks any.
func DefaultSettings() Settings {
	return Settings{Location: "US", TimeFormat: TimeFormat24}
}

// Normalize upper-cases the region and replaces invalid values with defaults.
func (s Settings) Normalize() Settings {
	def := DefaultSettings()
	s.Location = strings.ToUpper(strings.TrimSpace(s.Location))
	if s.Location == "" {
		s.Location = def.Location
	}
	if !s.TimeFormat.Valid() {
		s.TimeFormat = def.TimeFormat
	}
	return s
}

// FormatTime renders the time of day of t per tf.
func FormatTime(t time.Time, tf TimeFormat) string {
	return t.Format(tf.Layout())
}

// FormatDate renders t as "Jan 2, 2006".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// FormatDateTime joins FormatDate and FormatTime.
func FormatDateTime(t time.Time, tf TimeFormat) string {
	return FormatDate(t) + " " + FormatTime(t, tf)
}
