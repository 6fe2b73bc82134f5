package model

import (
	"strings"
	"time"
)

// DayKeyLayout is the canonical group key format. Zero padding makes
// lexicographic order equal to chronological order.
const DayKeyLayout = "2006-01-02"

// Event is a persisted calendar entry.
type Event struct {
	// ID is assigned by the store on insert.
	ID int64 `json:"id"`

	Description string `json:"description"`

	// Date is the instant the event occurs.
	Date time.Time `json:"date"`

	// Notification reports whether a reminder is desired.
	Notification bool `json:"notification"`

	// NotificationMinOffset is the lead time in minutes; the reminder fires
	// at Date minus this many minutes.
	NotificationMinOffset int `json:"notification_min_offset"`
}

// Draft is the user-editable part of an Event, before the store assigns an id.
type Draft struct {
	Description           string    `json:"description"`
	Date                  time.Time `json:"date"`
	Notification          bool      `json:"notification"`
	NotificationMinOffset int       `json:"notification_min_offset"`
}

// WithID materializes the draft as an Event carrying id.
func (d Draft) WithID(id int64) Event {
	return Event{
		ID:                    id,
		Description:           d.Description,
		Date:                  d.Date,
		Notification:          d.Notification,
		NotificationMinOffset: d.NotificationMinOffset,
	}
}

// Draft returns the editable fields of e.
func (e Event) Draft() Draft {
	return Draft{
		Description:           e.Description,
		Date:                  e.Date,
		Notification:          e.Notification,
		NotificationMinOffset: e.NotificationMinOffset,
	}
}

// HasDescription reports whether the description has visible content.
func (d Draft) HasDescription() bool {
	return strings.TrimSpace(d.Description) != ""
}

// HolidayEntry is derived from the holiday lookup and never persisted.
type HolidayEntry struct {
	// Date is the start of the calendar day the entry applies to.
	Date time.Time `json:"date"`
	// Description joins all holiday names of the day with ", ".
	Description string `json:"description"`
}

// DayStart truncates t to midnight of its calendar day in loc.
func DayStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DayKey returns the YYYY-MM-DD key of t's calendar day in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DayKeyLayout)
}

// ParseDayKey is the inverse of DayKey.
func ParseDayKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DayKeyLayout, key, loc)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
