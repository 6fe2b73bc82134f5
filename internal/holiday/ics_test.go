package holiday

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendario/internal/config"
)

var fixtureICS = strings.Join([]string{
	"BEGIN:VCALENDAR",
	"VERSION:2.0",
	"PRODID:-//calendario//holidays//EN",
	"BEGIN:VEVENT",
	"UID:fair@calendario",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;VALUE=DATE:20240704",
	"DTEND;VALUE=DATE:20240706",
	"SUMMARY:Town Fair",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:founders@calendario",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;VALUE=DATE:20200315",
	"RRULE:FREQ=YEARLY",
	"EXDATE;VALUE=DATE:20230315",
	"SUMMARY:Founders Day",
	"END:VEVENT",
	"BEGIN:VEVENT",
	"UID:nameless@calendario",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;VALUE=DATE:20240101",
	"END:VEVENT",
	"END:VCALENDAR",
	"",
}, "\r\n")

func TestParseICS(t *testing.T) {
	cal, err := ParseICS("us", []byte(fixtureICS))
	require.NoError(t, err)
	assert.Equal(t, "US", cal.Region())

	assert.Equal(t, []string{"Town Fair"}, cal.Holidays(date(2024, time.July, 4), "US"))
	assert.Equal(t, []string{"Town Fair"}, cal.Holidays(date(2024, time.July, 5), "US"))
	assert.Nil(t, cal.Holidays(date(2024, time.July, 6), "US"), "DTEND is exclusive")

	assert.Equal(t, []string{"Founders Day"}, cal.Holidays(date(2024, time.March, 15), "US"))
	assert.Equal(t, []string{"Founders Day"}, cal.Holidays(date(2020, time.March, 15), "US"))
	assert.Nil(t, cal.Holidays(date(2023, time.March, 15), "US"), "EXDATE")
	assert.Nil(t, cal.Holidays(date(2019, time.March, 15), "US"), "before DTSTART")

	assert.Nil(t, cal.Holidays(date(2024, time.January, 1), "US"), "event without summary is skipped")
	assert.Nil(t, cal.Holidays(date(2024, time.July, 4), "IT"))
}

func TestParseICS_Empty(t *testing.T) {
	_, err := ParseICS("US", nil)
	assert.Error(t, err)
}

func TestICSCalendar_MergesWithRules(t *testing.T) {
	cal, err := ParseICS("US", []byte(fixtureICS))
	require.NoError(t, err)
	rules, err := NewRules()
	require.NoError(t, err)

	e := NewExpander(Multi{rules, cal}, time.UTC)
	entry, ok := e.On(date(2024, time.July, 4), "US")
	require.True(t, ok)
	assert.Equal(t, "Independence Day, Town Fair", entry.Description)
}

func TestFetcher_ConditionalAndFallback(t *testing.T) {
	var (
		requests atomic.Int32
		failing  atomic.Bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if failing.Load() {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(fixtureICS))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	ctx := context.Background()

	res, err := f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, fixtureICS, string(res.Body))

	res, err = f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, res.FromCache, "304 served from cache")
	assert.Equal(t, fixtureICS, string(res.Body))

	failing.Store(true)
	res, err = f.Fetch(ctx, srv.URL+"/cal.ics?token=secret")
	require.NoError(t, err)
	assert.True(t, res.FromCache)

	_, err = f.Fetch(ctx, srv.URL+"/other.ics")
	assert.Error(t, err, "no cache to fall back to")
	assert.Equal(t, int32(4), requests.Load())
}

func TestLoadCalendars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fr.ics")
	require.NoError(t, os.WriteFile(path, []byte(fixtureICS), 0o600))

	cals, errs := LoadCalendars(context.Background(), []config.HolidayCalendarConfig{
		{Region: "FR", Path: path},
		{Region: "DE", Path: filepath.Join(dir, "missing.ics")},
		{Region: "GB"},
	}, nil)
	require.Len(t, cals, 1)
	assert.Len(t, errs, 2)
	assert.Equal(t, "FR", cals[0].Region())
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/a.ics?token=x"))
	assert.Equal(t, "(redacted)", redactURL("not a url"))
}
