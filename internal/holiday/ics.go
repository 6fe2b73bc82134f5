package holiday

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"calendario/internal/config"
	appLog "calendario/internal/log"
)

const icsDateLayout = "20060102"

// icsHoliday is one VEVENT reduced to what a holiday needs: a name, the
// UTC-midnight date of its first day, how many days it covers and its
// recurrence.
type icsHoliday struct {
	uid     string
	name    string
	start   time.Time
	days    int
	rawRule string
	exDates []time.Time
}

// ICSCalendar is a Lookup over the VEVENTs of one iCalendar feed. Every
// event counts as a holiday for the calendar's region on each day it
// covers.
type ICSCalendar struct {
	region   string
	holidays []icsHoliday

	mu    sync.Mutex
	years map[int]yearTable
}

// ParseICS parses body as the holiday calendar of region. Events that
// cannot be understood are logged and skipped.
func ParseICS(region string, body []byte) (*ICSCalendar, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	out := &ICSCalendar{
		region: strings.ToUpper(region),
		years:  make(map[int]yearTable),
	}
	for _, ve := range cal.Events() {
		h, err := parseHoliday(ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", err, "region", out.region)
			continue
		}
		out.holidays = append(out.holidays, h)
	}
	appLog.Debug("ics holidays parsed", "region", out.region, "count", len(out.holidays))
	return out, nil
}

func parseHoliday(ve *ical.VEvent) (icsHoliday, error) {
	var h icsHoliday

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		h.uid = p.Value
	}
	p := ve.GetProperty(ical.ComponentPropertySummary)
	if p == nil || strings.TrimSpace(p.Value) == "" {
		return h, fmt.Errorf("uid %q: missing SUMMARY", h.uid)
	}
	h.name = strings.TrimSpace(p.Value)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return h, fmt.Errorf("uid %q: missing DTSTART", h.uid)
	}
	start, err := parseICSDate(dtStart.Value)
	if err != nil {
		return h, fmt.Errorf("uid %q: DTSTART: %w", h.uid, err)
	}
	h.start = start
	h.days = 1

	// DTEND of an all-day event is exclusive.
	if dtEnd := ve.GetProperty(ical.ComponentPropertyDtEnd); dtEnd != nil && !strings.Contains(dtEnd.Value, "T") {
		if end, err := parseICSDate(dtEnd.Value); err == nil {
			if n := int(end.Sub(start).Hours() / 24); n > 1 {
				h.days = n
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		h.rawRule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if ex, err := parseICSDate(part); err == nil {
				h.exDates = append(h.exDates, ex)
			}
		}
	}
	return h, nil
}

// parseICSDate keeps only the wall-clock date of a DATE or DATE-TIME value.
func parseICSDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if len(v) < len(icsDateLayout) {
		return time.Time{}, fmt.Errorf("invalid date %q", v)
	}
	return time.Parse(icsDateLayout, v[:len(icsDateLayout)])
}

// Region returns the region the calendar contributes to.
func (c *ICSCalendar) Region() string {
	return c.region
}

func (c *ICSCalendar) Holidays(day time.Time, region string) []string {
	if !strings.EqualFold(region, c.region) {
		return nil
	}
	return c.table(day.Year())[dateKey(day)]
}

func (c *ICSCalendar) table(year int) yearTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.years[year]; ok {
		return t
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	t := make(yearTable)
	for _, h := range c.holidays {
		for _, first := range c.occurrences(h, from, to) {
			for d := 0; d < h.days; d++ {
				day := first.AddDate(0, 0, d)
				if day.Year() != year {
					continue
				}
				k := dateKeyOf(day.Date())
				t[k] = appendUnique(t[k], h.name)
			}
		}
	}
	c.years[year] = t
	return t
}

// occurrences returns the first days of h's occurrences that overlap
// [from, to].
func (c *ICSCalendar) occurrences(h icsHoliday, from, to time.Time) []time.Time {
	lead := from.AddDate(0, 0, -(h.days - 1))
	if h.rawRule == "" {
		if h.start.Before(lead) || h.start.After(to) {
			return nil
		}
		return []time.Time{h.start}
	}

	opt, err := rrule.StrToROption(h.rawRule)
	if err != nil {
		appLog.Warn("ics rrule ignored", err, "region", c.region, "uid", h.uid)
		return nil
	}
	opt.Dtstart = h.start
	r, err := rrule.NewRRule(*opt)
	if err != nil {
		appLog.Warn("ics rrule ignored", err, "region", c.region, "uid", h.uid)
		return nil
	}
	var set rrule.Set
	set.RRule(r)
	for _, ex := range h.exDates {
		set.ExDate(ex)
	}
	return set.Between(lead, to, true)
}

func appendUnique(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

// LoadCalendars reads every configured calendar, from disk when Path is
// set and through f otherwise. Calendars that fail are logged and reported
// in the error slice; the rest are still returned.
func LoadCalendars(ctx context.Context, cfgs []config.HolidayCalendarConfig, f *Fetcher) ([]*ICSCalendar, []error) {
	out := make([]*ICSCalendar, 0, len(cfgs))
	var errs []error
	for _, cc := range cfgs {
		cal, err := loadCalendar(ctx, cc, f)
		if err != nil {
			appLog.Error("holiday calendar load failed", err, "region", cc.Region, "path", cc.Path, "url", redactURL(cc.URL))
			errs = append(errs, err)
			continue
		}
		out = append(out, cal)
	}
	return out, errs
}

func loadCalendar(ctx context.Context, cc config.HolidayCalendarConfig, f *Fetcher) (*ICSCalendar, error) {
	if cc.Region == "" {
		return nil, errors.New("holiday calendar without region")
	}
	var (
		body []byte
		err  error
	)
	switch {
	case cc.Path != "":
		body, err = os.ReadFile(cc.Path)
	case cc.URL != "":
		if f == nil {
			return nil, errors.New("no fetcher for holiday calendar url")
		}
		var res FetchResult
		res, err = f.Fetch(ctx, cc.URL)
		body = res.Body
	default:
		return nil, fmt.Errorf("holiday calendar %s: neither path nor url set", cc.Region)
	}
	if err != nil {
		return nil, err
	}
	return ParseICS(cc.Region, body)
}
