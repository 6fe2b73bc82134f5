// Package holiday answers which public holidays fall on a calendar day for
// a region, and expands date ranges into per-day holiday entries.
package holiday

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"calendario/internal/model"
)

// Lookup returns the holiday names on day's calendar date for region, or
// nil when there are none. Only the year, month and day of day are used.
type Lookup interface {
	Holidays(day time.Time, region string) []string
}

// Multi merges several lookups. Names repeated across sources appear once,
// in the order first seen.
type Multi []Lookup

func (m Multi) Holidays(day time.Time, region string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, l := range m {
		for _, name := range l.Holidays(day, region) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// Cached memoizes another Lookup in a bounded LRU keyed by region and day.
type Cached struct {
	next  Lookup
	cache *lru.Cache[string, []string]
}

// NewCached wraps next with an LRU of size entries.
func NewCached(next Lookup, size int) (*Cached, error) {
	cache, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Holidays(day time.Time, region string) []string {
	key := cacheKey(day, region)
	if names, ok := c.cache.Get(key); ok {
		return names
	}
	names := c.next.Holidays(day, region)
	c.cache.Add(key, names)
	return names
}

// Purge drops all memoized answers, e.g. after calendars were refreshed.
func (c *Cached) Purge() {
	c.cache.Purge()
}

func cacheKey(day time.Time, region string) string {
	return strings.ToUpper(region) + "/" + dateKey(day)
}

// dateKey formats the wall-clock date of t without converting zones.
func dateKey(t time.Time) string {
	return t.Format(model.DayKeyLayout)
}

func dateKeyOf(y int, m time.Month, d int) string {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(model.DayKeyLayout)
}
