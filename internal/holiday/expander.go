package holiday

import (
	"iter"
	"strings"
	"time"

	"calendario/internal/model"
)

// Expander turns holiday lookups into per-day entries.
type Expander struct {
	lookup Lookup
	loc    *time.Location
}

// NewExpander builds an Expander whose entries start at midnight in loc.
func NewExpander(lookup Lookup, loc *time.Location) *Expander {
	if loc == nil {
		loc = time.Local
	}
	return &Expander{lookup: lookup, loc: loc}
}

// Expand yields one entry for every day in [start, endInclusive] that has
// at least one holiday in region. Several holidays on the same day are
// collapsed into a single entry with the names joined by ", ".
func (e *Expander) Expand(start, endInclusive time.Time, region string) iter.Seq[model.HolidayEntry] {
	first := model.DayStart(start, e.loc)
	last := model.DayStart(endInclusive, e.loc)
	return func(yield func(model.HolidayEntry) bool) {
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			entry, ok := e.On(day, region)
			if !ok {
				continue
			}
			if !yield(entry) {
				return
			}
		}
	}
}

// On returns the collapsed entry for day's calendar day, if any.
func (e *Expander) On(day time.Time, region string) (model.HolidayEntry, bool) {
	day = model.DayStart(day, e.loc)
	names := e.lookup.Holidays(day, region)
	if len(names) == 0 {
		return model.HolidayEntry{}, false
	}
	return model.HolidayEntry{Date: day, Description: strings.Join(names, ", ")}, true
}

// IsHolidayOrWeekend reports whether day is a Saturday, a Sunday or a
// holiday in region. It is used for display emphasis only.
func (e *Expander) IsHolidayOrWeekend(day time.Time, region string) bool {
	day = model.DayStart(day, e.loc)
	if model.IsWeekend(day) {
		return true
	}
	return len(e.lookup.Holidays(day, region)) > 0
}
