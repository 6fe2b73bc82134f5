package holiday

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teambition/rrule-go"
)

// yearTable maps a YYYY-MM-DD key to the holiday names of that day.
type yearTable map[string][]string

type rule struct {
	name string
	opt  rrule.ROption
}

func fixed(name string, m time.Month, d int) rule {
	return rule{name: name, opt: rrule.ROption{
		Freq:       rrule.YEARLY,
		Bymonth:    []int{int(m)},
		Bymonthday: []int{d},
	}}
}

// nth matches the n-th weekday of month m; n < 0 counts from the end.
func nth(name string, m time.Month, n int, wd rrule.Weekday) rule {
	return rule{name: name, opt: rrule.ROption{
		Freq:      rrule.YEARLY,
		Bymonth:   []int{int(m)},
		Byweekday: []rrule.Weekday{wd.Nth(n)},
	}}
}

// easter matches offset days after Western Easter Sunday.
func easter(name string, offset int) rule {
	return rule{name: name, opt: rrule.ROption{
		Freq:     rrule.YEARLY,
		Byeaster: []int{offset},
	}}
}

var builtinRules = map[string][]rule{
	"US": {
		fixed("New Year's Day", time.January, 1),
		nth("Martin Luther King Jr. Day", time.January, 3, rrule.MO),
		nth("Presidents' Day", time.February, 3, rrule.MO),
		nth("Memorial Day", time.May, -1, rrule.MO),
		fixed("Juneteenth", time.June, 19),
		fixed("Independence Day", time.July, 4),
		nth("Labor Day", time.September, 1, rrule.MO),
		nth("Columbus Day", time.October, 2, rrule.MO),
		fixed("Veterans Day", time.November, 11),
		nth("Thanksgiving Day", time.November, 4, rrule.TH),
		fixed("Christmas Day", time.December, 25),
	},
	"IT": {
		fixed("Capodanno", time.January, 1),
		fixed("Epifania", time.January, 6),
		easter("Pasqua", 0),
		easter("Lunedì dell'Angelo", 1),
		fixed("Festa della Liberazione", time.April, 25),
		fixed("Festa del Lavoro", time.May, 1),
		fixed("Festa della Repubblica", time.June, 2),
		fixed("Ferragosto", time.August, 15),
		fixed("Ognissanti", time.November, 1),
		fixed("Immacolata Concezione", time.December, 8),
		fixed("Natale", time.December, 25),
		fixed("Santo Stefano", time.December, 26),
	},
	"GB": {
		fixed("New Year's Day", time.January, 1),
		easter("Good Friday", -2),
		easter("Easter Monday", 1),
		nth("Early May Bank Holiday", time.May, 1, rrule.MO),
		nth("Spring Bank Holiday", time.May, -1, rrule.MO),
		nth("Summer Bank Holiday", time.August, -1, rrule.MO),
		fixed("Christmas Day", time.December, 25),
		fixed("Boxing Day", time.December, 26),
	},
	"DE": {
		fixed("Neujahr", time.January, 1),
		easter("Karfreitag", -2),
		easter("Ostermontag", 1),
		fixed("Tag der Arbeit", time.May, 1),
		easter("Christi Himmelfahrt", 39),
		easter("Pfingstmontag", 50),
		fixed("Tag der Deutschen Einheit", time.October, 3),
		fixed("1. Weihnachtstag", time.December, 25),
		fixed("2. Weihnachtstag", time.December, 26),
	},
	"FR": {
		fixed("Jour de l'an", time.January, 1),
		easter("Lundi de Pâques", 1),
		fixed("Fête du Travail", time.May, 1),
		fixed("Victoire 1945", time.May, 8),
		easter("Ascension", 39),
		easter("Lundi de Pentecôte", 50),
		fixed("Fête nationale", time.July, 14),
		fixed("Assomption", time.August, 15),
		fixed("Toussaint", time.November, 1),
		fixed("Armistice 1918", time.November, 11),
		fixed("Noël", time.December, 25),
	},
}

// rulesEpoch is the DTSTART of every built-in rule.
var rulesEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

type namedRRule struct {
	name string
	r    *rrule.RRule
}

// Rules is the built-in Lookup backed by yearly recurrence rules. Tables
// are computed once per region and year.
type Rules struct {
	regions map[string][]namedRRule

	mu    sync.Mutex
	years map[string]yearTable
}

// NewRules compiles the built-in rule tables.
func NewRules() (*Rules, error) {
	out := &Rules{
		regions: make(map[string][]namedRRule, len(builtinRules)),
		years:   make(map[string]yearTable),
	}
	for region, rules := range builtinRules {
		for _, ru := range rules {
			opt := ru.opt
			opt.Dtstart = rulesEpoch
			r, err := rrule.NewRRule(opt)
			if err != nil {
				return nil, fmt.Errorf("holiday rule %s/%q: %w", region, ru.name, err)
			}
			out.regions[region] = append(out.regions[region], namedRRule{name: ru.name, r: r})
		}
	}
	return out, nil
}

// Regions lists the region codes with built-in rules, sorted.
func (r *Rules) Regions() []string {
	out := make([]string, 0, len(r.regions))
	for region := range r.regions {
		out = append(out, region)
	}
	sort.Strings(out)
	return out
}

func (r *Rules) Holidays(day time.Time, region string) []string {
	region = strings.ToUpper(region)
	if _, ok := r.regions[region]; !ok {
		return nil
	}
	return r.table(region, day.Year())[dateKey(day)]
}

func (r *Rules) table(region string, year int) yearTable {
	key := fmt.Sprintf("%s/%d", region, year)

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.years[key]; ok {
		return t
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	t := make(yearTable)
	for _, nr := range r.regions[region] {
		for _, occ := range nr.r.Between(from, to, true) {
			k := dateKeyOf(occ.Date())
			t[k] = append(t[k], nr.name)
		}
	}
	r.years[key] = t
	return t
}
