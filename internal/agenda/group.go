package agenda

import (
	"slices"
	"sort"
	"time"

	"calendario/internal/model"
)

// Kind tells event items from holiday items.
type Kind string

const (
	KindEvent   Kind = "event"
	KindHoliday Kind = "holiday"
)

// Item is one row of a day group: a user event or a holiday entry.
type Item struct {
	Kind        Kind         `json:"kind"`
	Key         Key          `json:"key"`
	At          time.Time    `json:"at"`
	Description string       `json:"description"`
	Event       *model.Event `json:"event,omitempty"`
}

// Group holds the items of one calendar day, keyed by YYYY-MM-DD.
type Group struct {
	Title string `json:"title"`
	// Emphasis marks weekends and holidays for display.
	Emphasis bool   `json:"emphasis"`
	Data     []Item `json:"data"`
}

func eventItem(key Key, ev model.Event) Item {
	return Item{
		Kind:        KindEvent,
		Key:         key,
		At:          ev.Date,
		Description: ev.Description,
		Event:       &ev,
	}
}

func holidayItem(h model.HolidayEntry, dayKey string) Item {
	return Item{
		Kind:        KindHoliday,
		Key:         HolidayKey(dayKey),
		At:          h.Date,
		Description: h.Description,
	}
}

// lessItem orders by instant; at the same instant holidays come first and
// events follow by id, pending inserts last.
func lessItem(a, b Item) bool {
	if !a.At.Equal(b.At) {
		return a.At.Before(b.At)
	}
	if a.Kind != b.Kind {
		return a.Kind == KindHoliday
	}
	ai, aok := a.Key.EventID()
	bi, bok := b.Key.EventID()
	if aok != bok {
		return aok
	}
	return ai < bi
}

func (g *Group) sortItems() {
	sort.SliceStable(g.Data, func(i, j int) bool {
		return lessItem(g.Data[i], g.Data[j])
	})
}

func (g *Group) indexOf(key Key) int {
	return slices.IndexFunc(g.Data, func(it Item) bool { return it.Key == key })
}

func (g *Group) hasKind(k Kind) bool {
	return slices.ContainsFunc(g.Data, func(it Item) bool { return it.Kind == k })
}

// groupList is the sorted, title-unique slice of groups.
type groupList []Group

// find returns the position of title, or where it would be inserted.
func (l groupList) find(title string) (int, bool) {
	i := sort.Search(len(l), func(i int) bool { return l[i].Title >= title })
	return i, i < len(l) && l[i].Title == title
}

// locate returns the group index and item index holding key.
func (l groupList) locate(key Key) (int, int, bool) {
	for gi := range l {
		if ii := l[gi].indexOf(key); ii >= 0 {
			return gi, ii, true
		}
	}
	return -1, -1, false
}

func (l groupList) clone() []Group {
	out := make([]Group, len(l))
	for i, g := range l {
		out[i] = Group{Title: g.Title, Emphasis: g.Emphasis, Data: make([]Item, len(g.Data))}
		for j, it := range g.Data {
			if it.Event != nil {
				ev := *it.Event
				it.Event = &ev
			}
			out[i].Data[j] = it
		}
	}
	return out
}

// dayOf parses a group title back to midnight in loc.
func dayOf(title string, loc *time.Location) time.Time {
	t, err := model.ParseDayKey(title, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
