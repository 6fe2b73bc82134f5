// Package agenda keeps the day-grouped view of upcoming events and holidays
// and applies add, edit, delete and notification toggles to it in place.
package agenda

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"calendario/internal/apperr"
	appLog "calendario/internal/log"
	"calendario/internal/model"
	"calendario/internal/notify"
)

// DefaultHolidayWindowDays is how far ahead holidays are expanded on load.
const DefaultHolidayWindowDays = 90

// EventStore is the persistence the builder writes through.
type EventStore interface {
	Insert(ctx context.Context, d model.Draft) (int64, error)
	Update(ctx context.Context, ev model.Event) error
	DeleteByID(ctx context.Context, id int64) error
	QueryFromDate(ctx context.Context, day time.Time) ([]model.Event, error)
}

// Notifier schedules and cancels event reminders.
type Notifier interface {
	Schedule(ctx context.Context, ev model.Event, tf model.TimeFormat) (notify.Status, error)
	Unschedule(ctx context.Context, eventID int64)
}

// Holidays expands holiday entries for a region.
type Holidays interface {
	Expand(start, endInclusive time.Time, region string) iter.Seq[model.HolidayEntry]
	On(day time.Time, region string) (model.HolidayEntry, bool)
	IsHolidayOrWeekend(day time.Time, region string) bool
}

// State is the lifecycle of a Builder's model.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the result of a successful mutation. Warning carries a
// scheduling failure that did not undo the write.
type Outcome struct {
	Event   model.Event
	Status  notify.Status
	Warning error
}

// Options configures a Builder. Zero values take defaults.
type Options struct {
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Location defines calendar days; defaults to time.Local.
	Location          *time.Location
	HolidayWindowDays int
	Settings          model.Settings
}

// Builder owns the agenda of one session. Operations are serialized by
// opMu, which is held across store and scheduler calls; mu guards the
// model itself so readers can take snapshots while an operation waits on
// I/O.
type Builder struct {
	store    EventStore
	notifier Notifier
	holidays Holidays
	clock    func() time.Time
	loc      *time.Location
	window   int

	opMu sync.Mutex
	gen  atomic.Uint64

	mu        sync.RWMutex
	state     State
	settings  model.Settings
	groups    groupList
	windowEnd string
}

// NewBuilder returns an Uninitialized builder; call Load before mutating.
func NewBuilder(store EventStore, notifier Notifier, holidays Holidays, opts Options) *Builder {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HolidayWindowDays <= 0 {
		opts.HolidayWindowDays = DefaultHolidayWindowDays
	}
	return &Builder{
		store:    store,
		notifier: notifier,
		holidays: holidays,
		clock:    opts.Clock,
		loc:      opts.Location,
		window:   opts.HolidayWindowDays,
		settings: opts.Settings.Normalize(),
	}
}

func (b *Builder) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Settings returns the active settings snapshot.
func (b *Builder) Settings() model.Settings {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settings
}

// Groups returns a deep copy of the current agenda.
func (b *Builder) Groups() []Group {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.groups.clone()
}

// Event returns the confirmed event with id as currently shown.
func (b *Builder) Event(id int64) (model.Event, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	gi, ii, ok := b.groups.locate(ConfirmedKey(id))
	if !ok {
		return model.Event{}, false
	}
	return *b.groups[gi].Data[ii].Event, true
}

// Location returns the zone calendar days are computed in.
func (b *Builder) Location() *time.Location {
	return b.loc
}

// Load rebuilds the agenda for region from today on: holidays over the
// configured window and every stored event. An empty region keeps the
// active one. A load overtaken by a newer call returns apperr.ErrSuperseded
// and leaves the model alone.
func (b *Builder) Load(ctx context.Context, region string) ([]Group, error) {
	gen := b.gen.Add(1)

	b.opMu.Lock()
	defer b.opMu.Unlock()
	if b.gen.Load() != gen {
		return nil, apperr.ErrSuperseded
	}

	b.mu.Lock()
	prev := b.state
	b.state = Loading
	if region == "" {
		region = b.settings.Location
	}
	b.mu.Unlock()
	region = model.Settings{Location: region}.Normalize().Location

	revert := func() {
		b.mu.Lock()
		b.state = prev
		b.mu.Unlock()
	}

	today := model.DayStart(b.clock(), b.loc)
	end := today.AddDate(0, 0, b.window)

	var (
		events   []model.Event
		holidays []model.HolidayEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		evs, err := b.store.QueryFromDate(gctx, today)
		if err != nil {
			return err
		}
		events = evs
		return nil
	})
	g.Go(func() error {
		for h := range b.holidays.Expand(today, end, region) {
			if err := gctx.Err(); err != nil {
				return err
			}
			holidays = append(holidays, h)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		revert()
		appLog.Error("agenda load failed", err, "region", region)
		return nil, err
	}
	if b.gen.Load() != gen {
		revert()
		appLog.Debug("agenda load superseded", "region", region)
		return nil, apperr.ErrSuperseded
	}

	windowEnd := model.DayKey(end, b.loc)
	groups := b.merge(today, windowEnd, region, events, holidays)

	b.mu.Lock()
	b.groups = groups
	b.windowEnd = windowEnd
	b.settings.Location = region
	b.state = Ready
	out := b.groups.clone()
	b.mu.Unlock()

	appLog.Info("agenda loaded", "region", region, "groups", len(out), "events", len(events), "holidays", len(holidays))
	return out, nil
}

func (b *Builder) merge(today time.Time, windowEnd, region string, events []model.Event, holidays []model.HolidayEntry) groupList {
	byTitle := make(map[string]*Group)
	get := func(title string) *Group {
		g, ok := byTitle[title]
		if !ok {
			g = &Group{
				Title:    title,
				Emphasis: b.holidays.IsHolidayOrWeekend(dayOf(title, b.loc), region),
			}
			byTitle[title] = g
		}
		return g
	}

	for _, h := range holidays {
		title := model.DayKey(h.Date, b.loc)
		g := get(title)
		g.Data = append(g.Data, holidayItem(h, title))
	}
	for _, ev := range events {
		ev.Date = ev.Date.In(b.loc)
		title := model.DayKey(ev.Date, b.loc)
		_, seen := byTitle[title]
		g := get(title)
		if !seen && title > windowEnd {
			if h, ok := b.holidays.On(ev.Date, region); ok {
				g.Data = append(g.Data, holidayItem(h, title))
			}
		}
		g.Data = append(g.Data, eventItem(ConfirmedKey(ev.ID), ev))
	}
	get(model.DayKey(today, b.loc))

	out := make(groupList, 0, len(byTitle))
	for _, g := range byTitle {
		g.sortItems()
		out = append(out, *g)
	}
	slices.SortFunc(out, func(x, y Group) int {
		return cmp.Compare(x.Title, y.Title)
	})
	return out
}

// OnSettingsChanged applies new settings: a superseding load for the
// region and, when the time format changed, rescheduling of pending
// reminders so their titles use it. A failed load leaves the previous
// settings in place.
func (b *Builder) OnSettingsChanged(ctx context.Context, s model.Settings) ([]Group, error) {
	s = s.Normalize()

	groups, err := b.Load(ctx, s.Location)
	if err != nil && !errors.Is(err, apperr.ErrSuperseded) {
		return nil, err
	}

	b.mu.Lock()
	prevFormat := b.settings.TimeFormat
	b.settings.TimeFormat = s.TimeFormat
	b.mu.Unlock()

	if prevFormat != s.TimeFormat {
		if _, rerr := b.RescheduleAll(ctx); rerr != nil {
			appLog.Warn("reschedule after settings change failed", rerr)
		}
	}
	return groups, err
}

// RescheduleAll re-issues reminders for every stored event from today on
// that wants one. It restores pending notifications after a restart.
// Scheduling failures are logged; only a failing query is returned.
func (b *Builder) RescheduleAll(ctx context.Context) (int, error) {
	b.opMu.Lock()
	defer b.opMu.Unlock()

	tf := b.Settings().TimeFormat
	events, err := b.store.QueryFromDate(ctx, b.clock())
	if err != nil {
		return 0, err
	}
	scheduled := 0
	for _, ev := range events {
		if !ev.Notification {
			continue
		}
		st, err := b.notifier.Schedule(ctx, ev, tf)
		if err != nil {
			appLog.Warn("reschedule failed", err, "event_id", ev.ID)
			continue
		}
		if st == notify.Scheduled {
			scheduled++
		}
	}
	appLog.Info("notifications restored", "scheduled", scheduled)
	return scheduled, nil
}

func (b *Builder) validate(d model.Draft) error {
	if !d.HasDescription() {
		return apperr.Validation(apperr.EmptyDescription)
	}
	if d.NotificationMinOffset < 0 {
		return fmt.Errorf("%w: negative notification offset", apperr.ErrInvalidArgument)
	}
	if d.Notification && notify.IsPast(notify.FireTime(d.Date, d.NotificationMinOffset), b.clock()) {
		return apperr.Validation(apperr.PastNotification)
	}
	return nil
}

func (b *Builder) ready() error {
	if b.State() != Ready {
		return apperr.ErrNotReady
	}
	return nil
}

// Add stores a new event. A placeholder item is visible while the insert
// is in flight; it is swapped for the confirmed event or removed if the
// insert fails.
func (b *Builder) Add(ctx context.Context, d model.Draft) (Outcome, error) {
	if err := b.validate(d); err != nil {
		return Outcome{}, err
	}

	b.opMu.Lock()
	defer b.opMu.Unlock()
	if err := b.ready(); err != nil {
		return Outcome{}, err
	}

	d.Date = d.Date.In(b.loc)
	pending := PendingKey()
	b.mu.Lock()
	b.insertLocked(eventItem(pending, d.WithID(0)))
	b.mu.Unlock()

	id, err := b.store.Insert(ctx, d)
	if err != nil {
		b.mu.Lock()
		b.removeLocked(pending)
		b.mu.Unlock()
		appLog.Error("add event failed", err)
		return Outcome{}, err
	}

	ev := d.WithID(id)
	b.mu.Lock()
	b.reconcileLocked(pending, ev)
	b.mu.Unlock()

	out := Outcome{Event: ev, Status: notify.NotScheduled}
	if ev.Notification {
		out.Status, out.Warning = b.schedule(ctx, ev)
	}
	return out, nil
}

// Edit replaces original with updated. The item moves between groups when
// the calendar day changes and the reminder is always re-derived.
func (b *Builder) Edit(ctx context.Context, original model.Event, updated model.Draft) (Outcome, error) {
	if err := b.validate(updated); err != nil {
		return Outcome{}, err
	}

	b.opMu.Lock()
	defer b.opMu.Unlock()
	if err := b.ready(); err != nil {
		return Outcome{}, err
	}

	updated.Date = updated.Date.In(b.loc)
	ev := updated.WithID(original.ID)
	if err := b.store.Update(ctx, ev); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			appLog.Error("edit event failed", err, "event_id", ev.ID)
		}
		return Outcome{}, err
	}

	key := ConfirmedKey(ev.ID)
	b.mu.Lock()
	gi, ii, found := b.groups.locate(key)
	if found && b.groups[gi].Title == model.DayKey(ev.Date, b.loc) {
		b.groups[gi].Data[ii] = eventItem(key, ev)
		b.groups[gi].sortItems()
	} else {
		b.removeLocked(key)
		b.insertLocked(eventItem(key, ev))
	}
	b.mu.Unlock()

	b.notifier.Unschedule(ctx, ev.ID)
	out := Outcome{Event: ev, Status: notify.NotScheduled}
	if ev.Notification {
		out.Status, out.Warning = b.schedule(ctx, ev)
	}
	return out, nil
}

// Delete removes ev from the agenda, cancels its reminder and deletes it
// from the store. A storage failure puts the item and its reminder back;
// an id the store no longer knows stays removed and yields
// apperr.ErrNotFound.
func (b *Builder) Delete(ctx context.Context, ev model.Event) error {
	b.opMu.Lock()
	defer b.opMu.Unlock()
	if err := b.ready(); err != nil {
		return err
	}

	key := ConfirmedKey(ev.ID)
	b.mu.Lock()
	removed, wasShown := b.removeLocked(key)
	b.mu.Unlock()

	b.notifier.Unschedule(ctx, ev.ID)

	err := b.store.DeleteByID(ctx, ev.ID)
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	appLog.Error("delete event failed", err, "event_id", ev.ID)
	restored := ev
	if wasShown {
		restored = *removed.Event
		b.mu.Lock()
		b.insertLocked(removed)
		b.mu.Unlock()
	}
	if restored.Notification {
		_, _ = b.schedule(ctx, restored)
	}
	return err
}

// ToggleNotification flips the reminder flag of ev. Turning it on is
// refused with PastNotification when the fire time has passed.
func (b *Builder) ToggleNotification(ctx context.Context, ev model.Event) (Outcome, error) {
	b.opMu.Lock()
	defer b.opMu.Unlock()
	if err := b.ready(); err != nil {
		return Outcome{}, err
	}

	key := ConfirmedKey(ev.ID)
	b.mu.RLock()
	if gi, ii, ok := b.groups.locate(key); ok {
		ev = *b.groups[gi].Data[ii].Event
	}
	b.mu.RUnlock()

	ev.Notification = !ev.Notification
	if ev.Notification && notify.IsPast(notify.FireTime(ev.Date, ev.NotificationMinOffset), b.clock()) {
		return Outcome{}, apperr.Validation(apperr.PastNotification)
	}
	if err := b.store.Update(ctx, ev); err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			appLog.Error("toggle notification failed", err, "event_id", ev.ID)
		}
		return Outcome{}, err
	}

	b.mu.Lock()
	if gi, ii, ok := b.groups.locate(key); ok {
		b.groups[gi].Data[ii].Event = &ev
	}
	b.mu.Unlock()

	out := Outcome{Event: ev, Status: notify.NotScheduled}
	if ev.Notification {
		out.Status, out.Warning = b.schedule(ctx, ev)
	} else {
		b.notifier.Unschedule(ctx, ev.ID)
	}
	return out, nil
}

func (b *Builder) schedule(ctx context.Context, ev model.Event) (notify.Status, error) {
	st, err := b.notifier.Schedule(ctx, ev, b.Settings().TimeFormat)
	if err != nil {
		appLog.Warn("notification not scheduled", err, "event_id", ev.ID)
	}
	return st, err
}

// insertLocked adds it to the group of its day, creating the group when
// needed. A group created past the holiday window picks up that day's
// holiday on its own.
func (b *Builder) insertLocked(it Item) {
	title := model.DayKey(it.At, b.loc)
	i, ok := b.groups.find(title)
	if !ok {
		day := model.DayStart(it.At, b.loc)
		g := Group{
			Title:    title,
			Emphasis: b.holidays.IsHolidayOrWeekend(day, b.settings.Location),
		}
		if title > b.windowEnd {
			if h, ok := b.holidays.On(day, b.settings.Location); ok {
				g.Data = append(g.Data, holidayItem(h, title))
			}
		}
		b.groups = slices.Insert(b.groups, i, g)
	}
	g := &b.groups[i]
	g.Data = append(g.Data, it)
	g.sortItems()
}

// removeLocked drops the item with key and then its group, unless the
// group is today, still holds events, or holds a holiday of the loaded
// window.
func (b *Builder) removeLocked(key Key) (Item, bool) {
	gi, ii, ok := b.groups.locate(key)
	if !ok {
		return Item{}, false
	}
	g := &b.groups[gi]
	it := g.Data[ii]
	g.Data = slices.Delete(g.Data, ii, ii+1)
	if !b.keepLocked(*g) {
		b.groups = slices.Delete(b.groups, gi, gi+1)
	}
	return it, true
}

func (b *Builder) keepLocked(g Group) bool {
	if g.Title == model.DayKey(b.clock(), b.loc) {
		return true
	}
	if g.hasKind(KindEvent) {
		return true
	}
	return g.hasKind(KindHoliday) && g.Title <= b.windowEnd
}

// reconcileLocked swaps the placeholder for the confirmed event. It runs
// once per placeholder; a missing placeholder means a reload replaced the
// model and the confirmed event is inserted instead.
func (b *Builder) reconcileLocked(pending Key, ev model.Event) {
	key := ConfirmedKey(ev.ID)
	gi, ii, ok := b.groups.locate(pending)
	if !ok {
		b.insertLocked(eventItem(key, ev))
		return
	}
	b.groups[gi].Data[ii] = eventItem(key, ev)
	b.groups[gi].sortItems()
}
