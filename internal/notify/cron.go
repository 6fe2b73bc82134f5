package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "calendario/internal/log"
)

// Alert is a reminder handed to the delivery function when it fires.
type Alert struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	FireAt time.Time `json:"fire_at"`
}

// DeliverFunc receives fired alerts.
type DeliverFunc func(Alert)

// LogDeliver writes fired alerts to the application log.
func LogDeliver(a Alert) {
	appLog.Info("notification fired", "id", a.ID, "title", a.Title, "body", a.Body)
}

// onceSchedule fires a single time at at. cron treats a zero Next as
// "never again".
type onceSchedule struct {
	at time.Time
}

func (s onceSchedule) Next(t time.Time) time.Time {
	if t.Before(s.at) {
		return s.at
	}
	return time.Time{}
}

type pendingAlert struct {
	entryID cron.EntryID
	seq     uint64
	alert   Alert
}

// CronAlarm is an in-process Capability backed by robfig/cron one-shot
// entries. Pending alerts live in memory only, so the process re-arms them
// from the event store on startup.
type CronAlarm struct {
	cron    *cron.Cron
	deliver DeliverFunc
	metrics *Metrics
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]pendingAlert // alert id → cron entry
	seq     uint64
	stopped bool
}

// NewCronAlarm creates an alarm evaluating fire times in loc.
func NewCronAlarm(loc *time.Location, deliver DeliverFunc, metrics *Metrics) *CronAlarm {
	if loc == nil {
		loc = time.Local
	}
	if deliver == nil {
		deliver = LogDeliver
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &CronAlarm{
		cron:    cron.New(cron.WithLocation(loc)),
		deliver: deliver,
		metrics: metrics,
		now:     time.Now,
		pending: make(map[string]pendingAlert),
	}
}

// WithClock replaces the clock used to reject past fire times.
func (a *CronAlarm) WithClock(now func() time.Time) *CronAlarm {
	if now != nil {
		a.now = now
	}
	return a
}

// Start begins firing alerts in the background.
func (a *CronAlarm) Start() {
	a.cron.Start()
}

// Stop halts the cron loop and waits for running deliveries.
func (a *CronAlarm) Stop() {
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	<-a.cron.Stop().Done()
}

// ScheduleOnce implements Capability. An alert already registered under id
// is replaced.
func (a *CronAlarm) ScheduleOnce(_ context.Context, id, title, body string, fireAt time.Time) error {
	if id == "" {
		return errors.New("alarm: empty id")
	}
	if !fireAt.After(a.now()) {
		return errors.New("alarm: fire time has passed")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return errors.New("alarm: stopped")
	}
	if prev, ok := a.pending[id]; ok {
		a.cron.Remove(prev.entryID)
		delete(a.pending, id)
	}

	a.seq++
	seq := a.seq
	entryID := a.cron.Schedule(onceSchedule{at: fireAt}, cron.FuncJob(func() {
		a.fire(id, seq)
	}))
	a.pending[id] = pendingAlert{
		entryID: entryID,
		seq:     seq,
		alert:   Alert{ID: id, Title: title, Body: body, FireAt: fireAt},
	}
	return nil
}

// Cancel implements Capability.
func (a *CronAlarm) Cancel(_ context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.pending[id]; ok {
		a.cron.Remove(prev.entryID)
		delete(a.pending, id)
	}
	return nil
}

// Pending lists alerts that have not fired yet, ordered by fire time.
func (a *CronAlarm) Pending() []Alert {
	a.mu.Lock()
	out := make([]Alert, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p.alert)
	}
	a.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

func (a *CronAlarm) fire(id string, seq uint64) {
	a.mu.Lock()
	p, ok := a.pending[id]
	if !ok || p.seq != seq {
		// Cancelled or replaced after the timer was armed.
		a.mu.Unlock()
		return
	}
	delete(a.pending, id)
	a.cron.Remove(p.entryID)
	a.mu.Unlock()

	a.metrics.Delivered.Inc()
	a.deliver(p.alert)
}
