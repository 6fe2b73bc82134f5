package notify

import (
	"context"
	"strconv"
	"sync"
	"time"

	"calendario/internal/apperr"
	appLog "calendario/internal/log"
	"calendario/internal/model"
)

// Capability is the platform alarm service. Implementations must deliver
// scheduled alerts even if the process that scheduled them has restarted,
// or be re-primed at startup (see agenda.Builder.RescheduleAll).
type Capability interface {
	// ScheduleOnce registers a fire-once alert under id.
	ScheduleOnce(ctx context.Context, id, title, body string, fireAt time.Time) error
	// Cancel drops the alert registered under id. Cancelling an unknown id
	// is not an error.
	Cancel(ctx context.Context, id string) error
}

// Status is the outcome of a Schedule call.
type Status int

const (
	NotScheduled Status = iota
	Scheduled
)

func (s Status) String() string {
	if s == Scheduled {
		return "scheduled"
	}
	return "not_scheduled"
}

// Scheduler translates events into commands against a Capability, keyed by
// the stringified event id. After Schedule returns there is at most one
// pending alert per event.
type Scheduler struct {
	capability Capability
	now        func() time.Time
	loc        *time.Location
	metrics    *Metrics

	// mu keeps cancel+schedule pairs from interleaving.
	mu sync.Mutex
}

// NewScheduler builds an adapter. now defaults to time.Now, loc to
// time.Local and metrics to an unregistered set.
func NewScheduler(c Capability, now func() time.Time, loc *time.Location, metrics *Metrics) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Scheduler{capability: c, now: now, loc: loc, metrics: metrics}
}

// HandleID is the alert id used for an event.
func HandleID(eventID int64) string {
	return strconv.FormatInt(eventID, 10)
}

// Title renders the alert title with the event time in tf.
func Title(ev model.Event, tf model.TimeFormat, loc *time.Location) string {
	return "⏰ Upcoming event at " + model.FormatTime(ev.Date.In(loc), tf)
}

// Describe renders the reminder line shown next to an event.
func Describe(ev model.Event, tf model.TimeFormat, loc *time.Location) string {
	if !ev.Notification {
		return "Notification disabled"
	}
	fire := FireTime(ev.Date, ev.NotificationMinOffset).In(loc)
	return "You will be notified on " + model.FormatDateTime(fire, tf)
}

// Schedule (re)arms the reminder for ev. A fire time that is not in the
// future yields NotScheduled without side effects. A capability failure is
// returned as *apperr.SchedulingError.
func (s *Scheduler) Schedule(ctx context.Context, ev model.Event, tf model.TimeFormat) (Status, error) {
	if !ev.Notification {
		return NotScheduled, nil
	}

	fire := FireTime(ev.Date, ev.NotificationMinOffset)
	if IsPast(fire, s.now()) {
		s.metrics.Skipped.Inc()
		appLog.Debug("notification not scheduled: fire time passed", "event_id", ev.ID, "fire_at", fire.Format(time.RFC3339))
		return NotScheduled, nil
	}

	id := HandleID(ev.ID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.capability.Cancel(ctx, id); err != nil {
		s.metrics.Failed.Inc()
		return NotScheduled, &apperr.SchedulingError{EventID: ev.ID, Err: err}
	}
	if err := s.capability.ScheduleOnce(ctx, id, Title(ev, tf, s.loc), ev.Description, fire); err != nil {
		s.metrics.Failed.Inc()
		return NotScheduled, &apperr.SchedulingError{EventID: ev.ID, Err: err}
	}

	s.metrics.Scheduled.Inc()
	appLog.Debug("notification scheduled", "event_id", ev.ID, "fire_at", fire.Format(time.RFC3339))
	return Scheduled, nil
}

// Unschedule cancels any reminder for eventID. Failures are logged only.
func (s *Scheduler) Unschedule(ctx context.Context, eventID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.capability.Cancel(ctx, HandleID(eventID)); err != nil {
		appLog.Warn("notification cancel failed", err, "event_id", eventID)
		return
	}
	s.metrics.Cancelled.Inc()
}
