package web

import (
	"time"

	"calendario/internal/model"
	"calendario/internal/notify"
)

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type settingsDTO struct {
	Location   string `json:"location"`
	TimeFormat string `json:"time_format"`
}

func toSettingsDTO(s model.Settings) settingsDTO {
	return settingsDTO{Location: s.Location, TimeFormat: string(s.TimeFormat)}
}

// offsetDTO is the days/hours/minutes form of a reminder lead time.
type offsetDTO struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// eventRequest is the body of POST /api/events and PUT /api/events/{id}.
// Offset wins over NotificationMinOffset; with neither the configured
// default applies.
type eventRequest struct {
	Description           string     `json:"description"`
	Date                  time.Time  `json:"date"`
	Notification          bool       `json:"notification"`
	NotificationMinOffset *int       `json:"notification_min_offset,omitempty"`
	Offset                *offsetDTO `json:"offset,omitempty"`
}

func (r eventRequest) draft(defaultOffset int) (model.Draft, error) {
	d := model.Draft{
		Description:           r.Description,
		Date:                  r.Date,
		Notification:          r.Notification,
		NotificationMinOffset: defaultOffset,
	}
	switch {
	case r.Offset != nil:
		minutes, err := notify.Clamp(r.Offset.Days, r.Offset.Hours, r.Offset.Minutes).Total()
		if err != nil {
			return model.Draft{}, err
		}
		d.NotificationMinOffset = minutes
	case r.NotificationMinOffset != nil:
		d.NotificationMinOffset = *r.NotificationMinOffset
	}
	return d, nil
}

type eventDTO struct {
	ID                    int64     `json:"id"`
	Description           string    `json:"description"`
	Date                  time.Time `json:"date"`
	Time                  string    `json:"time"`
	Notification          bool      `json:"notification"`
	NotificationMinOffset int       `json:"notification_min_offset"`
	Offset                offsetDTO `json:"offset"`
	Notice                string    `json:"notice"`
}

func toEventDTO(ev model.Event, tf model.TimeFormat, loc *time.Location) eventDTO {
	out := eventDTO{
		ID:                    ev.ID,
		Description:           ev.Description,
		Date:                  ev.Date,
		Time:                  model.FormatTime(ev.Date.In(loc), tf),
		Notification:          ev.Notification,
		NotificationMinOffset: ev.NotificationMinOffset,
		Notice:                notify.Describe(ev, tf, loc),
	}
	if o, err := notify.FromOffsetMinutes(ev.NotificationMinOffset); err == nil {
		out.Offset = offsetDTO{Days: o.Days, Hours: o.Hours, Minutes: o.Minutes}
	}
	return out
}

type itemDTO struct {
	Kind        string    `json:"kind"`
	Key         string    `json:"key"`
	At          time.Time `json:"at"`
	Description string    `json:"description"`
	Event       *eventDTO `json:"event,omitempty"`
}

type groupDTO struct {
	Title    string    `json:"title"`
	Label    string    `json:"label"`
	Weekday  string    `json:"weekday"`
	Emphasis bool      `json:"emphasis"`
	Data     []itemDTO `json:"data"`
}

type agendaResponse struct {
	State    string      `json:"state"`
	Settings settingsDTO `json:"settings"`
	Groups   []groupDTO  `json:"groups"`
}

type outcomeResponse struct {
	Event     eventDTO `json:"event"`
	Scheduled bool     `json:"scheduled"`
	Warning   string   `json:"warning,omitempty"`
}
