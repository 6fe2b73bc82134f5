package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calendario/internal/agenda"
	"calendario/internal/config"
	"calendario/internal/holiday"
	"calendario/internal/model"
	"calendario/internal/notify"
	"calendario/internal/store"
	"calendario/internal/store/memstore"
)

type testServer struct {
	srv   *httptest.Server
	mem   *memstore.Store
	alarm *notify.CronAlarm
	cfg   *config.Config
}

func newTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	if mutate != nil {
		mutate(cfg)
	}

	reg := prometheus.NewRegistry()
	metrics := notify.NewMetrics(reg)
	alarm := notify.NewCronAlarm(time.UTC, func(notify.Alert) {}, metrics)

	rules, err := holiday.NewRules()
	require.NoError(t, err)

	mem := memstore.New()
	b := agenda.NewBuilder(
		store.NewFacade(mem, time.UTC),
		notify.NewScheduler(alarm, time.Now, time.UTC, metrics),
		holiday.NewExpander(rules, time.UTC),
		agenda.Options{Location: time.UTC, Settings: model.DefaultSettings()},
	)
	_, err = b.Load(context.Background(), "")
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(cfg, b, mem, reg).Handler())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, mem: mem, alarm: alarm, cfg: cfg}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rd)
	require.NoError(t, err)
	if ts.cfg.BasicAuth != nil {
		req.SetBasicAuth(ts.cfg.BasicAuth.Username, ts.cfg.BasicAuth.Password)
	}
	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// future returns a whole hour at least two days ahead.
func future() time.Time {
	return time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	})

	resp, err := http.Get(ts.srv.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "/health is public")

	resp, err = http.Get(ts.srv.URL + "/api/agenda")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/agenda", nil).StatusCode)
}

func TestEventLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	when := future()

	resp := ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"description":  "Meeting",
		"date":         when,
		"notification": true,
		"offset":       map[string]int{"days": 0, "hours": 1, "minutes": 90},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[outcomeResponse](t, resp)
	assert.True(t, created.Scheduled)
	assert.Equal(t, 119, created.Event.NotificationMinOffset, "minutes clamped to 59")
	assert.Equal(t, offsetDTO{Hours: 1, Minutes: 59}, created.Event.Offset)
	assert.True(t, strings.HasPrefix(created.Event.Notice, "You will be notified on "))

	pending := ts.alarm.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, notify.HandleID(created.Event.ID), pending[0].ID)

	ag := decode[agendaResponse](t, ts.do(t, http.MethodGet, "/api/agenda", nil))
	assert.Equal(t, "ready", ag.State)
	var found *itemDTO
	for _, g := range ag.Groups {
		if g.Title != when.Format(model.DayKeyLayout) {
			continue
		}
		for i := range g.Data {
			if g.Data[i].Kind == string(agenda.KindEvent) {
				found = &g.Data[i]
			}
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Meeting", found.Description)
	assert.Equal(t, fmt.Sprintf("event:%d", created.Event.ID), found.Key)

	path := fmt.Sprintf("/api/events/%d", created.Event.ID)
	resp = ts.do(t, http.MethodPut, path, map[string]any{
		"description": "Meeting moved",
		"date":        when.Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	edited := decode[outcomeResponse](t, resp)
	assert.False(t, edited.Scheduled)
	assert.Equal(t, "Notification disabled", edited.Event.Notice)
	assert.Empty(t, ts.alarm.Pending())

	resp = ts.do(t, http.MethodPost, path+"/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	toggled := decode[outcomeResponse](t, resp)
	assert.True(t, toggled.Event.Notification)
	assert.True(t, toggled.Scheduled)
	assert.Equal(t, ts.cfg.Agenda.DefaultNotificationOffset, toggled.Event.NotificationMinOffset)

	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodDelete, path, nil).StatusCode)
	assert.Empty(t, ts.alarm.Pending())
	assert.Zero(t, ts.mem.Len())
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodDelete, path, nil).StatusCode)
}

func TestAddEvent_Validation(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"description": "  ",
		"date":        future(),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "EmptyDescription", decode[errorResponse](t, resp).Reason)

	resp = ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"description":             "late",
		"date":                    time.Now().Add(10 * time.Minute),
		"notification":            true,
		"notification_min_offset": 30,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "PastNotification", decode[errorResponse](t, resp).Reason)

	resp = ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"description":             "negative",
		"date":                    future(),
		"notification_min_offset": -5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/api/events", map[string]any{"description": "no date"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/events/abc", map[string]any{}).StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodPost, "/api/events/999/toggle", nil).StatusCode)
	assert.Zero(t, ts.mem.Len())
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, nil)

	got := decode[settingsDTO](t, ts.do(t, http.MethodGet, "/api/settings", nil))
	assert.Equal(t, settingsDTO{Location: "US", TimeFormat: "24"}, got)

	resp := ts.do(t, http.MethodPut, "/api/settings", settingsDTO{Location: "it", TimeFormat: "12"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, settingsDTO{Location: "IT", TimeFormat: "12"}, decode[settingsDTO](t, resp))

	stored, err := store.LoadSettings(context.Background(), ts.mem, model.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, model.Settings{Location: "IT", TimeFormat: model.TimeFormat12}, stored)

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPut, "/api/settings", settingsDTO{TimeFormat: "7"}).StatusCode)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.do(t, http.MethodPost, "/api/events", map[string]any{
		"description":  "metric",
		"date":         future(),
		"notification": true,
	})

	resp := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `calendario_notifications_total{outcome="scheduled"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Metrics = false })
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/metrics", nil).StatusCode)
}
