package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"calendario/internal/agenda"
	"calendario/internal/apperr"
	"calendario/internal/config"
	appLog "calendario/internal/log"
	"calendario/internal/model"
	"calendario/internal/notify"
	"calendario/internal/store"
)

// Server exposes the agenda over HTTP/JSON.
type Server struct {
	cfg      *config.Config
	agenda   *agenda.Builder
	settings store.SettingsRepository
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

// NewServer wires the routes. gatherer may be nil, which disables /metrics.
func NewServer(cfg *config.Config, b *agenda.Builder, settings store.SettingsRepository, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		cfg:      cfg,
		agenda:   b,
		settings: settings,
		gatherer: gatherer,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="Calendario", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// ListenAndServe serves on cfg.Listen until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/agenda", s.handleAgenda)
	s.mux.HandleFunc("POST /api/events", s.handleAddEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.handleEditEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.handleDeleteEvent)
	s.mux.HandleFunc("POST /api/events/{id}/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.mux.HandleFunc("PUT /api/settings", s.handlePutSettings)

	if s.cfg.Metrics && s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleAgenda returns the grouped agenda.
//
// GET /api/agenda?reload=1
//   - reload: rebuild from the store before answering. The first request
//     after startup always loads.
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("reload") == "1" || s.agenda.State() != agenda.Ready {
		if _, err := s.agenda.Load(r.Context(), ""); err != nil && !errors.Is(err, apperr.ErrSuperseded) {
			writeAgendaError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.agendaResponse())
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	d, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	out, err := s.agenda.Add(r.Context(), d)
	if err != nil {
		writeAgendaError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.outcomeResponse(out))
}

func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	original, ok := s.eventFromPath(w, r)
	if !ok {
		return
	}
	d, ok := s.decodeDraft(w, r)
	if !ok {
		return
	}
	out, err := s.agenda.Edit(r.Context(), original, d)
	if err != nil {
		writeAgendaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.outcomeResponse(out))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.eventFromPath(w, r)
	if !ok {
		return
	}
	if err := s.agenda.Delete(r.Context(), ev); err != nil {
		writeAgendaError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.eventFromPath(w, r)
	if !ok {
		return
	}
	out, err := s.agenda.ToggleNotification(r.Context(), ev)
	if err != nil {
		writeAgendaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.outcomeResponse(out))
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toSettingsDTO(s.agenda.Settings()))
}

// handlePutSettings persists the settings and reloads the agenda for them.
// Fields left empty keep their current value.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	next := s.agenda.Settings()
	if req.Location != "" {
		next.Location = req.Location
	}
	if req.TimeFormat != "" {
		tf := model.TimeFormat(req.TimeFormat)
		if !tf.Valid() {
			writeError(w, http.StatusBadRequest, `time_format must be "12" or "24"`)
			return
		}
		next.TimeFormat = tf
	}
	next = next.Normalize()

	if err := store.SaveSettings(r.Context(), s.settings, next); err != nil {
		writeAgendaError(w, err)
		return
	}
	if _, err := s.agenda.OnSettingsChanged(r.Context(), next); err != nil && !errors.Is(err, apperr.ErrSuperseded) {
		writeAgendaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsDTO(s.agenda.Settings()))
}

func (s *Server) eventFromPath(w http.ResponseWriter, r *http.Request) (model.Event, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return model.Event{}, false
	}
	if s.agenda.State() != agenda.Ready {
		writeAgendaError(w, apperr.ErrNotReady)
		return model.Event{}, false
	}
	ev, ok := s.agenda.Event(id)
	if !ok {
		writeAgendaError(w, apperr.ErrNotFound)
		return model.Event{}, false
	}
	return ev, true
}

func (s *Server) decodeDraft(w http.ResponseWriter, r *http.Request) (model.Draft, bool) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return model.Draft{}, false
	}
	if req.Date.IsZero() {
		writeError(w, http.StatusBadRequest, "date is required")
		return model.Draft{}, false
	}
	d, err := req.draft(s.cfg.Agenda.DefaultNotificationOffset)
	if err != nil {
		writeAgendaError(w, err)
		return model.Draft{}, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAgendaError maps the error taxonomy to HTTP statuses.
func writeAgendaError(w http.ResponseWriter, err error) {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Reason: string(ve.Reason)})
	case errors.Is(err, apperr.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case apperr.IsPersistence(err):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable, try again")
	case errors.Is(err, apperr.ErrNotReady), errors.Is(err, apperr.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	default:
		appLog.Error("unexpected agenda error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) agendaResponse() agendaResponse {
	settings := s.agenda.Settings()
	loc := s.agenda.Location()
	groups := s.agenda.Groups()

	resp := agendaResponse{
		State:    s.agenda.State().String(),
		Settings: toSettingsDTO(settings),
		Groups:   make([]groupDTO, 0, len(groups)),
	}
	for _, g := range groups {
		gd := groupDTO{
			Title:    g.Title,
			Emphasis: g.Emphasis,
			Data:     make([]itemDTO, 0, len(g.Data)),
		}
		if day, err := model.ParseDayKey(g.Title, loc); err == nil {
			gd.Label = model.FormatDate(day)
			gd.Weekday = day.Weekday().String()
		}
		for _, it := range g.Data {
			id := itemDTO{
				Kind:        string(it.Kind),
				Key:         it.Key.String(),
				At:          it.At,
				Description: it.Description,
			}
			if it.Event != nil {
				ev := toEventDTO(*it.Event, settings.TimeFormat, loc)
				id.Event = &ev
			}
			gd.Data = append(gd.Data, id)
		}
		resp.Groups = append(resp.Groups, gd)
	}
	return resp
}

func (s *Server) outcomeResponse(out agenda.Outcome) outcomeResponse {
	resp := outcomeResponse{
		Event:     toEventDTO(out.Event, s.agenda.Settings().TimeFormat, s.agenda.Location()),
		Scheduled: out.Status == notify.Scheduled,
	}
	if out.Warning != nil {
		resp.Warning = out.Warning.Error()
	}
	return resp
}
