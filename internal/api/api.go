/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	ws "nhooyr.io/websocket"

	"github.com/playloft/playloft/internal/events"
	"github.com/playloft/playloft/internal/session"
	"github.com/playloft/playloft/internal/stats"
	"github.com/playloft/playloft/internal/telemetry"
)

// EventStream is the subscribe side of the event bus, satisfied by the
// in-process bus and by the external bridges.
type EventStream interface {
	Subscribe(eventType events.EventType) events.Subscriber
	Unsubscribe(eventType events.EventType, sub events.Subscriber)
}

// API exposes HTTP handlers.
type API struct {
	db       *gorm.DB
	sessions *session.Service
	stats    *stats.Service
	bus      EventStream
	logger   zerolog.Logger
}

// New creates the API router wrapper.
func New(database *gorm.DB, sessions *session.Service, statsSvc *stats.Service, bus EventStream, logger zerolog.Logger) *API {
	return &API{
		db:       database,
		sessions: sessions,
		stats:    statsSvc,
		bus:      bus,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes mounts API routes on provided router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)

		r.Route("/stations", func(r chi.Router) {
			r.Get("/", a.handleStationsList)
			r.Post("/", a.handleStationsCreate)
			r.Route("/{stationID}", func(r chi.Router) {
				r.Get("/", a.handleStationsGet)
				r.Patch("/", a.handleStationsUpdate)
				r.Delete("/", a.handleStationsDelete)
			})
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", a.handleSessionsList)
			r.Post("/start", a.handleSessionStart)
			r.Patch("/{sessionID}/pause", a.handleSessionPause)
			r.Patch("/{sessionID}/resume", a.handleSessionResume)
			r.Patch("/{sessionID}/stop", a.handleSessionStop)
		})

		r.Route("/stats", func(r chi.Router) {
			r.Get("/daily-sessions", a.handleStatsDailySessions)
			r.Get("/station-usage", a.handleStatsStationUsage)
			r.Get("/daily-income", a.handleStatsDailyIncome)
		})

		r.Get("/events", a.handleEvents)
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEvents streams bus events over a websocket, filtered by the types
// query parameter.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := ws.Accept(w, r, &ws.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		a.logger.Error().Err(err).Msg("websocket accept failed")
		return
	}
	defer conn.Close(ws.StatusInternalError, "server error")

	telemetry.WebSocketConnections.Inc()
	defer telemetry.WebSocketConnections.Dec()

	eventTypes := parseEventTypes(r.URL.Query().Get("types"))
	if len(eventTypes) == 0 {
		eventTypes = []events.EventType{events.EventStationStatusChanged, events.EventSessionTimerTick}
	}

	subscribers := make([]events.Subscriber, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subscribers = append(subscribers, a.bus.Subscribe(eventType))
	}
	defer func() {
		for i, eventType := range eventTypes {
			a.bus.Unsubscribe(eventType, subscribers[i])
		}
	}()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(ws.StatusNormalClosure, "context cancelled")
			return
		case <-ticker.C:
			if err := conn.Write(ctx, ws.MessageText, []byte(`{"type":"ping"}`)); err != nil {
				a.logger.Debug().Err(err).Msg("websocket ping failed")
				conn.Close(ws.StatusInternalError, "write failed")
				return
			}
		default:
			sent := false
			for i, sub := range subscribers {
				select {
				case payload := <-sub:
					if err := a.writeEvent(ctx, conn, eventTypes[i], payload); err != nil {
						a.logger.Debug().Err(err).Msg("websocket write failed")
						conn.Close(ws.StatusInternalError, "write failed")
						return
					}
					sent = true
				default:
				}
			}
			if !sent {
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}

func (a *API) writeEvent(ctx context.Context, conn *ws.Conn, eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(map[string]any{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		return err
	}
	return conn.Write(ctx, ws.MessageText, data)
}

func parseEventTypes(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]events.EventType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, events.EventType(part))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeServiceError maps lifecycle errors onto HTTP status codes. Guard
// failures surface as 400, unknown ids as 404, store failures as 500.
func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrStationNotFound):
		writeError(w, http.StatusNotFound, "station_not_found")
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session_not_found")
	case errors.Is(err, session.ErrStationUnavailable):
		writeError(w, http.StatusBadRequest, "station_unavailable")
	case errors.Is(err, session.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_session_state")
	case errors.Is(err, session.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request")
	default:
		a.logger.Error().Err(err).Msg("session operation failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
