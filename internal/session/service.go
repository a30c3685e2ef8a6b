/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package session implements the rental session lifecycle: start, pause,
// resume, stop and auto-expire. Every transition is an atomic conditional
// update guarded by the status observed when the record was read, so
// concurrent operations on the same session cannot double-bill or leave a
// station's status stale.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/playloft/playloft/internal/billing"
	"github.com/playloft/playloft/internal/events"
	"github.com/playloft/playloft/internal/models"
	"github.com/playloft/playloft/internal/telemetry"
)

var (
	// ErrStationNotFound indicates the station id is unknown.
	ErrStationNotFound = errors.New("station not found")

	// ErrSessionNotFound indicates the session id is unknown.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStationUnavailable indicates the station is already occupied.
	ErrStationUnavailable = errors.New("station not available or already in use")

	// ErrInvalidState indicates the session is not in the state the
	// requested transition requires.
	ErrInvalidState = errors.New("session not in required state")

	// ErrInvalidRequest indicates malformed start parameters.
	ErrInvalidRequest = errors.New("invalid session request")
)

// Scheduler arms and disarms the per-session auto-stop timers. The timer
// package provides the in-memory implementation; the indirection exists so
// a durable job queue could replace it without touching this service.
type Scheduler interface {
	Schedule(sessionID string, minutes int)
	Cancel(sessionID string)
}

// Service orchestrates session state transitions across the station
// registry and the session store.
type Service struct {
	db        *gorm.DB
	bus       events.Publisher
	scheduler Scheduler
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService creates the session lifecycle service.
func NewService(database *gorm.DB, bus events.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		db:     database,
		bus:    bus,
		logger: logger.With().Str("component", "session").Logger(),
		now:    time.Now,
	}
}

// SetScheduler wires the auto-stop scheduler. Must be called before Start
// is used for planned sessions.
func (s *Service) SetScheduler(scheduler Scheduler) {
	s.scheduler = scheduler
}

// SetNowFunc overrides the clock. Tests use this to simulate elapsed time.
func (s *Service) SetNowFunc(now func() time.Time) {
	s.now = now
}

// StartRequest contains parameters for starting a session.
type StartRequest struct {
	StationID      string
	Kind           models.SessionKind
	PlannedMinutes int
}

// Start claims a free station and creates an active session on it. Planned
// sessions additionally arm an auto-stop timer for their minute budget.
func (s *Service) Start(ctx context.Context, req StartRequest) (*models.Session, error) {
	switch req.Kind {
	case models.SessionPlanned:
		if req.PlannedMinutes <= 0 {
			return nil, fmt.Errorf("%w: planned session requires positive planned minutes", ErrInvalidRequest)
		}
	case models.SessionUnplanned:
	default:
		return nil, fmt.Errorf("%w: unknown session kind %q", ErrInvalidRequest, req.Kind)
	}

	var station models.Station
	if err := s.db.WithContext(ctx).First(&station, "id = ?", req.StationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStationNotFound
		}
		return nil, fmt.Errorf("load station: %w", err)
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		StationID: station.ID,
		Kind:      req.Kind,
		Status:    models.SessionActive,
		StartTime: s.now(),
	}
	if req.Kind == models.SessionPlanned {
		planned := req.PlannedMinutes
		session.PlannedMinutes = &planned
	}

	// Claiming the station and creating the session must be atomic: the
	// conditional update on status=free serializes concurrent starts.
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.Station{}).
			Where("id = ? AND status = ?", station.ID, models.StationFree).
			Updates(map[string]any{
				"status":             models.StationPlaying,
				"current_session_id": session.ID,
			})
		if claim.Error != nil {
			return fmt.Errorf("claim station: %w", claim.Error)
		}
		if claim.RowsAffected == 0 {
			return ErrStationUnavailable
		}
		if err := tx.Create(session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.Kind == models.SessionPlanned && s.scheduler != nil {
		s.scheduler.Schedule(session.ID, req.PlannedMinutes)
	}

	telemetry.SessionsStartedTotal.WithLabelValues(string(req.Kind)).Inc()
	telemetry.ActiveSessions.Inc()

	s.logger.Info().
		Str("session_id", session.ID).
		Str("station_id", station.ID).
		Str("kind", string(req.Kind)).
		Int("planned_minutes", req.PlannedMinutes).
		Msg("session started")

	s.publishStationStatus(station.ID, models.StationPlaying, session.ID)
	return session, nil
}

// Pause suspends an active session and marks its station paused.
func (s *Service) Pause(ctx context.Context, sessionID string) error {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionActive {
		return ErrInvalidState
	}

	now := s.now()
	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", sessionID, models.SessionActive).
		Updates(map[string]any{
			"status":           models.SessionPaused,
			"pause_start_time": now,
		})
	if result.Error != nil {
		return fmt.Errorf("pause session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidState
	}

	updated, err := s.setStationStatus(ctx, session.StationID, sessionID, models.StationPaused)
	if err != nil {
		return err
	}

	s.logger.Info().Str("session_id", sessionID).Msg("session paused")
	if updated {
		s.publishStationStatus(session.StationID, models.StationPaused, sessionID)
	}
	return nil
}

// Resume reactivates a paused session, folding the completed pause
// interval into the accumulated paused duration (floor minutes).
func (s *Service) Resume(ctx context.Context, sessionID string) error {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionPaused || session.PauseStartTime == nil {
		return ErrInvalidState
	}

	pausedMinutes := int(s.now().Sub(*session.PauseStartTime).Milliseconds() / 60_000)
	if pausedMinutes < 0 {
		pausedMinutes = 0
	}

	result := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ? AND status = ?", sessionID, models.SessionPaused).
		Updates(map[string]any{
			"status":           models.SessionActive,
			"paused_duration":  session.PausedDuration + pausedMinutes,
			"pause_start_time": nil,
		})
	if result.Error != nil {
		return fmt.Errorf("resume session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvalidState
	}

	updated, err := s.setStationStatus(ctx, session.StationID, sessionID, models.StationPlaying)
	if err != nil {
		return err
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("paused_minutes", pausedMinutes).
		Msg("session resumed")
	if updated {
		s.publishStationStatus(session.StationID, models.StationPlaying, sessionID)
	}
	return nil
}

// StopResult carries the billing outcome of a terminal transition.
type StopResult struct {
	Session      *models.Session
	TotalMinutes int
	TotalPrice   string
}

// Stop manually ends a session from active or paused, computes billing and
// frees the station. Any pending auto-stop timer is cancelled before the
// state change so a stale timer cannot fire afterwards.
func (s *Service) Stop(ctx context.Context, sessionID string) (*StopResult, error) {
	if s.scheduler != nil {
		s.scheduler.Cancel(sessionID)
	}
	return s.end(ctx, sessionID, models.SessionStopped)
}

// Expire force-ends a session that reached its planned minute budget. It
// is invoked only by the auto-stop scheduler and only succeeds while the
// session is still active; a paused or already-ended session is left
// untouched.
func (s *Service) Expire(ctx context.Context, sessionID string) (*StopResult, error) {
	return s.end(ctx, sessionID, models.SessionExpired)
}

// end performs the shared terminal transition. For stopped the guard
// accepts active or paused; for expired only active.
func (s *Service) end(ctx context.Context, sessionID string, terminal models.SessionStatus) (*StopResult, error) {
	// One retry: a concurrent pause/resume between read and conditional
	// update changes the status we guard on, which only means the totals
	// must be recomputed from the fresh record.
	for attempt := 0; attempt < 2; attempt++ {
		session, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if session.Terminal() {
			return nil, ErrInvalidState
		}
		if terminal == models.SessionExpired && session.Status != models.SessionActive {
			return nil, ErrInvalidState
		}

		var station models.Station
		if err := s.db.WithContext(ctx).First(&station, "id = ?", session.StationID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrStationNotFound
			}
			return nil, fmt.Errorf("load station: %w", err)
		}

		endTime := s.now()
		minutes, price, err := billing.Compute(session.StartTime, endTime, session.PausedDuration, station.HourlyRate)
		if err != nil {
			return nil, fmt.Errorf("compute billing: %w", err)
		}

		result := s.db.WithContext(ctx).Model(&models.Session{}).
			Where("id = ? AND status = ?", sessionID, session.Status).
			Updates(map[string]any{
				"status":        terminal,
				"end_time":      endTime,
				"total_minutes": minutes,
				"total_price":   price,
			})
		if result.Error != nil {
			return nil, fmt.Errorf("end session: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			continue
		}

		freed := s.db.WithContext(ctx).Model(&models.Station{}).
			Where("id = ?", station.ID).
			Updates(map[string]any{
				"status":             models.StationFree,
				"current_session_id": nil,
			})
		if freed.Error != nil {
			return nil, fmt.Errorf("free station: %w", freed.Error)
		}

		session.Status = terminal
		session.EndTime = &endTime
		session.TotalMinutes = &minutes
		session.TotalPrice = &price

		telemetry.SessionsEndedTotal.WithLabelValues(string(terminal)).Inc()
		telemetry.ActiveSessions.Dec()

		s.logger.Info().
			Str("session_id", sessionID).
			Str("station_id", station.ID).
			Str("outcome", string(terminal)).
			Int("total_minutes", minutes).
			Str("total_price", price.StringFixed(2)).
			Msg("session ended")

		s.publishStationStatus(station.ID, models.StationFree, "")

		return &StopResult{
			Session:      session,
			TotalMinutes: minutes,
			TotalPrice:   price.StringFixed(2),
		}, nil
	}

	return nil, ErrInvalidState
}

// Reconcile re-derives station status from session state. Run once at
// startup: a crash between the session and station writes, or auto-stop
// timers lost to a restart, can leave a station pointing at a session
// whose status no longer matches.
func (s *Service) Reconcile(ctx context.Context) error {
	var stations []models.Station
	if err := s.db.WithContext(ctx).Find(&stations).Error; err != nil {
		return fmt.Errorf("load stations: %w", err)
	}

	for i := range stations {
		station := &stations[i]

		want := models.StationFree
		var sessionID *string
		if station.CurrentSessionID != nil {
			var session models.Session
			err := s.db.WithContext(ctx).First(&session, "id = ?", *station.CurrentSessionID).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Dangling reference; free the station.
			case err != nil:
				return fmt.Errorf("load session %s: %w", *station.CurrentSessionID, err)
			default:
				want = models.StationStatusFor(session.Status)
				if want != models.StationFree {
					sessionID = station.CurrentSessionID
				}
			}
		}

		if station.Status == want && ((sessionID == nil) == (station.CurrentSessionID == nil)) {
			continue
		}

		result := s.db.WithContext(ctx).Model(&models.Station{}).
			Where("id = ?", station.ID).
			Updates(map[string]any{
				"status":             want,
				"current_session_id": sessionID,
			})
		if result.Error != nil {
			return fmt.Errorf("reconcile station %s: %w", station.ID, result.Error)
		}

		s.logger.Warn().
			Str("station_id", station.ID).
			Str("from", string(station.Status)).
			Str("to", string(want)).
			Msg("reconciled station status from session state")
	}
	return nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

// setStationStatus updates the station row only while it still points at
// the session; a concurrent terminal transition that already freed the
// station wins and the write is skipped.
func (s *Service) setStationStatus(ctx context.Context, stationID, sessionID string, status models.StationStatus) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Station{}).
		Where("id = ? AND current_session_id = ?", stationID, sessionID).
		Update("status", status)
	if result.Error != nil {
		return false, fmt.Errorf("update station status: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Service) publishStationStatus(stationID string, status models.StationStatus, sessionID string) {
	if s.bus == nil {
		return
	}
	payload := events.Payload{
		"stationId": stationID,
		"status":    string(status),
	}
	if sessionID != "" {
		payload["sessionId"] = sessionID
	}
	s.bus.Publish(events.EventStationStatusChanged, payload)
}
