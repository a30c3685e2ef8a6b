/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timer holds the per-session auto-stop timers. The timer map is
// process-local and non-durable: a restart drops every pending auto-stop,
// which is an accepted limitation covered by the startup reconciliation
// pass.
package timer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/playloft/playloft/internal/session"
	"github.com/playloft/playloft/internal/telemetry"
)

// Expirer force-ends a session that reached its planned budget.
type Expirer interface {
	Expire(ctx context.Context, sessionID string) (*session.StopResult, error)
}

// Scheduler arms one-shot timers that expire planned sessions.
type Scheduler struct {
	expirer Expirer
	logger  zerolog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates an auto-stop scheduler.
func New(expirer Expirer, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		expirer: expirer,
		logger:  logger.With().Str("component", "autostop").Logger(),
		timers:  make(map[string]*time.Timer),
	}
}

// Schedule arms a timer that expires the session after the given number of
// minutes. An existing timer for the same session is replaced. The timer
// fires at the planned wall-clock offset from now regardless of later
// pauses; the expire call itself only succeeds while the session is still
// active.
func (s *Scheduler) Schedule(sessionID string, minutes int) {
	d := time.Duration(minutes) * time.Minute

	s.mu.Lock()
	if existing, ok := s.timers[sessionID]; ok {
		existing.Stop()
	}
	s.timers[sessionID] = time.AfterFunc(d, func() {
		s.fire(sessionID)
	})
	s.mu.Unlock()

	telemetry.AutoStopScheduledTotal.Inc()
	s.logger.Debug().
		Str("session_id", sessionID).
		Int("minutes", minutes).
		Msg("auto-stop armed")
}

// Cancel disarms and removes a pending timer. No-op if absent.
func (s *Scheduler) Cancel(sessionID string) {
	s.mu.Lock()
	t, ok := s.timers[sessionID]
	if ok {
		t.Stop()
		delete(s.timers, sessionID)
	}
	s.mu.Unlock()

	if ok {
		telemetry.AutoStopCancelledTotal.Inc()
		s.logger.Debug().Str("session_id", sessionID).Msg("auto-stop cancelled")
	}
}

// Pending reports whether a timer is armed for the session.
func (s *Scheduler) Pending(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[sessionID]
	return ok
}

// Stop disarms all pending timers.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

func (s *Scheduler) fire(sessionID string) {
	s.mu.Lock()
	delete(s.timers, sessionID)
	s.mu.Unlock()

	telemetry.AutoStopFiredTotal.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.expirer.Expire(ctx, sessionID)
	if err != nil {
		// A session stopped, paused or already expired by the time the
		// timer fires is expected; anything else is logged and dropped,
		// never fatal.
		if errors.Is(err, session.ErrInvalidState) || errors.Is(err, session.ErrSessionNotFound) {
			s.logger.Debug().
				Str("session_id", sessionID).
				Err(err).
				Msg("auto-stop fired for session no longer active")
			return
		}
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("auto-stop failed")
		return
	}

	s.logger.Info().
		Str("session_id", sessionID).
		Int("total_minutes", result.TotalMinutes).
		Str("total_price", result.TotalPrice).
		Msg("session auto-stopped")
}
