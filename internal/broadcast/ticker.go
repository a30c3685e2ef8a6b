/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package broadcast runs the live timer loop that publishes in-progress
// elapsed/remaining minutes for every active session.
package broadcast

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/playloft/playloft/internal/events"
	"github.com/playloft/playloft/internal/models"
	"github.com/playloft/playloft/internal/telemetry"
)

// Ticker periodically publishes session timer snapshots. Its reads are not
// transactionally consistent with in-flight lifecycle writes; a
// once-per-second progress display tolerates that.
type Ticker struct {
	db       *gorm.DB
	bus      events.Publisher
	logger   zerolog.Logger
	interval time.Duration
	now      func() time.Time
}

// NewTicker creates the live timer broadcaster.
func NewTicker(database *gorm.DB, bus events.Publisher, interval time.Duration, logger zerolog.Logger) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{
		db:       database,
		bus:      bus,
		logger:   logger.With().Str("component", "broadcast").Logger(),
		interval: interval,
		now:      time.Now,
	}
}

// SetNowFunc overrides the clock for tests.
func (t *Ticker) SetNowFunc(now func() time.Time) {
	t.now = now
}

// Run executes the broadcast loop until the context is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("live timer broadcaster started")
	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("live timer broadcaster stopped")
			return ctx.Err()
		case <-ticker.C:
			t.Tick(ctx)
		}
	}
}

// Tick publishes one snapshot per active session. Failures are logged and
// skipped for the tick, never fatal to the loop.
func (t *Ticker) Tick(ctx context.Context) {
	telemetry.BroadcastTicksTotal.Inc()

	var sessions []models.Session
	if err := t.db.WithContext(ctx).
		Where("status = ?", models.SessionActive).
		Find(&sessions).Error; err != nil {
		telemetry.BroadcastErrorsTotal.Inc()
		t.logger.Warn().Err(err).Msg("broadcast tick failed to load active sessions")
		return
	}

	now := t.now()
	for i := range sessions {
		t.bus.Publish(events.EventSessionTimerTick, snapshot(&sessions[i], now))
	}
}

// snapshot computes the timer payload for one active session.
func snapshot(s *models.Session, now time.Time) events.Payload {
	elapsedMs := now.Sub(s.StartTime).Milliseconds() - int64(s.PausedDuration)*60_000
	elapsedMinutes := int(elapsedMs / 60_000)
	if elapsedMinutes < 0 {
		elapsedMinutes = 0
	}

	var remaining any
	if s.PlannedMinutes != nil {
		left := *s.PlannedMinutes - elapsedMinutes
		if left < 0 {
			left = 0
		}
		remaining = left
	}

	return events.Payload{
		"sessionId":        s.ID,
		"stationId":        s.StationID,
		"kind":             string(s.Kind),
		"elapsedMinutes":   elapsedMinutes,
		"remainingMinutes": remaining,
	}
}
