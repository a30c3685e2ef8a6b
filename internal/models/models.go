/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// StationStatus tracks a station's occupancy.
type StationStatus string

const (
	StationFree    StationStatus = "free"
	StationPlaying StationStatus = "playing"
	StationPaused  StationStatus = "paused"
)

// Station is a billable physical unit rented per minute.
type Station struct {
	ID         string          `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string          `gorm:"uniqueIndex" json:"name"`
	HourlyRate decimal.Decimal `gorm:"type:decimal(10,2)" json:"hourly_rate"`
	Status     StationStatus   `gorm:"type:varchar(16);default:free" json:"status"`

	// CurrentSessionID is non-nil iff Status != free.
	CurrentSessionID *string `gorm:"type:uuid" json:"current_session_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Occupied reports whether the station has a live session.
func (s *Station) Occupied() bool {
	return s.Status != StationFree
}

// SessionKind distinguishes pre-budgeted sessions from open-ended ones.
type SessionKind string

const (
	SessionPlanned   SessionKind = "planned"
	SessionUnplanned SessionKind = "unplanned"
)

// SessionStatus tracks the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive  SessionStatus = "active"
	SessionPaused  SessionStatus = "paused"
	SessionStopped SessionStatus = "stopped"
	SessionExpired SessionStatus = "expired"
)

// Session is one rental occupancy record for a station. Sessions are
// append-only billing records; they are never deleted.
type Session struct {
	ID        string        `gorm:"type:uuid;primaryKey" json:"id"`
	StationID string        `gorm:"type:uuid;index" json:"station_id"`
	Kind      SessionKind   `gorm:"type:varchar(16)" json:"kind"`
	Status    SessionStatus `gorm:"type:varchar(16);index" json:"status"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`

	// PlannedMinutes is set only for planned sessions.
	PlannedMinutes *int `json:"planned_minutes"`

	// PausedDuration accumulates whole paused minutes; updated only on resume.
	PausedDuration int        `gorm:"default:0" json:"paused_duration"`
	PauseStartTime *time.Time `json:"pause_start_time"`

	// TotalMinutes and TotalPrice are populated exactly once at stop/expire
	// time and are immutable afterwards.
	TotalMinutes *int             `json:"total_minutes"`
	TotalPrice   *decimal.Decimal `gorm:"type:decimal(10,2)" json:"total_price"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the session has ended.
func (s *Session) Terminal() bool {
	return s.Status == SessionStopped || s.Status == SessionExpired
}

// StationStatusFor maps a session status to the station status it implies.
func StationStatusFor(status SessionStatus) StationStatus {
	switch status {
	case SessionActive:
		return StationPlaying
	case SessionPaused:
		return StationPaused
	default:
		return StationFree
	}
}
