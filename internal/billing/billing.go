/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package billing converts elapsed rental time into billed minutes and price.
package billing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNegativePausedDuration indicates the accumulated pause time is negative.
	ErrNegativePausedDuration = errors.New("paused duration must not be negative")

	// ErrNonPositiveRate indicates the hourly rate is zero or negative.
	ErrNonPositiveRate = errors.New("hourly rate must be positive")
)

var sixty = decimal.NewFromInt(60)

// Compute derives billed minutes and price for a finished session.
//
// Active time is wall-clock end-start minus the accumulated paused minutes.
// Billed minutes are the ceiling of active time in minutes, clamped at zero
// so clock skew can never produce negative money. The price is
// minutes * hourlyRate/60, rounded half-up to 2 decimal places.
func Compute(start, end time.Time, pausedMinutes int, hourlyRate decimal.Decimal) (int, decimal.Decimal, error) {
	if pausedMinutes < 0 {
		return 0, decimal.Zero, ErrNegativePausedDuration
	}
	if !hourlyRate.IsPositive() {
		return 0, decimal.Zero, ErrNonPositiveRate
	}

	activeMs := end.Sub(start).Milliseconds() - int64(pausedMinutes)*60_000

	minutes := int((activeMs + 59_999) / 60_000)
	if minutes < 0 {
		minutes = 0
	}

	price := hourlyRate.
		Mul(decimal.NewFromInt(int64(minutes))).
		Div(sixty).
		Round(2)

	return minutes, price, nil
}
