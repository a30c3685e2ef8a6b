/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/playloft/playloft/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var seedStations = []struct {
	Name string
	Rate int64
}{
	{"PS5 - Station 1", 20},
	{"PS5 - Station 2", 20},
	{"PS4 - Classic Room", 15},
	{"PS5 - VIP Lounge", 25},
	{"PS4 - Station 3", 15},
	{"PS5 - Station 4", 20},
}

// Seed inserts the demo station pool. Existing stations with the same name
// are left untouched.
func Seed(database *gorm.DB) error {
	for _, s := range seedStations {
		station := models.Station{
			ID:         uuid.NewString(),
			Name:       s.Name,
			HourlyRate: decimal.NewFromInt(s.Rate),
			Status:     models.StationFree,
		}
		result := database.Where(models.Station{Name: s.Name}).FirstOrCreate(&station)
		if result.Error != nil {
			return fmt.Errorf("seed station %q: %w", s.Name, result.Error)
		}
	}
	return nil
}

// Reset deletes all sessions and stations. Intended for development only.
func Reset(database *gorm.DB) error {
	if err := database.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := database.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Station{}).Error; err != nil {
		return fmt.Errorf("delete stations: %w", err)
	}
	return nil
}
