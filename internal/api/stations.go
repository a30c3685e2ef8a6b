/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/playloft/playloft/internal/models"
)

type stationRequest struct {
	Name       string          `json:"name"`
	HourlyRate decimal.Decimal `json:"hourly_rate"`
}

// sessionSummary is the live-session detail embedded in station listings,
// enough for a dashboard to render its own running timer.
type sessionSummary struct {
	ID             string     `json:"id"`
	Kind           string     `json:"kind"`
	StartTime      time.Time  `json:"start_time"`
	PausedDuration int        `json:"paused_duration"`
	PauseStartTime *time.Time `json:"pause_start_time"`
	PlannedMinutes *int       `json:"planned_minutes"`
}

type stationView struct {
	models.Station
	Session *sessionSummary `json:"session"`
}

func (a *API) handleStationsList(w http.ResponseWriter, r *http.Request) {
	var stations []models.Station
	if err := a.db.WithContext(r.Context()).Order("created_at").Find(&stations).Error; err != nil {
		a.logger.Error().Err(err).Msg("list stations failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	views := make([]stationView, 0, len(stations))
	for _, station := range stations {
		view := stationView{Station: station}
		if station.CurrentSessionID != nil {
			var live models.Session
			err := a.db.WithContext(r.Context()).First(&live, "id = ?", *station.CurrentSessionID).Error
			if err == nil {
				view.Session = &sessionSummary{
					ID:             live.ID,
					Kind:           string(live.Kind),
					StartTime:      live.StartTime,
					PausedDuration: live.PausedDuration,
					PauseStartTime: live.PauseStartTime,
					PlannedMinutes: live.PlannedMinutes,
				}
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				a.logger.Error().Err(err).Msg("load station session failed")
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
		}
		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, views)
}

func (a *API) handleStationsCreate(w http.ResponseWriter, r *http.Request) {
	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}
	if !req.HourlyRate.IsPositive() {
		writeError(w, http.StatusBadRequest, "hourly_rate_must_be_positive")
		return
	}

	station := models.Station{
		ID:         uuid.NewString(),
		Name:       req.Name,
		HourlyRate: req.HourlyRate,
		Status:     models.StationFree,
	}
	if err := a.db.WithContext(r.Context()).Create(&station).Error; err != nil {
		a.logger.Error().Err(err).Msg("create station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}

	a.logger.Info().Str("station_id", station.ID).Str("name", station.Name).Msg("station created")
	writeJSON(w, http.StatusCreated, station)
}

func (a *API) handleStationsGet(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	var station models.Station
	if err := a.db.WithContext(r.Context()).First(&station, "id = ?", stationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "station_not_found")
			return
		}
		a.logger.Error().Err(err).Msg("load station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, station)
}

func (a *API) handleStationsUpdate(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	var req stationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if !req.HourlyRate.IsZero() {
		if !req.HourlyRate.IsPositive() {
			writeError(w, http.StatusBadRequest, "hourly_rate_must_be_positive")
			return
		}
		updates["hourly_rate"] = req.HourlyRate
	}
	if len(updates) == 0 {
		writeError(w, http.StatusBadRequest, "nothing_to_update")
		return
	}

	result := a.db.WithContext(r.Context()).Model(&models.Station{}).
		Where("id = ?", stationID).
		Updates(updates)
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("update station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "station_not_found")
		return
	}

	var station models.Station
	if err := a.db.WithContext(r.Context()).First(&station, "id = ?", stationID).Error; err != nil {
		a.logger.Error().Err(err).Msg("reload station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, station)
}

func (a *API) handleStationsDelete(w http.ResponseWriter, r *http.Request) {
	stationID := chi.URLParam(r, "stationID")

	// Refuse while a session occupies the station; session records stay.
	result := a.db.WithContext(r.Context()).
		Where("id = ? AND status = ?", stationID, models.StationFree).
		Delete(&models.Station{})
	if result.Error != nil {
		a.logger.Error().Err(result.Error).Msg("delete station failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	if result.RowsAffected == 0 {
		var station models.Station
		err := a.db.WithContext(r.Context()).First(&station, "id = ?", stationID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "station_not_found")
			return
		}
		writeError(w, http.StatusBadRequest, "station_in_use")
		return
	}

	a.logger.Info().Str("station_id", stationID).Msg("station deleted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
