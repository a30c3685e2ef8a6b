/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playloft/playloft/internal/models"
	"github.com/playloft/playloft/internal/session"
)

type sessionStartRequest struct {
	StationID      string `json:"station_id"`
	Kind           string `json:"kind"`
	PlannedMinutes int    `json:"planned_minutes"`
}

func (a *API) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.StationID == "" {
		writeError(w, http.StatusBadRequest, "station_id_required")
		return
	}

	created, err := a.sessions.Start(r.Context(), session.StartRequest{
		StationID:      req.StationID,
		Kind:           models.SessionKind(req.Kind),
		PlannedMinutes: req.PlannedMinutes,
	})
	if err != nil {
		a.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleSessionPause(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := a.sessions.Pause(r.Context(), sessionID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (a *API) handleSessionResume(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := a.sessions.Resume(r.Context(), sessionID); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resumed"})
}

func (a *API) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	result, err := a.sessions.Stop(r.Context(), sessionID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "stopped",
		"total_minutes": result.TotalMinutes,
		"total_price":   result.TotalPrice,
	})
}

func (a *API) handleSessionsList(w http.ResponseWriter, r *http.Request) {
	query := a.db.WithContext(r.Context()).Order("start_time DESC")
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []models.Session
	if err := query.Find(&sessions).Error; err != nil {
		a.logger.Error().Err(err).Msg("list sessions failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, sessions)
}
