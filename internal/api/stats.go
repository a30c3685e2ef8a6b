/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import "net/http"

func (a *API) handleStatsDailySessions(w http.ResponseWriter, r *http.Request) {
	series, err := a.stats.DailySessions(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("daily sessions query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (a *API) handleStatsStationUsage(w http.ResponseWriter, r *http.Request) {
	series, err := a.stats.StationUsage(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("station usage query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (a *API) handleStatsDailyIncome(w http.ResponseWriter, r *http.Request) {
	series, err := a.stats.DailyIncome(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("daily income query failed")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, series)
}
