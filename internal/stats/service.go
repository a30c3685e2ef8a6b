/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package stats answers read-side reporting queries over finished
// sessions. Purely observational; nothing here mutates state.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/playloft/playloft/internal/models"
)

// Service runs reporting queries.
type Service struct {
	db     *gorm.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates the stats service.
func NewService(database *gorm.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     database,
		logger: logger.With().Str("component", "stats").Logger(),
		now:    time.Now,
	}
}

// SetNowFunc overrides the clock for tests.
func (s *Service) SetNowFunc(now func() time.Time) {
	s.now = now
}

// Series is a labelled chart series, one point per day.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// DailySessions counts stopped sessions per day over the last 7 days,
// keyed by end time.
func (s *Service) DailySessions(ctx context.Context) (*Series, error) {
	sessions, err := s.loadWeek(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]float64)
	for _, session := range sessions {
		counts[dayKey(*session.EndTime)]++
	}
	return s.weekSeries(counts), nil
}

// DailyIncome sums billed prices per day over the last 7 days.
func (s *Service) DailyIncome(ctx context.Context) (*Series, error) {
	sessions, err := s.loadWeek(ctx)
	if err != nil {
		return nil, err
	}

	income := make(map[string]decimal.Decimal)
	for _, session := range sessions {
		if session.TotalPrice == nil {
			continue
		}
		key := dayKey(*session.EndTime)
		income[key] = income[key].Add(*session.TotalPrice)
	}

	totals := make(map[string]float64, len(income))
	for key, amount := range income {
		totals[key], _ = amount.Round(2).Float64()
	}
	return s.weekSeries(totals), nil
}

// StationUsage counts sessions finished today per station name.
func (s *Service) StationUsage(ctx context.Context) (*Series, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)

	type row struct {
		Name  string
		Count int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Session{}).
		Select("stations.name AS name, COUNT(sessions.id) AS count").
		Joins("JOIN stations ON stations.id = sessions.station_id").
		Where("sessions.status = ? AND sessions.end_time >= ? AND sessions.end_time < ?",
			models.SessionStopped, start, end).
		Group("stations.name").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("station usage query: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	series := &Series{}
	for _, r := range rows {
		series.Labels = append(series.Labels, r.Name)
		series.Data = append(series.Data, float64(r.Count))
	}
	return series, nil
}

// loadWeek fetches stopped sessions that ended in the last 7 days.
func (s *Service) loadWeek(ctx context.Context) ([]models.Session, error) {
	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -6)

	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Where("status = ? AND end_time >= ? AND end_time <= ?",
			models.SessionStopped, from, now).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load week sessions: %w", err)
	}
	return sessions, nil
}

// weekSeries lays out the last 7 days in date order, zero-filled.
func (s *Service) weekSeries(points map[string]float64) *Series {
	now := s.now()
	series := &Series{
		Labels: make([]string, 0, 7),
		Data:   make([]float64, 0, 7),
	}
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		key := dayKey(day)
		series.Labels = append(series.Labels, day.Format("Jan 2"))
		series.Data = append(series.Data, points[key])
	}
	return series
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
