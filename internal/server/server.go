/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/playloft/playloft/internal/api"
	"github.com/playloft/playloft/internal/broadcast"
	"github.com/playloft/playloft/internal/config"
	"github.com/playloft/playloft/internal/db"
	"github.com/playloft/playloft/internal/eventbus"
	"github.com/playloft/playloft/internal/events"
	"github.com/playloft/playloft/internal/session"
	"github.com/playloft/playloft/internal/stats"
	"github.com/playloft/playloft/internal/telemetry"
	"github.com/playloft/playloft/internal/timer"
)

// Bus combines the publish and subscribe sides implemented by the
// in-process bus and the external bridges.
type Bus interface {
	events.Publisher
	api.EventStream
}

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	bus       Bus
	sessions  *session.Service
	scheduler *timer.Scheduler
	ticker    *broadcast.Ticker
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New assembles the full service: storage, event bus, lifecycle manager,
// auto-stop scheduler, broadcaster and HTTP API.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, logger: logger}

	database, err := db.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	s.db = database
	s.closers = append(s.closers, func() error { return db.Close(database) })

	if err := db.Migrate(database); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	local := events.NewBus()
	switch cfg.EventBusBackend {
	case config.EventBusRedis:
		redisCfg := eventbus.DefaultRedisConfig()
		redisCfg.Addr = cfg.RedisAddr
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB
		rb := eventbus.NewRedisBus(redisCfg, local, cfg.InstanceID, logger)
		s.bus = rb
		s.closers = append(s.closers, rb.Close)
	case config.EventBusNATS:
		nb, err := eventbus.NewNATSBus(cfg.NATSURL, local, cfg.InstanceID, logger)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		s.bus = nb
		s.closers = append(s.closers, nb.Close)
	default:
		s.bus = local
	}

	s.sessions = session.NewService(database, s.bus, logger)
	s.scheduler = timer.New(s.sessions, logger)
	s.sessions.SetScheduler(s.scheduler)
	s.closers = append(s.closers, func() error {
		s.scheduler.Stop()
		return nil
	})

	// Auto-stop timers are in-memory only; after a restart the station
	// table may disagree with session state, so re-derive it before
	// serving traffic.
	reconcileCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.sessions.Reconcile(reconcileCtx); err != nil {
		return nil, fmt.Errorf("reconcile stations: %w", err)
	}

	s.ticker = broadcast.NewTicker(database, s.bus, cfg.TickInterval, logger)

	statsSvc := stats.NewService(database, logger)
	s.api = api.New(database, s.sessions, statsSvc, s.bus, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	s.api.Routes(router)
	s.router = router

	s.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.startBackground()
	s.startMetrics()

	return s, nil
}

// HTTPServer returns the configured HTTP server; the caller binds and
// serves it.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Router exposes the chi router, primarily for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) startBackground() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.ticker.Run(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("broadcast loop exited")
		}
	}()
}

func (s *Server) startMetrics() {
	if s.cfg.MetricsBind == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler())

	go func() {
		s.logger.Info().Str("addr", s.cfg.MetricsBind).Msg("metrics listening")
		if err := http.ListenAndServe(s.cfg.MetricsBind, mux); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Close stops background loops and releases resources.
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
