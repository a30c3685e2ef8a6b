/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsStartedTotal counts sessions created via start.
	SessionsStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playloft_sessions_started_total",
		Help: "Sessions started, by kind.",
	}, []string{"kind"})

	// SessionsEndedTotal counts terminal transitions.
	SessionsEndedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playloft_sessions_ended_total",
		Help: "Sessions ended, by outcome (stopped or expired).",
	}, []string{"outcome"})

	// ActiveSessions tracks sessions currently active or paused.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playloft_active_sessions",
		Help: "Sessions currently occupying a station.",
	})

	// BroadcastTicksTotal counts live timer broadcast loop iterations.
	BroadcastTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playloft_broadcast_ticks_total",
		Help: "Live timer broadcaster ticks.",
	})

	// BroadcastErrorsTotal counts failed broadcast ticks.
	BroadcastErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playloft_broadcast_errors_total",
		Help: "Broadcast ticks that failed to read active sessions.",
	})

	// AutoStopScheduledTotal counts armed auto-stop timers.
	AutoStopScheduledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playloft_autostop_scheduled_total",
		Help: "Auto-stop timers armed for planned sessions.",
	})

	// AutoStopFiredTotal counts auto-stop timers that fired.
	AutoStopFiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playloft_autostop_fired_total",
		Help: "Auto-stop timers that fired.",
	})

	// AutoStopCancelledTotal counts disarmed auto-stop timers.
	AutoStopCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playloft_autostop_cancelled_total",
		Help: "Auto-stop timers cancelled before firing.",
	})

	// WebSocketConnections tracks connected event stream clients.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "playloft_websocket_connections",
		Help: "Connected /events websocket clients.",
	})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
