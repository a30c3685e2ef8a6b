/*
Copyright (C) 2026 Playloft Contributors

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Database backend selection.
type DatabaseBackend string

const (
	DatabasePostgres DatabaseBackend = "postgres"
	DatabaseMySQL    DatabaseBackend = "mysql"
	DatabaseSQLite   DatabaseBackend = "sqlite"
)

// EventBusBackend selects how lifecycle events leave the process.
type EventBusBackend string

const (
	EventBusMemory EventBusBackend = "memory"
	EventBusRedis  EventBusBackend = "redis"
	EventBusNATS   EventBusBackend = "nats"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	HTTPBind    string
	HTTPPort    int
	DBBackend   DatabaseBackend
	DBDSN       string
	MetricsBind string

	// Broadcaster tick period for live session timers.
	TickInterval time.Duration

	// Event bus configuration
	EventBusBackend EventBusBackend
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	NATSURL         string
	InstanceID      string
}

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("PLAYLOFT_ENV", "development"),
		HTTPBind:    getEnv("PLAYLOFT_HTTP_BIND", "0.0.0.0"),
		HTTPPort:    getEnvInt("PLAYLOFT_HTTP_PORT", 4000),
		DBBackend:   DatabaseBackend(getEnv("PLAYLOFT_DB_BACKEND", string(DatabaseSQLite))),
		DBDSN:       getEnv("PLAYLOFT_DB_DSN", ""),
		MetricsBind: getEnv("PLAYLOFT_METRICS_BIND", "127.0.0.1:9000"),

		TickInterval: time.Duration(getEnvInt("PLAYLOFT_TICK_INTERVAL_SECONDS", 1)) * time.Second,

		EventBusBackend: EventBusBackend(getEnv("PLAYLOFT_EVENTBUS_BACKEND", string(EventBusMemory))),
		RedisAddr:       getEnv("PLAYLOFT_REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("PLAYLOFT_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("PLAYLOFT_REDIS_DB", 0),
		NATSURL:         getEnv("PLAYLOFT_NATS_URL", "nats://localhost:4222"),
		InstanceID:      getEnv("PLAYLOFT_INSTANCE_ID", ""),
	}

	if cfg.DBBackend != DatabasePostgres && cfg.DBBackend != DatabaseMySQL && cfg.DBBackend != DatabaseSQLite {
		return nil, fmt.Errorf("unsupported database backend %q", cfg.DBBackend)
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("PLAYLOFT_DB_DSN must be provided")
	}

	switch cfg.EventBusBackend {
	case EventBusMemory, EventBusRedis, EventBusNATS:
	default:
		return nil, fmt.Errorf("unsupported event bus backend %q", cfg.EventBusBackend)
	}

	if cfg.TickInterval < time.Second {
		cfg.TickInterval = time.Second
	}

	if cfg.InstanceID == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.InstanceID = host
		} else {
			cfg.InstanceID = "playloft"
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}
	return def
}
