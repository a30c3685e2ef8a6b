package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLAYLOFT_DB_DSN", "file::memory:?cache=shared")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("environment = %s, want development", cfg.Environment)
	}
	if cfg.HTTPPort != 4000 {
		t.Errorf("http port = %d, want 4000", cfg.HTTPPort)
	}
	if cfg.DBBackend != DatabaseSQLite {
		t.Errorf("db backend = %s, want sqlite", cfg.DBBackend)
	}
	if cfg.EventBusBackend != EventBusMemory {
		t.Errorf("event bus backend = %s, want memory", cfg.EventBusBackend)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("tick interval = %s, want 1s", cfg.TickInterval)
	}
	if cfg.InstanceID == "" {
		t.Error("instance id not defaulted")
	}
}

func TestLoad_RequiresDSN(t *testing.T) {
	t.Setenv("PLAYLOFT_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load() accepted empty DSN")
	}
}

func TestLoad_RejectsUnknownBackends(t *testing.T) {
	t.Setenv("PLAYLOFT_DB_DSN", "file::memory:?cache=shared")

	t.Setenv("PLAYLOFT_DB_BACKEND", "oracle")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted unknown db backend")
	}
	t.Setenv("PLAYLOFT_DB_BACKEND", "sqlite")

	t.Setenv("PLAYLOFT_EVENTBUS_BACKEND", "kafka")
	if _, err := Load(); err == nil {
		t.Error("Load() accepted unknown event bus backend")
	}
}

func TestLoad_ClampsTickInterval(t *testing.T) {
	t.Setenv("PLAYLOFT_DB_DSN", "file::memory:?cache=shared")
	t.Setenv("PLAYLOFT_TICK_INTERVAL_SECONDS", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.TickInterval != time.Second {
		t.Errorf("tick interval = %s, want clamped to 1s", cfg.TickInterval)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PLAYLOFT_TEST_STR", "value")
	if got := getEnv("PLAYLOFT_TEST_STR", "def"); got != "value" {
		t.Errorf("getEnv = %s", got)
	}
	if got := getEnv("PLAYLOFT_TEST_MISSING", "def"); got != "def" {
		t.Errorf("getEnv default = %s", got)
	}

	t.Setenv("PLAYLOFT_TEST_INT", "17")
	if got := getEnvInt("PLAYLOFT_TEST_INT", 3); got != 17 {
		t.Errorf("getEnvInt = %d", got)
	}
	t.Setenv("PLAYLOFT_TEST_INT", "junk")
	if got := getEnvInt("PLAYLOFT_TEST_INT", 3); got != 3 {
		t.Errorf("getEnvInt fallback = %d", got)
	}

	t.Setenv("PLAYLOFT_TEST_BOOL", "yes")
	if !getEnvBool("PLAYLOFT_TEST_BOOL", false) {
		t.Error("getEnvBool yes = false")
	}
	t.Setenv("PLAYLOFT_TEST_BOOL", "0")
	if getEnvBool("PLAYLOFT_TEST_BOOL", true) {
		t.Error("getEnvBool 0 = true")
	}
}
