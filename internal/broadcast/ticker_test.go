package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/playloft/playloft/internal/events"
	"github.com/playloft/playloft/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := database.AutoMigrate(&models.Station{}, &models.Session{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func createSession(t *testing.T, database *gorm.DB, status models.SessionStatus, start time.Time, paused int, planned *int) *models.Session {
	t.Helper()
	station := &models.Station{
		ID:         uuid.NewString(),
		Name:       "Station " + uuid.NewString()[:8],
		HourlyRate: decimal.NewFromInt(20),
		Status:     models.StationPlaying,
	}
	if err := database.Create(station).Error; err != nil {
		t.Fatalf("create station: %v", err)
	}
	session := &models.Session{
		ID:             uuid.NewString(),
		StationID:      station.ID,
		Kind:           models.SessionUnplanned,
		Status:         status,
		StartTime:      start,
		PausedDuration: paused,
		PlannedMinutes: planned,
	}
	if planned != nil {
		session.Kind = models.SessionPlanned
	}
	if err := database.Create(session).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestTick_PublishesActiveSessionsOnly(t *testing.T) {
	database := setupTestDB(t)
	bus := events.NewBus()
	ticker := NewTicker(database, bus, time.Second, zerolog.Nop())

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	ticker.SetNowFunc(func() time.Time { return now })

	active := createSession(t, database, models.SessionActive, now.Add(-12*time.Minute), 0, nil)
	createSession(t, database, models.SessionPaused, now.Add(-30*time.Minute), 0, nil)
	createSession(t, database, models.SessionStopped, now.Add(-60*time.Minute), 0, nil)

	sub := bus.Subscribe(events.EventSessionTimerTick)
	ticker.Tick(context.Background())

	select {
	case payload := <-sub:
		if payload["sessionId"] != active.ID {
			t.Errorf("sessionId = %v, want %s", payload["sessionId"], active.ID)
		}
		if payload["elapsedMinutes"] != 12 {
			t.Errorf("elapsedMinutes = %v, want 12", payload["elapsedMinutes"])
		}
		if payload["remainingMinutes"] != nil {
			t.Errorf("remainingMinutes = %v, want nil for unplanned", payload["remainingMinutes"])
		}
	default:
		t.Fatal("no timer tick published")
	}

	select {
	case payload := <-sub:
		t.Fatalf("unexpected tick for non-active session: %v", payload)
	default:
	}
}

func TestSnapshot_DeductsPausedMinutes(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	session := &models.Session{
		ID:             uuid.NewString(),
		StationID:      uuid.NewString(),
		Kind:           models.SessionUnplanned,
		StartTime:      now.Add(-25 * time.Minute),
		PausedDuration: 5,
	}

	payload := snapshot(session, now)
	if payload["elapsedMinutes"] != 20 {
		t.Errorf("elapsedMinutes = %v, want 20", payload["elapsedMinutes"])
	}
}

func TestSnapshot_RemainingMinutesClampAtZero(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	planned := 15
	session := &models.Session{
		ID:             uuid.NewString(),
		StationID:      uuid.NewString(),
		Kind:           models.SessionPlanned,
		StartTime:      now.Add(-20 * time.Minute),
		PlannedMinutes: &planned,
	}

	payload := snapshot(session, now)
	if payload["elapsedMinutes"] != 20 {
		t.Errorf("elapsedMinutes = %v, want 20", payload["elapsedMinutes"])
	}
	if payload["remainingMinutes"] != 0 {
		t.Errorf("remainingMinutes = %v, want 0", payload["remainingMinutes"])
	}
}

func TestSnapshot_ElapsedNeverNegative(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	session := &models.Session{
		ID:             uuid.NewString(),
		StationID:      uuid.NewString(),
		Kind:           models.SessionUnplanned,
		StartTime:      now.Add(-3 * time.Minute),
		PausedDuration: 10,
	}

	payload := snapshot(session, now)
	if payload["elapsedMinutes"] != 0 {
		t.Errorf("elapsedMinutes = %v, want 0", payload["elapsedMinutes"])
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	database := setupTestDB(t)
	ticker := NewTicker(database, events.NewBus(), 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ticker.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run() err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop after cancel")
	}
}
