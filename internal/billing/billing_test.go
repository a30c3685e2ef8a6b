package billing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCompute_FullHourNoPauses(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(60 * time.Minute)

	minutes, price, err := Compute(start, end, 0, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if minutes != 60 {
		t.Errorf("minutes = %d, want 60", minutes)
	}
	if price.StringFixed(2) != "20.00" {
		t.Errorf("price = %s, want 20.00", price.StringFixed(2))
	}
}

func TestCompute_PausedTimeDeducted(t *testing.T) {
	// 25 wall minutes with 5 paused minutes bills 20 minutes.
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(25 * time.Minute)

	minutes, price, err := Compute(start, end, 5, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if minutes != 20 {
		t.Errorf("minutes = %d, want 20", minutes)
	}
	if price.StringFixed(2) != "6.67" {
		t.Errorf("price = %s, want 6.67 (round half-up of 6.666...)", price.StringFixed(2))
	}
}

func TestCompute_PartialMinuteRoundsUp(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(10*time.Minute + time.Second)

	minutes, _, err := Compute(start, end, 0, decimal.NewFromInt(15))
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if minutes != 11 {
		t.Errorf("minutes = %d, want 11 (ceiling)", minutes)
	}
}

func TestCompute_ClampsNegativeActiveTime(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Clock skew: end before start.
	minutes, price, err := Compute(start, start.Add(-time.Minute), 0, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if minutes != 0 {
		t.Errorf("minutes = %d, want 0", minutes)
	}
	if !price.IsZero() {
		t.Errorf("price = %s, want 0", price)
	}

	// Paused time exceeding wall time.
	minutes, price, err = Compute(start, start.Add(5*time.Minute), 10, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if minutes != 0 || !price.IsZero() {
		t.Errorf("got %d minutes, %s price; want 0, 0", minutes, price)
	}
}

func TestCompute_ZeroDuration(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	minutes, price, err := Compute(start, start, 0, decimal.NewFromInt(20))
	if err != nil {
		t.Fatalf("Compute() failed: %v", err)
	}
	if minutes != 0 || !price.IsZero() {
		t.Errorf("got %d minutes, %s price; want 0, 0", minutes, price)
	}
}

func TestCompute_RejectsInvalidInputs(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	if _, _, err := Compute(start, end, -1, decimal.NewFromInt(20)); !errors.Is(err, ErrNegativePausedDuration) {
		t.Errorf("negative paused duration: err = %v, want ErrNegativePausedDuration", err)
	}
	if _, _, err := Compute(start, end, 0, decimal.Zero); !errors.Is(err, ErrNonPositiveRate) {
		t.Errorf("zero rate: err = %v, want ErrNonPositiveRate", err)
	}
	if _, _, err := Compute(start, end, 0, decimal.NewFromInt(-5)); !errors.Is(err, ErrNonPositiveRate) {
		t.Errorf("negative rate: err = %v, want ErrNonPositiveRate", err)
	}
}

func TestCompute_PriceMatchesMinutesTimesRate(t *testing.T) {
	start := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	rates := []int64{10, 15, 20, 25}
	durations := []time.Duration{time.Minute, 17 * time.Minute, 45 * time.Minute, 3 * time.Hour}

	for _, rate := range rates {
		for _, d := range durations {
			hourly := decimal.NewFromInt(rate)
			minutes, price, err := Compute(start, start.Add(d), 0, hourly)
			if err != nil {
				t.Fatalf("Compute() failed: %v", err)
			}
			want := hourly.Mul(decimal.NewFromInt(int64(minutes))).Div(decimal.NewFromInt(60)).Round(2)
			if !price.Equal(want) {
				t.Errorf("rate %d, duration %s: price = %s, want %s", rate, d, price, want)
			}
			if minutes < 0 || price.IsNegative() {
				t.Errorf("rate %d, duration %s: negative output", rate, d)
			}
		}
	}
}
