package event

import (
	"errors"
	"testing"
	"time"
)

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestCheckRegistrationWindow(t *testing.T) {
	start, end := mustDay(t, "2024-01-01"), mustDay(t, "2024-01-31")
	e := Event{RegistrationStartDate: &start, RegistrationEndDate: &end}

	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{"before start", time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), true},
		{"start of opening day", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), false},
		{"last second of closing day", time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), false},
		{"day after closing", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.CheckRegistrationWindow(tt.now, time.UTC)
			if tt.wantErr != (err != nil) {
				t.Fatalf("CheckRegistrationWindow() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrRegistrationWindowClosed) {
				t.Fatalf("expected ErrRegistrationWindowClosed, got %v", err)
			}
		})
	}
}

func TestCheckRegistrationWindow_OpenBounds(t *testing.T) {
	if err := (Event{}).CheckRegistrationWindow(time.Now(), nil); err != nil {
		t.Fatalf("expected no error without bounds, got %v", err)
	}
}

func TestCheckRegistrationWindow_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	end := time.Date(2024, 1, 31, 0, 0, 0, 0, loc)
	e := Event{RegistrationEndDate: &end}

	// 20:00 UTC on the 31st is already the 1st in UTC+5
	now := time.Date(2024, 1, 31, 20, 0, 0, 0, time.UTC)

	if err := e.CheckRegistrationWindow(now, loc); err == nil {
		t.Fatal("expected window closed in UTC+5")
	}
	if err := e.CheckRegistrationWindow(now, time.UTC); err != nil {
		t.Fatalf("expected open in UTC, got %v", err)
	}
}

func TestCheckScanWindow(t *testing.T) {
	e := Event{StartDate: mustDay(t, "2024-02-10"), EndDate: mustDay(t, "2024-02-10")}

	err := e.CheckScanWindow(time.Date(2024, 2, 9, 12, 0, 0, 0, time.UTC), time.UTC)
	if !errors.Is(err, ErrScanNotYetOpen) {
		t.Fatalf("expected ErrScanNotYetOpen, got %v", err)
	}

	var we *WindowError
	if !errors.As(err, &we) || !we.Opens {
		t.Fatalf("expected opening WindowError, got %#v", err)
	}

	if err := e.CheckScanWindow(time.Date(2024, 2, 10, 23, 0, 0, 0, time.UTC), time.UTC); err != nil {
		t.Fatalf("expected open on event day, got %v", err)
	}

	err = e.CheckScanWindow(time.Date(2024, 2, 11, 0, 0, 0, 0, time.UTC), time.UTC)
	if !errors.Is(err, ErrScanWindowClosed) {
		t.Fatalf("expected ErrScanWindowClosed, got %v", err)
	}
	if got := err.Error(); got != "check-in closed on 2024-02-10" {
		t.Fatalf("unexpected message %q", got)
	}
}
