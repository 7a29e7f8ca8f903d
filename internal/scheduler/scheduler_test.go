package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestAddRejectsBadSchedule(t *testing.T) {
	s := New("not a schedule", time.UTC, nil)
	if err := s.Add(context.Background(), func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected error")
	}
}

func TestNextUsesLocation(t *testing.T) {
	seoul, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	s := New("", seoul, nil)
	if err := s.Add(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	next := s.Next().In(seoul)
	if next.IsZero() {
		t.Fatal("next activation not scheduled")
	}
	if next.Hour() != 9 || next.Minute() != 0 {
		t.Errorf("expected 09:00 Seoul, got %s", next)
	}
}

func TestJobFires(t *testing.T) {
	s := New("@every 1s", time.UTC, nil)
	fired := make(chan struct{}, 1)
	if err := s.Add(context.Background(), func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("add: %v", err)
	}
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not fire")
	}
}
