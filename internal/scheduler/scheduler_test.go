package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestNewPanicsOnNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("zero interval should panic")
		}
	}()
	New(Options{Interval: 0}, zerolog.Nop())
}

func TestRunExecutesCyclesUntilCancelled(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	err := s.Run(ctx, func(context.Context, time.Time) error {
		cycles++
		if cycles >= 3 {
			cancel()
		}
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	if cycles < 3 {
		t.Fatalf("want at least 3 cycles, got %d", cycles)
	}
}

func TestRunKeepsGoingAfterCycleFailure(t *testing.T) {
	s := New(Options{Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cycles := 0
	_ = s.Run(ctx, func(context.Context, time.Time) error {
		cycles++
		if cycles >= 2 {
			cancel()
		}
		return errors.New("cycle failed")
	})

	if cycles < 2 {
		t.Fatalf("a failing cycle must not stop the loop, got %d cycles", cycles)
	}
}

func TestNextCycleAligned(t *testing.T) {
	s := New(Options{Interval: time.Hour, AlignToInterval: true}, zerolog.Nop())

	now := time.Date(2026, 8, 31, 10, 17, 0, 0, time.UTC)
	next := s.nextCycle(now)
	want := time.Date(2026, 8, 31, 11, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("want %v, got %v", want, next)
	}
}

func TestNextCycleUnaligned(t *testing.T) {
	s := New(Options{Interval: time.Hour}, zerolog.Nop())

	now := time.Date(2026, 8, 31, 10, 17, 0, 0, time.UTC)
	next := s.nextCycle(now)
	if !next.Equal(now.Add(time.Hour)) {
		t.Fatalf("unaligned schedule should add the interval, got %v", next)
	}
}
