package pacing

import (
	"errors"
	"testing"
	"time"

	"github.com/zaplinehq/zapline/internal/domain"
)

func testScheduler(t *testing.T) *Scheduler {
	t.Helper()
	w, err := NewWindow(8, 21, time.UTC)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	safe, _ := NewProfile("safe", 90*time.Second, 0.2)
	fast, _ := NewProfile("fast", 15*time.Second, 0)
	return NewSeededScheduler(w, map[string]Profile{"safe": safe, "fast": fast}, 42)
}

func TestFirstSlot_InsideWindowUnchanged(t *testing.T) {
	s := testScheduler(t)
	now := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	if got := s.FirstSlot(now); !got.Equal(now) {
		t.Errorf("FirstSlot inside window = %v, want unchanged %v", got, now)
	}
}

func TestFirstSlot_BeforeOpenSnapsToOpen(t *testing.T) {
	s := testScheduler(t)
	now := time.Date(2026, 8, 28, 6, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 28, 8, 0, 0, 0, time.UTC)
	if got := s.FirstSlot(now); !got.Equal(want) {
		t.Errorf("FirstSlot before open = %v, want %v", got, want)
	}
}

func TestFirstSlot_AfterCloseSnapsToNextDay(t *testing.T) {
	s := testScheduler(t)
	now := time.Date(2026, 8, 28, 22, 15, 0, 0, time.UTC)
	want := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if got := s.FirstSlot(now); !got.Equal(want) {
		t.Errorf("FirstSlot after close = %v, want %v", got, want)
	}
}

func TestSchedule_StrictlyIncreasingFromStart(t *testing.T) {
	s := testScheduler(t)
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	slots, err := s.Schedule(5, "safe", start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 5 {
		t.Fatalf("len = %d, want 5", len(slots))
	}
	if slots[0].Before(start) {
		t.Errorf("first slot %v before start %v", slots[0], start)
	}
	for i := 1; i < len(slots); i++ {
		if !slots[i].After(slots[i-1]) {
			t.Errorf("slot %d (%v) not after slot %d (%v)", i, slots[i], i-1, slots[i-1])
		}
	}
}

func TestSchedule_SafeSpacingWiderThanFast(t *testing.T) {
	s := testScheduler(t)
	start := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

	safe, err := s.Schedule(3, "safe", start)
	if err != nil {
		t.Fatalf("safe: %v", err)
	}
	fast, err := s.Schedule(3, "fast", start)
	if err != nil {
		t.Fatalf("fast: %v", err)
	}

	safeGap := safe[1].Sub(safe[0])
	fastGap := fast[1].Sub(fast[0])
	if safeGap <= fastGap {
		t.Errorf("safe gap %s not materially larger than fast gap %s", safeGap, fastGap)
	}
	if fastGap < 15*time.Second {
		t.Errorf("fast gap %s below base delay", fastGap)
	}
}

func TestSchedule_RollsOverWindowClose(t *testing.T) {
	s := testScheduler(t)
	// Two minutes before close: the second slot must land on the next
	// day's opening, never outside the window.
	start := time.Date(2026, 8, 28, 20, 58, 0, 0, time.UTC)

	slots, err := s.Schedule(4, "safe", start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w, _ := NewWindow(8, 21, time.UTC)
	for i, slot := range slots {
		if !w.Contains(slot) {
			t.Errorf("slot %d (%v) falls outside the sending window", i, slot)
		}
	}
	nextOpen := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if slots[len(slots)-1].Before(nextOpen) {
		t.Errorf("expected later slots to roll to %v, last = %v", nextOpen, slots[len(slots)-1])
	}
}

func TestSchedule_StartOutsideWindowSnaps(t *testing.T) {
	s := testScheduler(t)
	start := time.Date(2026, 8, 28, 23, 0, 0, 0, time.UTC)

	slots, err := s.Schedule(2, "fast", start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)
	if !slots[0].Equal(want) {
		t.Errorf("first slot = %v, want next opening %v", slots[0], want)
	}
}

func TestSchedule_UnknownProfile(t *testing.T) {
	s := testScheduler(t)
	_, err := s.Schedule(1, "turbo", time.Now())
	if !errors.Is(err, domain.ErrUnknownPacingProfile) {
		t.Fatalf("expected ErrUnknownPacingProfile, got %v", err)
	}
}

func TestSchedule_ZeroCount(t *testing.T) {
	s := testScheduler(t)
	slots, err := s.Schedule(0, "safe", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("len = %d, want 0", len(slots))
	}
}

func TestNewProfile_Validation(t *testing.T) {
	if _, err := NewProfile("bad", 0, 0); err == nil {
		t.Error("expected error for zero delay")
	}
	if _, err := NewProfile("bad", time.Second, 1.0); err == nil {
		t.Error("expected error for jitter >= 1")
	}
	if _, err := NewProfile("", time.Second, 0); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestNewWindow_Validation(t *testing.T) {
	if _, err := NewWindow(21, 8, time.UTC); err == nil {
		t.Error("expected error for inverted hours")
	}
	if _, err := NewWindow(-1, 8, time.UTC); err == nil {
		t.Error("expected error for negative open hour")
	}
}
