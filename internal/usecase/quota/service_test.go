package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
)

type mockStore struct {
	reserveFn func(ctx context.Context, tenantID, day string, desired, limit int64) (int64, int64, error)
}

func (m *mockStore) Reserve(ctx context.Context, tenantID, day string, desired, limit int64) (int64, int64, error) {
	return m.reserveFn(ctx, tenantID, day, desired, limit)
}

func TestReserve_TenantLocalDay(t *testing.T) {
	sp, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	var gotDay string
	m := &mockStore{
		reserveFn: func(_ context.Context, _, day string, desired, limit int64) (int64, int64, error) {
			gotDay = day
			return desired, desired, nil
		},
	}

	alloc := NewAllocator(m, 300, time.UTC, map[string]*time.Location{"t-br": sp}, zap.NewNop())

	// 2026-08-29 01:30 UTC is still 2026-08-28 in São Paulo.
	now := time.Date(2026, 8, 29, 1, 30, 0, 0, time.UTC)
	res, err := alloc.Reserve(context.Background(), "t-br", 5, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDay != "2026-08-28" {
		t.Errorf("day = %q, want tenant-local 2026-08-28", gotDay)
	}
	if res.Allowed() != 5 || res.Date() != "2026-08-28" {
		t.Errorf("reservation = %+v", res)
	}
}

func TestReserve_DefaultZone(t *testing.T) {
	var gotDay string
	m := &mockStore{
		reserveFn: func(_ context.Context, _, day string, desired, _ int64) (int64, int64, error) {
			gotDay = day
			return desired, desired, nil
		},
	}

	alloc := NewAllocator(m, 300, time.UTC, nil, zap.NewNop())
	now := time.Date(2026, 8, 29, 1, 30, 0, 0, time.UTC)
	if _, err := alloc.Reserve(context.Background(), "t1", 1, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDay != "2026-08-29" {
		t.Errorf("day = %q, want 2026-08-29 UTC", gotDay)
	}
}

func TestReserve_PartialGrant(t *testing.T) {
	m := &mockStore{
		reserveFn: func(_ context.Context, _, _ string, _, _ int64) (int64, int64, error) {
			return 4, 300, nil
		},
	}

	alloc := NewAllocator(m, 300, time.UTC, nil, zap.NewNop())
	res, err := alloc.Reserve(context.Background(), "t1", 10, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed() != 4 || res.UsedAfter() != 300 {
		t.Errorf("reservation = %+v", res)
	}
	if !res.Exhausted() {
		t.Error("expected exhausted reservation")
	}
	if res.UsedBefore() != 296 {
		t.Errorf("usedBefore = %d", res.UsedBefore())
	}
}

func TestReserve_ZeroDesiredReportsTrueCounter(t *testing.T) {
	// A fully-idempotent re-send reserves zero slots but the returned
	// reservation must still reflect the day's real counter.
	m := &mockStore{
		reserveFn: func(_ context.Context, _, _ string, desired, _ int64) (int64, int64, error) {
			if desired != 0 {
				t.Errorf("desired = %d, want 0", desired)
			}
			return 0, 5, nil
		},
	}

	alloc := NewAllocator(m, 300, time.UTC, nil, zap.NewNop())
	res, err := alloc.Reserve(context.Background(), "t1", 0, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed() != 0 {
		t.Errorf("allowed = %d", res.Allowed())
	}
	if res.UsedAfter() != 5 {
		t.Errorf("usedAfter = %d, want 5 (usedBefore + allowed)", res.UsedAfter())
	}
}

func TestReserve_NegativeDesiredClampedToZero(t *testing.T) {
	var gotDesired int64 = -1
	m := &mockStore{
		reserveFn: func(_ context.Context, _, _ string, desired, _ int64) (int64, int64, error) {
			gotDesired = desired
			return 0, 300, nil
		},
	}

	alloc := NewAllocator(m, 300, time.UTC, nil, zap.NewNop())
	res, err := alloc.Reserve(context.Background(), "t1", -3, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotDesired != 0 {
		t.Errorf("store saw desired = %d, want 0", gotDesired)
	}
	if res.Allowed() != 0 || res.UsedAfter() != 300 {
		t.Errorf("reservation = %+v", res)
	}
}

func TestReserve_TenantRequired(t *testing.T) {
	alloc := NewAllocator(&mockStore{}, 300, time.UTC, nil, zap.NewNop())
	if _, err := alloc.Reserve(context.Background(), "", 1, time.Now()); !errors.Is(err, domain.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestReserve_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("script failed")
	m := &mockStore{
		reserveFn: func(_ context.Context, _, _ string, _, _ int64) (int64, int64, error) {
			return 0, 0, boom
		},
	}

	alloc := NewAllocator(m, 300, time.UTC, nil, zap.NewNop())
	if _, err := alloc.Reserve(context.Background(), "t1", 1, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
