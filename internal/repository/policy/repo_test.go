package policy

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/zaplinehq/zapline/internal/db"
	"github.com/zaplinehq/zapline/internal/domain"
	"github.com/zaplinehq/zapline/internal/domain/budget"
)

type mockStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.getFn(ctx, key)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	return m.setFn(ctx, key, value)
}

func TestGet_Found(t *testing.T) {
	m := &mockStore{
		getFn: func(_ context.Context, key string) ([]byte, error) {
			if key != "zapline:budget:policy:t1" {
				t.Errorf("key = %q", key)
			}
			return []byte(`{"monthly_token_limit":200000,"over_limit_mode":"block"}`), nil
		},
	}

	repo := New(m)
	p, err := repo.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MonthlyTokenLimit() != 200000 {
		t.Errorf("limit = %d", p.MonthlyTokenLimit())
	}
	if p.OverLimitMode() != budget.OverLimitBlock {
		t.Errorf("mode = %q", p.OverLimitMode())
	}
}

func TestGet_NotFound(t *testing.T) {
	m := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
		},
	}

	repo := New(m)
	if _, err := repo.Get(context.Background(), "t1"); !errors.Is(err, domain.ErrPolicyNotFound) {
		t.Fatalf("expected ErrPolicyNotFound, got %v", err)
	}
}

func TestGet_UnknownModeFallsBack(t *testing.T) {
	m := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`{"monthly_token_limit":1000,"over_limit_mode":"explode"}`), nil
		},
	}

	repo := New(m)
	p, err := repo.Get(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.OverLimitMode() != budget.OverLimitDegrade {
		t.Errorf("mode = %q, want degrade fallback", p.OverLimitMode())
	}
}

func TestSet_RoundTrips(t *testing.T) {
	var stored []byte
	m := &mockStore{
		setFn: func(_ context.Context, key string, value []byte) error {
			if key != "zapline:budget:policy:t1" {
				t.Errorf("key = %q", key)
			}
			stored = value
			return nil
		},
	}

	repo := New(m)
	p := budget.NewPolicy(500000, budget.OverLimitBlock)
	if err := repo.Set(context.Background(), "t1", p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var dto map[string]any
	if err := json.Unmarshal(stored, &dto); err != nil {
		t.Fatalf("stored value is not JSON: %v", err)
	}
	if dto["over_limit_mode"] != "block" {
		t.Errorf("stored mode = %v", dto["over_limit_mode"])
	}
}
