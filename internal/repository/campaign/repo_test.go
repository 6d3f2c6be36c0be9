package campaign

import (
	"context"
	"errors"
	"testing"

	"github.com/zaplinehq/zapline/internal/db"
	"github.com/zaplinehq/zapline/internal/domain"
	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
)

type mockStore struct {
	getFn    func(ctx context.Context, key string) ([]byte, error)
	setFn    func(ctx context.Context, key string, value []byte) error
	existsFn func(ctx context.Context, key string) (bool, error)
}

func (m *mockStore) Get(ctx context.Context, key string) ([]byte, error) {
	return m.getFn(ctx, key)
}

func (m *mockStore) Set(ctx context.Context, key string, value []byte) error {
	return m.setFn(ctx, key, value)
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	return m.existsFn(ctx, key)
}

func testCampaign(t *testing.T) domcampaign.Campaign {
	t.Helper()
	c, err := domcampaign.New("c1", "t1", "olá!", "safe",
		domcampaign.TargetSpec{ListID: "vip", Tags: []string{"promo"}}, 1724800000000)
	if err != nil {
		t.Fatalf("building campaign: %v", err)
	}
	return c
}

func TestCreate_New(t *testing.T) {
	var storedKey string
	var stored []byte
	m := &mockStore{
		existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		setFn: func(_ context.Context, key string, value []byte) error {
			storedKey, stored = key, value
			return nil
		},
	}

	repo := New(m)
	if err := repo.Create(context.Background(), testCampaign(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if storedKey != "zapline:campaign:t1:c1" {
		t.Errorf("key = %q", storedKey)
	}
	if len(stored) == 0 {
		t.Error("expected JSON payload")
	}
}

func TestCreate_Duplicate(t *testing.T) {
	m := &mockStore{
		existsFn: func(_ context.Context, _ string) (bool, error) { return true, nil },
	}

	repo := New(m)
	if err := repo.Create(context.Background(), testCampaign(t)); !errors.Is(err, domain.ErrCampaignExists) {
		t.Fatalf("expected ErrCampaignExists, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	m := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
		},
	}

	repo := New(m)
	if _, err := repo.Get(context.Background(), "t1", "nope"); !errors.Is(err, domain.ErrCampaignNotFound) {
		t.Fatalf("expected ErrCampaignNotFound, got %v", err)
	}
}

func TestGet_RoundTrip(t *testing.T) {
	stored := map[string][]byte{}
	m := &mockStore{
		existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		setFn: func(_ context.Context, key string, value []byte) error {
			stored[key] = value
			return nil
		},
		getFn: func(_ context.Context, key string) ([]byte, error) {
			v, ok := stored[key]
			if !ok {
				return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
			}
			return v, nil
		},
	}

	repo := New(m)
	want := testCampaign(t)
	if err := repo.Create(context.Background(), want); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID() != "c1" || got.TenantID() != "t1" || got.Status() != domcampaign.StatusDraft {
		t.Errorf("campaign = %+v", got)
	}
	if got.Target().ListID != "vip" || got.PacingProfile() != "safe" {
		t.Errorf("target/profile = %+v %q", got.Target(), got.PacingProfile())
	}
}

func TestGet_CorruptStatus(t *testing.T) {
	m := &mockStore{
		getFn: func(_ context.Context, _ string) ([]byte, error) {
			return []byte(`{"id":"c1","tenant_id":"t1","status":"launched","message":"m"}`), nil
		},
	}

	repo := New(m)
	if _, err := repo.Get(context.Background(), "t1", "c1"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestSetStatus_Persists(t *testing.T) {
	stored := map[string][]byte{}
	m := &mockStore{
		existsFn: func(_ context.Context, _ string) (bool, error) { return false, nil },
		setFn: func(_ context.Context, key string, value []byte) error {
			stored[key] = value
			return nil
		},
		getFn: func(_ context.Context, key string) ([]byte, error) {
			v, ok := stored[key]
			if !ok {
				return nil, &db.Error{Op: db.OpGet, Err: db.ErrKeyNotFound}
			}
			return v, nil
		},
	}

	repo := New(m)
	if err := repo.Create(context.Background(), testCampaign(t)); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := repo.SetStatus(context.Background(), "t1", "c1", domcampaign.StatusPausada)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status() != domcampaign.StatusPausada {
		t.Errorf("returned status = %q", updated.Status())
	}

	got, err := repo.Get(context.Background(), "t1", "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status() != domcampaign.StatusPausada {
		t.Errorf("stored status = %q", got.Status())
	}
}
