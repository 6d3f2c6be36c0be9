package health

import (
	"context"
	"errors"
	"testing"
)

type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }

type checker func(ctx context.Context) error

func (c checker) HealthCheck(ctx context.Context) error { return c(ctx) }

func ok(_ context.Context) error   { return nil }
func down(_ context.Context) error { return errors.New("unreachable") }

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(pinger(ok), checker(ok), checker(ok))
	r := svc.Check(context.Background())
	if r.Status != Healthy {
		t.Errorf("status = %q", r.Status)
	}
	for name, c := range r.Checks {
		if c != CheckOK {
			t.Errorf("check %s = %q", name, c)
		}
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	svc := New(pinger(down), checker(ok), checker(ok))
	r := svc.Check(context.Background())
	if r.Status != Degraded {
		t.Errorf("status = %q", r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("database = %q", r.Checks["database"])
	}
}

func TestCheck_NilCheckersSkipped(t *testing.T) {
	svc := New(pinger(ok), nil, nil)
	r := svc.Check(context.Background())
	if r.Status != Healthy {
		t.Errorf("status = %q", r.Status)
	}
	if _, ok := r.Checks["outbox"]; ok {
		t.Error("outbox check present despite nil checker")
	}
}
