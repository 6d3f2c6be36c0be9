package contacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	domcampaign "github.com/zaplinehq/zapline/internal/domain/campaign"
)

func TestEligibleContacts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/contacts/eligible" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("tenantId") != "t1" || q.Get("listId") != "vip" || q.Get("tags") != "promo,agosto" {
			t.Errorf("query = %v", q)
		}
		_, _ = w.Write([]byte(`{"contacts":[
			{"id":"ct-1","identifier":"+5511999990001"},
			{"id":"ct-2","identifier":"+5511999990002"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	got, err := c.EligibleContacts(context.Background(), "t1", domcampaign.TargetSpec{
		ListID: "vip",
		Tags:   []string{"promo", "agosto"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ct-1" || got[1].Identifier != "+5511999990002" {
		t.Errorf("contacts = %+v", got)
	}
}

func TestEligibleContacts_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.EligibleContacts(context.Background(), "t1", domcampaign.TargetSpec{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
