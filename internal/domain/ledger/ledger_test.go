package ledger

import (
	"errors"
	"testing"

	"github.com/zaplinehq/zapline/internal/domain"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"simulado", "agendado", "enviado", "erro"} {
		st, err := ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", s, err)
		}
		if string(st) != s {
			t.Errorf("ParseStatus(%q) = %q", s, st)
		}
	}

	if _, err := ParseStatus("pending"); !errors.Is(err, domain.ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	if Status("").Valid() {
		t.Error("empty status must not be valid")
	}
}

func TestEntry(t *testing.T) {
	e := NewEntry("c-1", StatusAgendado, 1724800000000)
	if e.ContactID() != "c-1" {
		t.Errorf("ContactID() = %q", e.ContactID())
	}
	if e.Status() != StatusAgendado {
		t.Errorf("Status() = %q", e.Status())
	}
	if e.CreatedAt() != 1724800000000 {
		t.Errorf("CreatedAt() = %d", e.CreatedAt())
	}
}
