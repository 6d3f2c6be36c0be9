package ledger

import (
	"fmt"
	"strconv"
	"strings"

	domledger "github.com/zaplinehq/zapline/internal/domain/ledger"
)

// Hash-field encoding: "{status}|{unixMillis}". Compact enough that a
// 50k-contact campaign stays one HGETALL away.
func encodeEntry(e domledger.Entry) string {
	return string(e.Status()) + "|" + strconv.FormatInt(e.CreatedAt(), 10)
}

func parseEntry(contactID, raw string) (domledger.Entry, error) {
	status, tsRaw, ok := strings.Cut(raw, "|")
	if !ok {
		return domledger.Entry{}, fmt.Errorf("ledger entry %q: missing separator", raw)
	}
	st, err := domledger.ParseStatus(status)
	if err != nil {
		return domledger.Entry{}, fmt.Errorf("ledger entry %q: %w", raw, err)
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return domledger.Entry{}, fmt.Errorf("ledger entry %q: bad timestamp: %w", raw, err)
	}
	return domledger.NewEntry(contactID, st, ts), nil
}
