// Package quota models the per-tenant per-day send quota.
package quota

import "time"

// Reservation is the outcome of one atomic quota reservation.
type Reservation struct {
	allowed   int
	limit     int
	usedAfter int
	date      string
}

// NewReservation creates a reservation record.
func NewReservation(allowed, limit, usedAfter int, date string) Reservation {
	return Reservation{allowed: allowed, limit: limit, usedAfter: usedAfter, date: date}
}

// Allowed returns how many slots this call was granted.
func (r Reservation) Allowed() int { return r.allowed }

// Limit returns the daily cap.
func (r Reservation) Limit() int { return r.limit }

// UsedAfter returns the counter value after this reservation.
func (r Reservation) UsedAfter() int { return r.usedAfter }

// UsedBefore returns the counter value before this reservation.
func (r Reservation) UsedBefore() int { return r.usedAfter - r.allowed }

// Date returns the tenant-local calendar day (YYYY-MM-DD) the
// reservation counts against.
func (r Reservation) Date() string { return r.date }

// Exhausted reports whether the daily cap is fully used.
func (r Reservation) Exhausted() bool {
	return r.limit > 0 && r.usedAfter >= r.limit
}

// DayKey formats the calendar day of t in the given location. The day
// boundary is tenant-local, not UTC: a campaign crossing midnight in
// the tenant's timezone must not double-allocate.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}
