// Package quota allocates daily send slots. The day boundary is the
// tenant's local calendar day, so a campaign dispatched at 23:50 in São
// Paulo does not borrow from tomorrow's allowance.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/zaplinehq/zapline/internal/domain"
	domquota "github.com/zaplinehq/zapline/internal/domain/quota"
	"github.com/zaplinehq/zapline/internal/metrics"
)

// Allocator grants daily send slots per tenant.
type Allocator struct {
	store       Store
	dailyLimit  int64
	defaultLoc  *time.Location
	tenantZones map[string]*time.Location
	log         *zap.Logger
}

// NewAllocator creates an Allocator. defaultLoc applies to tenants
// without a timezone override; nil means the process-local zone.
func NewAllocator(store Store, dailyLimit int64, defaultLoc *time.Location, tenantZones map[string]*time.Location, log *zap.Logger) *Allocator {
	if defaultLoc == nil {
		defaultLoc = time.Local
	}
	return &Allocator{
		store:       store,
		dailyLimit:  dailyLimit,
		defaultLoc:  defaultLoc,
		tenantZones: tenantZones,
		log:         log,
	}
}

func (a *Allocator) location(tenantID string) *time.Location {
	if loc, ok := a.tenantZones[tenantID]; ok {
		return loc
	}
	return a.defaultLoc
}

// Reserve atomically grants up to desired slots against the tenant's
// remaining allowance for its local calendar day at now. A zero desired
// still hits the store: the reservation must report the real usedAfter
// counter, not a fabricated zero.
func (a *Allocator) Reserve(ctx context.Context, tenantID string, desired int64, now time.Time) (domquota.Reservation, error) {
	if tenantID == "" {
		return domquota.Reservation{}, domain.ErrTenantRequired
	}
	day := domquota.DayKey(now, a.location(tenantID))
	if desired < 0 {
		desired = 0
	}

	granted, usedAfter, err := a.store.Reserve(ctx, tenantID, day, desired, a.dailyLimit)
	if err != nil {
		return domquota.Reservation{}, err
	}
	metrics.QuotaSlotsGrantedTotal.Add(float64(granted))

	if granted < desired {
		a.log.Info("daily quota partially granted",
			zap.String("tenant_id", tenantID),
			zap.String("day", day),
			zap.Int64("desired", desired),
			zap.Int64("granted", granted),
			zap.Int64("used_after", usedAfter))
	}
	return domquota.NewReservation(int(granted), int(a.dailyLimit), int(usedAfter), day), nil
}
