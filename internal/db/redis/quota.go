package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/zaplinehq/zapline/internal/db"
)

// reserveScript grants min(desired, limit-used) slots in one atomic
// step. Running as a Lua script closes the read-modify-write race:
// concurrent reservations for the same key serialize inside Redis, so
// the sum of grants can never exceed the cap.
var reserveScript = rueidis.NewLuaScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
local desired = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local remaining = limit - used
if remaining < 0 then
  remaining = 0
end
local granted = desired
if granted > remaining then
  granted = remaining
end
if granted > 0 then
  used = redis.call('INCRBY', KEYS[1], granted)
end
return {granted, used}
`)

// ReserveSlots implements db.QuotaStore.
func (s *Store) ReserveSlots(ctx context.Context, key string, desired, limit int64) (int64, int64, error) {
	if desired < 0 {
		desired = 0
	}
	resp := reserveScript.Exec(ctx, s.client, []string{key}, []string{
		strconv.FormatInt(desired, 10),
		strconv.FormatInt(limit, 10),
	})
	vals, err := resp.AsIntSlice()
	if err != nil {
		return 0, 0, &db.Error{Op: db.OpEval, Err: err}
	}
	if len(vals) != 2 {
		return 0, 0, &db.Error{Op: db.OpEval, Err: fmt.Errorf("unexpected reply length %d", len(vals))}
	}
	return vals[0], vals[1], nil
}
