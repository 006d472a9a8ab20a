package returns

import "github.com/wonny/quantgem/backend/internal/contracts"

// Resolve returns the close `offset` entries before series[current].
// Offsets count trading entries, not calendar days: missing days are
// simply not in the series. ok=false when the reference falls before
// the first entry.
func Resolve(series []contracts.PricePoint, current, offset int) (float64, bool) {
	if current < 0 || current >= len(series) || offset < 0 {
		return 0, false
	}

	ref := current - offset
	if ref < 0 {
		return 0, false
	}
	return series[ref].Close, true
}
