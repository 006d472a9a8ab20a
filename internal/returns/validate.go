package returns

import (
	"fmt"

	"github.com/wonny/quantgem/backend/internal/contracts"
)

// ValidateSeries checks the ordering contract of a price series:
// dates strictly increasing (no duplicates, no reordering).
func ValidateSeries(series []contracts.PricePoint) error {
	for i := 1; i < len(series); i++ {
		if !series[i].Date.After(series[i-1].Date) {
			return fmt.Errorf("%w: date %s at index %d is not after %s",
				contracts.ErrInvalidSeries,
				series[i].Date.Format("2006-01-02"), i,
				series[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}
