package contracts

import (
	"fmt"
	"strings"
)

// Horizon is a named return-measurement window
// ⭐ SSOT: 기간(horizon) 정의는 여기서만
type Horizon string

const (
	HorizonDaily     Horizon = "daily"
	HorizonWeekly    Horizon = "weekly"
	HorizonMonthly   Horizon = "monthly"
	HorizonQuarterly Horizon = "quarterly"
	HorizonYearly    Horizon = "yearly"
)

// Horizons lists every horizon from shortest to longest
var Horizons = []Horizon{
	HorizonDaily,
	HorizonWeekly,
	HorizonMonthly,
	HorizonQuarterly,
	HorizonYearly,
}

// DefaultOffsets maps each horizon to its lookback in trading-day offsets
// (count of prior entries in the sorted series, not calendar days).
var DefaultOffsets = map[Horizon]int{
	HorizonDaily:     1,
	HorizonWeekly:    5,
	HorizonMonthly:   20,
	HorizonQuarterly: 60,
	HorizonYearly:    240,
}

// ParseHorizon parses a period string. Empty input means daily.
func ParseHorizon(s string) (Horizon, error) {
	switch h := Horizon(strings.ToLower(strings.TrimSpace(s))); h {
	case "":
		return HorizonDaily, nil
	case HorizonDaily, HorizonWeekly, HorizonMonthly, HorizonQuarterly, HorizonYearly:
		return h, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidHorizon, s)
	}
}

// IsShort reports whether the horizon is subject to the short-horizon
// sanity filter and pre-filter oversampling (daily, weekly)
func (h Horizon) IsShort() bool {
	return h == HorizonDaily || h == HorizonWeekly
}

func (h Horizon) String() string {
	return string(h)
}
