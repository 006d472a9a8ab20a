package contracts

import "time"

// CrossSectionEntry is one symbol's latest state as of a date: its latest
// return record and its trailing price window (ascending, last row is the
// latest price on or before the as-of date).
type CrossSectionEntry struct {
	Symbol string
	Return *ReturnRecord
	Prices []PricePoint
}

// Latest returns the newest price row, if any
func (e *CrossSectionEntry) Latest() (PricePoint, bool) {
	if len(e.Prices) == 0 {
		return PricePoint{}, false
	}
	return e.Prices[len(e.Prices)-1], true
}

// MarketSnapshot is the derived, non-persisted aggregate for one
// (asOfDate, horizon, market) triple.
// ⭐ SSOT: 시장 통계 구조는 여기서만
type MarketSnapshot struct {
	AsOfDate *time.Time `json:"asOfDate"`
	Horizon  Horizon    `json:"period"`
	Market   Market     `json:"market"`
	Total    int        `json:"total"`

	// Breadth
	RisingStocks  int     `json:"risingStocks"`
	FallingStocks int     `json:"fallingStocks"`
	AvgReturn     float64 `json:"avgReturn"`
	MaxReturn     float64 `json:"maxReturn"`
	MinReturn     float64 `json:"minReturn"`
	TopStock      string  `json:"topStock"`

	// Highs
	NearHighStocks int `json:"nearHighStocks"`
	NewHighStocks  int `json:"newHighStocks"`

	// Moving-average participation (0~100)
	AboveMA20Pct float64 `json:"aboveMA20Pct"`
	AboveMA60Pct float64 `json:"aboveMA60Pct"`
	BothAbovePct float64 `json:"bothAbovePct"`

	// Volume
	VolSurgeUp          int      `json:"volSurgeUp"`
	Over2xCount         int      `json:"over2xCount"`
	MedianVolMultiplier float64  `json:"medianVolMultiplier"`
	UpVolume            int64    `json:"upVolume"`
	DownVolume          int64    `json:"downVolume"`
	UpDownRatio         *float64 `json:"upDownRatio"`

	// Dispersion
	MarketVolatility float64 `json:"marketVolatility"`
}
