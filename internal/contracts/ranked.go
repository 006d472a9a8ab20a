package contracts

// Observation is one instrument's row in a cross-section, as seen by the ranker
// and the heatmap. ReturnRate is the selected horizon's return.
type Observation struct {
	Symbol           string
	Name             string
	Market           string
	ReturnRate       *float64
	CumulativeReturn *float64
	Open             *float64
	Close            *float64
	Volume           *int64
}

// RankedReturn is a ranking row returned to callers
// ⭐ SSOT: 랭킹 결과 구조는 여기서만
type RankedReturn struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name"`
	Market           string   `json:"market"`
	ReturnRate       *float64 `json:"returnRate"`
	CurrentPrice     *float64 `json:"currentPrice"`
	PriceChange      *float64 `json:"priceChange"`
	Volume           *int64   `json:"volume"`
	CumulativeReturn *float64 `json:"cumulativeReturn"`
	Rank             int      `json:"rank"` // 1-based
}

// IsTopRanked checks if the row is in the top N ranks
func (r *RankedReturn) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}

// HeatmapCell is one symbol's return for the heatmap view
type HeatmapCell struct {
	Symbol     string   `json:"symbol"`
	ReturnRate *float64 `json:"returnRate"`
}
