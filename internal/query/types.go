package query

import (
	"time"

	"github.com/wonny/quantgem/backend/internal/contracts"
)

// Default page sizes
const (
	DefaultRankingsLimit = 50
	DefaultHistoryLimit  = 30
	DefaultHeatmapLimit  = 200
)

// RankingsRequest is a parsed rankings query
type RankingsRequest struct {
	Horizon         contracts.Horizon
	Market          contracts.Market
	Range           contracts.ReturnRange
	VolumeThreshold int64
	Limit           int
	Offset          int
	Date            *time.Time
}

// RankingsResult is the rankings response body
type RankingsResult struct {
	Results  []contracts.RankedReturn `json:"results"`
	Period   contracts.Horizon        `json:"period"`
	Total    int                      `json:"total"`
	AsOfDate *time.Time               `json:"asOfDate"`
}

// StatisticsRequest is a parsed statistics query
type StatisticsRequest struct {
	Horizon contracts.Horizon
	Market  contracts.Market
	Date    *time.Time
}

// HistoryRequest is a parsed history query
type HistoryRequest struct {
	Symbol string
	Start  *time.Time
	End    *time.Time
	Limit  int
}

// HeatmapRequest is a parsed heatmap query
type HeatmapRequest struct {
	Horizon contracts.Horizon
	Market  contracts.Market
	Limit   int
	Date    *time.Time
}

// HeatmapResult is the heatmap response body
type HeatmapResult struct {
	Cells    []contracts.HeatmapCell `json:"cells"`
	Period   contracts.Horizon       `json:"period"`
	AsOfDate *time.Time              `json:"asOfDate"`
}

// ExplainResult shows the stored record behind a symbol's return
type ExplainResult struct {
	Symbol     string                  `json:"symbol"`
	Period     contracts.Horizon       `json:"period"`
	AsOfDate   *time.Time              `json:"asOfDate"`
	Record     *contracts.ReturnRecord `json:"record"`
	ReturnRate *float64                `json:"returnRate"`
}
