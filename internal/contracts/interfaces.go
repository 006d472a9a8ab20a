package contracts

import (
	"context"
	"time"
)

// ReturnComputer computes return records for one ascending series
// ⭐ SSOT: 수익률 계산 인터페이스
type ReturnComputer interface {
	Calculate(symbol string, series []PricePoint) []ReturnRecord
}

// StatisticsAggregator computes a market snapshot over a materialized cross-section
// ⭐ SSOT: 시장 통계 인터페이스
type StatisticsAggregator interface {
	Aggregate(asOf time.Time, horizon Horizon, market Market, entries []CrossSectionEntry) MarketSnapshot
}

// CacheInvalidator drops cached query results after a recompute
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}
