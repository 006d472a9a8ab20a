package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// PriceSeriesProvider supplies ascending daily price series per symbol
type PriceSeriesProvider interface {
	ListSymbols(ctx context.Context) ([]string, error)
	GetSeries(ctx context.Context, symbol string) ([]PricePoint, error)
}

// PriceWindowReader loads the trailing price window of every symbol as of a date
type PriceWindowReader interface {
	GetWindows(ctx context.Context, asOf time.Time, depth int) (map[string][]PricePoint, error)
}

// ReturnWriter persists computed return records
type ReturnWriter interface {
	// ReplaceRange discards the symbol's records within [from, to] and
	// upserts records by (symbol, date) in one transaction.
	ReplaceRange(ctx context.Context, symbol string, from, to time.Time, records []ReturnRecord) error
}

// ReturnReader reads persisted return records
type ReturnReader interface {
	// LatestDate resolves the as-of date: the latest record date at or before
	// onOrBefore, or the latest overall when onOrBefore is nil.
	LatestDate(ctx context.Context, onOrBefore *time.Time) (time.Time, error)
	LatestPerSymbol(ctx context.Context, asOf time.Time) ([]ReturnRecord, error)
	LatestForSymbol(ctx context.Context, symbol string, onOrBefore *time.Time) (*ReturnRecord, error)
	History(ctx context.Context, symbol string, start, end *time.Time, limit int) ([]ReturnRecord, error)
}

// StockDirectory reads instrument names and markets
type StockDirectory interface {
	GetAll(ctx context.Context) (map[string]Stock, error)
}
