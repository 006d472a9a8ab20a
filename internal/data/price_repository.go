package data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantgem/backend/internal/contracts"
)

// PriceRepository reads daily prices from stock_prices
// ⭐ SSOT: 가격 데이터 조회는 여기서만 (쓰기는 수집기 담당)
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

var (
	_ contracts.PriceSeriesProvider = (*PriceRepository)(nil)
	_ contracts.PriceWindowReader   = (*PriceRepository)(nil)
)

// open/high/low가 비어 있으면 close로 대체, close가 NULL이면 NaN → 계산기에서 skip
const priceColumns = `
	symbol, date,
	open_price::float8, high_price::float8, low_price::float8, close_price::float8,
	COALESCE(volume, 0)::bigint`

type priceScanner interface {
	Scan(dest ...any) error
}

func scanPrice(row priceScanner) (contracts.PricePoint, error) {
	var (
		p                   contracts.PricePoint
		open, high, low, cl *float64
	)
	if err := row.Scan(&p.Symbol, &p.Date, &open, &high, &low, &cl, &p.Volume); err != nil {
		return p, err
	}

	p.Close = math.NaN()
	if cl != nil {
		p.Close = *cl
	}
	p.Open = orElse(open, p.Close)
	p.High = orElse(high, p.Close)
	p.Low = orElse(low, p.Close)
	return p, nil
}

func orElse(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

// ListSymbols returns every symbol with at least one price row
func (r *PriceRepository) ListSymbols(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT symbol FROM stock_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// GetSeries returns the full ascending price history of a symbol
func (r *PriceRepository) GetSeries(ctx context.Context, symbol string) ([]contracts.PricePoint, error) {
	query := `SELECT ` + priceColumns + `
		FROM stock_prices
		WHERE symbol = $1
		ORDER BY date ASC`

	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var series []contracts.PricePoint
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// GetWindows loads up to depth trailing rows per symbol with date <= asOf.
// Each slice is ascending; the last row is the symbol's as-of price.
func (r *PriceRepository) GetWindows(ctx context.Context, asOf time.Time, depth int) (map[string][]contracts.PricePoint, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM (
			SELECT p.*,
			       ROW_NUMBER() OVER (PARTITION BY p.symbol ORDER BY p.date DESC) AS rn
			FROM stock_prices p
			WHERE p.date <= $1
		) t
		WHERE rn <= $2
		ORDER BY symbol, date ASC`

	rows, err := r.pool.Query(ctx, query, asOf, depth)
	if err != nil {
		return nil, fmt.Errorf("failed to query price windows: %w", err)
	}
	defer rows.Close()

	windows := make(map[string][]contracts.PricePoint)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		windows[p.Symbol] = append(windows[p.Symbol], p)
	}
	return windows, rows.Err()
}
