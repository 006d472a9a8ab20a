package data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/quantgem/backend/internal/contracts"
)

// StockRepository reads the instrument directory (stock_symbols)
type StockRepository struct {
	pool *pgxpool.Pool
}

// NewStockRepository creates a new stock repository
func NewStockRepository(pool *pgxpool.Pool) *StockRepository {
	return &StockRepository{pool: pool}
}

var _ contracts.StockDirectory = (*StockRepository)(nil)

// GetAll returns every known instrument keyed by symbol
func (r *StockRepository) GetAll(ctx context.Context) (map[string]contracts.Stock, error) {
	query := `
		SELECT symbol,
		       COALESCE(name, ''), COALESCE(short_name, ''),
		       COALESCE(market, ''), COALESCE(industry, '')
		FROM stock_symbols`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock symbols: %w", err)
	}
	defer rows.Close()

	stocks := make(map[string]contracts.Stock)
	for rows.Next() {
		var s contracts.Stock
		if err := rows.Scan(&s.Symbol, &s.Name, &s.ShortName, &s.Market, &s.Industry); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks[s.Symbol] = s
	}
	return stocks, rows.Err()
}
