package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/pkg/database"
)

// returnScale matches the DECIMAL(10,6) return columns
const returnScale = 6

// ReturnRepository persists and reads stock_returns
// ⭐ SSOT: 수익률 저장/조회는 여기서만
type ReturnRepository struct {
	pool *pgxpool.Pool
}

// NewReturnRepository creates a new return repository
func NewReturnRepository(pool *pgxpool.Pool) *ReturnRepository {
	return &ReturnRepository{pool: pool}
}

var (
	_ contracts.ReturnWriter = (*ReturnRepository)(nil)
	_ contracts.ReturnReader = (*ReturnRepository)(nil)
)

const returnColumns = `
	symbol, date,
	daily_return::float8, weekly_return::float8, monthly_return::float8,
	quarterly_return::float8, yearly_return::float8, cumulative_return::float8`

type returnScanner interface {
	Scan(dest ...any) error
}

func scanReturn(row returnScanner) (contracts.ReturnRecord, error) {
	var rec contracts.ReturnRecord
	err := row.Scan(&rec.Symbol, &rec.Date,
		&rec.Daily, &rec.Weekly, &rec.Monthly,
		&rec.Quarterly, &rec.Yearly, &rec.Cumulative)
	return rec, err
}

// roundReturn rounds to column precision; nil stays NULL
func roundReturn(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := decimal.NewFromFloat(*v).Round(returnScale).InexactFloat64()
	return &r
}

// ReplaceRange deletes the symbol's rows in [from, to] and upserts records,
// all in one transaction. Re-running with the same input is a no-op.
func (r *ReturnRepository) ReplaceRange(ctx context.Context, symbol string, from, to time.Time, records []contracts.ReturnRecord) error {
	return database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM stock_returns WHERE symbol = $1 AND date BETWEEN $2 AND $3`,
			symbol, from, to,
		); err != nil {
			return fmt.Errorf("failed to delete returns for %s: %w", symbol, err)
		}

		if len(records) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		query := `
			INSERT INTO stock_returns
				(symbol, date, daily_return, weekly_return, monthly_return,
				 quarterly_return, yearly_return, cumulative_return)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (symbol, date) DO UPDATE SET
				daily_return = EXCLUDED.daily_return,
				weekly_return = EXCLUDED.weekly_return,
				monthly_return = EXCLUDED.monthly_return,
				quarterly_return = EXCLUDED.quarterly_return,
				yearly_return = EXCLUDED.yearly_return,
				cumulative_return = EXCLUDED.cumulative_return`

		for _, rec := range records {
			batch.Queue(query, symbol, rec.Date,
				roundReturn(rec.Daily), roundReturn(rec.Weekly), roundReturn(rec.Monthly),
				roundReturn(rec.Quarterly), roundReturn(rec.Yearly), roundReturn(rec.Cumulative))
		}

		br := tx.SendBatch(ctx, batch)
		for range records {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to upsert returns for %s: %w", symbol, err)
			}
		}
		return br.Close()
	})
}

// LatestDate resolves the effective as-of date
func (r *ReturnRepository) LatestDate(ctx context.Context, onOrBefore *time.Time) (time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(date) FROM stock_returns WHERE ($1::date IS NULL OR date <= $1::date)`,
		onOrBefore,
	).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest return date: %w", err)
	}
	if latest == nil {
		return time.Time{}, contracts.ErrNoData
	}
	return *latest, nil
}

// LatestPerSymbol returns each symbol's newest record with date <= asOf
func (r *ReturnRepository) LatestPerSymbol(ctx context.Context, asOf time.Time) ([]contracts.ReturnRecord, error) {
	query := `
		SELECT DISTINCT ON (symbol) ` + returnColumns + `
		FROM stock_returns
		WHERE date <= $1
		ORDER BY symbol, date DESC`

	return r.queryRecords(ctx, query, asOf)
}

// LatestForSymbol returns one symbol's newest record with date <= onOrBefore
func (r *ReturnRepository) LatestForSymbol(ctx context.Context, symbol string, onOrBefore *time.Time) (*contracts.ReturnRecord, error) {
	query := `
		SELECT ` + returnColumns + `
		FROM stock_returns
		WHERE symbol = $1 AND ($2::date IS NULL OR date <= $2::date)
		ORDER BY date DESC
		LIMIT 1`

	rec, err := scanReturn(r.pool.QueryRow(ctx, query, symbol, onOrBefore))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, contracts.ErrNoData
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query return for %s: %w", symbol, err)
	}
	return &rec, nil
}

// History returns a symbol's records, newest first
func (r *ReturnRepository) History(ctx context.Context, symbol string, start, end *time.Time, limit int) ([]contracts.ReturnRecord, error) {
	query := `
		SELECT ` + returnColumns + `
		FROM stock_returns
		WHERE symbol = $1
		  AND ($2::date IS NULL OR date >= $2::date)
		  AND ($3::date IS NULL OR date <= $3::date)
		ORDER BY date DESC
		LIMIT $4`

	return r.queryRecords(ctx, query, symbol, start, end, limit)
}

func (r *ReturnRepository) queryRecords(ctx context.Context, query string, args ...any) ([]contracts.ReturnRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}
	defer rows.Close()

	records := []contracts.ReturnRecord{}
	for rows.Next() {
		rec, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
