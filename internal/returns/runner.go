package returns

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

// Runner recomputes and persists returns for many symbols in parallel.
// 종목 단위 실패는 격리: 로그 + 카운트만 하고 배치는 계속
type Runner struct {
	prices      contracts.PriceSeriesProvider
	writer      contracts.ReturnWriter
	calc        contracts.ReturnComputer
	invalidator contracts.CacheInvalidator
	workers     int
	logger      *logger.Logger
}

// NewRunner creates a batch runner. invalidator may be nil.
func NewRunner(
	prices contracts.PriceSeriesProvider,
	writer contracts.ReturnWriter,
	calc contracts.ReturnComputer,
	invalidator contracts.CacheInvalidator,
	workers int,
	log *logger.Logger,
) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		prices:      prices,
		writer:      writer,
		calc:        calc,
		invalidator: invalidator,
		workers:     workers,
		logger:      log.WithField("module", "returns.runner"),
	}
}

// Failure is one symbol that could not be recomputed
type Failure struct {
	Symbol string `json:"symbol"`
	Error  string `json:"error"`
}

// RunResult summarizes a batch
type RunResult struct {
	Symbols   int           `json:"symbols"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Records   int           `json:"records"`
	Failures  []Failure     `json:"failures,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Run recomputes the given symbols, or every symbol with prices when
// symbols is empty. Only context cancellation aborts the batch.
func (r *Runner) Run(ctx context.Context, symbols []string) (*RunResult, error) {
	start := time.Now()

	if len(symbols) == 0 {
		all, err := r.prices.ListSymbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
		symbols = all
	}

	r.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"workers": r.workers,
	}).Info("Starting returns recompute")

	result := &RunResult{Symbols: len(symbols)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, symbol := range symbols {
		if gctx.Err() != nil {
			break
		}
		symbol := symbol
		g.Go(func() error {
			n, err := r.RunSymbol(gctx, symbol)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				result.Failed++
				result.Failures = append(result.Failures, Failure{Symbol: symbol, Error: err.Error()})
				r.logger.WithError(err).WithField("symbol", symbol).Warn("Returns recompute failed")
				return nil
			}

			result.Succeeded++
			result.Records += n
			return nil
		})
	}

	waitErr := g.Wait()
	if waitErr == nil {
		waitErr = ctx.Err()
	}

	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Symbol < result.Failures[j].Symbol
	})
	result.Duration = time.Since(start)

	if waitErr != nil {
		r.logger.WithError(waitErr).Warn("Returns recompute cancelled")
		return result, waitErr
	}

	// 재계산 이후 캐시 세대 교체
	if r.invalidator != nil && result.Succeeded > 0 {
		if err := r.invalidator.Invalidate(ctx); err != nil {
			r.logger.WithError(err).Warn("Cache invalidation failed")
		}
	}

	r.logger.WithFields(map[string]interface{}{
		"symbols":     result.Symbols,
		"succeeded":   result.Succeeded,
		"failed":      result.Failed,
		"records":     result.Records,
		"duration_ms": result.Duration.Milliseconds(),
	}).Info("Returns recompute completed")

	return result, nil
}

// RunSymbol recomputes one symbol: load, validate, calculate, replace.
// Returns the number of records written.
func (r *Runner) RunSymbol(ctx context.Context, symbol string) (int, error) {
	series, err := r.prices.GetSeries(ctx, symbol)
	if err != nil {
		return 0, fmt.Errorf("load series: %w", err)
	}

	if err := ValidateSeries(series); err != nil {
		return 0, err
	}

	if len(series) == 0 {
		return 0, nil
	}

	// 이력이 짧아도 기존 구간은 지움 (records 없음 → DELETE만)
	records := r.calc.Calculate(symbol, series)
	if len(records) == 0 {
		r.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"points": len(series),
		}).Debug("Not enough history, clearing stale returns")
	}

	from := series[0].Date
	to := series[len(series)-1].Date
	if err := r.writer.ReplaceRange(ctx, symbol, from, to, records); err != nil {
		return 0, fmt.Errorf("replace returns: %w", err)
	}

	return len(records), nil
}
