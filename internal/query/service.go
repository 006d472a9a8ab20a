package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/ranking"
	"github.com/wonny/quantgem/backend/internal/returns"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

// Service answers rankings/statistics/history/heatmap queries
// ⭐ SSOT: 조회 경로의 단위 정규화는 여기서만 적용
type Service struct {
	returns    contracts.ReturnReader
	prices     contracts.PriceWindowReader
	stocks     contracts.StockDirectory
	aggregator contracts.StatisticsAggregator
	ranker     *ranking.Ranker
	cache      Cache
	priceDepth int
	logger     *logger.Logger
}

// Deps groups the service's collaborators
type Deps struct {
	Returns    contracts.ReturnReader
	Prices     contracts.PriceWindowReader
	Stocks     contracts.StockDirectory
	Aggregator contracts.StatisticsAggregator
	Ranker     *ranking.Ranker
	Cache      Cache // optional
	PriceDepth int   // trailing rows needed by the aggregator
}

// NewService creates a query service
func NewService(d Deps, log *logger.Logger) *Service {
	return &Service{
		returns:    d.Returns,
		prices:     d.Prices,
		stocks:     d.Stocks,
		aggregator: d.Aggregator,
		ranker:     d.Ranker,
		cache:      d.Cache,
		priceDepth: d.PriceDepth,
		logger:     log.WithField("module", "query"),
	}
}

var _ contracts.CacheInvalidator = (*Service)(nil)

// Invalidate bumps the cache generation so stale results are never served
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	gen, err := s.cache.Bump(ctx)
	if err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	s.logger.WithField("generation", gen).Info("Query cache invalidated")
	return nil
}

// resolveAsOf returns nil (no error) when there are no returns at all
func (s *Service) resolveAsOf(ctx context.Context, date *time.Time) (*time.Time, error) {
	asOf, err := s.returns.LatestDate(ctx, date)
	if errors.Is(err, contracts.ErrNoData) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &asOf, nil
}

// Rankings ranks the market's latest returns as of the requested date
func (s *Service) Rankings(ctx context.Context, req RankingsRequest) (*RankingsResult, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultRankingsLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	params := []string{
		string(req.Horizon), string(req.Market), string(req.Range),
		strconv.FormatInt(req.VolumeThreshold, 10),
		strconv.Itoa(req.Limit), strconv.Itoa(req.Offset),
		dateParam(req.Date),
	}

	return cached(ctx, s, "rankings", params, func() (*RankingsResult, error) {
		result := &RankingsResult{Results: []contracts.RankedReturn{}, Period: req.Horizon}

		asOf, err := s.resolveAsOf(ctx, req.Date)
		if err != nil || asOf == nil {
			return result, err
		}
		result.AsOfDate = asOf

		obs, err := s.observations(ctx, *asOf, req.Horizon, 1)
		if err != nil {
			return nil, err
		}

		result.Results = s.ranker.Rank(obs, ranking.Params{
			Horizon:         req.Horizon,
			Market:          req.Market,
			Range:           req.Range,
			VolumeThreshold: req.VolumeThreshold,
			Limit:           req.Limit,
			Offset:          req.Offset,
		})
		result.Total = len(result.Results)
		return result, nil
	})
}

// observations joins latest returns, latest prices and names as of asOf
func (s *Service) observations(ctx context.Context, asOf time.Time, h contracts.Horizon, depth int) ([]contracts.Observation, error) {
	records, err := s.returns.LatestPerSymbol(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("load latest returns: %w", err)
	}
	windows, err := s.prices.GetWindows(ctx, asOf, depth)
	if err != nil {
		return nil, fmt.Errorf("load latest prices: %w", err)
	}
	stocks, err := s.stocks.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load stock directory: %w", err)
	}

	obs := make([]contracts.Observation, 0, len(records))
	for i := range records {
		rec := &records[i]
		o := contracts.Observation{
			Symbol:           rec.Symbol,
			Name:             rec.Symbol,
			ReturnRate:       rec.Get(h),
			CumulativeReturn: rec.Cumulative,
		}
		if st, ok := stocks[rec.Symbol]; ok {
			o.Name = st.DisplayName()
			o.Market = st.Market
		}
		if w := windows[rec.Symbol]; len(w) > 0 {
			p := w[len(w)-1]
			open, closePrice, vol := p.Open, p.Close, p.Volume
			o.Open, o.Close, o.Volume = &open, &closePrice, &vol
		}
		obs = append(obs, o)
	}
	return obs, nil
}

// Statistics aggregates the market cross-section as of the requested date
func (s *Service) Statistics(ctx context.Context, req StatisticsRequest) (*contracts.MarketSnapshot, error) {
	params := []string{string(req.Horizon), string(req.Market), dateParam(req.Date)}

	return cached(ctx, s, "statistics", params, func() (*contracts.MarketSnapshot, error) {
		asOf, err := s.resolveAsOf(ctx, req.Date)
		if err != nil {
			return nil, err
		}
		if asOf == nil {
			empty := contracts.MarketSnapshot{Horizon: req.Horizon, Market: req.Market, TopStock: "N/A"}
			return &empty, nil
		}

		records, err := s.returns.LatestPerSymbol(ctx, *asOf)
		if err != nil {
			return nil, fmt.Errorf("load latest returns: %w", err)
		}
		windows, err := s.prices.GetWindows(ctx, *asOf, s.priceDepth)
		if err != nil {
			return nil, fmt.Errorf("load price windows: %w", err)
		}

		entries := make([]contracts.CrossSectionEntry, 0, len(records))
		for i := range records {
			entries = append(entries, contracts.CrossSectionEntry{
				Symbol: records[i].Symbol,
				Return: &records[i],
				Prices: windows[records[i].Symbol],
			})
		}

		snap := returns.ScaleSnapshot(s.aggregator.Aggregate(*asOf, req.Horizon, req.Market, entries))

		s.logger.WithFields(map[string]interface{}{
			"as_of":   asOf.Format("2006-01-02"),
			"period":  req.Horizon,
			"market":  req.Market,
			"total":   snap.Total,
			"rising":  snap.RisingStocks,
			"falling": snap.FallingStocks,
		}).Debug("Statistics computed")

		return &snap, nil
	})
}

// History returns a symbol's normalized records, newest first
func (s *Service) History(ctx context.Context, req HistoryRequest) ([]contracts.ReturnRecord, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", contracts.ErrInvalidSymbol)
	}
	if req.Limit <= 0 {
		req.Limit = DefaultHistoryLimit
	}
	if req.Start != nil && req.End != nil && req.Start.After(*req.End) {
		return nil, fmt.Errorf("%w: startDate after endDate", contracts.ErrInvalidDate)
	}

	records, err := s.returns.History(ctx, req.Symbol, req.Start, req.End, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	out := make([]contracts.ReturnRecord, len(records))
	for i, rec := range records {
		out[i] = returns.NormalizeRecord(rec)
	}
	return out, nil
}

// Heatmap lists each symbol's latest return, ordered by symbol
func (s *Service) Heatmap(ctx context.Context, req HeatmapRequest) (*HeatmapResult, error) {
	if req.Limit <= 0 {
		req.Limit = DefaultHeatmapLimit
	}
	params := []string{string(req.Horizon), string(req.Market), strconv.Itoa(req.Limit), dateParam(req.Date)}

	return cached(ctx, s, "heatmap", params, func() (*HeatmapResult, error) {
		result := &HeatmapResult{Cells: []contracts.HeatmapCell{}, Period: req.Horizon}

		asOf, err := s.resolveAsOf(ctx, req.Date)
		if err != nil || asOf == nil {
			return result, err
		}
		result.AsOfDate = asOf

		records, err := s.returns.LatestPerSymbol(ctx, *asOf)
		if err != nil {
			return nil, fmt.Errorf("load latest returns: %w", err)
		}

		for _, rec := range records {
			if !req.Market.Includes(rec.Symbol) {
				continue
			}
			result.Cells = append(result.Cells, contracts.HeatmapCell{
				Symbol:     rec.Symbol,
				ReturnRate: returns.ToPercent(rec.Get(req.Horizon)),
			})
		}

		sort.Slice(result.Cells, func(i, j int) bool { return result.Cells[i].Symbol < result.Cells[j].Symbol })
		if len(result.Cells) > req.Limit {
			result.Cells = result.Cells[:req.Limit]
		}
		return result, nil
	})
}

// Explain returns the stored record behind a symbol's return on a date
func (s *Service) Explain(ctx context.Context, symbol string, h contracts.Horizon, date *time.Time) (*ExplainResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", contracts.ErrInvalidSymbol)
	}

	result := &ExplainResult{Symbol: symbol, Period: h}

	rec, err := s.returns.LatestForSymbol(ctx, symbol, date)
	if errors.Is(err, contracts.ErrNoData) {
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load return: %w", err)
	}

	norm := returns.NormalizeRecord(*rec)
	asOf := rec.Date
	result.AsOfDate = &asOf
	result.Record = &norm
	result.ReturnRate = norm.Get(h)
	return result, nil
}
