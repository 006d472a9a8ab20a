package query

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/engineconfig"
	"github.com/wonny/quantgem/backend/internal/marketstats"
	"github.com/wonny/quantgem/backend/internal/ranking"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

var (
	d1 = time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
)

// --- fakes ---

type fakeReturns struct {
	records []contracts.ReturnRecord
	calls   int
	err     error
}

func (f *fakeReturns) LatestDate(ctx context.Context, onOrBefore *time.Time) (time.Time, error) {
	f.calls++
	if f.err != nil {
		return time.Time{}, f.err
	}
	var best *time.Time
	for i := range f.records {
		d := f.records[i].Date
		if onOrBefore != nil && d.After(*onOrBefore) {
			continue
		}
		if best == nil || d.After(*best) {
			best = &d
		}
	}
	if best == nil {
		return time.Time{}, contracts.ErrNoData
	}
	return *best, nil
}

func (f *fakeReturns) LatestPerSymbol(ctx context.Context, asOf time.Time) ([]contracts.ReturnRecord, error) {
	latest := map[string]contracts.ReturnRecord{}
	for _, r := range f.records {
		if r.Date.After(asOf) {
			continue
		}
		if cur, ok := latest[r.Symbol]; !ok || r.Date.After(cur.Date) {
			latest[r.Symbol] = r
		}
	}
	out := make([]contracts.ReturnRecord, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (f *fakeReturns) LatestForSymbol(ctx context.Context, symbol string, onOrBefore *time.Time) (*contracts.ReturnRecord, error) {
	var best *contracts.ReturnRecord
	for i := range f.records {
		r := &f.records[i]
		if r.Symbol != symbol || (onOrBefore != nil && r.Date.After(*onOrBefore)) {
			continue
		}
		if best == nil || r.Date.After(best.Date) {
			best = r
		}
	}
	if best == nil {
		return nil, contracts.ErrNoData
	}
	return best, nil
}

func (f *fakeReturns) History(ctx context.Context, symbol string, start, end *time.Time, limit int) ([]contracts.ReturnRecord, error) {
	var out []contracts.ReturnRecord
	for _, r := range f.records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePrices struct {
	windows map[string][]contracts.PricePoint
	depths  []int
}

func (f *fakePrices) GetWindows(ctx context.Context, asOf time.Time, depth int) (map[string][]contracts.PricePoint, error) {
	f.depths = append(f.depths, depth)
	out := map[string][]contracts.PricePoint{}
	for sym, w := range f.windows {
		var kept []contracts.PricePoint
		for _, p := range w {
			if !p.Date.After(asOf) {
				kept = append(kept, p)
			}
		}
		if len(kept) > depth {
			kept = kept[len(kept)-depth:]
		}
		if len(kept) > 0 {
			out[sym] = kept
		}
	}
	return out, nil
}

type fakeStocks map[string]contracts.Stock

func (f fakeStocks) GetAll(ctx context.Context) (map[string]contracts.Stock, error) {
	return f, nil
}

// memCache mimics redis.Cache including the JSON round-trip
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gen  int64
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memCache) Generation(ctx context.Context) (int64, error) { return m.gen, nil }

func (m *memCache) Bump(ctx context.Context) (int64, error) {
	m.gen++
	return m.gen, nil
}

// --- fixtures ---

func price(symbol string, d time.Time, open, closePrice float64, vol int64) contracts.PricePoint {
	return contracts.PricePoint{Symbol: symbol, Date: d, Open: open, High: closePrice, Low: open, Close: closePrice, Volume: vol}
}

func fixture() (*fakeReturns, *fakePrices, fakeStocks) {
	rets := &fakeReturns{records: []contracts.ReturnRecord{
		{Symbol: "2330.TW", Date: d1, Daily: contracts.Float(3), Cumulative: contracts.Float(10)},
		{Symbol: "2330.TW", Date: d2, Daily: contracts.Float(2), Weekly: contracts.Float(0.05), Cumulative: contracts.Float(12)},
		{Symbol: "1101.TW", Date: d2, Daily: contracts.Float(-1.5), Cumulative: contracts.Float(-3)},
		{Symbol: "6488.TWO", Date: d2, Daily: nil},
		{Symbol: "^TWII", Date: d2, Daily: contracts.Float(0.8)},
	}}
	prices := &fakePrices{windows: map[string][]contracts.PricePoint{
		"2330.TW":  {price("2330.TW", d1, 590, 600, 1000), price("2330.TW", d2, 600, 612, 3000)},
		"1101.TW":  {price("1101.TW", d2, 40, 39.4, 500)},
		"6488.TWO": {price("6488.TWO", d2, 100, 100, 0)},
	}}
	stocks := fakeStocks{
		"2330.TW": {Symbol: "2330.TW", Name: "Taiwan Semiconductor", ShortName: "TSMC", Market: "listed"},
	}
	return rets, prices, stocks
}

func newTestService(rets *fakeReturns, prices *fakePrices, stocks fakeStocks, cache Cache) *Service {
	cfg := engineconfig.Default()
	return NewService(Deps{
		Returns:    rets,
		Prices:     prices,
		Stocks:     stocks,
		Aggregator: marketstats.NewAggregator(cfg.Statistics),
		Ranker:     ranking.NewRanker(cfg.Ranking),
		Cache:      cache,
		PriceDepth: cfg.Statistics.PriceDepth(),
	}, logger.Nop())
}

// --- tests ---

func TestRankings(t *testing.T) {
	rets, prices, stocks := fixture()
	svc := newTestService(rets, prices, stocks, nil)

	res, err := svc.Rankings(context.Background(), RankingsRequest{
		Horizon: contracts.HorizonDaily,
		Market:  contracts.MarketAll,
		Range:   contracts.RangeAll,
	})
	require.NoError(t, err)

	require.NotNil(t, res.AsOfDate)
	assert.Equal(t, d2, *res.AsOfDate)
	require.Len(t, res.Results, 3, "index ticker excluded")
	assert.Equal(t, 3, res.Total)

	top := res.Results[0]
	assert.Equal(t, "2330.TW", top.Symbol)
	assert.Equal(t, "TSMC", top.Name)
	assert.Equal(t, "listed", top.Market)
	assert.Equal(t, 2.0, *top.ReturnRate)
	assert.Equal(t, 612.0, *top.CurrentPrice)
	assert.Equal(t, 12.0, *top.PriceChange)
	assert.Equal(t, int64(3000), *top.Volume)

	assert.Equal(t, "1101.TW", res.Results[1].Name, "name falls back to symbol")
	assert.Equal(t, "6488.TWO", res.Results[2].Symbol)
	assert.Nil(t, res.Results[2].ReturnRate)

	assert.Equal(t, []int{1}, prices.depths, "rankings only need the as-of row")
}

func TestRankings_AsOfEarlierDate(t *testing.T) {
	rets, prices, stocks := fixture()
	svc := newTestService(rets, prices, stocks, nil)

	req := RankingsRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketListed, Date: &d1}
	res, err := svc.Rankings(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, d1, *res.AsOfDate)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 3.0, *res.Results[0].ReturnRate)
}

func TestRankings_NoData(t *testing.T) {
	svc := newTestService(&fakeReturns{}, &fakePrices{}, fakeStocks{}, nil)

	res, err := svc.Rankings(context.Background(), RankingsRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketAll})
	require.NoError(t, err)
	assert.Nil(t, res.AsOfDate)
	assert.Empty(t, res.Results)
}

func TestRankings_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	svc := newTestService(&fakeReturns{err: boom}, &fakePrices{}, fakeStocks{}, nil)

	_, err := svc.Rankings(context.Background(), RankingsRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketAll})
	assert.ErrorIs(t, err, boom)
}

func TestStatistics(t *testing.T) {
	rets, prices, stocks := fixture()
	svc := newTestService(rets, prices, stocks, nil)

	snap, err := svc.Statistics(context.Background(), StatisticsRequest{
		Horizon: contracts.HorizonDaily,
		Market:  contracts.MarketAll,
	})
	require.NoError(t, err)

	assert.Equal(t, d2, *snap.AsOfDate)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.RisingStocks)
	assert.Equal(t, 1, snap.FallingStocks)
	assert.Equal(t, "2330.TW", snap.TopStock)
	// max 2 > 1 → 이미 퍼센트, 스케일 없음
	assert.Equal(t, 2.0, snap.MaxReturn)
	assert.Equal(t, -1.5, snap.MinReturn)
	assert.Equal(t, int64(3000), snap.UpVolume)
	assert.Equal(t, int64(500), snap.DownVolume)

	assert.Equal(t, []int{253}, prices.depths)
}

func TestStatistics_NoData(t *testing.T) {
	svc := newTestService(&fakeReturns{}, &fakePrices{}, fakeStocks{}, nil)

	snap, err := svc.Statistics(context.Background(), StatisticsRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketAll})
	require.NoError(t, err)
	assert.Nil(t, snap.AsOfDate)
	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.AboveMA20Pct)
}

func TestStatistics_FractionScaling(t *testing.T) {
	rets := &fakeReturns{records: []contracts.ReturnRecord{
		{Symbol: "2330.TW", Date: d2, Daily: contracts.Float(0.02)},
		{Symbol: "1101.TW", Date: d2, Daily: contracts.Float(-0.01)},
	}}
	svc := newTestService(rets, &fakePrices{}, fakeStocks{}, nil)

	snap, err := svc.Statistics(context.Background(), StatisticsRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketAll})
	require.NoError(t, err)
	assert.InDelta(t, 2.0, snap.MaxReturn, 1e-9)
	assert.InDelta(t, -1.0, snap.MinReturn, 1e-9)
	assert.InDelta(t, 0.5, snap.AvgReturn, 1e-9)
}

func TestHistory(t *testing.T) {
	rets, prices, stocks := fixture()
	svc := newTestService(rets, prices, stocks, nil)

	recs, err := svc.History(context.Background(), HistoryRequest{Symbol: "2330.TW"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, d2, recs[0].Date, "date desc")
	assert.InDelta(t, 5.0, *recs[0].Weekly, 1e-9, "normalized to percent")

	_, err = svc.History(context.Background(), HistoryRequest{})
	assert.ErrorIs(t, err, contracts.ErrInvalidSymbol)

	_, err = svc.History(context.Background(), HistoryRequest{Symbol: "2330.TW", Start: &d2, End: &d1})
	assert.ErrorIs(t, err, contracts.ErrInvalidDate)
}

func TestHeatmap(t *testing.T) {
	rets, prices, stocks := fixture()
	svc := newTestService(rets, prices, stocks, nil)

	res, err := svc.Heatmap(context.Background(), HeatmapRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketAll})
	require.NoError(t, err)

	require.Len(t, res.Cells, 3)
	assert.Equal(t, "1101.TW", res.Cells[0].Symbol)
	assert.Equal(t, "2330.TW", res.Cells[1].Symbol)
	assert.Equal(t, "6488.TWO", res.Cells[2].Symbol)
	assert.Nil(t, res.Cells[2].ReturnRate)

	res, err = svc.Heatmap(context.Background(), HeatmapRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketOTC, Limit: 1})
	require.NoError(t, err)
	require.Len(t, res.Cells, 1)
	assert.Equal(t, "6488.TWO", res.Cells[0].Symbol)
}

func TestExplain(t *testing.T) {
	rets, prices, stocks := fixture()
	svc := newTestService(rets, prices, stocks, nil)

	res, err := svc.Explain(context.Background(), "2330.TW", contracts.HorizonWeekly, nil)
	require.NoError(t, err)
	assert.Equal(t, d2, *res.AsOfDate)
	assert.InDelta(t, 5.0, *res.ReturnRate, 1e-9)
	assert.InDelta(t, 2.0, *res.Record.Daily, 1e-9, "already percent")

	res, err = svc.Explain(context.Background(), "0000.TW", contracts.HorizonDaily, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Record)
	assert.Nil(t, res.AsOfDate)
}

func TestCache_HitAndInvalidate(t *testing.T) {
	rets, prices, stocks := fixture()
	cache := newMemCache()
	svc := newTestService(rets, prices, stocks, cache)
	ctx := context.Background()
	req := HeatmapRequest{Horizon: contracts.HorizonDaily, Market: contracts.MarketAll}

	first, err := svc.Heatmap(ctx, req)
	require.NoError(t, err)
	calls := rets.calls

	second, err := svc.Heatmap(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, calls, rets.calls, "served from cache")
	assert.Equal(t, len(first.Cells), len(second.Cells))
	assert.True(t, first.AsOfDate.Equal(*second.AsOfDate))

	require.NoError(t, svc.Invalidate(ctx))
	_, err = svc.Heatmap(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, calls+1, rets.calls, "new generation recomputes")
}
