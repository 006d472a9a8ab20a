package marketstats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/engineconfig"
)

var asOf = time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

// window builds an ascending price window ending at asOf
func window(symbol string, closes []float64, volume int64) []contracts.PricePoint {
	out := make([]contracts.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = contracts.PricePoint{
			Symbol: symbol,
			Date:   asOf.AddDate(0, 0, i-len(closes)+1),
			Open:   c,
			High:   c * 1.2, // nearHigh 미해당 기본값
			Low:    c,
			Close:  c,
			Volume: volume,
		}
	}
	return out
}

func entry(symbol string, daily *float64, prices []contracts.PricePoint) contracts.CrossSectionEntry {
	return contracts.CrossSectionEntry{
		Symbol: symbol,
		Return: &contracts.ReturnRecord{Symbol: symbol, Date: asOf, Daily: daily},
		Prices: prices,
	}
}

func newTestAggregator() *Aggregator {
	return NewAggregator(engineconfig.Default().Statistics)
}

func TestAggregate_Breadth(t *testing.T) {
	entries := []contracts.CrossSectionEntry{
		entry("1101.TW", contracts.Float(2), window("1101.TW", []float64{10, 10}, 100)),
		entry("2330.TW", contracts.Float(-1), window("2330.TW", []float64{10, 10}, 300)),
		entry("6488.TWO", nil, window("6488.TWO", []float64{10, 10}, 500)),
	}

	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)

	require.NotNil(t, snap.AsOfDate)
	assert.Equal(t, asOf, *snap.AsOfDate)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, 1, snap.RisingStocks)
	assert.Equal(t, 1, snap.FallingStocks)
	assert.InDelta(t, 0.5, snap.AvgReturn, 1e-9)
	assert.Equal(t, 2.0, snap.MaxReturn)
	assert.Equal(t, -1.0, snap.MinReturn)
	assert.Equal(t, "1101.TW", snap.TopStock)
	assert.InDelta(t, math.Sqrt(4.5), snap.MarketVolatility, 1e-9)

	// 상승/하락 거래량
	assert.Equal(t, int64(100), snap.UpVolume)
	assert.Equal(t, int64(300), snap.DownVolume)
	require.NotNil(t, snap.UpDownRatio)
	assert.InDelta(t, 1.0/3.0, *snap.UpDownRatio, 1e-9)
}

func TestAggregate_EmptyCrossSection(t *testing.T) {
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonWeekly, contracts.MarketOTC, nil)

	assert.Equal(t, 0, snap.Total)
	assert.Equal(t, 0.0, snap.AboveMA20Pct)
	assert.Equal(t, 0.0, snap.AboveMA60Pct)
	assert.Equal(t, 0.0, snap.BothAbovePct)
	assert.Equal(t, "N/A", snap.TopStock)
	assert.Nil(t, snap.UpDownRatio)
	assert.Equal(t, 0.0, snap.MarketVolatility)
	assert.Equal(t, contracts.HorizonWeekly, snap.Horizon)
}

func TestAggregate_MarketFilter(t *testing.T) {
	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", contracts.Float(3), window("2330.TW", []float64{10}, 1)),
		entry("6488.TWO", contracts.Float(9), window("6488.TWO", []float64{10}, 1)),
		entry("^TWII", contracts.Float(50), window("^TWII", []float64{10}, 1)),
	}
	agg := newTestAggregator()

	listed := agg.Aggregate(asOf, contracts.HorizonDaily, contracts.MarketListed, entries)
	assert.Equal(t, 1, listed.Total)
	assert.Equal(t, "2330.TW", listed.TopStock)

	all := agg.Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)
	assert.Equal(t, 2, all.Total, "index tickers never join the cross-section")
	assert.Equal(t, "6488.TWO", all.TopStock)
}

func TestAggregate_TopStockTieBreak(t *testing.T) {
	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", contracts.Float(5), nil),
		entry("1101.TW", contracts.Float(5), nil),
	}
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)
	assert.Equal(t, "1101.TW", snap.TopStock)
}

func TestAggregate_AllReturnsAbsent(t *testing.T) {
	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", nil, window("2330.TW", []float64{10, 11}, 1)),
	}
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)

	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 0.0, snap.AvgReturn)
	assert.Equal(t, 0.0, snap.MaxReturn)
	assert.Equal(t, "N/A", snap.TopStock)
}

func TestAggregate_NewHighIsStrict(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   int
	}{
		{"equal to prior max", []float64{10, 12, 11, 12}, 0},
		{"above prior max", []float64{10, 12, 11, 13}, 1},
		{"no prior rows", []float64{13}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []contracts.CrossSectionEntry{
				entry("2330.TW", contracts.Float(1), window("2330.TW", tt.closes, 1)),
			}
			snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)
			assert.Equal(t, tt.want, snap.NewHighStocks)
		})
	}
}

func TestAggregate_NewHighLookbackWindow(t *testing.T) {
	cfg := engineconfig.Default().Statistics
	cfg.NewHighLookback = 2
	agg := NewAggregator(cfg)

	// 100은 lookback 밖 → 신고가
	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", contracts.Float(1), window("2330.TW", []float64{100, 10, 11, 12}, 1)),
	}
	snap := agg.Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)
	assert.Equal(t, 1, snap.NewHighStocks)
}

func TestAggregate_NearHigh(t *testing.T) {
	near := window("2330.TW", []float64{9.6}, 1)
	near[0].High = 10
	far := window("1101.TW", []float64{9.5}, 1)
	far[0].High = 10

	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", contracts.Float(1), near),
		entry("1101.TW", contracts.Float(1), far),
	}
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)
	assert.Equal(t, 1, snap.NearHighStocks)
}

func TestAggregate_MovingAverages(t *testing.T) {
	rising := make([]float64, 60)
	falling := make([]float64, 60)
	for i := range rising {
		rising[i] = float64(i + 1)
		falling[i] = float64(60 - i)
	}
	// 최근 20일만 상승, 60일 평균보다는 아래
	dip := make([]float64, 60)
	for i := range dip {
		switch {
		case i < 40:
			dip[i] = 100
		default:
			dip[i] = float64(i) // 40..59
		}
	}

	entries := []contracts.CrossSectionEntry{
		entry("1101.TW", contracts.Float(1), window("1101.TW", rising, 1)),
		entry("1102.TW", contracts.Float(1), window("1102.TW", falling, 1)),
		entry("1103.TW", contracts.Float(1), window("1103.TW", dip, 1)),
		entry("1104.TW", contracts.Float(1), nil), // 가격 없음 → 분모에는 포함
	}
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)

	assert.InDelta(t, 50.0, snap.AboveMA20Pct, 1e-9)
	assert.InDelta(t, 25.0, snap.AboveMA60Pct, 1e-9)
	assert.InDelta(t, 25.0, snap.BothAbovePct, 1e-9)
}

func TestAggregate_VolumeSurge(t *testing.T) {
	surge := window("2330.TW", make([]float64, 20), 100)
	surge[19].Volume = 300

	mild := window("1101.TW", make([]float64, 20), 100)
	mild[19].Volume = 160

	quiet := window("6488.TWO", make([]float64, 20), 0)

	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", contracts.Float(1), surge),
		entry("1101.TW", contracts.Float(1), mild),
		entry("6488.TWO", contracts.Float(1), quiet),
	}
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)

	// median 0 이면 volume >= 0 → 카운트됨 (규칙 그대로)
	assert.Equal(t, 3, snap.VolSurgeUp)
	assert.Equal(t, 2, snap.Over2xCount)
	// 평균 배수는 median > 0 인 종목만: (3.0 + 1.6) / 2
	assert.InDelta(t, 2.3, snap.MedianVolMultiplier, 1e-9)
}

func TestAggregate_UpDownRatioAbsentWithoutDownVolume(t *testing.T) {
	entries := []contracts.CrossSectionEntry{
		entry("2330.TW", contracts.Float(1), window("2330.TW", []float64{10}, 100)),
	}
	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonDaily, contracts.MarketAll, entries)
	assert.Equal(t, int64(100), snap.UpVolume)
	assert.Nil(t, snap.UpDownRatio)
}

func TestAggregate_UsesSelectedHorizon(t *testing.T) {
	e := entry("2330.TW", contracts.Float(1), nil)
	e.Return.Monthly = contracts.Float(-4)

	snap := newTestAggregator().Aggregate(asOf, contracts.HorizonMonthly, contracts.MarketAll, []contracts.CrossSectionEntry{e})
	assert.Equal(t, 0, snap.RisingStocks)
	assert.Equal(t, 1, snap.FallingStocks)
	assert.Equal(t, -4.0, snap.MinReturn)
}
