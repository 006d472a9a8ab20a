package marketstats

import (
	"math"
	"sort"
	"time"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/engineconfig"
)

// Aggregator computes a MarketSnapshot over a materialized cross-section
// ⭐ SSOT: 시장 통계 정의는 여기서만 (SQL에 규칙을 두지 않음)
type Aggregator struct {
	cfg engineconfig.Statistics
}

// NewAggregator creates an aggregator with the given windows and thresholds
func NewAggregator(cfg engineconfig.Statistics) *Aggregator {
	return &Aggregator{cfg: cfg}
}

var _ contracts.StatisticsAggregator = (*Aggregator)(nil)

// Aggregate filters entries to the market and computes every statistic.
// Returns stay in stored units; scaling is a response concern.
func (a *Aggregator) Aggregate(
	asOf time.Time,
	horizon contracts.Horizon,
	market contracts.Market,
	entries []contracts.CrossSectionEntry,
) contracts.MarketSnapshot {
	asOfCopy := asOf
	snap := contracts.MarketSnapshot{
		AsOfDate: &asOfCopy,
		Horizon:  horizon,
		Market:   market,
		TopStock: "N/A",
	}

	section := make([]contracts.CrossSectionEntry, 0, len(entries))
	for _, e := range entries {
		if market.Includes(e.Symbol) {
			section = append(section, e)
		}
	}
	// tie-break 결정성: 심볼 순
	sort.SliceStable(section, func(i, j int) bool { return section[i].Symbol < section[j].Symbol })

	snap.Total = len(section)
	if snap.Total == 0 {
		return snap
	}

	var (
		rets                        []float64
		aboveShort, aboveLong, both int
		multSum                     float64
		multCount                   int
		hasMax                      bool
	)

	for i := range section {
		e := &section[i]

		var ret *float64
		if e.Return != nil {
			if v := e.Return.Get(horizon); v != nil && !math.IsNaN(*v) {
				ret = v
			}
		}
		if ret != nil {
			r := *ret
			rets = append(rets, r)
			if r > 0 {
				snap.RisingStocks++
			} else if r < 0 {
				snap.FallingStocks++
			}
			if !hasMax || r > snap.MaxReturn {
				snap.MaxReturn = r
				snap.TopStock = e.Symbol
			}
			if !hasMax || r < snap.MinReturn {
				snap.MinReturn = r
			}
			hasMax = true
		}

		latest, ok := e.Latest()
		if !ok {
			continue
		}

		// Highs
		if latest.Close > latest.High*a.cfg.NearHighRatio {
			snap.NearHighStocks++
		}
		if prior, ok := PriorMaxClose(e.Prices, a.cfg.NewHighLookback); ok && latest.Close > prior {
			snap.NewHighStocks++
		}

		// Moving averages
		cl := closes(e.Prices)
		maShort, okShort := SMA(cl, a.cfg.MAShort)
		maLong, okLong := SMA(cl, a.cfg.MALong)
		isAboveShort := okShort && latest.Close >= maShort
		isAboveLong := okLong && latest.Close >= maLong
		if isAboveShort {
			aboveShort++
		}
		if isAboveLong {
			aboveLong++
		}
		if isAboveShort && isAboveLong {
			both++
		}

		// Volume vs rolling median
		if med, ok := Median(volumes(e.Prices, a.cfg.VolumeMedianWindow)); ok {
			vol := float64(latest.Volume)
			if vol >= med*a.cfg.SurgeMultiplier {
				snap.VolSurgeUp++
			}
			if vol >= med*a.cfg.StrongSurgeMultiplier {
				snap.Over2xCount++
			}
			if med > 0 {
				multSum += vol / med
				multCount++
			}
		}

		// Up/down volume
		if ret != nil {
			switch {
			case *ret > 0:
				snap.UpVolume += latest.Volume
			case *ret < 0:
				snap.DownVolume += latest.Volume
			}
		}
	}

	if len(rets) > 0 {
		sum := 0.0
		for _, r := range rets {
			sum += r
		}
		snap.AvgReturn = sum / float64(len(rets))
	}

	total := float64(snap.Total)
	snap.AboveMA20Pct = float64(aboveShort) * 100 / total
	snap.AboveMA60Pct = float64(aboveLong) * 100 / total
	snap.BothAbovePct = float64(both) * 100 / total

	if multCount > 0 {
		snap.MedianVolMultiplier = multSum / float64(multCount)
	}
	if snap.DownVolume > 0 {
		ratio := float64(snap.UpVolume) / float64(snap.DownVolume)
		snap.UpDownRatio = &ratio
	}
	snap.MarketVolatility = SampleStdDev(rets)

	return snap
}
