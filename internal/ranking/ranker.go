package ranking

import (
	"math"
	"sort"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/engineconfig"
	"github.com/wonny/quantgem/backend/internal/returns"
)

// Params controls one ranking request
type Params struct {
	Horizon         contracts.Horizon
	Market          contracts.Market
	Range           contracts.ReturnRange
	VolumeThreshold int64 // 0 = no filter
	Limit           int
	Offset          int
}

// Ranker orders a cross-section by return and applies presentation filters
// ⭐ SSOT: 랭킹 규칙은 여기서만
type Ranker struct {
	cfg engineconfig.Ranking
}

// NewRanker creates a ranker with the given thresholds
func NewRanker(cfg engineconfig.Ranking) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank runs the pipeline:
//  1. market + volume filter
//  2. stable sort by return desc, absent last
//  3. rank 1..n (position in the market, before filters)
//  4. sample cut (oversampled for short horizons)
//  5. percent normalization, sanity filter, range filter
//  6. offset/limit
func (r *Ranker) Rank(obs []contracts.Observation, p Params) []contracts.RankedReturn {
	rows := make([]contracts.Observation, 0, len(obs))
	for _, o := range obs {
		if !p.Market.Includes(o.Symbol) {
			continue
		}
		if p.VolumeThreshold > 0 {
			var vol int64
			if o.Volume != nil {
				vol = *o.Volume
			}
			if vol < p.VolumeThreshold {
				continue
			}
		}
		rows = append(rows, o)
	}

	SortByReturn(rows)

	ranked := make([]contracts.RankedReturn, len(rows))
	for i, o := range rows {
		ranked[i] = toRanked(o, i+1)
	}

	if n := r.SampleSize(p); len(ranked) > n {
		ranked = ranked[:n]
	}

	ranked = r.sanityFilter(ranked, p.Horizon)
	ranked = r.rangeFilter(ranked, p.Range)

	return paginate(ranked, p.Offset, p.Limit)
}

// SampleSize is how many ranked rows are considered before filters.
// daily/weekly는 필터 후 결과가 비지 않도록 배수만큼 더 가져옴
func (r *Ranker) SampleSize(p Params) int {
	want := p.Offset + p.Limit
	if want < 1 {
		want = 1
	}
	if p.Horizon.IsShort() {
		want *= r.cfg.OversampleFactor
	}
	if want > r.cfg.MaxSample {
		want = r.cfg.MaxSample
	}
	return want
}

// SortByReturn sorts descending by ReturnRate, absent (nil/NaN) last, stable
func SortByReturn(rows []contracts.Observation) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].ReturnRate, rows[j].ReturnRate
		aOK := a != nil && !math.IsNaN(*a)
		bOK := b != nil && !math.IsNaN(*b)
		if aOK != bOK {
			return aOK
		}
		if !aOK {
			return false
		}
		return *a > *b
	})
}

func toRanked(o contracts.Observation, rank int) contracts.RankedReturn {
	row := contracts.RankedReturn{
		Symbol:           o.Symbol,
		Name:             o.Name,
		Market:           o.Market,
		ReturnRate:       returns.ToPercent(o.ReturnRate),
		CumulativeReturn: returns.ToPercent(o.CumulativeReturn),
		Volume:           o.Volume,
		Rank:             rank,
	}
	if row.Name == "" {
		row.Name = o.Symbol
	}
	if row.Market == "" {
		if seg, ok := contracts.ClassifySymbol(o.Symbol); ok {
			row.Market = string(seg)
		}
	}

	if o.Close != nil {
		closePrice := *o.Close
		open := closePrice
		if o.Open != nil {
			open = *o.Open
		}
		change := closePrice - open
		row.CurrentPrice = &closePrice
		row.PriceChange = &change
	}
	return row
}

// sanityFilter drops implausible short-horizon values; absent rows stay
func (r *Ranker) sanityFilter(rows []contracts.RankedReturn, h contracts.Horizon) []contracts.RankedReturn {
	var ceiling float64
	switch h {
	case contracts.HorizonDaily:
		ceiling = r.cfg.DailyMaxReturn
	case contracts.HorizonWeekly:
		ceiling = r.cfg.WeeklyMaxReturn
	default:
		return rows
	}

	out := rows[:0:0]
	for _, row := range rows {
		if row.ReturnRate != nil && *row.ReturnRate > ceiling {
			continue
		}
		out = append(out, row)
	}
	return out
}

func (r *Ranker) rangeFilter(rows []contracts.RankedReturn, rng contracts.ReturnRange) []contracts.RankedReturn {
	keep := func(pred func(v float64) bool) []contracts.RankedReturn {
		out := rows[:0:0]
		for _, row := range rows {
			if row.ReturnRate != nil && pred(*row.ReturnRate) {
				out = append(out, row)
			}
		}
		return out
	}

	switch rng {
	case contracts.RangePositive:
		return keep(func(v float64) bool { return v > 0 })
	case contracts.RangeNegative:
		return keep(func(v float64) bool { return v < 0 })
	case contracts.RangeExtreme:
		return keep(func(v float64) bool { return math.Abs(v) > r.cfg.ExtremeAbsReturn })
	case contracts.RangeTop10:
		n := int(math.Ceil(float64(len(rows)) * r.cfg.TopFraction))
		return rows[:n]
	default:
		return rows
	}
}

func paginate(rows []contracts.RankedReturn, offset, limit int) []contracts.RankedReturn {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []contracts.RankedReturn{}
	}
	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return rows[offset:end]
}
