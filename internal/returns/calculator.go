package returns

import (
	"math"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/engineconfig"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

// Calculator computes per-date horizon returns for one symbol
// ⭐ SSOT: 수익률 계산은 여기서만 (다른 경로 없음)
type Calculator struct {
	offsets engineconfig.HorizonOffsets
	logger  *logger.Logger
}

// NewCalculator creates a calculator for the given offset table
func NewCalculator(offsets engineconfig.HorizonOffsets, log *logger.Logger) *Calculator {
	return &Calculator{
		offsets: offsets,
		logger:  log.WithField("module", "returns.calculator"),
	}
}

var _ contracts.ReturnComputer = (*Calculator)(nil)

// Calculate returns one record per index i >= 1 of an ascending series.
// Fields that cannot be computed are nil, never 0. Values are not clamped.
func (c *Calculator) Calculate(symbol string, series []contracts.PricePoint) []contracts.ReturnRecord {
	if len(series) < 2 {
		return nil
	}

	records := make([]contracts.ReturnRecord, 0, len(series)-1)
	base := series[0].Close

	for i := 1; i < len(series); i++ {
		cur := series[i]
		rec := contracts.ReturnRecord{
			Symbol: symbol,
			Date:   cur.Date,
		}

		if !isFinite(cur.Close) {
			// 레코드는 남기고 모든 필드 absent
			c.logger.WithFields(map[string]interface{}{
				"symbol": symbol,
				"date":   cur.Date.Format("2006-01-02"),
			}).Warn("Non-finite close, skipping point")
			records = append(records, rec)
			continue
		}

		// daily: 항상 직전 엔트리
		rec.Daily = pctChange(cur.Close, series[i-1].Close)

		for _, h := range contracts.Horizons {
			if h == contracts.HorizonDaily {
				continue
			}
			ref, ok := Resolve(series, i, c.offsets.Offset(h))
			if !ok {
				continue
			}
			rec.Set(h, pctChange(cur.Close, ref))
		}

		rec.Cumulative = pctChange(cur.Close, base)
		records = append(records, rec)
	}

	return records
}

// pctChange returns (cur-ref)/ref*100 or nil when ref is unusable
func pctChange(cur, ref float64) *float64 {
	if ref == 0 || !isFinite(ref) || !isFinite(cur) {
		return nil
	}
	r := (cur - ref) / ref * 100
	if !isFinite(r) {
		return nil
	}
	return &r
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
