package returns

import (
	"math"

	"github.com/wonny/quantgem/backend/internal/contracts"
)

// ToPercent converts a stored return to percent units at read time.
// |v| <= 1 is treated as a fraction and multiplied by 100; anything
// larger is assumed to already be a percentage. nil stays nil.
//
// 저장 단위와 무관하게 응답 경계에서만 적용 (DB에는 절대 쓰지 않음)
func ToPercent(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := ToPercentValue(*v)
	return &out
}

// ToPercentValue is ToPercent for a plain value. NaN/Inf pass through.
func ToPercentValue(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if math.Abs(v) <= 1 {
		return v * 100
	}
	return v
}

// NormalizeRecord applies ToPercent to every return field
func NormalizeRecord(rec contracts.ReturnRecord) contracts.ReturnRecord {
	out := rec
	for _, h := range contracts.Horizons {
		out.Set(h, ToPercent(rec.Get(h)))
	}
	out.Cumulative = ToPercent(rec.Cumulative)
	return out
}

// ScaleSnapshot applies the fraction heuristic to a whole snapshot.
// avg/max/min are rescaled together, and only when both extremes look
// like fractions. Scaling each field alone would turn a quiet day's
// 0.4% average into 40%.
func ScaleSnapshot(s contracts.MarketSnapshot) contracts.MarketSnapshot {
	if s.Total == 0 {
		return s
	}
	if math.Abs(s.MaxReturn) <= 1 && math.Abs(s.MinReturn) <= 1 {
		s.AvgReturn *= 100
		s.MaxReturn *= 100
		s.MinReturn *= 100
	}
	return s
}
