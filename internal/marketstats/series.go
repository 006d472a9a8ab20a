package marketstats

import (
	"math"
	"sort"

	"github.com/wonny/quantgem/backend/internal/contracts"
)

// SMA is the mean of the last n values. With fewer than n values it
// averages what is there (a young listing still gets an MA).
// ok=false only when values is empty or n <= 0.
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) == 0 {
		return 0, false
	}
	start := len(values) - n
	if start < 0 {
		start = 0
	}

	sum := 0.0
	for _, v := range values[start:] {
		sum += v
	}
	return sum / float64(len(values)-start), true
}

// Median returns the interpolated median (50th percentile, continuous)
func Median(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

// SampleStdDev is the n-1 standard deviation; 0 for fewer than 2 values
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

// PriorMaxClose is the highest close among up to `lookback` rows before
// the last row. ok=false when there is no prior row.
// 마지막 행(기준일) 자체는 제외 → lookahead 없음
func PriorMaxClose(prices []contracts.PricePoint, lookback int) (float64, bool) {
	if len(prices) < 2 || lookback <= 0 {
		return 0, false
	}

	end := len(prices) - 1
	start := end - lookback
	if start < 0 {
		start = 0
	}

	maxClose := math.Inf(-1)
	for _, p := range prices[start:end] {
		if p.Close > maxClose {
			maxClose = p.Close
		}
	}
	return maxClose, true
}

func closes(prices []contracts.PricePoint) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Close
	}
	return out
}

func volumes(prices []contracts.PricePoint, n int) []float64 {
	start := len(prices) - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, len(prices)-start)
	for _, p := range prices[start:] {
		out = append(out, float64(p.Volume))
	}
	return out
}
