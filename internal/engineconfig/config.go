package engineconfig

import "github.com/wonny/quantgem/backend/internal/contracts"

// Config는 수익률 엔진의 전체 설정
type Config struct {
	Horizons   HorizonOffsets `yaml:"horizons" json:"horizons"`
	Ranking    Ranking        `yaml:"ranking" json:"ranking"`
	Statistics Statistics     `yaml:"statistics" json:"statistics"`
}

// HorizonOffsets is the lookback table in trading-day offsets
type HorizonOffsets struct {
	Daily     int `yaml:"daily" json:"daily"`
	Weekly    int `yaml:"weekly" json:"weekly"`
	Monthly   int `yaml:"monthly" json:"monthly"`
	Quarterly int `yaml:"quarterly" json:"quarterly"`
	Yearly    int `yaml:"yearly" json:"yearly"`
}

// Offset returns the offset for a horizon (0 if unknown)
func (o HorizonOffsets) Offset(h contracts.Horizon) int {
	switch h {
	case contracts.HorizonDaily:
		return o.Daily
	case contracts.HorizonWeekly:
		return o.Weekly
	case contracts.HorizonMonthly:
		return o.Monthly
	case contracts.HorizonQuarterly:
		return o.Quarterly
	case contracts.HorizonYearly:
		return o.Yearly
	default:
		return 0
	}
}

// Ranking presentation-time filters
type Ranking struct {
	DailyMaxReturn   float64 `yaml:"daily_max_return" json:"daily_max_return"`     // 일간 10% 초과 제외
	WeeklyMaxReturn  float64 `yaml:"weekly_max_return" json:"weekly_max_return"`   // 주간 50% 초과 제외
	ExtremeAbsReturn float64 `yaml:"extreme_abs_return" json:"extreme_abs_return"` // |r| > 20
	TopFraction      float64 `yaml:"top_fraction" json:"top_fraction"`             // top10 = ceil(n*0.1)
	OversampleFactor int     `yaml:"oversample_factor" json:"oversample_factor"`   // daily/weekly 사전 샘플 배수
	MaxSample        int     `yaml:"max_sample" json:"max_sample"`
}

// Statistics cross-section windows and thresholds
type Statistics struct {
	MAShort               int     `yaml:"ma_short" json:"ma_short"`
	MALong                int     `yaml:"ma_long" json:"ma_long"`
	VolumeMedianWindow    int     `yaml:"volume_median_window" json:"volume_median_window"`
	NewHighLookback       int     `yaml:"new_high_lookback" json:"new_high_lookback"` // 52주 ≈ 252 거래일
	NearHighRatio         float64 `yaml:"near_high_ratio" json:"near_high_ratio"`
	SurgeMultiplier       float64 `yaml:"surge_multiplier" json:"surge_multiplier"`
	StrongSurgeMultiplier float64 `yaml:"strong_surge_multiplier" json:"strong_surge_multiplier"`
}

// PriceDepth is how many trailing price rows the statistics need per symbol
func (s Statistics) PriceDepth() int {
	depth := s.NewHighLookback + 1
	for _, n := range []int{s.MAShort, s.MALong, s.VolumeMedianWindow} {
		if n > depth {
			depth = n
		}
	}
	return depth
}

// Default returns the canonical settings
func Default() *Config {
	return &Config{
		Horizons: HorizonOffsets{
			Daily:     contracts.DefaultOffsets[contracts.HorizonDaily],
			Weekly:    contracts.DefaultOffsets[contracts.HorizonWeekly],
			Monthly:   contracts.DefaultOffsets[contracts.HorizonMonthly],
			Quarterly: contracts.DefaultOffsets[contracts.HorizonQuarterly],
			Yearly:    contracts.DefaultOffsets[contracts.HorizonYearly],
		},
		Ranking: Ranking{
			DailyMaxReturn:   10,
			WeeklyMaxReturn:  50,
			ExtremeAbsReturn: 20,
			TopFraction:      0.1,
			OversampleFactor: 10,
			MaxSample:        5000,
		},
		Statistics: Statistics{
			MAShort:               20,
			MALong:                60,
			VolumeMedianWindow:    20,
			NewHighLookback:       252,
			NearHighRatio:         0.95,
			SurgeMultiplier:       1.5,
			StrongSurgeMultiplier: 2.0,
		},
	}
}
