package engineconfig

import "fmt"

// ValidationError 검증 실패
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Horizons ===
	// daily is always the previous entry
	if cfg.Horizons.Daily != 1 {
		return ValidationError{"horizons.daily", "must be 1"}
	}
	offsets := []struct {
		field string
		value int
	}{
		{"horizons.weekly", cfg.Horizons.Weekly},
		{"horizons.monthly", cfg.Horizons.Monthly},
		{"horizons.quarterly", cfg.Horizons.Quarterly},
		{"horizons.yearly", cfg.Horizons.Yearly},
	}
	prev := cfg.Horizons.Daily
	for _, o := range offsets {
		if o.value <= prev {
			return ValidationError{o.field, fmt.Sprintf("must be > %d", prev)}
		}
		prev = o.value
	}

	// === Ranking ===
	if cfg.Ranking.DailyMaxReturn <= 0 {
		return ValidationError{"ranking.daily_max_return", "must be > 0"}
	}
	if cfg.Ranking.WeeklyMaxReturn <= 0 {
		return ValidationError{"ranking.weekly_max_return", "must be > 0"}
	}
	if cfg.Ranking.ExtremeAbsReturn <= 0 {
		return ValidationError{"ranking.extreme_abs_return", "must be > 0"}
	}
	if cfg.Ranking.TopFraction <= 0 || cfg.Ranking.TopFraction > 1 {
		return ValidationError{"ranking.top_fraction", "must be in (0, 1]"}
	}
	if cfg.Ranking.OversampleFactor < 1 {
		return ValidationError{"ranking.oversample_factor", "must be >= 1"}
	}
	if cfg.Ranking.MaxSample < 1 {
		return ValidationError{"ranking.max_sample", "must be >= 1"}
	}

	// === Statistics ===
	s := cfg.Statistics
	if s.MAShort <= 0 || s.MALong <= 0 {
		return ValidationError{"statistics.ma_short/ma_long", "must be > 0"}
	}
	if s.MAShort >= s.MALong {
		return ValidationError{"statistics.ma_short", "must be < ma_long"}
	}
	if s.VolumeMedianWindow <= 0 {
		return ValidationError{"statistics.volume_median_window", "must be > 0"}
	}
	if s.NewHighLookback <= 0 {
		return ValidationError{"statistics.new_high_lookback", "must be > 0"}
	}
	if s.NearHighRatio <= 0 || s.NearHighRatio > 1 {
		return ValidationError{"statistics.near_high_ratio", "must be in (0, 1]"}
	}
	if s.SurgeMultiplier <= 0 || s.StrongSurgeMultiplier < s.SurgeMultiplier {
		return ValidationError{"statistics.surge_multiplier", "must be > 0 and <= strong_surge_multiplier"}
	}

	return nil
}
