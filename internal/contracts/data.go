package contracts

import "time"

// PricePoint is one daily observation for a symbol
// ⭐ SSOT: 가격 데이터 구조는 여기서만
type PricePoint struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ReturnRecord holds percent-scaled returns for one (symbol, date).
// A nil field means "not computable" and is distinct from 0.
// ⭐ SSOT: 수익률 레코드 구조는 여기서만
type ReturnRecord struct {
	Symbol     string    `json:"symbol"`
	Date       time.Time `json:"date"`
	Daily      *float64  `json:"dailyReturn"`
	Weekly     *float64  `json:"weeklyReturn"`
	Monthly    *float64  `json:"monthlyReturn"`
	Quarterly  *float64  `json:"quarterlyReturn"`
	Yearly     *float64  `json:"yearlyReturn"`
	Cumulative *float64  `json:"cumulativeReturn"`
}

// Get returns the field for a horizon
func (r *ReturnRecord) Get(h Horizon) *float64 {
	switch h {
	case HorizonDaily:
		return r.Daily
	case HorizonWeekly:
		return r.Weekly
	case HorizonMonthly:
		return r.Monthly
	case HorizonQuarterly:
		return r.Quarterly
	case HorizonYearly:
		return r.Yearly
	default:
		return nil
	}
}

// Set assigns the field for a horizon
func (r *ReturnRecord) Set(h Horizon, v *float64) {
	switch h {
	case HorizonDaily:
		r.Daily = v
	case HorizonWeekly:
		r.Weekly = v
	case HorizonMonthly:
		r.Monthly = v
	case HorizonQuarterly:
		r.Quarterly = v
	case HorizonYearly:
		r.Yearly = v
	}
}

// Stock is an entry from the instrument directory (read-only here)
type Stock struct {
	Symbol    string `json:"symbol"`
	Name      string `json:"name"`
	ShortName string `json:"short_name,omitempty"`
	Market    string `json:"market"`
	Industry  string `json:"industry,omitempty"`
}

// DisplayName prefers the short name like the stock list does
func (s Stock) DisplayName() string {
	if s.ShortName != "" {
		return s.ShortName
	}
	if s.Name != "" {
		return s.Name
	}
	return s.Symbol
}

// Float returns a pointer to v. Handy for building records.
func Float(v float64) *float64 {
	return &v
}
