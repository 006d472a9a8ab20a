package contracts

import "errors"

// Query-boundary errors. Handlers map these with errors.Is.
var (
	ErrInvalidHorizon = errors.New("invalid period")
	ErrInvalidMarket  = errors.New("invalid market")
	ErrInvalidRange   = errors.New("invalid return range")
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidSeries  = errors.New("invalid price series")
	ErrInvalidSymbol  = errors.New("invalid symbol")

	// ErrNoData means nothing exists at or before the requested date.
	ErrNoData = errors.New("no data")
)
