package contracts

import (
	"fmt"
	"regexp"
	"strings"
)

// Market is a market-segment filter
type Market string

const (
	MarketAll    Market = "all"
	MarketListed Market = "listed" // TWSE, 1234.TW
	MarketOTC    Market = "otc"    // TPEx, 1234.TWO
)

var (
	listedSymbol = regexp.MustCompile(`^[0-9]{4}\.TW$`)
	otcSymbol    = regexp.MustCompile(`^[0-9]{4}\.TWO$`)
)

// ParseMarket parses a market query value. Empty input means all.
func ParseMarket(s string) (Market, error) {
	switch m := Market(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MarketAll, nil
	case MarketAll, MarketListed, MarketOTC:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMarket, s)
	}
}

// ClassifySymbol returns the segment a symbol belongs to.
// Index tickers (^TWII) and non 4-digit codes are not classified.
func ClassifySymbol(symbol string) (Market, bool) {
	switch {
	case listedSymbol.MatchString(symbol):
		return MarketListed, true
	case otcSymbol.MatchString(symbol):
		return MarketOTC, true
	default:
		return "", false
	}
}

// Includes reports whether symbol is part of this market's cross-section
func (m Market) Includes(symbol string) bool {
	seg, ok := ClassifySymbol(symbol)
	if !ok {
		return false
	}
	return m == MarketAll || m == seg
}

// ReturnRange is the optional ranking range filter
type ReturnRange string

const (
	RangeAll      ReturnRange = "all"
	RangePositive ReturnRange = "positive"
	RangeNegative ReturnRange = "negative"
	RangeTop10    ReturnRange = "top10"
	RangeExtreme  ReturnRange = "extreme"
)

// ParseReturnRange parses a returnRange query value. Empty input means all.
func ParseReturnRange(s string) (ReturnRange, error) {
	switch r := ReturnRange(strings.ToLower(strings.TrimSpace(s))); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangePositive, RangeNegative, RangeTop10, RangeExtreme:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
}
