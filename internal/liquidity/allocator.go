// Package liquidity computes the token amounts a Uniswap V3 concentrated-liquidity
// position needs for a given fiat budget, price range and current price.
//
// Naming: the Low asset is the one a position holds entirely when the price sits at
// or below the range (token0 in pool terms), the High asset is held entirely at or
// above the range (token1). The native price is High per Low.
package liquidity

import (
	"fmt"
	"math"
)

// Orientation says in which direction callers quote prices.
type Orientation int

const (
	// HighPerLow: сколько High за 1 Low (нативная ориентация формулы).
	HighPerLow Orientation = iota
	// LowPerHigh: сколько Low за 1 High; диапазон и цена инвертируются перед расчётом.
	LowPerHigh
)

func (o Orientation) String() string {
	switch o {
	case HighPerLow:
		return "high_per_low"
	case LowPerHigh:
		return "low_per_high"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation accepts the config spelling of an orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "", "high_per_low":
		return HighPerLow, nil
	case "low_per_high":
		return LowPerHigh, nil
	default:
		return 0, fmt.Errorf("%w: unknown orientation %q", ErrInvalidInput, s)
	}
}

type Asset struct {
	Symbol  string // "WBTC"
	PriceID string // id в прайс-фиде, например "wrapped-bitcoin"
}

type Pair struct {
	Name        string
	Low         Asset
	High        Asset
	Orientation Orientation
}

// PriceUnit is the human label of the quoted price, e.g. "WBTC per ETH".
func (p Pair) PriceUnit() string {
	if p.Orientation == LowPerHigh {
		return p.Low.Symbol + " per " + p.High.Symbol
	}
	return p.High.Symbol + " per " + p.Low.Symbol
}

// CurrentPrice derives the pair price from USD quotes, in the pair's orientation.
func (p Pair) CurrentPrice(q Quote) (float64, error) {
	lowUSD, err := q.USD(p.Low)
	if err != nil {
		return 0, err
	}
	highUSD, err := q.USD(p.High)
	if err != nil {
		return 0, err
	}
	if p.Orientation == LowPerHigh {
		return highUSD / lowUSD, nil
	}
	return lowUSD / highUSD, nil
}

// Quote maps a price-feed id to a USD unit price.
type Quote map[string]float64

func (q Quote) USD(a Asset) (float64, error) {
	v, ok := q[a.PriceID]
	if !ok {
		return 0, fmt.Errorf("%w: no USD price for %s", ErrInvalidInput, a.PriceID)
	}
	if !positive(v) {
		return 0, fmt.Errorf("%w: USD price for %s must be > 0, got %v", ErrInvalidInput, a.PriceID, v)
	}
	return v, nil
}

type PriceRange struct {
	Min float64
	Max float64
}

func (r PriceRange) Validate() error {
	// !(min < max) ловит и NaN
	if !(r.Min < r.Max) {
		return fmt.Errorf("%w (min=%v max=%v)", ErrInvalidRange, r.Min, r.Max)
	}
	if !positive(r.Min) || !positive(r.Max) {
		return fmt.Errorf("%w: range bounds must be positive and finite (min=%v max=%v)", ErrInvalidInput, r.Min, r.Max)
	}
	return nil
}

func (r PriceRange) inverted() PriceRange {
	return PriceRange{Min: 1 / r.Max, Max: 1 / r.Min}
}

type Composition int

const (
	AllLow Composition = iota
	AllHigh
	Mixed
)

func (c Composition) String() string {
	switch c {
	case AllLow:
		return "all_low"
	case AllHigh:
		return "all_high"
	default:
		return "mixed"
	}
}

type Request struct {
	TotalUSD float64
	Range    PriceRange // in the pair's orientation
	Current  float64    // in the pair's orientation
	Quote    Quote
}

type Allocation struct {
	Pair        Pair
	TotalUSD    float64
	Range       PriceRange // as requested, pair orientation
	Current     float64
	AmountLow   float64
	AmountHigh  float64
	Liquidity   float64 // virtual L in USD-weighted units, 0 for single-sided positions
	Composition Composition
}

// Allocate splits req.TotalUSD between the pair's assets.
func Allocate(p Pair, req Request) (Allocation, error) {
	if err := req.Range.Validate(); err != nil {
		return Allocation{}, err
	}
	if !positive(req.TotalUSD) {
		return Allocation{}, fmt.Errorf("%w: total must be > 0, got %v", ErrInvalidInput, req.TotalUSD)
	}
	if !positive(req.Current) {
		return Allocation{}, fmt.Errorf("%w: current price must be > 0, got %v", ErrInvalidInput, req.Current)
	}
	lowUSD, err := req.Quote.USD(p.Low)
	if err != nil {
		return Allocation{}, err
	}
	highUSD, err := req.Quote.USD(p.High)
	if err != nil {
		return Allocation{}, err
	}

	rng, cur := req.Range, req.Current
	if p.Orientation == LowPerHigh {
		rng, cur = rng.inverted(), 1/cur
	}

	amtLow, amtHigh, l, comp, err := Amounts(req.TotalUSD, rng, cur, lowUSD, highUSD)
	if err != nil {
		return Allocation{}, err
	}
	return Allocation{
		Pair:        p,
		TotalUSD:    req.TotalUSD,
		Range:       req.Range,
		Current:     req.Current,
		AmountLow:   amtLow,
		AmountHigh:  amtHigh,
		Liquidity:   l,
		Composition: comp,
	}, nil
}

// Amounts is the bare formula in native (High per Low) orientation. Inputs are
// expected to be validated; only the range order and the denominator are checked here.
func Amounts(totalUSD float64, r PriceRange, current, lowUSD, highUSD float64) (amountLow, amountHigh, liq float64, c Composition, err error) {
	if !(r.Min < r.Max) {
		return 0, 0, 0, 0, fmt.Errorf("%w (min=%v max=%v)", ErrInvalidRange, r.Min, r.Max)
	}

	switch {
	case current <= r.Min:
		return totalUSD / lowUSD, 0, 0, AllLow, nil
	case current >= r.Max:
		return 0, totalUSD / highUSD, 0, AllHigh, nil
	}

	s := math.Sqrt(current)
	sMin := math.Sqrt(r.Min)
	sMax := math.Sqrt(r.Max)
	// у самой границы корень округляется до sMin/sMax, одна из ног обнуляется
	switch {
	case s <= sMin:
		return totalUSD / lowUSD, 0, 0, AllLow, nil
	case s >= sMax:
		return 0, totalUSD / highUSD, 0, AllHigh, nil
	}

	perLowL := (sMax - s) / (s * sMax) // Low на единицу L
	perHighL := s - sMin               // High на единицу L

	denom := perLowL*lowUSD + perHighL*highUSD
	if denom == 0 || !finite(denom) {
		return 0, 0, 0, 0, fmt.Errorf("%w: denominator %v", ErrDegenerateAllocation, denom)
	}
	liq = totalUSD / denom
	amountLow = liq * perLowL
	amountHigh = liq * perHighL
	if !positive(amountLow) || !positive(amountHigh) {
		return 0, 0, 0, 0, fmt.Errorf("%w: amounts %v/%v", ErrDegenerateAllocation, amountLow, amountHigh)
	}
	return amountLow, amountHigh, liq, Mixed, nil
}

type Valuation struct {
	LowUSD   float64
	HighUSD  float64
	TotalUSD float64
}

// Value prices the allocation back into USD.
func (a Allocation) Value(q Quote) Valuation {
	v := Valuation{
		LowUSD:  a.AmountLow * q[a.Pair.Low.PriceID],
		HighUSD: a.AmountHigh * q[a.Pair.High.PriceID],
	}
	v.TotalUSD = v.LowUSD + v.HighUSD
	return v
}

// DefaultTolerance is the relative tolerance used by Verify.
const DefaultTolerance = 1e-6

// Verify reports whether the allocation is worth a.TotalUSD within relative tolerance.
func (a Allocation) Verify(q Quote, tol float64) bool {
	if a.TotalUSD == 0 {
		return a.Value(q).TotalUSD == 0
	}
	return math.Abs(a.Value(q).TotalUSD-a.TotalUSD)/a.TotalUSD <= tol
}

func finite(f float64) bool   { return !math.IsNaN(f) && !math.IsInf(f, 0) }
func positive(f float64) bool { return finite(f) && f > 0 }
