// Package report renders console output of the lp tools.
package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/you/lp-tools/internal/dex/univ3"
	"github.com/you/lp-tools/internal/liquidity"
)

const rule = "-------------------------"

// Money formats v as $1,234.56.
func Money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// ew копит первую ошибку записи, чтобы не проверять каждый Fprintf.
type ew struct {
	w   io.Writer
	err error
}

func (e *ew) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func Header(w io.Writer, title string) error {
	e := &ew{w: w}
	e.printf("--- %s ---\n", title)
	return e.err
}

// WritePrices печатает текущую цену пары и USD-цены обоих активов.
func WritePrices(w io.Writer, p liquidity.Pair, q liquidity.Quote) error {
	cur, err := p.CurrentPrice(q)
	if err != nil {
		return err
	}
	e := &ew{w: w}
	e.printf("  - Current price (%s): %.8f\n", p.PriceUnit(), cur)
	for _, a := range []liquidity.Asset{p.Low, p.High} {
		e.printf("  - Current %s price (USD): %s\n", a.Symbol, Money(q[a.PriceID]))
	}
	e.printf("%s\n\n", rule)
	return e.err
}

// WriteAllocation печатает требуемые количества и проверку стоимости.
func WriteAllocation(w io.Writer, a liquidity.Allocation, q liquidity.Quote) error {
	p := a.Pair
	v := a.Value(q)
	e := &ew{w: w}
	e.printf("--- Required Liquidity ---\n")
	e.printf("For a %s investment with a range of %.8f to %.8f %s:\n\n",
		Money(a.TotalUSD), a.Range.Min, a.Range.Max, p.PriceUnit())
	e.printf("  Position: %s\n", describe(a))
	e.printf("  You will need to supply:\n")
	e.printf("    - %.8f %s\n", a.AmountLow, p.Low.Symbol)
	e.printf("    - %.8f %s\n\n", a.AmountHigh, p.High.Symbol)

	e.printf("Value verification:\n")
	e.printf("  - %s Value: %s\n", p.Low.Symbol, Money(v.LowUSD))
	e.printf("  - %s Value: %s\n", p.High.Symbol, Money(v.HighUSD))
	e.printf("  - Total Calculated Value: %s", Money(v.TotalUSD))
	if !a.Verify(q, liquidity.DefaultTolerance) {
		e.printf("  (MISMATCH: expected %s)", Money(a.TotalUSD))
	}
	e.printf("\n")
	return e.err
}

func describe(a liquidity.Allocation) string {
	switch a.Composition {
	case liquidity.AllLow:
		return "out of range, 100% " + a.Pair.Low.Symbol
	case liquidity.AllHigh:
		return "out of range, 100% " + a.Pair.High.Symbol
	default:
		return "in range, both assets"
	}
}

// WritePosition печатает состояние позиции Uniswap V3.
func WritePosition(w io.Writer, info univ3.PositionInfo) error {
	s0, s1 := info.Token0.Symbol, info.Token1.Symbol
	e := &ew{w: w}

	e.printf("\n--- Pool Information ---\n")
	e.printf("Pool Address: %s\n", info.Pool.Hex())
	e.printf("Tokens: %s / %s\n", s0, s1)
	e.printf("Fee Tier: %s%%\n", humanize.Ftoa(info.FeePercent()))

	e.printf("\n--- Current Market Price ---\n")
	e.printf("1 %s = %s %s\n", s0, price(info.Price), s1)
	e.printf("1 %s = %s %s\n", s1, price(inv(info.Price)), s0)
	e.printf("Current Tick: %d\n", info.Slot0.Tick)

	e.printf("\n--- Your Position Details ---\n")
	e.printf("Liquidity: %s\n", info.Liquidity.String())
	status := "Out of Range"
	if info.InRange {
		status = "In Range"
	}
	e.printf("Status: %s\n", status)
	e.printf("Current amounts:\n")
	e.printf("  - %s %s\n", info.Token0.Amount(info.Amount0).StringFixed(int32(min(info.Token0.Decimals, 8))), s0)
	e.printf("  - %s %s\n", info.Token1.Amount(info.Amount1).StringFixed(int32(min(info.Token1.Decimals, 8))), s1)
	if owed(info) {
		e.printf("Uncollected (tokensOwed): %s %s, %s %s\n",
			info.Token0.Amount(info.TokensOwed0).String(), s0,
			info.Token1.Amount(info.TokensOwed1).String(), s1)
	}

	e.printf("\n--- Position Price Range ---\n")
	e.printf("Range (%s in terms of %s):\n", s0, s1)
	e.printf("  Lower: 1 %s = %s %s (Tick: %d)\n", s0, price(info.PriceLower), s1, info.TickLower)
	e.printf("  Upper: 1 %s = %s %s (Tick: %d)\n", s0, price(info.PriceUpper), s1, info.TickUpper)
	e.printf("\nRange (%s in terms of %s):\n", s1, s0)
	e.printf("  Lower: 1 %s = %s %s\n", s1, price(inv(info.PriceUpper)), s0)
	e.printf("  Upper: 1 %s = %s %s\n", s1, price(inv(info.PriceLower)), s0)
	return e.err
}

func owed(info univ3.PositionInfo) bool {
	return (info.TokensOwed0 != nil && info.TokensOwed0.Sign() > 0) ||
		(info.TokensOwed1 != nil && info.TokensOwed1.Sign() > 0)
}

func inv(p float64) float64 {
	if p == 0 {
		return 0
	}
	return 1 / p
}

// price: 6 знаков после запятой, для очень маленьких цен: экспонента.
func price(p float64) string {
	if p != 0 && p < 1e-6 {
		return fmt.Sprintf("%.6e", p)
	}
	return fmt.Sprintf("%.6f", p)
}

// WriteRatio печатает результат проверки ratio-monitor.
func WriteRatio(w io.Writer, quoteSym string, quoteUSD float64, baseSym string, baseUSD float64, ratio float64) error {
	e := &ew{w: w}
	e.printf("The current price of %s is: %s\n", quoteSym, Money(quoteUSD))
	e.printf("The current price of %s is: %s\n", baseSym, Money(baseUSD))
	e.printf("The %s/%s ratio is: %.8f\n", quoteSym, baseSym, ratio)
	return e.err
}
