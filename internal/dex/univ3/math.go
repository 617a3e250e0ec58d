package univ3

import (
	"bytes"
	"fmt"
	"math"
	"math/big"

	"github.com/daoleno/uniswapv3-sdk/utils"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var q96 = new(big.Int).Lsh(big.NewInt(1), 96)

// TickToPrice: цена token1 за 1 token0 в человеческих единицах.
func TickToPrice(tick, dec0, dec1 int) float64 {
	return math.Pow(1.0001, float64(tick)) * math.Pow10(dec0-dec1)
}

// SqrtPriceX96ToPrice переводит sqrtPriceX96 из slot0 в цену token1 за 1 token0:
// (sqrt / 2^96)^2 * 10^(dec0 - dec1).
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, dec0, dec1 int) (float64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0, fmt.Errorf("bad sqrtPriceX96")
	}
	f := new(big.Float).SetPrec(256).SetInt(sqrtPriceX96)
	f.Mul(f, f)
	// делим на 2^192 без потери точности
	f.SetMantExp(f, -192)
	raw, _ := f.Float64()
	return raw * math.Pow10(dec0-dec1), nil
}

// InRange: границы включительно: tickLower <= tick <= tickUpper.
func InRange(tickLower, tickUpper, tick int) bool {
	return tickLower <= tick && tick <= tickUpper
}

// SortTokens возвращает адреса в порядке token0/token1 пула.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		return b, a
	}
	return a, b
}

// AmountsForLiquidity считает, сколько token0/token1 (в raw-единицах) лежит в позиции
// с ликвидностью liq на диапазоне [tickLower, tickUpper] при текущем sqrtPriceX96.
func AmountsForLiquidity(sqrtPriceX96 *big.Int, tickLower, tickUpper int, liq *big.Int) (amount0, amount1 *big.Int, err error) {
	if tickLower >= tickUpper {
		return nil, nil, fmt.Errorf("bad tick range [%d, %d]", tickLower, tickUpper)
	}
	sqrtA, err := utils.GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, fmt.Errorf("sqrt ratio at %d: %w", tickLower, err)
	}
	sqrtB, err := utils.GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, fmt.Errorf("sqrt ratio at %d: %w", tickUpper, err)
	}

	amount0, amount1 = new(big.Int), new(big.Int)
	if liq == nil || liq.Sign() == 0 {
		return amount0, amount1, nil
	}
	switch {
	case sqrtPriceX96.Cmp(sqrtA) <= 0:
		amount0 = amount0ForLiquidity(sqrtA, sqrtB, liq)
	case sqrtPriceX96.Cmp(sqrtB) < 0:
		amount0 = amount0ForLiquidity(sqrtPriceX96, sqrtB, liq)
		amount1 = amount1ForLiquidity(sqrtA, sqrtPriceX96, liq)
	default:
		amount1 = amount1ForLiquidity(sqrtA, sqrtB, liq)
	}
	return amount0, amount1, nil
}

// L * 2^96 * (sqrtB - sqrtA) / sqrtB / sqrtA
func amount0ForLiquidity(sqrtA, sqrtB, liq *big.Int) *big.Int {
	n := new(big.Int).Lsh(liq, 96)
	n.Mul(n, new(big.Int).Sub(sqrtB, sqrtA))
	n.Quo(n, sqrtB)
	return n.Quo(n, sqrtA)
}

// L * (sqrtB - sqrtA) / 2^96
func amount1ForLiquidity(sqrtA, sqrtB, liq *big.Int) *big.Int {
	n := new(big.Int).Mul(liq, new(big.Int).Sub(sqrtB, sqrtA))
	return n.Quo(n, q96)
}

// ScaleAmount переводит raw-количество в единицы токена.
func ScaleAmount(raw *big.Int, decimals int) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}
