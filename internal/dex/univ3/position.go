package univ3

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// PositionInfo: позиция вместе с состоянием её пула.
type PositionInfo struct {
	Position
	Pool   common.Address
	Token0 TokenMeta
	Token1 TokenMeta
	Slot0  Slot0

	// цены token1 за 1 token0
	Price      float64
	PriceLower float64
	PriceUpper float64

	InRange bool
	Amount0 *big.Int // raw, сколько token0 сейчас в позиции
	Amount1 *big.Int
}

// FeePercent: fee tier в процентах (500 -> 0.05).
func (p PositionInfo) FeePercent() float64 { return float64(p.Fee) / 10_000 }

func (r *Reader) PositionInfo(ctx context.Context, tokenID *big.Int) (PositionInfo, error) {
	pos, err := r.Position(ctx, tokenID)
	if err != nil {
		return PositionInfo{}, err
	}
	if (pos.Token0 == common.Address{}) {
		return PositionInfo{}, fmt.Errorf("position %s: empty token0", tokenID)
	}

	toks, err := r.Tokens(ctx, pos.Token0, pos.Token1)
	if err != nil {
		return PositionInfo{}, err
	}
	pool, err := r.PoolAddress(ctx, pos.Token0, pos.Token1, pos.Fee)
	if err != nil {
		return PositionInfo{}, err
	}
	s0, err := r.Slot0(ctx, pool)
	if err != nil {
		return PositionInfo{}, err
	}

	t0, t1 := toks[0], toks[1]
	info := PositionInfo{
		Position:   pos,
		Pool:       pool,
		Token0:     t0,
		Token1:     t1,
		Slot0:      s0,
		Price:      TickToPrice(s0.Tick, t0.Decimals, t1.Decimals),
		PriceLower: TickToPrice(pos.TickLower, t0.Decimals, t1.Decimals),
		PriceUpper: TickToPrice(pos.TickUpper, t0.Decimals, t1.Decimals),
		InRange:    InRange(pos.TickLower, pos.TickUpper, s0.Tick),
	}
	info.Amount0, info.Amount1, err = AmountsForLiquidity(s0.SqrtPriceX96, pos.TickLower, pos.TickUpper, pos.Liquidity)
	if err != nil {
		return PositionInfo{}, err
	}
	r.log.Debug("position loaded",
		zap.String("id", tokenID.String()),
		zap.String("pool", pool.Hex()),
		zap.Int("tick", s0.Tick),
		zap.Bool("in_range", info.InRange),
	)
	return info, nil
}

// PoolPrice: цена base в единицах quote по slot0 конкретного пула.
type PoolPrice struct {
	Pool  common.Address
	Fee   uint32
	Price float64
}

// QuotePrice ищет пул base/quote по fees и переводит sqrtPriceX96 в цену quote за 1 base.
// Порядок token0/token1 определяется сортировкой адресов.
func (r *Reader) QuotePrice(ctx context.Context, base, quote TokenMeta, fees []uint32) (PoolPrice, error) {
	pool, fee, err := r.FindPool(ctx, base.Address, quote.Address, fees)
	if err != nil {
		return PoolPrice{}, err
	}
	s0, err := r.Slot0(ctx, pool)
	if err != nil {
		return PoolPrice{}, err
	}

	token0, _ := SortTokens(base.Address, quote.Address)
	var price float64
	if token0 == base.Address {
		// token1 за token0 = quote за base
		price, err = SqrtPriceX96ToPrice(s0.SqrtPriceX96, base.Decimals, quote.Decimals)
	} else {
		var inv float64
		inv, err = SqrtPriceX96ToPrice(s0.SqrtPriceX96, quote.Decimals, base.Decimals)
		if err == nil {
			if inv == 0 {
				return PoolPrice{}, fmt.Errorf("zero price in pool %s", pool.Hex())
			}
			price = 1 / inv
		}
	}
	if err != nil {
		return PoolPrice{}, fmt.Errorf("pool %s: %w", pool.Hex(), err)
	}
	r.log.Debug("slot0 price",
		zap.String("base", base.Symbol), zap.String("quote", quote.Symbol),
		zap.Uint32("fee", fee), zap.Float64("price", price))
	return PoolPrice{Pool: pool, Fee: fee, Price: price}, nil
}
