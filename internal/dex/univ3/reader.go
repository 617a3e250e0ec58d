package univ3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/metrics"
	"github.com/you/lp-tools/internal/multicall"
)

var (
	ErrPoolNotFound = errors.New("pool not found")
	ErrNoRPC        = errors.New("no reachable rpc endpoint")
)

type TokenMeta struct {
	Address  common.Address
	Symbol   string
	Decimals int
}

// Amount переводит raw-количество в единицы токена.
func (t TokenMeta) Amount(raw *big.Int) decimal.Decimal { return ScaleAmount(raw, t.Decimals) }

type Position struct {
	TokenID     *big.Int
	Token0      common.Address
	Token1      common.Address
	Fee         uint32
	TickLower   int
	TickUpper   int
	Liquidity   *big.Int
	TokensOwed0 *big.Int
	TokensOwed1 *big.Int
}

type Slot0 struct {
	SqrtPriceX96 *big.Int
	Tick         int
}

type ReaderConfig struct {
	Factory         common.Address
	PositionManager common.Address
	Multicall       common.Address // нулевой: вызовы по одному
	CallTimeout     time.Duration
}

// Reader читает состояние Uniswap V3 через eth_call.
type Reader struct {
	ec      ethereum.ContractCaller
	mc      multicall.IClient
	seq     multicall.IClient
	batched bool
	cfg     ReaderConfig
	log     *zap.Logger
	tokens  sync.Map // common.Address -> TokenMeta
}

func NewReader(ec ethereum.ContractCaller, cfg ReaderConfig, log *zap.Logger) (*Reader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	r := &Reader{ec: ec, cfg: cfg, log: log, seq: multicall.Sequential{C: ec}}
	r.mc = r.seq
	if cfg.Multicall != (common.Address{}) {
		mc, err := multicall.New(ec, cfg.Multicall)
		if err != nil {
			return nil, err
		}
		r.mc = mc
		r.batched = true
	}
	return r, nil
}

// call упаковывает method, делает eth_call с таймаутом и распаковывает ответ.
func (r *Reader) call(ctx context.Context, to common.Address, a abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	input, err := a.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	res, err := r.ec.CallContract(cctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	outs, err := a.Unpack(method, res)
	if err != nil {
		metrics.RPCErrors.WithLabelValues(method).Inc()
		return nil, fmt.Errorf("decode %s: %w", method, err)
	}
	return outs, nil
}

// Position читает positions(tokenId) у NonfungiblePositionManager.
func (r *Reader) Position(ctx context.Context, tokenID *big.Int) (Position, error) {
	outs, err := r.call(ctx, r.cfg.PositionManager, NFPMABI, "positions", tokenID)
	if err != nil {
		return Position{}, fmt.Errorf("position %s: %w", tokenID, err)
	}
	if len(outs) != 12 {
		return Position{}, fmt.Errorf("position %s: unexpected %d outputs", tokenID, len(outs))
	}
	return Position{
		TokenID:     tokenID,
		Token0:      outs[2].(common.Address),
		Token1:      outs[3].(common.Address),
		Fee:         uint32(outs[4].(*big.Int).Uint64()),
		TickLower:   int(outs[5].(*big.Int).Int64()),
		TickUpper:   int(outs[6].(*big.Int).Int64()),
		Liquidity:   outs[7].(*big.Int),
		TokensOwed0: outs[10].(*big.Int),
		TokensOwed1: outs[11].(*big.Int),
	}, nil
}

// PoolAddress возвращает адрес пула или ErrPoolNotFound, если фабрика отдала нулевой адрес.
func (r *Reader) PoolAddress(ctx context.Context, a, b common.Address, fee uint32) (common.Address, error) {
	// Uniswap требует: tokenA < tokenB
	tokenA, tokenB := SortTokens(a, b)
	outs, err := r.call(ctx, r.cfg.Factory, FactoryABI, "getPool", tokenA, tokenB, big.NewInt(int64(fee)))
	if err != nil {
		return common.Address{}, fmt.Errorf("getPool fee %d: %w", fee, err)
	}
	pool := outs[0].(common.Address)
	if pool == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s/%s fee %d", ErrPoolNotFound, tokenA.Hex(), tokenB.Hex(), fee)
	}
	return pool, nil
}

// FindPool перебирает fees по порядку и возвращает первый существующий пул.
func (r *Reader) FindPool(ctx context.Context, a, b common.Address, fees []uint32) (common.Address, uint32, error) {
	for i, fee := range fees {
		pool, err := r.PoolAddress(ctx, a, b, fee)
		if errors.Is(err, ErrPoolNotFound) {
			if i+1 < len(fees) {
				r.log.Info("pool not found, trying next fee tier",
					zap.Uint32("fee", fee), zap.Uint32("next", fees[i+1]))
			}
			continue
		}
		if err != nil {
			return common.Address{}, 0, err
		}
		r.log.Debug("getPool ok", zap.Uint32("fee", fee), zap.String("pool", pool.Hex()))
		return pool, fee, nil
	}
	return common.Address{}, 0, fmt.Errorf("%w: %s/%s fees %v", ErrPoolNotFound, a.Hex(), b.Hex(), fees)
}

// FeeTiers проверяет, какие из tiers существуют для пары, одним батчем getPool.
func (r *Reader) FeeTiers(ctx context.Context, a, b common.Address, tiers []uint32) (present []uint32, pools map[uint32]common.Address, err error) {
	if (a == common.Address{}) || (b == common.Address{}) {
		return nil, nil, fmt.Errorf("token address is zero")
	}
	tokenA, tokenB := SortTokens(a, b)

	calls := make([]multicall.Call, len(tiers))
	for i, fee := range tiers {
		data, err := FactoryABI.Pack("getPool", tokenA, tokenB, big.NewInt(int64(fee)))
		if err != nil {
			return nil, nil, fmt.Errorf("pack getPool: %w", err)
		}
		calls[i] = multicall.Call{Target: r.cfg.Factory, CallData: data}
	}
	res, err := r.aggregate(ctx, calls)
	if err != nil {
		return nil, nil, err
	}

	pools = make(map[uint32]common.Address, len(tiers))
	for i, fee := range tiers {
		if !res[i].Success {
			return nil, nil, fmt.Errorf("getPool(fee=%d) failed", fee)
		}
		out, err := FactoryABI.Unpack("getPool", res[i].ReturnData)
		if err != nil || len(out) != 1 {
			return nil, nil, fmt.Errorf("unpack getPool(fee=%d): %w", fee, err)
		}
		addr := out[0].(common.Address)
		if addr != (common.Address{}) {
			present = append(present, fee)
			pools[fee] = addr
		}
	}
	return present, pools, nil
}

func (r *Reader) Slot0(ctx context.Context, pool common.Address) (Slot0, error) {
	outs, err := r.call(ctx, pool, PoolABI, "slot0")
	if err != nil {
		return Slot0{}, fmt.Errorf("slot0 %s: %w", pool.Hex(), err)
	}
	sqrt := outs[0].(*big.Int)
	if sqrt.Sign() <= 0 {
		return Slot0{}, fmt.Errorf("slot0 %s: pool not initialized", pool.Hex())
	}
	return Slot0{SqrtPriceX96: sqrt, Tick: int(outs[1].(*big.Int).Int64())}, nil
}

// PoolTokens читает token0/token1 пула.
func (r *Reader) PoolTokens(ctx context.Context, pool common.Address) (common.Address, common.Address, error) {
	d0, _ := PoolABI.Pack("token0")
	d1, _ := PoolABI.Pack("token1")
	res, err := r.aggregate(ctx, []multicall.Call{{Target: pool, CallData: d0}, {Target: pool, CallData: d1}})
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	var out [2]common.Address
	for i, name := range []string{"token0", "token1"} {
		if !res[i].Success {
			return common.Address{}, common.Address{}, fmt.Errorf("%s %s failed", name, pool.Hex())
		}
		v, err := PoolABI.Unpack(name, res[i].ReturnData)
		if err != nil {
			return common.Address{}, common.Address{}, fmt.Errorf("decode %s: %w", name, err)
		}
		out[i] = v[0].(common.Address)
	}
	return out[0], out[1], nil
}

// Token возвращает symbol/decimals токена (с кэшем).
func (r *Reader) Token(ctx context.Context, addr common.Address) (TokenMeta, error) {
	ts, err := r.Tokens(ctx, addr)
	if err != nil {
		return TokenMeta{}, err
	}
	return ts[0], nil
}

// Tokens читает метаданные нескольких токенов одним батчем; уже известные берутся из кэша.
func (r *Reader) Tokens(ctx context.Context, addrs ...common.Address) ([]TokenMeta, error) {
	out := make([]TokenMeta, len(addrs))
	var missing []int
	for i, a := range addrs {
		if v, ok := r.tokens.Load(a); ok {
			out[i] = v.(TokenMeta)
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	symData, _ := ERC20ABI.Pack("symbol")
	decData, _ := ERC20ABI.Pack("decimals")
	calls := make([]multicall.Call, 0, 2*len(missing))
	for _, i := range missing {
		calls = append(calls,
			multicall.Call{Target: addrs[i], CallData: symData},
			multicall.Call{Target: addrs[i], CallData: decData},
		)
	}
	res, err := r.aggregate(ctx, calls)
	if err != nil {
		return nil, err
	}

	for k, i := range missing {
		a := addrs[i]
		sym, dec := res[2*k], res[2*k+1]
		if !dec.Success {
			return nil, fmt.Errorf("decimals %s failed", a.Hex())
		}
		d, err := decodeDecimals(dec.ReturnData)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", a.Hex(), err)
		}
		meta := TokenMeta{Address: a, Decimals: d, Symbol: shortAddr(a)}
		if sym.Success {
			if s, ok := decodeSymbol(sym.ReturnData); ok {
				meta.Symbol = s
			}
		}
		r.tokens.Store(a, meta)
		out[i] = meta
	}
	return out, nil
}

// aggregate идёт через multicall; если батч не прошёл, повторяет вызовы по одному.
func (r *Reader) aggregate(ctx context.Context, calls []multicall.Call) ([]multicall.Result, error) {
	start := time.Now()
	cctx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	res, err := r.mc.Aggregate(cctx, calls)
	cancel()
	metrics.RPCLatency.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
	if err == nil {
		return res, nil
	}
	metrics.RPCErrors.WithLabelValues("aggregate").Inc()
	if !r.batched {
		return nil, err
	}
	r.log.Warn("multicall failed, falling back to sequential calls", zap.Error(err))
	cctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return r.seq.Aggregate(cctx, calls)
}

func decodeDecimals(data []byte) (int, error) {
	outs, err := ERC20ABI.Unpack("decimals", data)
	if err != nil || len(outs) == 0 {
		if err == nil {
			err = fmt.Errorf("empty decimals output")
		}
		return 0, fmt.Errorf("decode decimals: %w", err)
	}
	switch v := outs[0].(type) {
	case uint8:
		return int(v), nil
	case *big.Int:
		return int(v.Int64()), nil
	default:
		return 0, fmt.Errorf("unexpected decimals type %T", v)
	}
}

func decodeSymbol(data []byte) (string, bool) {
	if outs, err := ERC20ABI.Unpack("symbol", data); err == nil && len(outs) == 1 {
		if s := strings.TrimSpace(outs[0].(string)); s != "" {
			return s, true
		}
	}
	if outs, err := ERC20Bytes32ABI.Unpack("symbol", data); err == nil && len(outs) == 1 {
		b := outs[0].([32]byte)
		if s := string(bytes.TrimRight(b[:], "\x00")); s != "" {
			return s, true
		}
	}
	return "", false
}

func shortAddr(a common.Address) string {
	h := a.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
