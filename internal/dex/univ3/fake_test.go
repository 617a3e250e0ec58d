package univ3

import (
	"bytes"
	"context"
	"errors"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	factoryAddr = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	nfpmAddr    = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	wbtcAddr    = common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f")
	wethAddr    = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	poolAddr    = common.HexToAddress("0x2f5e87C9312fa29aed5c179E456625D79015299c")
)

type fakeToken struct {
	symbol   string
	decimals uint8
}

type fakePosition struct {
	token0, token1       common.Address
	fee                  int64
	tickLower, tickUpper int64
	liquidity            *big.Int
}

// fakeChain: минимальный in-memory Uniswap V3 поверх ethereum.ContractCaller.
type fakeChain struct {
	tokens    map[common.Address]fakeToken
	pools     map[uint32]common.Address // для пары wbtc/weth
	positions map[int64]fakePosition
	sqrt      *big.Int
	tick      int64
	calls     map[string]int
}

func newFakeChain(sqrt *big.Int, tick int64) *fakeChain {
	return &fakeChain{
		tokens: map[common.Address]fakeToken{
			wbtcAddr: {"WBTC", 8},
			wethAddr: {"WETH", 18},
		},
		pools:     map[uint32]common.Address{3000: poolAddr},
		positions: map[int64]fakePosition{},
		sqrt:      sqrt,
		tick:      tick,
		calls:     map[string]int{},
	}
}

func methodBySelector(a abi.ABI, data []byte) (*abi.Method, bool) {
	for _, m := range a.Methods {
		if len(data) >= 4 && bytes.Equal(m.ID, data[:4]) {
			m := m
			return &m, true
		}
	}
	return nil, false
}

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	to := *msg.To
	switch {
	case to == nfpmAddr:
		m, ok := methodBySelector(NFPMABI, msg.Data)
		if !ok {
			return nil, errors.New("execution reverted")
		}
		f.calls[m.Name]++
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		p, ok := f.positions[args[0].(*big.Int).Int64()]
		if !ok {
			return nil, errors.New("execution reverted: Invalid token ID")
		}
		zero := new(big.Int)
		return m.Outputs.Pack(zero, common.Address{}, p.token0, p.token1, big.NewInt(p.fee),
			big.NewInt(p.tickLower), big.NewInt(p.tickUpper), p.liquidity, zero, zero, zero, zero)

	case to == factoryAddr:
		m, ok := methodBySelector(FactoryABI, msg.Data)
		if !ok {
			return nil, errors.New("execution reverted")
		}
		f.calls[m.Name]++
		args, err := m.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		a, b := args[0].(common.Address), args[1].(common.Address)
		fee := uint32(args[2].(*big.Int).Uint64())
		pool := common.Address{}
		if (a == wbtcAddr && b == wethAddr) || (a == wethAddr && b == wbtcAddr) {
			pool = f.pools[fee]
		}
		return m.Outputs.Pack(pool)

	case to == poolAddr:
		m, ok := methodBySelector(PoolABI, msg.Data)
		if !ok {
			return nil, errors.New("execution reverted")
		}
		f.calls[m.Name]++
		switch m.Name {
		case "slot0":
			return m.Outputs.Pack(f.sqrt, big.NewInt(f.tick), uint16(0), uint16(1), uint16(1), uint8(0), true)
		case "token0":
			return m.Outputs.Pack(wbtcAddr)
		default:
			return m.Outputs.Pack(wethAddr)
		}
	}

	if tok, ok := f.tokens[to]; ok {
		m, ok := methodBySelector(ERC20ABI, msg.Data)
		if !ok {
			return nil, errors.New("execution reverted")
		}
		f.calls[m.Name]++
		if m.Name == "symbol" {
			return m.Outputs.Pack(tok.symbol)
		}
		return m.Outputs.Pack(tok.decimals)
	}
	// мультиколл и прочие адреса не задеплоены
	return nil, errors.New("execution reverted")
}
