package univ3

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/you/lp-tools/internal/config"
)

// ReaderConfigFrom берёт адреса контрактов и таймаут из общего конфига.
func ReaderConfigFrom(cfg *config.Config) (ReaderConfig, error) {
	factory, err := config.ParseAddress(cfg.Uniswap.Factory)
	if err != nil {
		return ReaderConfig{}, fmt.Errorf("uniswap.factory: %w", err)
	}
	nfpm, err := config.ParseAddress(cfg.Uniswap.PositionManager)
	if err != nil {
		return ReaderConfig{}, fmt.Errorf("uniswap.position_manager: %w", err)
	}
	var mc common.Address
	if cfg.Chain.Multicall != "" {
		if mc, err = config.ParseAddress(cfg.Chain.Multicall); err != nil {
			return ReaderConfig{}, fmt.Errorf("chain.multicall: %w", err)
		}
	}
	return ReaderConfig{
		Factory:         factory,
		PositionManager: nfpm,
		Multicall:       mc,
		CallTimeout:     cfg.CallTimeout(),
	}, nil
}

// ConfigToken возвращает метаданные токена из конфига, без обращения к сети.
func ConfigToken(cfg *config.Config, key string) (TokenMeta, error) {
	tc, err := cfg.Token(key)
	if err != nil {
		return TokenMeta{}, err
	}
	addr, err := config.ParseAddress(tc.Address)
	if err != nil {
		return TokenMeta{}, fmt.Errorf("tokens.%s: %w", key, err)
	}
	return TokenMeta{Address: addr, Symbol: tc.Symbol, Decimals: tc.Decimals}, nil
}
