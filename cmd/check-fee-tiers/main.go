package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/dex/univ3"
	"github.com/you/lp-tools/internal/logging"
)

type tokenPair struct{ a, b string }

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config")
	tiersStr := flag.String("tiers", "", "fee tiers to test, comma-separated (default: uniswap.fee_tiers)")
	pairsStr := flag.String("pairs", "", "token key pairs, e.g. wbtc/weth,weth/usdc (default: configured pairs and monitor)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tiers := cfg.Uniswap.FeeTiers
	if *tiersStr != "" {
		tiers = parseTiers(*tiersStr)
	}
	pairs, err := parsePairs(*pairsStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if len(pairs) == 0 {
		pairs = configuredPairs(cfg)
	}

	ctx := context.Background()
	ec, url, err := univ3.DialFirst(ctx, cfg.RPCURLs(), cfg.CallTimeout(), logger, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rpc:", err)
		os.Exit(1)
	}
	defer ec.Close()

	fmt.Printf("RPC: %s\n", url)
	fmt.Printf("Testing tiers: %v\n\n", tiers)
	if err := check(ctx, ec, cfg, pairs, tiers, os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// check печатает существующие пулы для каждой пары; ошибка по одной паре не прерывает остальные.
func check(ctx context.Context, ec ethereum.ContractCaller, cfg *config.Config, pairs []tokenPair, tiers []uint32, out io.Writer, log *zap.Logger) error {
	rc, err := univ3.ReaderConfigFrom(cfg)
	if err != nil {
		return err
	}
	r, err := univ3.NewReader(ec, rc, log)
	if err != nil {
		return err
	}

	for _, p := range pairs {
		label := p.a + "/" + p.b
		ta, err := univ3.ConfigToken(cfg, p.a)
		if err != nil {
			fmt.Fprintf(out, "%-14s error: %v\n", label, err)
			continue
		}
		tb, err := univ3.ConfigToken(cfg, p.b)
		if err != nil {
			fmt.Fprintf(out, "%-14s error: %v\n", label, err)
			continue
		}
		label = ta.Symbol + "/" + tb.Symbol

		present, pools, err := r.FeeTiers(ctx, ta.Address, tb.Address, tiers)
		if err != nil {
			fmt.Fprintf(out, "%-14s error: %v\n", label, err)
			continue
		}
		if len(present) == 0 {
			fmt.Fprintf(out, "%-14s no pools on given tiers\n", label)
			continue
		}
		fmt.Fprintf(out, "%-14s tiers: %v", label, present)
		for _, f := range present {
			fmt.Fprintf(out, "  [fee=%d] %s", f, pools[f].Hex())
		}
		fmt.Fprintln(out)
	}
	return nil
}

func parseTiers(s string) []uint32 {
	var out []uint32
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 24)
		if err == nil && v > 0 {
			out = append(out, uint32(v))
		}
	}
	if len(out) == 0 {
		out = []uint32{100, 500, 3000, 10000}
	}
	return out
}

func parsePairs(s string) ([]tokenPair, error) {
	var out []tokenPair
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		a, b, ok := strings.Cut(p, "/")
		a, b = strings.TrimSpace(a), strings.TrimSpace(b)
		if !ok || a == "" || b == "" || a == b {
			return nil, fmt.Errorf("bad pair %q: want tokenA/tokenB", p)
		}
		out = append(out, tokenPair{strings.ToLower(a), strings.ToLower(b)})
	}
	return out, nil
}

// configuredPairs: пары пресетов калькулятора плюс обе пары ratio-monitor, без повторов.
func configuredPairs(cfg *config.Config) []tokenPair {
	seen := map[tokenPair]bool{}
	var out []tokenPair
	add := func(a, b string) {
		if a > b {
			a, b = b, a
		}
		p := tokenPair{a, b}
		if a == "" || a == b || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	for _, name := range cfg.PairNames() {
		pc := cfg.Pairs[name]
		add(pc.Low, pc.High)
	}
	add(cfg.Monitor.Base, cfg.Monitor.Quote)
	add(cfg.Monitor.Quote, cfg.Monitor.USD)
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}
