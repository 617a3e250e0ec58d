package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/liquidity"
	"github.com/you/lp-tools/internal/logging"
	"github.com/you/lp-tools/internal/pricefeed"
	"github.com/you/lp-tools/internal/report"
)

// maxInput отсекает +Inf и прочие значения, на которых формула теряет смысл.
const maxInput = math.MaxFloat64 / 4

type options struct {
	cfgPath string
	pair    string
	total   float64
	min     float64
	max     float64
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.cfgPath, "config", "./config.yaml", "путь к конфигу")
	flag.StringVar(&o.pair, "pair", "wbtc-eth", "пресет пары из конфига")
	flag.Float64Var(&o.total, "total", 0, "сумма инвестиции в USD (0: спросить)")
	flag.Float64Var(&o.min, "min", 0, "нижняя граница диапазона (0: спросить)")
	flag.Float64Var(&o.max, "max", 0, "верхняя граница диапазона (0: спросить)")
	flag.Parse()
	return o
}

func main() {
	opt := parseFlags()

	cfg, err := config.Load(opt.cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feed := pricefeed.NewCoinGecko(pricefeed.Config{
		BaseURL: cfg.PriceFeed.BaseURL,
		ProURL:  cfg.PriceFeed.ProURL,
		APIKey:  cfg.PriceFeed.APIKey,
		Pro:     cfg.PriceFeed.Pro,
		Timeout: cfg.PriceFeedTimeout(),
	}, &http.Client{Timeout: cfg.PriceFeedTimeout()}, logger)

	if err := run(ctx, cfg, opt, feed, os.Stdin, os.Stdout, logger); err != nil {
		logger.Error("lp-calc failed", zap.Error(err))
		os.Exit(1)
	}
}

// run возвращает ошибку только для неустранимых ситуаций (нет цен, закончился ввод).
// Невалидный диапазон печатается и завершает работу без ошибки.
func run(ctx context.Context, cfg *config.Config, opt options, feed pricefeed.Provider, in io.Reader, out io.Writer, log *zap.Logger) error {
	pair, err := cfg.Pair(opt.pair)
	if err != nil {
		return err
	}

	if err := report.Header(out, "Uniswap V3 Liquidity Calculator ("+pair.Low.Symbol+"/"+pair.High.Symbol+")"); err != nil {
		return err
	}
	fmt.Fprintln(out, "Fetching current prices from CoinGecko...")
	q, err := feed.Prices(ctx, pair.Low.PriceID, pair.High.PriceID)
	if err != nil {
		fmt.Fprintf(out, "Error fetching prices from CoinGecko: %v\n", err)
		return err
	}
	current, err := pair.CurrentPrice(q)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return err
	}
	if err := report.WritePrices(out, pair, q); err != nil {
		return err
	}
	log.Debug("prices", zap.String("pair", pair.Name), zap.Any("quote", q), zap.Float64("current", current))

	p := newPrompter(in, out)
	total := opt.total
	if positiveNumber(total) != "" {
		if total, err = p.float("Enter the total investment amount in USD: ", positiveNumber); err != nil {
			return err
		}
	}
	unit := pair.PriceUnit()
	lo := opt.min
	if positiveNumber(lo) != "" {
		label := fmt.Sprintf("Enter the minimum price for the position (%s) (current: %.8f): ", unit, current)
		if lo, err = p.float(label, positiveNumber); err != nil {
			return err
		}
	}
	hi := opt.max
	if above(lo)(hi) != "" {
		label := fmt.Sprintf("Enter the maximum price for the position (%s): ", unit)
		if hi, err = p.float(label, above(lo)); err != nil {
			return err
		}
	}
	fmt.Fprintln(out)

	alloc, err := liquidity.Allocate(pair, liquidity.Request{
		TotalUSD: total,
		Range:    liquidity.PriceRange{Min: lo, Max: hi},
		Current:  current,
		Quote:    q,
	})
	if errors.Is(err, liquidity.ErrInvalidRange) || errors.Is(err, liquidity.ErrDegenerateAllocation) || errors.Is(err, liquidity.ErrInvalidInput) {
		fmt.Fprintf(out, "Error: %v\n", err)
		log.Warn("allocation rejected", zap.Error(err))
		return nil
	}
	if err != nil {
		return err
	}
	return report.WriteAllocation(out, alloc, q)
}
