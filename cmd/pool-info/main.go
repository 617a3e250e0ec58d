package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/dex/univ3"
	"github.com/you/lp-tools/internal/logging"
	"github.com/you/lp-tools/internal/report"
)

type options struct {
	cfgPath string
	tokenID *big.Int
}

func parseFlags() (options, error) {
	var o options
	flag.StringVar(&o.cfgPath, "config", "./config.yaml", "путь к конфигу")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] <position NFT id>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		return o, errors.New("expected exactly one position NFT id")
	}
	id, err := parseTokenID(flag.Arg(0))
	if err != nil {
		return o, err
	}
	o.tokenID = id
	return o, nil
}

func parseTokenID(s string) (*big.Int, error) {
	id, ok := new(big.Int).SetString(s, 10)
	if !ok || id.Sign() < 0 {
		return nil, fmt.Errorf("invalid position id %q: want a non-negative integer", s)
	}
	return id, nil
}

func main() {
	opt, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(2)
	}

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

	ec, err := connect(ctx, cfg.RPCURLs(), cfg.CallTimeout(), os.Stdout, logger)
	if err != nil {
		fmt.Println("\nError: could not connect to any Arbitrum RPC endpoint.")
		fmt.Println("Set ETHEREUM_NODE_URL (or chain.rpc_http) to a working node and try again.")
		os.Exit(1)
	}
	defer ec.Close()

	if err := show(ctx, ec, cfg, opt.tokenID, os.Stdout, logger); err != nil {
		fmt.Printf("\nAn error occurred: %v\n", err)
		fmt.Println("Check that the position id exists on Arbitrum and that the RPC node is healthy.")
		os.Exit(1)
	}
}

type closer interface {
	ethereum.ContractCaller
	Close()
}

// connect перебирает RPC по порядку и печатает ход попыток.
func connect(ctx context.Context, urls []string, timeout time.Duration, out io.Writer, log *zap.Logger) (closer, error) {
	fmt.Fprintln(out, "Connecting to Arbitrum...")
	ec, url, err := univ3.DialFirst(ctx, urls, timeout, log, func(u string, err error) {
		if err != nil {
			fmt.Fprintf(out, "  Trying %s... Failed.\n", u)
			return
		}
		fmt.Fprintf(out, "  Trying %s... Success!\n", u)
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Connected to %s\n\n", url)
	return ec, nil
}

func show(ctx context.Context, ec ethereum.ContractCaller, cfg *config.Config, id *big.Int, out io.Writer, log *zap.Logger) error {
	rc, err := univ3.ReaderConfigFrom(cfg)
	if err != nil {
		return err
	}
	r, err := univ3.NewReader(ec, rc, log)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Fetching details for position #%s...\n\n", id)
	info, err := r.PositionInfo(ctx, id)
	if err != nil {
		return err
	}
	return report.WritePosition(out, info)
}
