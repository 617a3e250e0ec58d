package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/dex/univ3"
	"github.com/you/lp-tools/internal/logging"
	"github.com/you/lp-tools/internal/metrics"
	"github.com/you/lp-tools/internal/monitor"
	"github.com/you/lp-tools/internal/notify"
)

type options struct {
	cfgPath    string
	schedule   string
	thresholds string
	once       bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.cfgPath, "config", "./config.yaml", "путь к конфигу")
	flag.StringVar(&o.schedule, "schedule", "", "cron-выражение, например \"@every 5m\" (перекрывает monitor.schedule)")
	flag.StringVar(&o.thresholds, "thresholds", "", "файл порогов (перекрывает monitor.thresholds_file)")
	flag.BoolVar(&o.once, "once", false, "одна проверка, даже если расписание задано")
	flag.Parse()
	return o
}

func main() {
	os.Exit(run(parseFlags()))
}

// run возвращает код выхода для os.Exit.
func run(opt options) int {
	cfg, err := config.Load(opt.cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: config:", err)
		return 1
	}
	applyOverrides(cfg, opt)

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: logger:", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		if err := setupTelegram(cfg, os.Stdin, os.Stdout); err != nil {
			logger.Warn("telegram setup", zap.Error(err))
		}
	}

	if _, err := metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger); err != nil {
		logger.Error("metrics server", zap.Error(err))
	}

	ec, url, err := univ3.DialFirst(ctx, cfg.RPCURLs(), cfg.CallTimeout(), logger, nil)
	if err != nil {
		fmt.Println("Error: Could not connect to the Arbitrum network.")
		logger.Error("rpc connect", zap.Error(err))
		return 1
	}
	defer ec.Close()
	fmt.Printf("Connected to Arbitrum via %s\n", url)

	rc, err := univ3.ReaderConfigFrom(cfg)
	if err != nil {
		logger.Error("reader config", zap.Error(err))
		return 1
	}
	reader, err := univ3.NewReader(ec, rc, logger)
	if err != nil {
		logger.Error("reader init", zap.Error(err))
		return 1
	}

	var store monitor.StateStore
	if cfg.Redis.Addr != "" {
		rdb := monitor.NewRedisClient(cfg.Redis)
		defer rdb.Close()
		store = monitor.NewRedisStore(rdb, cfg.Redis.KeyPrefix)
		logger.Info("alert state in redis", zap.String("addr", cfg.Redis.Addr))
	}

	mon, err := newMonitor(cfg, reader, store, os.Stdout, logger)
	if err != nil {
		logger.Error("monitor init", zap.Error(err))
		return 1
	}

	if opt.once || cfg.Monitor.Schedule == "" {
		return runOnce(ctx, mon, os.Stdout, logger)
	}
	job := func(ctx context.Context) { _ = runOnce(ctx, mon, os.Stdout, logger) }
	if err := monitor.RunSchedule(ctx, cfg.Monitor.Schedule, job, logger); err != nil {
		logger.Error("schedule", zap.Error(err))
		return 1
	}
	return 0
}

func applyOverrides(cfg *config.Config, opt options) {
	if opt.schedule != "" {
		cfg.Monitor.Schedule = opt.schedule
	}
	if opt.thresholds != "" {
		cfg.Monitor.ThresholdsFile = opt.thresholds
	}
}

func newMonitor(cfg *config.Config, chain monitor.ChainReader, store monitor.StateStore, out io.Writer, log *zap.Logger) (*monitor.Monitor, error) {
	var a monitor.Assets
	var err error
	if a.Base, err = univ3.ConfigToken(cfg, cfg.Monitor.Base); err != nil {
		return nil, fmt.Errorf("monitor.base: %w", err)
	}
	if a.Quote, err = univ3.ConfigToken(cfg, cfg.Monitor.Quote); err != nil {
		return nil, fmt.Errorf("monitor.quote: %w", err)
	}
	if a.USD, err = univ3.ConfigToken(cfg, cfg.Monitor.USD); err != nil {
		return nil, fmt.Errorf("monitor.usd: %w", err)
	}
	tg := notify.NewTelegram(notify.Config{
		APIURL:    cfg.Telegram.APIURL,
		BotToken:  cfg.Telegram.BotToken,
		ChatID:    cfg.Telegram.ChatID,
		ParseMode: cfg.Telegram.ParseMode,
		Timeout:   cfg.TelegramTimeout(),
	}, &http.Client{Timeout: cfg.TelegramTimeout()}, log)

	return monitor.New(monitor.Options{
		Chain:          chain,
		Assets:         a,
		FeeTiers:       cfg.Monitor.FeeTiers,
		ThresholdsFile: cfg.Monitor.ThresholdsFile,
		Notifier:       tg,
		Store:          store,
		Out:            out,
		Log:            log,
	}), nil
}

// runOnce возвращает код выхода: отсутствие пула не считается ошибкой.
func runOnce(ctx context.Context, mon *monitor.Monitor, out io.Writer, log *zap.Logger) int {
	_, err := mon.Check(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, univ3.ErrPoolNotFound):
		fmt.Fprintf(out, "Could not find a Uniswap V3 pool: %v\n", err)
		log.Warn("pool not found", zap.Error(err))
		return 0
	default:
		fmt.Fprintf(out, "An error occurred: %v\n", err)
		log.Error("ratio check failed", zap.Error(err))
		return 1
	}
}
