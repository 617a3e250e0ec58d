package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/dex/univ3"
	"github.com/you/lp-tools/internal/metrics"
	"github.com/you/lp-tools/internal/notify"
	"github.com/you/lp-tools/internal/report"
)

// ChainReader: то, что монитору нужно от чтения пулов.
type ChainReader interface {
	QuotePrice(ctx context.Context, base, quote univ3.TokenMeta, fees []uint32) (univ3.PoolPrice, error)
}

// Assets: Base меряется в Quote, Quote: в USD-стейбле.
type Assets struct {
	Base  univ3.TokenMeta // WBTC
	Quote univ3.TokenMeta // WETH
	USD   univ3.TokenMeta // USDC
}

// Reading: один замер цен по пулам.
type Reading struct {
	QuoteUSD    float64 // ETH в USD
	BaseUSD     float64 // WBTC в USD
	BaseInQuote float64 // ETH за 1 WBTC
	Ratio       float64 // WBTC за 1 ETH, сравнивается с порогами
	QuotePool   univ3.PoolPrice
	BasePool    univ3.PoolPrice
	At          time.Time
}

type Result struct {
	Reading    Reading
	Thresholds *config.Thresholds // nil: проверка порогов пропущена
	Breach     Breach
	Alerted    bool
}

type Options struct {
	Chain          ChainReader
	Assets         Assets
	FeeTiers       []uint32
	ThresholdsFile string
	Notifier       notify.Notifier
	Store          StateStore // nil: в памяти
	Out            io.Writer  // консольный вывод; nil: io.Discard
	Log            *zap.Logger
	Now            func() time.Time
}

type Monitor struct {
	opt Options
}

func New(opt Options) *Monitor {
	if opt.Store == nil {
		opt.Store = NewMemoryStore()
	}
	if opt.Out == nil {
		opt.Out = io.Discard
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if len(opt.FeeTiers) == 0 {
		opt.FeeTiers = []uint32{500, 3000}
	}
	return &Monitor{opt: opt}
}

// Label: имя отслеживаемого отношения, например ETH/WBTC.
func (m *Monitor) Label() string {
	return m.opt.Assets.Quote.Symbol + "/" + m.opt.Assets.Base.Symbol
}

// Read снимает цены Quote/USD и Base/Quote с пулов.
func (m *Monitor) Read(ctx context.Context) (Reading, error) {
	a := m.opt.Assets
	qp, err := m.opt.Chain.QuotePrice(ctx, a.Quote, a.USD, m.opt.FeeTiers)
	if err != nil {
		return Reading{}, fmt.Errorf("%s/%s price: %w", a.Quote.Symbol, a.USD.Symbol, err)
	}
	bp, err := m.opt.Chain.QuotePrice(ctx, a.Base, a.Quote, m.opt.FeeTiers)
	if err != nil {
		return Reading{}, fmt.Errorf("%s/%s price: %w", a.Base.Symbol, a.Quote.Symbol, err)
	}
	if bp.Price <= 0 || qp.Price <= 0 {
		return Reading{}, fmt.Errorf("non-positive pool price (%v, %v)", qp.Price, bp.Price)
	}

	r := Reading{
		QuoteUSD:    qp.Price,
		BaseUSD:     bp.Price * qp.Price,
		BaseInQuote: bp.Price,
		Ratio:       1 / bp.Price,
		QuotePool:   qp,
		BasePool:    bp,
		At:          m.opt.Now(),
	}
	metrics.AssetUSD.WithLabelValues(a.Quote.Symbol).Set(r.QuoteUSD)
	metrics.AssetUSD.WithLabelValues(a.Base.Symbol).Set(r.BaseUSD)
	metrics.Ratio.WithLabelValues(m.Label()).Set(r.Ratio)
	return r, nil
}

// Check: один прогон: замер, пороги, алерт. Ошибка возвращается только если не удалось прочитать цены.
// Повторный алерт в ту же сторону не шлётся, пока ratio не вернётся в коридор.
func (m *Monitor) Check(ctx context.Context) (Result, error) {
	log := m.opt.Log
	out := m.opt.Out
	defer metrics.LastCheck.SetToCurrentTime()

	r, err := m.Read(ctx)
	if err != nil {
		return Result{}, err
	}
	res := Result{Reading: r}
	_ = report.WriteRatio(out, m.opt.Assets.Quote.Symbol, r.QuoteUSD, m.opt.Assets.Base.Symbol, r.BaseUSD, r.Ratio)

	th, err := config.LoadThresholds(m.opt.ThresholdsFile)
	if err != nil {
		if errors.Is(err, config.ErrConfigMissing) {
			fmt.Fprintf(out, "%v. Skipping threshold check.\n", err)
			log.Info("threshold check skipped", zap.Error(err))
			return res, nil
		}
		return res, err
	}
	res.Thresholds = &th
	fmt.Fprintf(out, "Monitoring %s ratio against thresholds: %.8f - %.8f\n", m.Label(), th.Lower, th.Upper)

	b := Evaluate(r.Ratio, th)
	res.Breach = b
	key := m.Label()

	prev, err := m.opt.Store.Last(ctx, key)
	if err != nil {
		log.Warn("alert state read failed", zap.Error(err))
		prev = None
	}
	if b.Direction == None {
		if prev != None {
			log.Info("ratio back within thresholds", zap.Float64("ratio", r.Ratio))
			m.save(ctx, key, None)
		}
		return res, nil
	}
	if b.Direction == prev {
		log.Info("breach persists, alert already sent",
			zap.String("direction", b.Direction.String()), zap.Float64("ratio", r.Ratio))
		metrics.Alerts.WithLabelValues(b.Direction.String(), "suppressed").Inc()
		return res, nil
	}

	outcome := m.deliver(ctx, FormatAlert(m.Label(), b))
	metrics.Alerts.WithLabelValues(b.Direction.String(), outcome).Inc()
	if outcome == "sent" {
		res.Alerted = true
		m.save(ctx, key, b.Direction)
	}
	return res, nil
}

// deliver шлёт сообщение; ошибки доставки только логируются.
func (m *Monitor) deliver(ctx context.Context, msg string) string {
	if m.opt.Notifier == nil {
		fmt.Fprintln(m.opt.Out, "Telegram bot token or chat ID not set. Skipping notification.")
		return "skipped"
	}
	err := m.opt.Notifier.Send(ctx, msg)
	switch {
	case err == nil:
		fmt.Fprintln(m.opt.Out, "Telegram notification sent successfully.")
		return "sent"
	case errors.Is(err, notify.ErrNotConfigured):
		fmt.Fprintln(m.opt.Out, "Telegram bot token or chat ID not set. Skipping notification.")
		return "skipped"
	default:
		fmt.Fprintf(m.opt.Out, "Error sending Telegram notification: %v\n", err)
		m.opt.Log.Error("telegram send failed", zap.Error(err))
		return "failed"
	}
}

func (m *Monitor) save(ctx context.Context, key string, d Direction) {
	if err := m.opt.Store.Save(ctx, key, d, m.opt.Now()); err != nil {
		m.opt.Log.Warn("alert state save failed", zap.Error(err))
	}
}
