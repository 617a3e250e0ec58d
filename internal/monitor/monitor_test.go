package monitor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/dex/univ3"
	"github.com/you/lp-tools/internal/notify"
)

var assets = Assets{
	Base:  univ3.TokenMeta{Address: common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"), Symbol: "WBTC", Decimals: 8},
	Quote: univ3.TokenMeta{Address: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), Symbol: "ETH", Decimals: 18},
	USD:   univ3.TokenMeta{Address: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), Symbol: "USDC", Decimals: 6},
}

type fakePools struct {
	ethUSD  float64
	ethBTC  float64 // ETH за 1 WBTC
	err     error
	lastFee []uint32
}

func (f *fakePools) QuotePrice(_ context.Context, base, quote univ3.TokenMeta, fees []uint32) (univ3.PoolPrice, error) {
	f.lastFee = fees
	if f.err != nil {
		return univ3.PoolPrice{}, f.err
	}
	switch {
	case base.Symbol == "ETH" && quote.Symbol == "USDC":
		return univ3.PoolPrice{Fee: 500, Price: f.ethUSD}, nil
	case base.Symbol == "WBTC" && quote.Symbol == "ETH":
		return univ3.PoolPrice{Fee: 500, Price: f.ethBTC}, nil
	}
	return univ3.PoolPrice{}, univ3.ErrPoolNotFound
}

type fakeNotifier struct {
	sent []string
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, text string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, text)
	return nil
}

func thresholdsFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "thresholds.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func newMonitor(pools *fakePools, n notify.Notifier, th string, out *bytes.Buffer) *Monitor {
	return New(Options{
		Chain:          pools,
		Assets:         assets,
		ThresholdsFile: th,
		Notifier:       n,
		Out:            out,
		Log:            zap.NewNop(),
		Now:            func() time.Time { return time.Unix(1700000000, 0) },
	})
}

func TestEvaluate(t *testing.T) {
	th := config.Thresholds{Upper: 0.04, Lower: 0.03}
	assert.Equal(t, Above, Evaluate(0.041, th).Direction)
	assert.Equal(t, 0.04, Evaluate(0.041, th).Threshold)
	assert.Equal(t, Below, Evaluate(0.029, th).Direction)
	assert.Equal(t, None, Evaluate(0.035, th).Direction)
	// границы не считаются нарушением
	assert.Equal(t, None, Evaluate(0.04, th).Direction)
	assert.Equal(t, None, Evaluate(0.03, th).Direction)
}

func TestFormatAlert(t *testing.T) {
	up := FormatAlert("ETH/WBTC", Breach{Direction: Above, Ratio: 0.0412345678, Threshold: 0.04})
	assert.Equal(t, "📈 ETH/WBTC ratio is above the upper threshold!\n\nCurrent Ratio: 0.04123457\nUpper Threshold: 0.04000000", up)

	down := FormatAlert("ETH/WBTC", Breach{Direction: Below, Ratio: 0.029, Threshold: 0.03})
	assert.Equal(t, "📉 ETH/WBTC ratio is below the lower threshold!\n\nCurrent Ratio: 0.02900000\nLower Threshold: 0.03000000", down)

	assert.Empty(t, FormatAlert("ETH/WBTC", Breach{}))
}

func TestRead(t *testing.T) {
	pools := &fakePools{ethUSD: 3000, ethBTC: 25}
	m := newMonitor(pools, nil, "", &bytes.Buffer{})

	r, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3000.0, r.QuoteUSD)
	assert.Equal(t, 75000.0, r.BaseUSD)
	assert.Equal(t, 0.04, r.Ratio)
	assert.Equal(t, []uint32{500, 3000}, pools.lastFee)
	assert.Equal(t, "ETH/WBTC", m.Label())
}

func TestCheck_AlertsOncePerTransition(t *testing.T) {
	pools := &fakePools{ethUSD: 3000, ethBTC: 20} // ratio 0.05
	n := &fakeNotifier{}
	var out bytes.Buffer
	m := newMonitor(pools, n, thresholdsFile(t, `{"upper_threshold": 0.04, "lower_threshold": 0.03}`), &out)
	ctx := context.Background()

	res, err := m.Check(ctx)
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	assert.Equal(t, Above, res.Breach.Direction)
	require.Len(t, n.sent, 1)
	assert.Contains(t, n.sent[0], "📈 ETH/WBTC ratio is above the upper threshold!")
	assert.Contains(t, out.String(), "The current price of ETH is: $3,000.00")
	assert.Contains(t, out.String(), "Monitoring ETH/WBTC ratio against thresholds: 0.03000000 - 0.04000000")

	// всё ещё выше, повторно не шлём
	res, err = m.Check(ctx)
	require.NoError(t, err)
	assert.False(t, res.Alerted)
	assert.Len(t, n.sent, 1)

	// вернулись в коридор, потом снова вышли
	pools.ethBTC = 28.5
	res, err = m.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, None, res.Breach.Direction)

	pools.ethBTC = 20
	_, err = m.Check(ctx)
	require.NoError(t, err)
	assert.Len(t, n.sent, 2)

	// сразу вниз
	pools.ethBTC = 40 // 0.025
	res, err = m.Check(ctx)
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	require.Len(t, n.sent, 3)
	assert.Contains(t, n.sent[2], "📉")
}

func TestCheck_FailedDeliveryRetriesNextRun(t *testing.T) {
	pools := &fakePools{ethUSD: 3000, ethBTC: 40}
	n := &fakeNotifier{err: errors.New("telegram: http 502")}
	var out bytes.Buffer
	m := newMonitor(pools, n, thresholdsFile(t, `{"upper_threshold": 0.04, "lower_threshold": 0.03}`), &out)

	res, err := m.Check(context.Background())
	require.NoError(t, err, "delivery errors are not fatal")
	assert.False(t, res.Alerted)
	assert.Contains(t, out.String(), "Error sending Telegram notification")

	n.err = nil
	res, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Alerted)
	assert.Len(t, n.sent, 1)
}

func TestCheck_NotConfiguredSkips(t *testing.T) {
	pools := &fakePools{ethUSD: 3000, ethBTC: 40}
	var out bytes.Buffer
	m := newMonitor(pools, &fakeNotifier{err: notify.ErrNotConfigured}, thresholdsFile(t, `{"upper_threshold": 0.04, "lower_threshold": 0.03}`), &out)

	res, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Alerted)
	assert.Contains(t, out.String(), "Skipping notification")
}

func TestCheck_MissingThresholdsSkips(t *testing.T) {
	pools := &fakePools{ethUSD: 3000, ethBTC: 40}
	n := &fakeNotifier{}
	var out bytes.Buffer
	m := newMonitor(pools, n, filepath.Join(t.TempDir(), "none.json"), &out)

	res, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Thresholds)
	assert.Empty(t, n.sent)
	assert.Contains(t, out.String(), "Skipping threshold check")

	m = newMonitor(pools, n, thresholdsFile(t, `{"upper_threshold": 0.04}`), &out)
	res, err = m.Check(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Thresholds)
}

func TestCheck_PoolNotFound(t *testing.T) {
	pools := &fakePools{err: univ3.ErrPoolNotFound}
	m := newMonitor(pools, &fakeNotifier{}, "", &bytes.Buffer{})
	_, err := m.Check(context.Background())
	assert.ErrorIs(t, err, univ3.ErrPoolNotFound)
}
