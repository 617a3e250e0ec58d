package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/config"
	"github.com/you/lp-tools/internal/liquidity"
	"github.com/you/lp-tools/internal/pricefeed"
)

type staticFeed struct {
	q   liquidity.Quote
	err error
}

func (f staticFeed) Prices(_ context.Context, _ ...string) (liquidity.Quote, error) {
	return f.q, f.err
}

var wbtcEth = staticFeed{q: liquidity.Quote{"wrapped-bitcoin": 60000, "ethereum": 3000}}

func TestParseFlags(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()
	os.Args = []string{"lp-calc", "-pair=pendle-eth", "-total=500", "-min=100"}
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	o := parseFlags()
	assert.Equal(t, "pendle-eth", o.pair)
	assert.Equal(t, "./config.yaml", o.cfgPath)
	assert.Equal(t, 500.0, o.total)
	assert.Equal(t, 100.0, o.min)
	assert.Zero(t, o.max)
}

func TestPrompter_Reprompts(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("abc\n-1\n0\n2.5\n"), &out)
	v, err := p.float("total: ", positiveNumber)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)
	assert.Equal(t, 1, strings.Count(out.String(), "Invalid input. Please enter a number."))
	assert.Equal(t, 2, strings.Count(out.String(), "Please enter a positive number."))
	assert.Equal(t, 4, strings.Count(out.String(), "total: "))
}

func TestPrompter_MaxAboveMin(t *testing.T) {
	var out bytes.Buffer
	p := newPrompter(strings.NewReader("0.03\n0.04\n0.06\n"), &out)
	v, err := p.float("max: ", above(0.04))
	require.NoError(t, err)
	assert.Equal(t, 0.06, v)
	assert.Equal(t, 2, strings.Count(out.String(), "Maximum price must be greater than the minimum price."))
}

func TestPrompter_EOF(t *testing.T) {
	p := newPrompter(strings.NewReader("x\n"), io.Discard)
	_, err := p.float("total: ", positiveNumber)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRun_Interactive(t *testing.T) {
	var out bytes.Buffer
	in := strings.NewReader("1000\n0.04\n0.03\n0.06\n")
	err := run(context.Background(), config.Default(), options{pair: "wbtc-eth"}, wbtcEth, in, &out, zap.NewNop())
	require.NoError(t, err)

	s := out.String()
	assert.Contains(t, s, "Current price (WBTC per ETH): 0.05000000")
	assert.Contains(t, s, "Maximum price must be greater than the minimum price.")
	assert.Contains(t, s, "For a $1,000.00 investment with a range of 0.04000000 to 0.06000000 WBTC per ETH")
	assert.Contains(t, s, "in range, both assets")
	assert.Contains(t, s, "Total Calculated Value: $1,000.00")
	assert.NotContains(t, s, "MISMATCH")
}

func TestRun_FlagsSkipPrompts(t *testing.T) {
	var out bytes.Buffer
	opt := options{pair: "wbtc-eth", total: 1000, min: 0.06, max: 0.08}
	err := run(context.Background(), config.Default(), opt, wbtcEth, strings.NewReader(""), &out, zap.NewNop())
	require.NoError(t, err)
	assert.NotContains(t, out.String(), "Enter the")
	// текущая цена 0.05 ниже диапазона в WBTC за ETH: вся позиция в ETH
	assert.Contains(t, out.String(), "out of range, 100% ETH")
}

func TestRun_FeedError(t *testing.T) {
	var out bytes.Buffer
	feed := staticFeed{err: pricefeed.ErrNetwork}
	err := run(context.Background(), config.Default(), options{pair: "wbtc-eth"}, feed, strings.NewReader(""), &out, zap.NewNop())
	assert.True(t, errors.Is(err, pricefeed.ErrNetwork))
	assert.Contains(t, out.String(), "Error fetching prices from CoinGecko")
	assert.NotContains(t, out.String(), "Enter the")
}

func TestRun_MissingQuote(t *testing.T) {
	for _, q := range []liquidity.Quote{
		{"ethereum": 3000},
		{"ethereum": 3000, "wrapped-bitcoin": 0},
	} {
		var out bytes.Buffer
		err := run(context.Background(), config.Default(), options{pair: "wbtc-eth", total: 1000, min: 0.04, max: 0.06},
			staticFeed{q: q}, strings.NewReader(""), &out, zap.NewNop())
		assert.ErrorIs(t, err, liquidity.ErrInvalidInput)
		assert.Contains(t, out.String(), "Error: invalid input")
		assert.NotContains(t, out.String(), "Current price")
		assert.NotContains(t, out.String(), "Required Liquidity")
	}
}

func TestRun_InputEnds(t *testing.T) {
	err := run(context.Background(), config.Default(), options{pair: "wbtc-eth"}, wbtcEth, strings.NewReader("1000\n"), io.Discard, zap.NewNop())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestRun_UnknownPair(t *testing.T) {
	err := run(context.Background(), config.Default(), options{pair: "doge-eth"}, wbtcEth, strings.NewReader(""), io.Discard, zap.NewNop())
	assert.Error(t, err)
}
