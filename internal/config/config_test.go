package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you/lp-tools/internal/liquidity"
)

// unsetEnv очищает переменную на время теста (t.Setenv вернёт исходное значение).
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

var envKeys = []string{
	"ETHEREUM_NODE_URL", "ARBITRUM_RPC_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"COINGECKO_API_KEY", "REDIS_ADDR", "REDIS_PASSWORD", "METRICS_ADDR", "LOG_LEVEL",
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultFactory, cfg.Uniswap.Factory)
	assert.Equal(t, []uint32{500, 3000}, cfg.Monitor.FeeTiers)
	assert.Equal(t, "https://arb1.arbitrum.io/rpc", cfg.Chain.RPCHTTP)
	assert.Equal(t, []string{"pendle-eth", "wbtc-eth"}, cfg.PairNames())
}

func TestLoad_FileOverridesAndMergesMaps(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
log_level: debug
env_file: `+filepath.Join(dir, "missing.env")+`
chain:
  rpc_http: http://localhost:8545
  call_timeout_ms: 2500
tokens:
  arb:
    address: "0x912ce59144191c1204e64559fe8253a0e49e6548"
    symbol: ARB
    decimals: 18
    coingecko_id: arbitrum
pairs:
  arb-eth:
    low: weth
    high: arb
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "http://localhost:8545", cfg.Chain.RPCHTTP)
	assert.Equal(t, int64(2500), cfg.CallTimeout().Milliseconds())
	// дефолтные токены никуда не делись
	assert.Contains(t, cfg.Tokens, "wbtc")
	assert.Contains(t, cfg.Tokens, "arb")

	pair, err := cfg.Pair("arb-eth")
	require.NoError(t, err)
	assert.Equal(t, "ETH", pair.Low.Symbol)
	assert.Equal(t, "arbitrum", pair.High.PriceID)
	assert.Equal(t, liquidity.HighPerLow, pair.Orientation)
}

func TestLoad_EnvOverlay(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=tok\nTELEGRAM_CHAT_ID=42\nARBITRUM_RPC_URL=http://arb.local\n")
	p := writeFile(t, dir, "config.yaml", "env_file: "+envPath+"\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "tok", cfg.Telegram.BotToken)
	assert.Equal(t, "42", cfg.Telegram.ChatID)
	assert.Equal(t, "http://arb.local", cfg.Chain.RPCHTTP)

	// ETHEREUM_NODE_URL важнее ARBITRUM_RPC_URL
	t.Setenv("ETHEREUM_NODE_URL", "http://node.local")
	cfg, err = Load(p)
	require.NoError(t, err)
	assert.Equal(t, "http://node.local", cfg.Chain.RPCHTTP)
}

func TestLoad_RejectsBadChecksum(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	// WETH с испорченным регистром одной буквы
	p := writeFile(t, dir, "config.yaml", `
tokens:
  weth:
    address: "0x82Af49447D8a07e3bd95BD0d56f35241523fBab1"
    decimals: 18
    coingecko_id: ethereum
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tokens.weth")
}

func TestLoad_RejectsUnknownPairToken(t *testing.T) {
	unsetEnv(t, envKeys...)
	dir := t.TempDir()
	p := writeFile(t, dir, "config.yaml", `
pairs:
  foo-eth:
    low: foo
    high: weth
`)
	_, err := Load(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown token "foo"`)
}

func TestRPCURLs_Dedup(t *testing.T) {
	cfg := Default()
	urls := cfg.RPCURLs()
	assert.Equal(t, PublicArbitrumRPCs, urls)

	cfg.Chain.RPCHTTP = "http://mine"
	assert.Equal(t, append([]string{"http://mine"}, PublicArbitrumRPCs...), cfg.RPCURLs())
}

func TestPair_Unknown(t *testing.T) {
	_, err := Default().Pair("doge-eth")
	assert.Error(t, err)
}
