package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/you/lp-tools/internal/liquidity"
)

// Адреса Uniswap V3 одинаковые на Mainnet и Arbitrum
const (
	DefaultFactory         = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	DefaultPositionManager = "0xC36442b4a4522E871399CD717aBDD847Ab11FE88"
	// Multicall2 на Arbitrum One
	DefaultMulticall = "0x842eC2c7D803033Edf55E478F461FC547Bc54EB2"
)

// PublicArbitrumRPCs are tried in order when no node URL is configured or it is unreachable.
var PublicArbitrumRPCs = []string{
	"https://arb1.arbitrum.io/rpc",
	"https://rpc.ankr.com/arbitrum",
	"https://arbitrum-one.public.blastapi.io",
}

type ChainConfig struct {
	RPCHTTP       string   `yaml:"rpc_http"`
	FallbackRPCs  []string `yaml:"fallback_rpcs"`
	Multicall     string   `yaml:"multicall"` // пусто: без батчинга
	CallTimeoutMs int      `yaml:"call_timeout_ms"`
}

type UniswapConfig struct {
	Factory         string   `yaml:"factory"`
	PositionManager string   `yaml:"position_manager"`
	FeeTiers        []uint32 `yaml:"fee_tiers"`
}

type TokenConfig struct {
	Address     string `yaml:"address"`
	Symbol      string `yaml:"symbol"`
	Decimals    int    `yaml:"decimals"`
	CoinGeckoID string `yaml:"coingecko_id"`
}

// PairConfig references two entries of Tokens by key.
type PairConfig struct {
	Low         string `yaml:"low"`
	High        string `yaml:"high"`
	Orientation string `yaml:"orientation"` // high_per_low | low_per_high
}

type PriceFeedConfig struct {
	BaseURL   string `yaml:"base_url"`
	ProURL    string `yaml:"pro_url"`
	APIKey    string `yaml:"api_key"`
	Pro       bool   `yaml:"pro"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type MonitorConfig struct {
	ThresholdsFile string   `yaml:"thresholds_file"`
	Schedule       string   `yaml:"schedule"` // cron spec, пусто: один прогон
	Base           string   `yaml:"base"`     // ключ токена, цену которого меряем в Quote (wbtc)
	Quote          string   `yaml:"quote"`    // weth
	USD            string   `yaml:"usd"`      // стейбл для цены Quote в USD
	FeeTiers       []uint32 `yaml:"fee_tiers"`
}

type TelegramConfig struct {
	APIURL    string `yaml:"api_url"`
	BotToken  string `yaml:"bot_token"`
	ChatID    string `yaml:"chat_id"`
	ParseMode string `yaml:"parse_mode"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"` // пусто: состояние алертов в памяти
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type Config struct {
	LogLevel  string                 `yaml:"log_level"`
	EnvFile   string                 `yaml:"env_file"`
	Chain     ChainConfig            `yaml:"chain"`
	Uniswap   UniswapConfig          `yaml:"uniswap"`
	Tokens    map[string]TokenConfig `yaml:"tokens"`
	Pairs     map[string]PairConfig  `yaml:"pairs"`
	PriceFeed PriceFeedConfig        `yaml:"pricefeed"`
	Monitor   MonitorConfig          `yaml:"monitor"`
	Telegram  TelegramConfig         `yaml:"telegram"`
	Redis     RedisConfig            `yaml:"redis"`
	Metrics   MetricsConfig          `yaml:"metrics"`
}

// Default returns the built-in Arbitrum setup; a config file only needs to override what differs.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		EnvFile:  ".env",
		Chain: ChainConfig{
			RPCHTTP:       "https://arb1.arbitrum.io/rpc",
			FallbackRPCs:  append([]string(nil), PublicArbitrumRPCs...),
			Multicall:     DefaultMulticall,
			CallTimeoutMs: 10_000,
		},
		Uniswap: UniswapConfig{
			Factory:         DefaultFactory,
			PositionManager: DefaultPositionManager,
			FeeTiers:        []uint32{100, 500, 3000, 10000},
		},
		Tokens: map[string]TokenConfig{
			"weth":   {Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Symbol: "ETH", Decimals: 18, CoinGeckoID: "ethereum"},
			"wbtc":   {Address: "0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f", Symbol: "WBTC", Decimals: 8, CoinGeckoID: "wrapped-bitcoin"},
			"usdc":   {Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Symbol: "USDC", Decimals: 6, CoinGeckoID: "usd-coin"},
			"pendle": {Address: "0x0c880f6761F1af8d9Aa9C466984b80DAb9a8c9e8", Symbol: "PENDLE", Decimals: 18, CoinGeckoID: "pendle"},
		},
		Pairs: map[string]PairConfig{
			// цены вводятся как WBTC за 1 ETH
			"wbtc-eth": {Low: "wbtc", High: "weth", Orientation: "low_per_high"},
			// цены вводятся как PENDLE за 1 ETH
			"pendle-eth": {Low: "weth", High: "pendle", Orientation: "high_per_low"},
		},
		PriceFeed: PriceFeedConfig{
			BaseURL:   "https://api.coingecko.com/api/v3",
			ProURL:    "https://pro-api.coingecko.com/api/v3",
			TimeoutMs: 10_000,
		},
		Monitor: MonitorConfig{
			ThresholdsFile: "thresholds.json",
			Base:           "wbtc",
			Quote:          "weth",
			USD:            "usdc",
			FeeTiers:       []uint32{500, 3000},
		},
		Telegram: TelegramConfig{
			APIURL:    "https://api.telegram.org",
			ParseMode: "Markdown",
			TimeoutMs: 10_000,
		},
		Redis: RedisConfig{KeyPrefix: "lp:"},
	}
}

// Load reads path over the defaults, overlays .env / environment and validates.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	// .env не обязателен
	_ = godotenv.Load(c.EnvFile)
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ETHEREUM_NODE_URL"); v != "" {
		c.Chain.RPCHTTP = v
	} else if v := os.Getenv("ARBITRUM_RPC_URL"); v != "" {
		c.Chain.RPCHTTP = v
	}
	setFromEnv(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setFromEnv(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setFromEnv(&c.PriceFeed.APIKey, "COINGECKO_API_KEY")
	setFromEnv(&c.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&c.Redis.Password, "REDIS_PASSWORD")
	setFromEnv(&c.Metrics.ListenAddr, "METRICS_ADDR")
	setFromEnv(&c.LogLevel, "LOG_LEVEL")
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	for _, a := range []struct{ name, addr string }{
		{"uniswap.factory", c.Uniswap.Factory},
		{"uniswap.position_manager", c.Uniswap.PositionManager},
	} {
		if _, err := ParseAddress(a.addr); err != nil {
			return fmt.Errorf("%s: %w", a.name, err)
		}
	}
	if c.Chain.Multicall != "" {
		if _, err := ParseAddress(c.Chain.Multicall); err != nil {
			return fmt.Errorf("chain.multicall: %w", err)
		}
	}
	for _, key := range sortedKeys(c.Tokens) {
		t := c.Tokens[key]
		if _, err := ParseAddress(t.Address); err != nil {
			return fmt.Errorf("tokens.%s: %w", key, err)
		}
		if t.Decimals < 0 || t.Decimals > 36 {
			return fmt.Errorf("tokens.%s: bad decimals %d", key, t.Decimals)
		}
	}
	for _, name := range sortedKeys(c.Pairs) {
		if _, err := c.Pair(name); err != nil {
			return err
		}
	}
	for _, fee := range append(append([]uint32(nil), c.Uniswap.FeeTiers...), c.Monitor.FeeTiers...) {
		if fee == 0 || fee >= 1_000_000 {
			return fmt.Errorf("bad fee tier %d", fee)
		}
	}
	return nil
}

// Token returns the token registered under key.
func (c *Config) Token(key string) (TokenConfig, error) {
	t, ok := c.Tokens[key]
	if !ok {
		return TokenConfig{}, fmt.Errorf("unknown token %q", key)
	}
	if t.Symbol == "" {
		t.Symbol = key
	}
	return t, nil
}

// Pair builds the allocator pair for a configured preset.
func (c *Config) Pair(name string) (liquidity.Pair, error) {
	pc, ok := c.Pairs[name]
	if !ok {
		return liquidity.Pair{}, fmt.Errorf("unknown pair %q (known: %v)", name, sortedKeys(c.Pairs))
	}
	low, err := c.Token(pc.Low)
	if err != nil {
		return liquidity.Pair{}, fmt.Errorf("pairs.%s.low: %w", name, err)
	}
	high, err := c.Token(pc.High)
	if err != nil {
		return liquidity.Pair{}, fmt.Errorf("pairs.%s.high: %w", name, err)
	}
	if low.CoinGeckoID == "" || high.CoinGeckoID == "" {
		return liquidity.Pair{}, fmt.Errorf("pairs.%s: both tokens need coingecko_id", name)
	}
	o, err := liquidity.ParseOrientation(pc.Orientation)
	if err != nil {
		return liquidity.Pair{}, fmt.Errorf("pairs.%s: %w", name, err)
	}
	return liquidity.Pair{
		Name:        name,
		Low:         liquidity.Asset{Symbol: low.Symbol, PriceID: low.CoinGeckoID},
		High:        liquidity.Asset{Symbol: high.Symbol, PriceID: high.CoinGeckoID},
		Orientation: o,
	}, nil
}

// PairNames lists configured presets in stable order.
func (c *Config) PairNames() []string { return sortedKeys(c.Pairs) }

// RPCURLs returns the primary node followed by the fallbacks, without duplicates.
func (c *Config) RPCURLs() []string {
	seen := make(map[string]struct{}, len(c.Chain.FallbackRPCs)+1)
	out := make([]string, 0, len(c.Chain.FallbackRPCs)+1)
	for _, u := range append([]string{c.Chain.RPCHTTP}, c.Chain.FallbackRPCs...) {
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func (c *Config) CallTimeout() time.Duration {
	return msOr(c.Chain.CallTimeoutMs, 10*time.Second)
}
func (c *Config) PriceFeedTimeout() time.Duration {
	return msOr(c.PriceFeed.TimeoutMs, 10*time.Second)
}
func (c *Config) TelegramTimeout() time.Duration {
	return msOr(c.Telegram.TimeoutMs, 10*time.Second)
}

func msOr(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
