package pricefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/you/lp-tools/internal/liquidity"
	"github.com/you/lp-tools/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultProURL  = "https://pro-api.coingecko.com/api/v3"
)

// ErrNetwork: цену получить не удалось (транспорт, HTTP-статус, битый ответ).
var ErrNetwork = errors.New("price feed unavailable")

// Provider отдаёт цены в USD по идентификаторам активов.
// Отсутствующие у источника id в ответ не попадают.
type Provider interface {
	Prices(ctx context.Context, ids ...string) (liquidity.Quote, error)
}

type HTTPError struct {
	Status        int
	URL           string
	Body          string
	Code          int  // status.error_code из тела, если есть
	WrongRootPro  bool // 10010: нужен pro-api.coingecko.com
	WrongRootDemo bool // 10011: нужен api.coingecko.com
	RateLimited   bool
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.URL, e.Body)
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	msg := strings.TrimSpace(string(body))
	lmsg := strings.ToLower(msg)

	var env struct {
		Status struct {
			ErrorCode int `json:"error_code"`
		} `json:"status"`
	}
	_ = json.Unmarshal(body, &env)
	code := env.Status.ErrorCode

	u := ""
	if resp.Request != nil {
		u = resp.Request.URL.Redacted()
	}
	return &HTTPError{
		Status:        resp.StatusCode,
		URL:           u,
		Body:          msg,
		Code:          code,
		WrongRootPro:  code == 10010 || (resp.StatusCode == 400 && strings.Contains(lmsg, "to pro-api.coingecko.com")),
		WrongRootDemo: code == 10011 || (resp.StatusCode == 400 && strings.Contains(lmsg, "demo api key")),
		RateLimited:   resp.StatusCode == http.StatusTooManyRequests || strings.Contains(lmsg, "throttled"),
	}
}

type Config struct {
	BaseURL string
	ProURL  string
	APIKey  string
	Pro     bool // ключ от Pro-плана: стартуем с ProURL
	Timeout time.Duration
}

// CoinGecko: клиент /simple/price. Корень API (demo/pro) переключается сам,
// если CoinGecko отвечает 10010/10011, и запоминается на время жизни клиента.
type CoinGecko struct {
	cli *http.Client
	cfg Config
	log *zap.Logger

	mu  sync.Mutex
	pro bool
}

func NewCoinGecko(cfg Config, cli *http.Client, log *zap.Logger) *CoinGecko {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ProURL == "" {
		cfg.ProURL = DefaultProURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cli == nil {
		cli = &http.Client{Timeout: cfg.Timeout}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CoinGecko{cli: cli, cfg: cfg, log: log, pro: cfg.Pro}
}

func (c *CoinGecko) root() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pro {
		return c.cfg.ProURL, true
	}
	return c.cfg.BaseURL, false
}

func (c *CoinGecko) setPro(pro bool) {
	c.mu.Lock()
	c.pro = pro
	c.mu.Unlock()
}

// Prices запрашивает USD-цены для ids.
func (c *CoinGecko) Prices(ctx context.Context, ids ...string) (liquidity.Quote, error) {
	if len(ids) == 0 {
		return liquidity.Quote{}, nil
	}
	start := time.Now()
	defer func() { metrics.PriceFeedLatency.Observe(time.Since(start).Seconds()) }()

	path := "/simple/price?ids=" + url.QueryEscape(strings.Join(ids, ",")) + "&vs_currencies=usd"

	var body map[string]map[string]float64
	err := c.get(ctx, path, &body)
	var he *HTTPError
	if errors.As(err, &he) && (he.WrongRootPro || he.WrongRootDemo) {
		// не ретрай: запрос ушёл не на тот корень для этого ключа
		c.log.Info("coingecko wrong root, switching",
			zap.Int("code", he.Code), zap.Bool("pro", he.WrongRootPro))
		c.setPro(he.WrongRootPro)
		body = nil
		err = c.get(ctx, path, &body)
	}
	if err != nil {
		return nil, err
	}

	out := make(liquidity.Quote, len(ids))
	for _, id := range ids {
		v, ok := body[id]["usd"]
		if !ok {
			c.log.Warn("coingecko: no usd price", zap.String("id", id))
			continue
		}
		out[id] = v
		metrics.AssetUSD.WithLabelValues(id).Set(v)
	}
	c.log.Debug("coingecko prices", zap.Any("usd", out))
	return out, nil
}

func (c *CoinGecko) get(ctx context.Context, pathAndQuery string, v any) error {
	base, pro := c.root()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+pathAndQuery, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		if pro {
			req.Header.Set("x-cg-pro-api-key", c.cfg.APIKey)
		} else {
			req.Header.Set("x-cg-demo-api-key", c.cfg.APIKey)
		}
	}
	c.log.Debug("coingecko request", zap.String("url", req.URL.Redacted()), zap.Bool("pro", pro), zap.Bool("key", c.cfg.APIKey != ""))

	resp, err := c.cli.Do(req)
	if err != nil {
		metrics.PriceFeedErrors.WithLabelValues("network").Inc()
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		he := newHTTPError(resp, b)
		metrics.PriceFeedErrors.WithLabelValues("http").Inc()
		c.log.Warn("coingecko http error",
			zap.Int("status", he.Status), zap.Int("code", he.Code), zap.Bool("rate_limited", he.RateLimited))
		return fmt.Errorf("%w: %w", ErrNetwork, he)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		metrics.PriceFeedErrors.WithLabelValues("decode").Inc()
		return fmt.Errorf("%w: decode: %w", ErrNetwork, err)
	}
	return nil
}
