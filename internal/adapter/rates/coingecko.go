package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loan-settlement-engine/internal/domain/apperr"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const service = "rate_oracle"

// DefaultAssetIDs maps ticker symbols to CoinGecko asset ids.
var DefaultAssetIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"USDT": "tether",
	"USDC": "usd-coin",
}

// CoinGecko reads spot prices from a /simple/price endpoint. It never caches:
// every call is a fresh quote or an error.
type CoinGecko struct {
	baseURL    string
	apiKey     string
	ids        map[string]string
	httpClient *http.Client
	log        *zap.Logger
}

type Option func(*CoinGecko)

func WithAPIKey(key string) Option { return func(c *CoinGecko) { c.apiKey = key } }

func WithAssetIDs(ids map[string]string) Option { return func(c *CoinGecko) { c.ids = ids } }

func WithLogger(l *zap.Logger) Option { return func(c *CoinGecko) { c.log = l } }

func NewCoinGecko(baseURL string, timeout time.Duration, opts ...Option) *CoinGecko {
	c := &CoinGecko{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		ids:        DefaultAssetIDs,
		httpClient: &http.Client{Timeout: timeout},
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Price returns the fiat value of one whole unit of crypto.
func (c *CoinGecko) Price(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	id, ok := c.ids[strings.ToUpper(crypto)]
	if !ok {
		return decimal.Zero, apperr.Validation("crypto_currency", "unsupported_currency",
			fmt.Sprintf("no price feed for %q", crypto))
	}
	vs := strings.ToLower(fiat)

	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", vs)
	q.Set("precision", "full")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, apperr.External(service, false, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.apiKey)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("rate oracle unreachable", zap.String("asset", id), zap.Error(err))
		return decimal.Zero, apperr.External(service, true, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return decimal.Zero, apperr.External(service, true, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return decimal.Zero, apperr.External(service, true, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 300 {
		return decimal.Zero, apperr.External(service, false, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body)))
	}

	var prices map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &prices); err != nil {
		return decimal.Zero, apperr.External(service, false, fmt.Errorf("decode price: %w", err))
	}
	price, ok := prices[id][vs]
	if !ok {
		return decimal.Zero, apperr.External(service, false, errors.New("price missing for "+id+"/"+vs))
	}
	if !price.IsPositive() {
		return decimal.Zero, apperr.External(service, false, fmt.Errorf("non-positive price %s for %s", price, id))
	}

	c.log.Debug("rate fetched",
		zap.String("asset", id),
		zap.String("fiat", vs),
		zap.String("price", price.String()),
		zap.Duration("took", time.Since(started)))
	return price, nil
}

func truncate(b []byte) string {
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}
