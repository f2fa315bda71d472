package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTxNotFound is returned by an Explorer when the provider has never seen the transaction.
var ErrTxNotFound = errors.New("explorer: transaction not found")

type EsploraTx struct {
	TxID   string          `json:"txid"`
	Vout   []EsploraOutput `json:"vout"`
	Status EsploraStatus   `json:"status"`
}

type EsploraOutput struct {
	ScriptPubKeyAddress string `json:"scriptpubkey_address"`
	Value               int64  `json:"value"` // satoshis
}

type EsploraStatus struct {
	Confirmed   bool  `json:"confirmed"`
	BlockHeight int64 `json:"block_height"`
}

// Explorer is a Bitcoin block-explorer API.
type Explorer interface {
	Transaction(ctx context.Context, txid string) (*EsploraTx, error)
	TipHeight(ctx context.Context) (int64, error)
}

// Esplora talks to a Blockstream/mempool.space style REST API.
type Esplora struct {
	baseURL    string
	httpClient *http.Client
}

func NewEsplora(baseURL string, timeout time.Duration) *Esplora {
	return &Esplora{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Esplora) Transaction(ctx context.Context, txid string) (*EsploraTx, error) {
	body, err := c.get(ctx, "/tx/"+txid)
	if err != nil {
		return nil, err
	}
	var tx EsploraTx
	if err := json.Unmarshal(body, &tx); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	return &tx, nil
}

func (c *Esplora) TipHeight(ctx context.Context) (int64, error) {
	body, err := c.get(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, err
	}
	h, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode tip height: %w", err)
	}
	return h, nil
}

func (c *Esplora) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTxNotFound
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("explorer %s: status %d", path, resp.StatusCode)
	}
	return body, nil
}

// FallbackExplorer asks the secondary provider only when the primary fails.
// A not-found answer from the primary is trusted.
type FallbackExplorer struct {
	primary, secondary Explorer
	log                *zap.Logger
}

func NewFallbackExplorer(primary, secondary Explorer, log *zap.Logger) *FallbackExplorer {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackExplorer{primary: primary, secondary: secondary, log: log}
}

func (f *FallbackExplorer) Transaction(ctx context.Context, txid string) (*EsploraTx, error) {
	tx, err := f.primary.Transaction(ctx, txid)
	if err == nil || errors.Is(err, ErrTxNotFound) || f.secondary == nil || ctx.Err() != nil {
		return tx, err
	}
	f.log.Warn("primary explorer failed; trying fallback", zap.String("op", "tx"), zap.Error(err))
	return f.secondary.Transaction(ctx, txid)
}

func (f *FallbackExplorer) TipHeight(ctx context.Context) (int64, error) {
	h, err := f.primary.TipHeight(ctx)
	if err == nil || f.secondary == nil || ctx.Err() != nil {
		return h, err
	}
	f.log.Warn("primary explorer failed; trying fallback", zap.String("op", "tip"), zap.Error(err))
	return f.secondary.TipHeight(ctx)
}
