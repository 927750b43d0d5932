package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"pumpCurve/internal/model"
)

const (
	defaultPageSize = 100
	maxPages        = 100
)

// Config holds Blockfrost connection settings.
type Config struct {
	BaseURL      string
	ProjectID    string
	Timeout      time.Duration
	MaxRetries   uint
	RetryBackoff time.Duration
}

// Client is a Blockfrost REST client over fasthttp. Reads are retried with
// backoff; submissions are not.
type Client struct {
	cfg    Config
	http   *fasthttp.Client
	logger *zap.Logger
}

// APIError is a non-2xx Blockfrost response.
type APIError struct {
	Status  int    `json:"status_code"`
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("blockfrost %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("blockfrost %d", e.Status)
}

// Retryable reports whether a read returning this error may be repeated.
func (e *APIError) Retryable() bool {
	return e.Status == fasthttp.StatusTooManyRequests || e.Status >= 500
}

// NewClient creates a Blockfrost client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("blockfrost url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid blockfrost url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg: cfg,
		http: &fasthttp.Client{
			Name:                "pump-curve",
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		logger: logger,
	}, nil
}

type blockfrostUTxO struct {
	Address     string        `json:"address"`
	TxHash      string        `json:"tx_hash"`
	OutputIndex uint32        `json:"output_index"`
	Amount      []model.Asset `json:"amount"`
	DataHash    *string       `json:"data_hash"`
	InlineDatum *string       `json:"inline_datum"`
}

func (u blockfrostUTxO) toModel() model.UTxO {
	out := model.UTxO{
		Input:   model.TxInput{TxHash: u.TxHash, OutputIndex: u.OutputIndex},
		Address: u.Address,
		Amount:  u.Amount,
	}
	if u.InlineDatum != nil {
		out.InlineDatum = *u.InlineDatum
	}
	if u.DataHash != nil {
		out.DataHash = *u.DataHash
	}
	return out
}

// FetchAddressUTxOs returns every unspent output at address. An address the
// provider has never seen yields an empty list.
func (c *Client) FetchAddressUTxOs(ctx context.Context, address string) ([]model.UTxO, error) {
	var out []model.UTxO
	for page := 1; page <= maxPages; page++ {
		path := fmt.Sprintf("/addresses/%s/utxos?page=%d&count=%d", url.PathEscape(address), page, defaultPageSize)
		var batch []blockfrostUTxO
		err := c.getJSON(ctx, path, &batch)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Status == fasthttp.StatusNotFound {
				return out, nil
			}
			return nil, fmt.Errorf("%w: fetch utxos at %s: %v", model.ErrProviderError, address, err)
		}
		for _, u := range batch {
			out = append(out, u.toModel())
		}
		if len(batch) < defaultPageSize {
			break
		}
	}
	c.logger.Debug("fetched address utxos", zap.String("address", address), zap.Int("count", len(out)))
	return out, nil
}

// Tip is the latest block as reported by the provider.
type Tip struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
	Slot   uint64 `json:"slot"`
	Time   int64  `json:"time"`
}

// LatestBlock returns the chain tip.
func (c *Client) LatestBlock(ctx context.Context) (Tip, error) {
	var tip Tip
	if err := c.getJSON(ctx, "/blocks/latest", &tip); err != nil {
		return Tip{}, fmt.Errorf("%w: latest block: %v", model.ErrProviderError, err)
	}
	return tip, nil
}

// SubmitTx posts a signed transaction in CBOR and returns its hash. It is
// never retried.
func (c *Client) SubmitTx(ctx context.Context, signedTx []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + "/tx/submit")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/cbor")
	req.Header.Set("project_id", c.cfg.ProjectID)
	req.SetBody(signedTx)

	if err := c.http.DoTimeout(req, resp, c.cfg.Timeout); err != nil {
		return "", fmt.Errorf("%w: submit tx: %v", model.ErrProviderError, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("%w: %v", model.ErrLedgerRejected, decodeAPIError(resp))
	}
	var hash string
	if err := json.Unmarshal(resp.Body(), &hash); err != nil {
		return "", fmt.Errorf("%w: decode submit response: %v", model.ErrProviderError, err)
	}
	c.logger.Info("submitted tx", zap.String("tx_hash", hash))
	return hash, nil
}

func (c *Client) getJSON(ctx context.Context, path string, dest any) error {
	return retry.Do(
		func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return c.get(path, dest)
		},
		retry.Context(ctx),
		retry.Attempts(c.cfg.MaxRetries),
		retry.Delay(c.cfg.RetryBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return false
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Retryable()
			}
			return true
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("blockfrost request failed, retrying",
				zap.String("path", path), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
}

func (c *Client) get(path string, dest any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.cfg.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("project_id", c.cfg.ProjectID)
	req.Header.Set("Accept", "application/json")

	if err := c.http.DoTimeout(req, resp, c.cfg.Timeout); err != nil {
		return err
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *fasthttp.Response) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.Body()))
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}
