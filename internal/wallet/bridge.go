package wallet

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"pumpCurve/internal/model"
)

// Bridge talks JSON over HTTP to a local daemon fronting a browser wallet.
type Bridge struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *zap.Logger
}

type bridgeError struct {
	Error string `json:"error"`
}

// NewBridge creates a bridge client. The daemon is not contacted until the
// first call.
func NewBridge(baseURL string, timeout time.Duration, logger *zap.Logger) (*Bridge, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, model.ErrWalletNotConnected
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		baseURL: baseURL,
		timeout: timeout,
		http:    &fasthttp.Client{Name: "pump-curve", ReadTimeout: timeout, WriteTimeout: timeout},
		logger:  logger,
	}, nil
}

func (b *Bridge) GetChangeAddress(ctx context.Context) (string, error) {
	var out struct {
		Address string `json:"address"`
	}
	if err := b.call(ctx, fasthttp.MethodGet, "/change-address", nil, &out); err != nil {
		return "", err
	}
	if out.Address == "" {
		return "", fmt.Errorf("%w: bridge returned an empty change address", model.ErrProviderError)
	}
	return out.Address, nil
}

func (b *Bridge) GetUtxos(ctx context.Context) ([]model.UTxO, error) {
	var out []model.UTxO
	if err := b.call(ctx, fasthttp.MethodGet, "/utxos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SignTx asks the wallet to balance, witness and serialize tx.
func (b *Bridge) SignTx(ctx context.Context, tx *model.Tx) ([]byte, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx is nil")
	}
	var out struct {
		SignedTx string `json:"signed_tx"`
	}
	if err := b.call(ctx, fasthttp.MethodPost, "/sign", map[string]any{"tx": tx}, &out); err != nil {
		return nil, err
	}
	signed, err := hex.DecodeString(out.SignedTx)
	if err != nil || len(signed) == 0 {
		return nil, fmt.Errorf("%w: bridge returned an invalid signed tx", model.ErrProviderError)
	}
	return signed, nil
}

func (b *Bridge) SubmitTx(ctx context.Context, signedTx []byte) (string, error) {
	var out struct {
		TxHash string `json:"tx_hash"`
	}
	err := b.call(ctx, fasthttp.MethodPost, "/submit", map[string]string{"signed_tx": hex.EncodeToString(signedTx)}, &out)
	if err != nil {
		return "", err
	}
	b.logger.Info("wallet submitted tx", zap.String("tx_hash", out.TxHash))
	return out.TxHash, nil
}

func (b *Bridge) call(ctx context.Context, method, path string, body any, dest any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(b.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := b.http.DoTimeout(req, resp, timeout); err != nil {
		return fmt.Errorf("%w: %s %s: %v", model.ErrWalletNotConnected, method, path, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		msg := strings.TrimSpace(string(resp.Body()))
		var be bridgeError
		if json.Unmarshal(resp.Body(), &be) == nil && be.Error != "" {
			msg = be.Error
		}
		kind := model.ErrProviderError
		if path == "/submit" {
			kind = model.ErrLedgerRejected
		}
		return fmt.Errorf("%w: %s %s: %d %s", kind, method, path, resp.StatusCode(), msg)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), dest); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", model.ErrProviderError, path, err)
	}
	return nil
}
