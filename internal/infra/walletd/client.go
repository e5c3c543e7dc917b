package walletd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/infra"
	"buddy_go/internal/order"
)

// ErrNoMonitor is returned by account calls made before AddMonitor.
var ErrNoMonitor = errors.New("no account monitor registered")

// Client talks to the wallet daemon's JSON gateway.
// Account-scoped calls use subaddress 0 of the registered monitor.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *infra.RateLimiter

	mu        sync.RWMutex
	monitorID string
}

// NewClient creates a client. requestsPerSec <= 0 disables rate limiting.
func NewClient(baseURL string, timeout time.Duration, requestsPerSec float64) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	if requestsPerSec > 0 {
		c.limiter = infra.NewRateLimiter(max(1, int(requestsPerSec)), requestsPerSec)
	}
	return c
}

// MonitorID returns the registered monitor, or "" before AddMonitor.
func (c *Client) MonitorID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.monitorID
}

func (c *Client) monitorPath(suffix string) (string, error) {
	id := c.MonitorID()
	if id == "" {
		return "", ErrNoMonitor
	}
	return "/monitors/" + id + suffix, nil
}

// BlockCount returns the number of blocks in the local ledger.
func (c *Client) BlockCount(ctx context.Context) (uint64, error) {
	var resp ledgerInfoResponse
	if err := c.do(ctx, http.MethodGet, "/ledger/local", nil, &resp); err != nil {
		return 0, err
	}
	return resp.BlockCount, nil
}

// AddMonitor registers the account with the daemon and remembers the monitor id.
func (c *Client) AddMonitor(ctx context.Context, key AccountKey) (string, error) {
	req := addMonitorRequest{AccountKey: key, FirstSubaddress: 0, NumSubaddresses: 1}
	var resp addMonitorResponse
	if err := c.do(ctx, http.MethodPost, "/monitors", req, &resp); err != nil {
		return "", err
	}
	if resp.MonitorID == "" {
		return "", fmt.Errorf("daemon returned an empty monitor id")
	}
	c.mu.Lock()
	c.monitorID = resp.MonitorID
	c.mu.Unlock()
	return resp.MonitorID, nil
}

// MonitorNextBlock returns the next block the monitor will scan.
func (c *Client) MonitorNextBlock(ctx context.Context) (uint64, error) {
	path, err := c.monitorPath("")
	if err != nil {
		return 0, err
	}
	var resp monitorStatusResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.NextBlock, nil
}

func (c *Client) Balance(ctx context.Context, token domain.TokenID) (uint64, error) {
	path, err := c.monitorPath("/subaddresses/0/balance?token_id=" + token.String())
	if err != nil {
		return 0, err
	}
	var resp balanceResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Balance, nil
}

func (c *Client) UnspentOutputs(ctx context.Context, token domain.TokenID) ([]UTXO, error) {
	path, err := c.monitorPath("/subaddresses/0/utxos?token_id=" + token.String())
	if err != nil {
		return nil, err
	}
	var resp utxosResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.OutputList, nil
}

func (c *Client) PublicAddress(ctx context.Context) (string, error) {
	path, err := c.monitorPath("/subaddresses/0/public-address")
	if err != nil {
		return "", err
	}
	var resp publicAddressResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.B58AddressCode, nil
}

// MinimumFees returns the network minimum fee per token id.
func (c *Client) MinimumFees(ctx context.Context) (map[domain.TokenID]uint64, error) {
	var resp networkStatusResponse
	if err := c.do(ctx, http.MethodGet, "/network-status", nil, &resp); err != nil {
		return nil, err
	}
	fees := make(map[domain.TokenID]uint64, len(resp.MinimumFees))
	for k, v := range resp.MinimumFees {
		id, err := domain.ParseTokenID(k)
		if err != nil {
			return nil, fmt.Errorf("minimum fee token id %q: %w", k, err)
		}
		fee, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("minimum fee for token %s: %w", k, err)
		}
		fees[id] = fee
	}
	return fees, nil
}

// SendPayment pays amount to a b58 address from the monitored account.
func (c *Client) SendPayment(ctx context.Context, amount domain.Amount, recipient string) (Receipt, error) {
	path, err := c.monitorPath("/subaddresses/0/pay-address-code")
	if err != nil {
		return Receipt{}, err
	}
	req := payRequest{ReceiverB58Code: recipient, Value: amount.Value, TokenID: amount.TokenID}
	var resp receiptResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return Receipt{}, err
	}
	return resp.SenderTxReceipt, nil
}

func (c *Client) TxStatus(ctx context.Context, receipt Receipt) (TxStatus, error) {
	var resp statusResponse
	if err := c.do(ctx, http.MethodPost, "/tx/status-as-sender", statusRequest{Receipt: receipt}, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// GenerateSwap asks the daemon to sign a partial-fill order spending input
// in exchange for counter.
func (c *Client) GenerateSwap(ctx context.Context, input UTXO, counter domain.Amount, minFill uint64) (*order.SignedOrder, error) {
	path, err := c.monitorPath("/swaps/generate")
	if err != nil {
		return nil, err
	}
	req := generateSwapRequest{
		Input:            input,
		CounterValue:     counter.Value,
		CounterTokenID:   counter.TokenID,
		AllowPartialFill: true,
		MinimumFillValue: minFill,
	}
	var resp generateSwapResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	if resp.SCI == nil {
		return nil, fmt.Errorf("daemon returned no signed order")
	}
	return resp.SCI, nil
}

// GenerateFulfillment builds a transaction consuming sci at partialFill,
// funded by inputs, paying the fee in feeToken.
func (c *Client) GenerateFulfillment(ctx context.Context, sci *order.SignedOrder, partialFill uint64, inputs []UTXO, feeToken domain.TokenID) (TxProposal, error) {
	path, err := c.monitorPath("/swaps/fulfill")
	if err != nil {
		return TxProposal{}, err
	}
	req := fulfillRequest{SCI: sci, PartialFillValue: partialFill, InputList: inputs, FeeTokenID: feeToken}
	var resp txProposalResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return TxProposal{}, err
	}
	return resp.TxProposal, nil
}

func (c *Client) SubmitTx(ctx context.Context, tx TxProposal) (Receipt, error) {
	var resp receiptResponse
	if err := c.do(ctx, http.MethodPost, "/tx/submit", submitRequest{TxProposal: tx}, &resp); err != nil {
		return Receipt{}, err
	}
	return resp.SenderTxReceipt, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", infra.GetUserAgent())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, pathOnly(path), apiErr.Error)
		}
		return fmt.Errorf("%s %s: unexpected status code: %d", method, pathOnly(path), resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		slog.Debug("walletd response decode failed", "path", pathOnly(path), "body", string(data))
		return fmt.Errorf("decode %s: %w", pathOnly(path), err)
	}
	return nil
}

func pathOnly(p string) string {
	if u, err := url.Parse(p); err == nil {
		return u.Path
	}
	return p
}
