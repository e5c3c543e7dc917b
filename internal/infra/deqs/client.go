package deqs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/infra"
	"buddy_go/internal/order"
	"buddy_go/internal/quote"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
)

// Client is a JSON-RPC client for the quoting service over a reconnecting
// websocket. Responses are matched to calls by request id.
type Client struct {
	url     string
	ws      *infra.BaseWSWorker
	breaker *infra.CircuitBreaker
	timeout time.Duration

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan rpcResponse
}

func NewClient(url string, timeout time.Duration) *Client {
	c := &Client{
		url:     url,
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("deqs")),
		timeout: timeout,
		pending: make(map[uint64]chan rpcResponse),
	}
	c.ws = infra.NewBaseWSWorker(c)
	return c
}

// Start begins connecting in the background.
func (c *Client) Start(ctx context.Context) { c.ws.Start(ctx) }

func (c *Client) Stop() { c.ws.Stop() }

// WebSocketHandler implementation.

func (c *Client) GetURL() string { return c.url }
func (c *Client) ID() string     { return "DEQS" }

func (c *Client) OnConnect(ctx context.Context, conn *websocket.Conn) error { return nil }

func (c *Client) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return c.ws.Write(websocket.PingMessage, nil)
}

func (c *Client) OnMessage(ctx context.Context, msg []byte) {
	var resp rpcResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		slog.Warn("DEQS: undecodable message", "err", err)
		return
	}

	c.mu.Lock()
	ch, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if !ok {
		slog.Debug("DEQS: response for unknown request", "id", resp.ID)
		return
	}
	ch <- resp
}

// GetQuotes fetches up to limit orders offering pair.Base for pair.Counter.
func (c *Client) GetQuotes(ctx context.Context, pair domain.Pair, limit int) ([]quote.RawQuote, error) {
	params := getQuotesParams{BaseTokenID: pair.Base, CounterTokenID: pair.Counter, Limit: limit}
	var res getQuotesResult
	if err := c.call(ctx, "get_quotes", params, &res); err != nil {
		return nil, err
	}
	out := make([]quote.RawQuote, 0, len(res.Quotes))
	for _, q := range res.Quotes {
		out = append(out, quote.RawQuote{ID: q.ID, Order: q.SCI, Timestamp: q.Timestamp})
	}
	return out, nil
}

// SubmitQuotes submits signed orders and returns one result per order.
func (c *Client) SubmitQuotes(ctx context.Context, orders []*order.SignedOrder) ([]SubmitResult, error) {
	var res submitQuotesResult
	if err := c.call(ctx, "submit_quotes", submitQuotesParams{Quotes: orders}, &res); err != nil {
		return nil, err
	}
	if len(res.StatusCodes) != len(orders) {
		return nil, fmt.Errorf("submit_quotes: %d status codes for %d orders", len(res.StatusCodes), len(orders))
	}
	out := make([]SubmitResult, len(orders))
	for i, code := range res.StatusCodes {
		out[i].Status = code
		if i < len(res.ErrorMessages) {
			out[i].Message = res.ErrorMessages[i]
		}
		if i < len(res.Quotes) {
			out[i].QuoteID = res.Quotes[i].ID
		}
	}
	return out, nil
}

// BreakerState reports whether calls to the quoting service are flowing.
func (c *Client) BreakerState() infra.BreakerState {
	return c.breaker.State()
}

// Connected reports whether the websocket session is up.
func (c *Client) Connected() bool {
	return c.ws.IsConnected()
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	err := c.breaker.Do(func() error {
		return c.roundTrip(ctx, method, params, out)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params, out any) error {
	if err := c.ws.WaitConnected(ctx); err != nil {
		return fmt.Errorf("not connected: %w", err)
	}

	id := c.nextID.Inc()
	ch := make(chan rpcResponse, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.ws.WriteJSON(rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case resp := <-ch:
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, out)
	}
}
