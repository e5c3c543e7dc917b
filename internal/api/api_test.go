package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"buddy_go/internal/address"
	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/infra/walletd"
	"buddy_go/internal/order"
	"buddy_go/internal/quote"
	"buddy_go/internal/storage"
	"buddy_go/internal/swap"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	mob  domain.TokenID = 0
	eusd domain.TokenID = 1
)

var tokens = []domain.TokenInfo{
	{TokenID: mob, Symbol: "MOB", Decimals: 12, Fee: 400_000_000},
	{TokenID: eusd, Symbol: "EUSD", Decimals: 6, Fee: 2560},
}

type fakeState struct {
	mu       sync.Mutex
	synced   uint64
	total    uint64
	balances map[domain.TokenID]uint64
	pair     *domain.Pair
	books    map[domain.Pair][]quote.ValidatedQuote
	errs     []string
}

func newFakeState() *fakeState {
	return &fakeState{
		balances: map[domain.TokenID]uint64{},
		books:    map[domain.Pair][]quote.ValidatedQuote{},
	}
}

func (f *fakeState) SyncProgress() (uint64, uint64) { return f.synced, f.total }
func (f *fakeState) Balance(id domain.TokenID) uint64 {
	return f.balances[id]
}
func (f *fakeState) Balances() map[domain.TokenID]uint64 { return f.balances }
func (f *fakeState) ActivePair() (domain.Pair, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pair == nil {
		return domain.Pair{}, false
	}
	return *f.pair, true
}
func (f *fakeState) SetActivePair(p domain.Pair) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair = &p
}
func (f *fakeState) ClearActivePair() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pair = nil
}
func (f *fakeState) QuoteBook(p domain.Pair) []quote.ValidatedQuote { return f.books[p] }
func (f *fakeState) TopError() (string, bool) {
	if len(f.errs) == 0 {
		return "", false
	}
	return f.errs[0], true
}
func (f *fakeState) PopError() (string, bool) {
	if len(f.errs) == 0 {
		return "", false
	}
	msg := f.errs[0]
	f.errs = f.errs[1:]
	return msg, true
}

type fulfillCall struct {
	sel       quote.QuoteSelection
	from, fee domain.TokenID
}

type fakeActions struct {
	sends    []domain.Amount
	fulfills []fulfillCall
	offers   [][2]domain.Amount
	err      error
}

func (f *fakeActions) Send(ctx context.Context, amount domain.Amount, recipient string) (walletd.Receipt, error) {
	f.sends = append(f.sends, amount)
	return walletd.Receipt{KeyImages: []string{"ki"}, TombstoneBlock: 99}, f.err
}

func (f *fakeActions) Fulfill(ctx context.Context, sel quote.QuoteSelection, fromToken, feeToken domain.TokenID) (walletd.Receipt, error) {
	f.fulfills = append(f.fulfills, fulfillCall{sel, fromToken, feeToken})
	return walletd.Receipt{KeyImages: []string{"ki"}}, f.err
}

func (f *fakeActions) Offer(ctx context.Context, give, want domain.Amount) (deqs.SubmitResult, error) {
	f.offers = append(f.offers, [2]domain.Amount{give, want})
	return deqs.SubmitResult{Status: deqs.StatusCreated, QuoteID: "q-new"}, f.err
}

type fakeHistory struct {
	limit int
}

func (f *fakeHistory) History(ctx context.Context, limit int) ([]storage.Record, error) {
	f.limit = limit
	return []storage.Record{{ID: "e1", Type: event.EvPaymentSent, Ts: 1}}, nil
}

type fixture struct {
	state   *fakeState
	actions *fakeActions
	history *fakeHistory
	handler http.Handler
}

func newFixture(hasQuoter bool) *fixture {
	f := &fixture{state: newFakeState(), actions: &fakeActions{}, history: &fakeHistory{}}
	f.handler = New(Deps{
		State:     f.state,
		Actions:   f.actions,
		History:   f.history,
		Tokens:    tokens,
		Address:   "self-address",
		HasQuoter: hasQuoter,
	}).Router()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func allOrNothing(id string, give, want domain.Amount) quote.ValidatedQuote {
	o := &order.SignedOrder{
		PseudoOutput:    give,
		RequiredOutputs: []domain.Amount{want},
		Payload:         []byte{1},
	}
	q, err := quote.NewValidatedQuote(id, o, 1700000000, order.NewValidator(nil))
	if err != nil {
		panic(err)
	}
	return q
}

func testRecipient() string {
	return address.Encode(address.PublicAddress{
		ViewPublicKey:  bytes.Repeat([]byte{1}, address.KeyLength),
		SpendPublicKey: bytes.Repeat([]byte{2}, address.KeyLength),
	})
}

func TestSync(t *testing.T) {
	f := newFixture(false)
	f.state.synced, f.state.total = 50, 200

	rec := f.do(t, http.MethodGet, "/v1/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[syncResponse](t, rec)
	require.Equal(t, uint64(50), got.SyncedBlocks)
	require.InDelta(t, 25.0, got.Percent, 1e-9)
}

func TestBalances_ConfigOrderAndDisplay(t *testing.T) {
	f := newFixture(false)
	f.state.balances[mob] = 1_500_000_000_000
	f.state.balances[eusd] = 2_500_000

	rec := f.do(t, http.MethodGet, "/v1/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rows := decode[[]balanceRow](t, rec)
	require.Len(t, rows, 2)
	require.Equal(t, "MOB", rows[0].Symbol)
	require.True(t, rows[0].Display.Equal(decimal.RequireFromString("1.5")))
	require.True(t, rows[1].Display.Equal(decimal.RequireFromString("2.5")))
}

type fakeHealth struct {
	connected bool
	state     infra.BreakerState
}

func (f fakeHealth) Connected() bool                  { return f.connected }
func (f fakeHealth) BreakerState() infra.BreakerState { return f.state }

func TestCapabilities(t *testing.T) {
	rec := newFixture(true).do(t, http.MethodGet, "/v1/capabilities", nil)
	require.JSONEq(t, `{"quoting_service":true}`, rec.Body.String())
}

func TestCapabilities_ReportsQuotingSession(t *testing.T) {
	f := newFixture(true)
	f.handler = New(Deps{
		State:     f.state,
		Actions:   f.actions,
		Tokens:    tokens,
		HasQuoter: true,
		Quoting:   fakeHealth{connected: false, state: infra.StateOpen},
	}).Router()

	rec := f.do(t, http.MethodGet, "/v1/capabilities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"quoting_service":true,"quoting_connected":false,"quoting_breaker":"OPEN"}`, rec.Body.String())
}

func TestPair(t *testing.T) {
	f := newFixture(true)

	rec := f.do(t, http.MethodPut, "/v1/pair", map[string]string{"base": "0", "counter": "1"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	p, ok := f.state.ActivePair()
	require.True(t, ok)
	require.Equal(t, domain.Pair{Base: mob, Counter: eusd}, p)

	rec = f.do(t, http.MethodPut, "/v1/pair", map[string]string{"base": "1", "counter": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/pair", map[string]string{"base": "0", "counter": "7"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "unknown token")

	rec = f.do(t, http.MethodDelete, "/v1/pair", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, ok = f.state.ActivePair()
	require.False(t, ok)
}

func TestErrors_TopAndPop(t *testing.T) {
	f := newFixture(false)
	require.Equal(t, http.StatusNoContent, f.do(t, http.MethodGet, "/v1/errors/top", nil).Code)

	f.state.errs = []string{"first", "second"}
	rec := f.do(t, http.MethodGet, "/v1/errors/top", nil)
	require.Equal(t, "first", decode[errorBody](t, rec).Error)

	rec = f.do(t, http.MethodDelete, "/v1/errors/top", nil)
	require.Equal(t, "first", decode[errorBody](t, rec).Error)
	rec = f.do(t, http.MethodGet, "/v1/errors/top", nil)
	require.Equal(t, "second", decode[errorBody](t, rec).Error)
}

func TestSend(t *testing.T) {
	recipient := testRecipient()

	t.Run("Success", func(t *testing.T) {
		f := newFixture(false)
		f.state.balances[mob] = 1_000_000_000_000

		rec := f.do(t, http.MethodPost, "/v1/send", sendRequest{TokenID: mob, Value: "0.5", Recipient: recipient})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, []domain.Amount{domain.NewAmount(500_000_000_000, mob)}, f.actions.sends)
		require.Equal(t, uint64(99), decode[walletd.Receipt](t, rec).TombstoneBlock)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		f := newFixture(false)
		f.state.balances[mob] = 500_000_000_000

		rec := f.do(t, http.MethodPost, "/v1/send", sendRequest{TokenID: mob, Value: "0.5", Recipient: recipient})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "insufficient funds", decode[errorBody](t, rec).Error)
		require.Empty(t, f.actions.sends)
	})

	t.Run("BadAddress", func(t *testing.T) {
		f := newFixture(false)
		f.state.balances[mob] = 1_000_000_000_000

		rec := f.do(t, http.MethodPost, "/v1/send", sendRequest{TokenID: mob, Value: "0.5", Recipient: "nope"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, f.actions.sends)
	})

	t.Run("ActionFailure", func(t *testing.T) {
		f := newFixture(false)
		f.state.balances[mob] = 1_000_000_000_000
		f.actions.err = errors.New("submit failed")

		rec := f.do(t, http.MethodPost, "/v1/send", sendRequest{TokenID: mob, Value: "0.5", Recipient: recipient})
		require.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func swapFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(true)
	f.state.books[domain.Pair{Base: mob, Counter: eusd}] = []quote.ValidatedQuote{
		allOrNothing("pricey", domain.NewAmount(1_000_000_000_000, mob), domain.NewAmount(7_000_000, eusd)),
		allOrNothing("cheap", domain.NewAmount(1_000_000_000_000, mob), domain.NewAmount(6_000_000, eusd)),
	}
	return f
}

func TestSwapQuote(t *testing.T) {
	f := swapFixture(t)
	f.state.balances[eusd] = 10_000_000

	rec := f.do(t, http.MethodPost, "/v1/swap/quote", swapRequest{FromToken: eusd, ToToken: mob, ToValue: "1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[swapQuoteResponse](t, rec)
	require.Equal(t, "cheap", got.QuoteID)
	require.Equal(t, uint64(6_000_000), got.FromU64Value)
	require.True(t, got.FromValue.Equal(decimal.RequireFromString("6")))
	require.Equal(t, uint64(2560), got.Fee)
}

func TestSwapQuote_Failures(t *testing.T) {
	tests := []struct {
		name     string
		quoter   bool
		balance  uint64
		req      swapRequest
		wantCode int
		wantMsg  string
	}{
		{"NoQuoter", false, 10_000_000, swapRequest{FromToken: eusd, ToToken: mob, ToValue: "1"}, http.StatusServiceUnavailable, "no quoting service"},
		{"FeeNotCovered", true, 6_000_000, swapRequest{FromToken: eusd, ToToken: mob, ToValue: "1"}, http.StatusBadRequest, "insufficient funds"},
		{"NoLiquidity", true, 10_000_000, swapRequest{FromToken: eusd, ToToken: mob, ToValue: "2"}, http.StatusBadRequest, "insufficient liquidity"},
		{"SameToken", true, 10_000_000, swapRequest{FromToken: mob, ToToken: mob, ToValue: "1"}, http.StatusBadRequest, "same"},
		{"UnknownToken", true, 10_000_000, swapRequest{FromToken: 9, ToToken: mob, ToValue: "1"}, http.StatusBadRequest, "unknown token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := swapFixture(t)
			if !tt.quoter {
				f = newFixture(false)
			}
			f.state.balances[eusd] = tt.balance

			rec := f.do(t, http.MethodPost, "/v1/swap/quote", tt.req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			require.Contains(t, decode[errorBody](t, rec).Error, tt.wantMsg)
		})
	}
}

func TestSwapFulfill_FeePaidInFromToken(t *testing.T) {
	f := swapFixture(t)
	f.state.balances[eusd] = 10_000_000

	rec := f.do(t, http.MethodPost, "/v1/swap/fulfill", swapRequest{FromToken: eusd, ToToken: mob, ToValue: "1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, f.actions.fulfills, 1)
	call := f.actions.fulfills[0]
	require.Equal(t, "cheap", call.sel.QuoteID)
	require.Equal(t, eusd, call.from)
	require.Equal(t, eusd, call.fee)
}

func TestOffer(t *testing.T) {
	body := func(side string) offerRequest {
		return offerRequest{
			Base:    mob,
			Counter: eusd,
			Price:   decimal.RequireFromString("6"),
			Volume:  decimal.RequireFromString("2"),
			Side:    side,
		}
	}

	t.Run("SellSubmits", func(t *testing.T) {
		f := newFixture(true)
		f.state.balances[mob] = 5_000_000_000_000

		rec := f.do(t, http.MethodPost, "/v1/swap/offer", body("sell"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, [][2]domain.Amount{{
			domain.NewAmount(2_000_000_000_000, mob),
			domain.NewAmount(12_000_000, eusd),
		}}, f.actions.offers)
		got := decode[offerResponse](t, rec)
		require.Equal(t, "CREATED", got.Status)
		require.Equal(t, "q-new", got.QuoteID)
	})

	t.Run("BuyShortOfCounter", func(t *testing.T) {
		f := newFixture(true)
		f.state.balances[eusd] = 1_000_000

		rec := f.do(t, http.MethodPost, "/v1/swap/offer", body("buy"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "Insufficient EUSD", decode[errorBody](t, rec).Error)
		require.Empty(t, f.actions.offers)
	})

	t.Run("BadSide", func(t *testing.T) {
		f := newFixture(true)
		rec := f.do(t, http.MethodPost, "/v1/swap/offer", body("hold"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBook_ClassifiesBothSides(t *testing.T) {
	f := newFixture(true)
	pair := domain.Pair{Base: mob, Counter: eusd}
	f.state.books[pair] = []quote.ValidatedQuote{
		allOrNothing("ask", domain.NewAmount(1_000_000_000_000, mob), domain.NewAmount(6_000_000, eusd)),
	}
	f.state.books[pair.Reverse()] = []quote.ValidatedQuote{
		allOrNothing("bid", domain.NewAmount(5_000_000, eusd), domain.NewAmount(1_000_000_000_000, mob)),
	}

	rec := f.do(t, http.MethodGet, "/v1/book?base=0&counter=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	type row struct {
		ID     string          `json:"id"`
		Side   string          `json:"side"`
		Price  decimal.Decimal `json:"price"`
		Volume decimal.Decimal `json:"volume"`
	}
	got := decode[struct {
		Bids []row `json:"bids"`
		Asks []row `json:"asks"`
	}](t, rec)

	require.Len(t, got.Bids, 1)
	require.Equal(t, "BID", got.Bids[0].Side)
	require.True(t, got.Bids[0].Price.Equal(decimal.NewFromInt(5)))
	require.Len(t, got.Asks, 1)
	require.Equal(t, "ASK", got.Asks[0].Side)
	require.True(t, got.Asks[0].Price.Equal(decimal.NewFromInt(6)))
	require.True(t, got.Asks[0].Volume.Equal(decimal.NewFromInt(1)))
}

func TestHistory_Limit(t *testing.T) {
	f := newFixture(false)

	rec := f.do(t, http.MethodGet, "/v1/history", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, defaultHistoryLimit, f.history.limit)

	f.do(t, http.MethodGet, "/v1/history?limit=5000", nil)
	require.Equal(t, maxHistoryLimit, f.history.limit)

	rec = f.do(t, http.MethodGet, "/v1/history?limit=-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecodeAddress(t *testing.T) {
	f := newFixture(false)

	rec := f.do(t, http.MethodGet, "/v1/address/decode?addr="+testRecipient(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "public_address"))

	rec = f.do(t, http.MethodGet, "/v1/address/decode?addr=zzz", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActionStatus(t *testing.T) {
	require.Equal(t, http.StatusServiceUnavailable, actionStatus(swap.ErrNoQuotingService))
	require.Equal(t, http.StatusGatewayTimeout, actionStatus(context.DeadlineExceeded))
	require.Equal(t, http.StatusBadGateway, actionStatus(swap.ErrNoInputOfRequiredValue))
}
