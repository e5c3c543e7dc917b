package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"buddy_go/internal/address"
	"buddy_go/internal/domain"
	"buddy_go/internal/infra"
	"buddy_go/internal/quote"
	"buddy_go/internal/swap"

	"github.com/shopspring/decimal"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"address": s.Address})
}

func (s *Server) handleDecodeAddress(w http.ResponseWriter, r *http.Request) {
	p, err := address.DecodePrintable(r.URL.Query().Get("addr"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type syncResponse struct {
	SyncedBlocks uint64  `json:"synced_blocks,string"`
	TotalBlocks  uint64  `json:"total_blocks,string"`
	Percent      float64 `json:"percent"`
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	synced, total := s.State.SyncProgress()
	resp := syncResponse{SyncedBlocks: synced, TotalBlocks: total}
	if total > 0 {
		resp.Percent = min(100, float64(synced)*100/float64(total))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Tokens)
}

type balanceRow struct {
	TokenID domain.TokenID  `json:"token_id,string"`
	Symbol  string          `json:"symbol"`
	Value   uint64          `json:"value,string"`
	Display decimal.Decimal `json:"display"`
}

// handleBalances lists balances in token config order.
func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	balances := s.State.Balances()
	rows := make([]balanceRow, 0, len(s.Tokens))
	for _, t := range s.Tokens {
		v := balances[t.TokenID]
		rows = append(rows, balanceRow{TokenID: t.TokenID, Symbol: t.Symbol, Value: v, Display: t.Scaled(v)})
	}
	writeJSON(w, http.StatusOK, rows)
}

type capabilitiesResponse struct {
	QuotingService   bool                `json:"quoting_service"`
	QuotingConnected *bool               `json:"quoting_connected,omitempty"`
	QuotingBreaker   *infra.BreakerState `json:"quoting_breaker,omitempty"`
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	resp := capabilitiesResponse{QuotingService: s.HasQuoter}
	if s.Quoting != nil {
		connected, state := s.Quoting.Connected(), s.Quoting.BreakerState()
		resp.QuotingConnected = &connected
		resp.QuotingBreaker = &state
	}
	writeJSON(w, http.StatusOK, resp)
}

type pairRequest struct {
	Base    domain.TokenID `json:"base,string"`
	Counter domain.TokenID `json:"counter,string"`
}

func (s *Server) handleSetPair(w http.ResponseWriter, r *http.Request) {
	var req pairRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pair := domain.Pair{Base: req.Base, Counter: req.Counter}
	if err := s.knownPair(pair); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.State.SetActivePair(pair)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearPair(w http.ResponseWriter, r *http.Request) {
	s.State.ClearActivePair()
	w.WriteHeader(http.StatusNoContent)
}

// handleQuotes returns the raw validated book of quotes offering base for counter.
func (s *Server) handleQuotes(w http.ResponseWriter, r *http.Request) {
	pair, err := pairFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State.QuoteBook(pair))
}

type bookResponse struct {
	Pair domain.Pair       `json:"pair"`
	Bids []quote.QuoteInfo `json:"bids"`
	Asks []quote.QuoteInfo `json:"asks"`
}

// handleBook classifies both orientations of a pair. Asks offer base,
// bids offer counter.
func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	pair, err := pairFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.knownPair(pair); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{
		Pair: pair,
		Bids: quote.ClassifyBook(s.State.QuoteBook(pair.Reverse()), pair, s.Tokens),
		Asks: quote.ClassifyBook(s.State.QuoteBook(pair), pair, s.Tokens),
	})
}

func (s *Server) handleTopError(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.State.TopError()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, errorBody{Error: msg})
}

func (s *Server) handlePopError(w http.ResponseWriter, r *http.Request) {
	msg, ok := s.State.PopError()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, errorBody{Error: msg})
}

type sendRequest struct {
	TokenID   domain.TokenID `json:"token_id,string"`
	Value     string         `json:"value"`
	Recipient string         `json:"recipient"`
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	info, err := s.token(req.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	plan, err := swap.PlanSend(info, s.State.Balance(info.TokenID), req.Value, req.Recipient)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	receipt, err := s.Actions.Send(r.Context(), plan.Amount, plan.Recipient)
	if err != nil {
		writeError(w, actionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type swapRequest struct {
	FromToken domain.TokenID `json:"from_token,string"`
	ToToken   domain.TokenID `json:"to_token,string"`
	ToValue   string         `json:"to_value"`
}

type swapQuoteResponse struct {
	QuoteID          string          `json:"quote_id"`
	PartialFillValue uint64          `json:"partial_fill_value,string"`
	FromU64Value     uint64          `json:"from_u64_value,string"`
	FromValue        decimal.Decimal `json:"from_value"`
	Fee              uint64          `json:"fee,string"`
}

// planSwap prices a swap against the book of quotes offering to for from.
func (s *Server) planSwap(req swapRequest) (quote.QuoteSelection, domain.TokenInfo, error) {
	if !s.HasQuoter {
		return quote.QuoteSelection{}, domain.TokenInfo{}, swap.ErrNoQuotingService
	}
	fromInfo, err := s.token(req.FromToken)
	if err != nil {
		return quote.QuoteSelection{}, domain.TokenInfo{}, err
	}
	toInfo, err := s.token(req.ToToken)
	if err != nil {
		return quote.QuoteSelection{}, domain.TokenInfo{}, err
	}
	toU64, err := toInfo.ParseU64(req.ToValue)
	if err != nil {
		return quote.QuoteSelection{}, domain.TokenInfo{}, err
	}

	book := s.State.QuoteBook(domain.Pair{Base: toInfo.TokenID, Counter: fromInfo.TokenID})
	sel, err := swap.PlanSwap(book, fromInfo, s.State.Balance(fromInfo.TokenID), domain.NewAmount(toU64, toInfo.TokenID))
	return sel, fromInfo, err
}

func (s *Server) handleSwapQuote(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sel, fromInfo, err := s.planSwap(req)
	if err != nil {
		writeError(w, planStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, swapQuoteResponse{
		QuoteID:          sel.QuoteID,
		PartialFillValue: sel.PartialFillValue,
		FromU64Value:     sel.FromU64Value,
		FromValue:        sel.FromValueDecimal,
		Fee:              fromInfo.Fee,
	})
}

func (s *Server) handleSwapFulfill(w http.ResponseWriter, r *http.Request) {
	var req swapRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sel, fromInfo, err := s.planSwap(req)
	if err != nil {
		writeError(w, planStatus(err), err)
		return
	}

	receipt, err := s.Actions.Fulfill(r.Context(), sel, fromInfo.TokenID, fromInfo.TokenID)
	if err != nil {
		writeError(w, actionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

type offerRequest struct {
	Base    domain.TokenID  `json:"base,string"`
	Counter domain.TokenID  `json:"counter,string"`
	Price   decimal.Decimal `json:"price"`
	Volume  decimal.Decimal `json:"volume"`
	Side    string          `json:"side"` // buy | sell
}

type offerResponse struct {
	QuoteID string        `json:"quote_id"`
	Status  string        `json:"status"`
	Give    domain.Amount `json:"give"`
	Want    domain.Amount `json:"want"`
}

func (s *Server) handleOffer(w http.ResponseWriter, r *http.Request) {
	var req offerRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !s.HasQuoter {
		writeError(w, http.StatusServiceUnavailable, swap.ErrNoQuotingService)
		return
	}
	base, err := s.token(req.Base)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	counter, err := s.token(req.Counter)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	plan, err := swap.PlanOffer(base, counter, req.Price, req.Volume)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var leg swap.OfferLeg
	switch req.Side {
	case "buy":
		leg = plan.Buy
	case "sell":
		leg = plan.Sell
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("side must be buy or sell, got %q", req.Side))
		return
	}
	if err := leg.CheckBalance(s.State.Balance(leg.Give.TokenID)); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.Actions.Offer(r.Context(), leg.Give, leg.Want)
	if err != nil {
		writeError(w, actionStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, offerResponse{
		QuoteID: res.QuoteID,
		Status:  res.Status.String(),
		Give:    leg.Give,
		Want:    leg.Want,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.History == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, maxHistoryLimit)
	}
	records, err := s.History.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// planStatus maps planning failures. Only a missing quoting service is not
// the caller's fault.
func planStatus(err error) int {
	if errors.Is(err, swap.ErrNoQuotingService) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

func (s *Server) token(id domain.TokenID) (domain.TokenInfo, error) {
	info, ok := domain.FindToken(s.Tokens, id)
	if !ok {
		return domain.TokenInfo{}, fmt.Errorf("%w: %d", quote.ErrUnknownToken, id)
	}
	return info, nil
}

func (s *Server) knownPair(p domain.Pair) error {
	if !p.Valid() {
		return swap.ErrSameToken
	}
	if _, err := s.token(p.Base); err != nil {
		return err
	}
	_, err := s.token(p.Counter)
	return err
}

func pairFromQuery(r *http.Request) (domain.Pair, error) {
	q := r.URL.Query()
	base, err := domain.ParseTokenID(q.Get("base"))
	if err != nil {
		return domain.Pair{}, err
	}
	counter, err := domain.ParseTokenID(q.Get("counter"))
	if err != nil {
		return domain.Pair{}, err
	}
	return domain.Pair{Base: base, Counter: counter}, nil
}
