// Package api exposes the wallet engine to a local consumer over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/infra"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/infra/walletd"
	"buddy_go/internal/quote"
	"buddy_go/internal/storage"
	"buddy_go/internal/swap"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StateView is the read side of the sync worker plus the two consumer
// controls it accepts (active pair and error acknowledgement).
type StateView interface {
	SyncProgress() (uint64, uint64)
	Balance(id domain.TokenID) uint64
	Balances() map[domain.TokenID]uint64
	ActivePair() (domain.Pair, bool)
	SetActivePair(p domain.Pair)
	ClearActivePair()
	QuoteBook(p domain.Pair) []quote.ValidatedQuote
	TopError() (string, bool)
	PopError() (string, bool)
}

// Actions are the blocking wallet operations behind POST endpoints.
type Actions interface {
	Send(ctx context.Context, amount domain.Amount, recipient string) (walletd.Receipt, error)
	Fulfill(ctx context.Context, sel quote.QuoteSelection, fromToken, feeToken domain.TokenID) (walletd.Receipt, error)
	Offer(ctx context.Context, give, want domain.Amount) (deqs.SubmitResult, error)
}

// QuotingHealth reports the quoting service session.
type QuotingHealth interface {
	Connected() bool
	BreakerState() infra.BreakerState
}

type History interface {
	History(ctx context.Context, limit int) ([]storage.Record, error)
}

// Deps wires the server to the engine. History and Quoting may be nil.
type Deps struct {
	State     StateView
	Actions   Actions
	History   History
	Tokens    []domain.TokenInfo
	Address   string
	HasQuoter bool
	Quoting   QuotingHealth
}

type Server struct {
	Deps
}

func New(deps Deps) *Server {
	return &Server{Deps: deps}
}

// Router builds the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/address", s.handleAddress)
		r.Get("/address/decode", s.handleDecodeAddress)
		r.Get("/sync", s.handleSync)
		r.Get("/tokens", s.handleTokens)
		r.Get("/balances", s.handleBalances)
		r.Get("/capabilities", s.handleCapabilities)

		r.Put("/pair", s.handleSetPair)
		r.Delete("/pair", s.handleClearPair)
		r.Get("/quotes", s.handleQuotes)
		r.Get("/book", s.handleBook)

		r.Get("/errors/top", s.handleTopError)
		r.Delete("/errors/top", s.handlePopError)

		r.Post("/send", s.handleSend)
		r.Post("/swap/quote", s.handleSwapQuote)
		r.Post("/swap/fulfill", s.handleSwapFulfill)
		r.Post("/swap/offer", s.handleOffer)

		r.Get("/history", s.handleHistory)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"took", time.Since(start),
			"req_id", middleware.GetReqID(r.Context()),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// actionStatus maps a failed wallet action to an HTTP status. Protocol
// failures have already been queued for the consumer.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, swap.ErrNoQuotingService):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("malformed request body: " + err.Error())
	}
	return nil
}
