package swap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"buddy_go/internal/domain"
	"buddy_go/internal/event"
	"buddy_go/internal/infra/deqs"
	"buddy_go/internal/infra/walletd"
	"buddy_go/internal/order"
)

const (
	mob  domain.TokenID = 0
	eusd domain.TokenID = 1
)

var testTokens = []domain.TokenInfo{
	{TokenID: mob, Symbol: "MOB", Decimals: 12, Fee: 400_000_000},
	{TokenID: eusd, Symbol: "EUSD", Decimals: 6, Fee: 2560},
}

// fakeWallet records every call by name. utxos is consulted by
// UnspentOutputs; a non-nil entry in fail makes that method fail.
type fakeWallet struct {
	mu       sync.Mutex
	calls    []string
	utxos    func(call int) ([]walletd.UTXO, error)
	statuses []walletd.TxStatus
	fail     map[string]error
	sci      *order.SignedOrder
	paid     []domain.Amount
	listN    int
	statusN  int
}

func (f *fakeWallet) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.fail[name]
}

func (f *fakeWallet) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeWallet) count(name string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeWallet) UnspentOutputs(_ context.Context, token domain.TokenID) ([]walletd.UTXO, error) {
	if err := f.record("search"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	n := f.listN
	f.listN++
	f.mu.Unlock()
	if f.utxos == nil {
		return nil, nil
	}
	return f.utxos(n)
}

func (f *fakeWallet) SendPayment(_ context.Context, amount domain.Amount, recipient string) (walletd.Receipt, error) {
	if err := f.record("pay"); err != nil {
		return walletd.Receipt{}, err
	}
	f.mu.Lock()
	f.paid = append(f.paid, amount)
	f.mu.Unlock()
	return walletd.Receipt{KeyImages: []string{recipient}}, nil
}

func (f *fakeWallet) TxStatus(context.Context, walletd.Receipt) (walletd.TxStatus, error) {
	if err := f.record("status"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusN < len(f.statuses) {
		s := f.statuses[f.statusN]
		f.statusN++
		return s, nil
	}
	return walletd.TxStatusVerified, nil
}

func (f *fakeWallet) GenerateSwap(_ context.Context, input walletd.UTXO, counter domain.Amount, minFill uint64) (*order.SignedOrder, error) {
	if err := f.record("generate"); err != nil {
		return nil, err
	}
	if f.sci != nil {
		return f.sci, nil
	}
	give := input.Amount()
	return &order.SignedOrder{
		PseudoOutput:        give,
		PartialFillChange:   &give,
		PartialFillOutputs:  []domain.Amount{counter},
		MinPartialFillValue: minFill,
		Payload:             []byte{1},
	}, nil
}

func (f *fakeWallet) GenerateFulfillment(_ context.Context, sci *order.SignedOrder, partialFill uint64, inputs []walletd.UTXO, feeToken domain.TokenID) (walletd.TxProposal, error) {
	if err := f.record("build"); err != nil {
		return walletd.TxProposal{}, err
	}
	return walletd.TxProposal{Fee: 2560, FeeTokenID: feeToken}, nil
}

func (f *fakeWallet) SubmitTx(context.Context, walletd.TxProposal) (walletd.Receipt, error) {
	if err := f.record("submit"); err != nil {
		return walletd.Receipt{}, err
	}
	return walletd.Receipt{TombstoneBlock: 100}, nil
}

type fakeQuoter struct {
	results []deqs.SubmitResult
	err     error
	got     []*order.SignedOrder
}

func (f *fakeQuoter) SubmitQuotes(_ context.Context, orders []*order.SignedOrder) ([]deqs.SubmitResult, error) {
	f.got = append(f.got, orders...)
	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	return []deqs.SubmitResult{{Status: deqs.StatusCreated, QuoteID: "q-new"}}, nil
}

type errorList struct {
	mu   sync.Mutex
	msgs []string
}

func (e *errorList) PushError(msg string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return true
}

type memJournal struct {
	events []event.Event
}

func (j *memJournal) Append(_ context.Context, ev event.Event) error {
	j.events = append(j.events, ev)
	return nil
}

// sleepRecorder replaces real sleeps and remembers the requested durations.
type sleepRecorder struct {
	mu     sync.Mutex
	slept  []time.Duration
	wallet *fakeWallet
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.slept = append(s.slept, d)
	s.mu.Unlock()
	if s.wallet != nil {
		s.wallet.record(fmt.Sprintf("sleep:%s", d))
	}
	return ctx.Err()
}

func newTestOrchestrator(w *fakeWallet, q QuoteSubmitter) (*Orchestrator, *errorList, *memJournal, *sleepRecorder) {
	errs := &errorList{}
	journal := &memJournal{}
	o := New(Deps{
		Wallet:    w,
		Quoter:    q,
		Validator: order.NewValidator(nil),
		Errors:    errs,
		Journal:   journal,
		Address:   "self",
		Tokens:    testTokens,
	}, DefaultConfig())
	sr := &sleepRecorder{wallet: w}
	o.sleep = sr.sleep
	o.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return o, errs, journal, sr
}
