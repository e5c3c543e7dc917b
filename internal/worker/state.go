package worker

import (
	"maps"
	"slices"
	"sync"

	"buddy_go/internal/domain"
	"buddy_go/internal/quote"
)

// State is the snapshot shared between the sync loop and its readers.
// Every accessor takes the lock for a single field group, so a reader may
// see a new balance next to an old sync height. Each field on its own is
// always a previously committed value.
type State struct {
	mu sync.Mutex

	syncedBlocks uint64
	totalBlocks  uint64
	balances     map[domain.TokenID]uint64
	activePair   *domain.Pair
	quoteBooks   map[domain.Pair][]quote.ValidatedQuote
	errors       *ErrorQueue
}

func NewState() *State {
	return &State{
		balances:   make(map[domain.TokenID]uint64),
		quoteBooks: make(map[domain.Pair][]quote.ValidatedQuote),
		errors:     NewErrorQueue(ErrorQueueCapacity),
	}
}

// SyncProgress returns (synced, total) block counts.
func (s *State) SyncProgress() (uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncedBlocks, s.totalBlocks
}

func (s *State) Balance(id domain.TokenID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[id]
}

// Balances returns a copy of all known balances.
func (s *State) Balances() map[domain.TokenID]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.balances)
}

func (s *State) ActivePair() (domain.Pair, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activePair == nil {
		return domain.Pair{}, false
	}
	return *s.activePair, true
}

// SetActivePair selects the pair whose books the loop keeps fresh.
func (s *State) SetActivePair(p domain.Pair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePair = &p
}

func (s *State) ClearActivePair() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePair = nil
}

// QuoteBook returns a copy of the book for p. Orders are shared, not cloned.
func (s *State) QuoteBook(p domain.Pair) []quote.ValidatedQuote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.quoteBooks[p])
}

// PushError queues msg for the user. It is dropped when the queue is full.
func (s *State) PushError(msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.Push(msg)
}

func (s *State) TopError() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.Peek()
}

func (s *State) PopError() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors.Pop()
}

func (s *State) setTotalBlocks(n uint64) {
	s.mu.Lock()
	s.totalBlocks = n
	s.mu.Unlock()
}

func (s *State) setSyncedBlocks(n uint64) {
	s.mu.Lock()
	s.syncedBlocks = n
	s.mu.Unlock()
}

func (s *State) setBalance(id domain.TokenID, v uint64) {
	s.mu.Lock()
	s.balances[id] = v
	s.mu.Unlock()
}

func (s *State) setQuoteBooks(books map[domain.Pair][]quote.ValidatedQuote) {
	s.mu.Lock()
	for p, book := range books {
		s.quoteBooks[p] = book
	}
	s.mu.Unlock()
}
