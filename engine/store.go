package engine

import (
	"sync"

	"github.com/sig-0/p2prates/storage/types"
)

type baseKey struct {
	label string
	side  types.Side
}

// BaseStore holds the base prices of a single run
type BaseStore struct {
	bases map[baseKey]BasePrice
	mu    sync.RWMutex
}

// NewBaseStore creates a new empty base store
func NewBaseStore() *BaseStore {
	return &BaseStore{
		bases: make(map[baseKey]BasePrice),
	}
}

// Put stores the base price under its label and side
func (s *BaseStore) Put(base BasePrice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bases[baseKey{label: base.Label, side: base.Side}] = base
}

// Get returns the base price of the market, if any
func (s *BaseStore) Get(label string, side types.Side) (BasePrice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	base, ok := s.bases[baseKey{label: label, side: side}]

	return base, ok
}
