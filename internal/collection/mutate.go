package collection

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/hpungsan/binder/internal/card"
	"github.com/hpungsan/binder/internal/errors"
)

// TrySave appends c to col unless a card with the same ID is already there.
// It never modifies col; added reports whether the result differs.
func TrySave(c card.Card, col Collection) (next Collection, added bool) {
	if col.Contains(c.ID) {
		return col, false
	}
	next = make(Collection, len(col), len(col)+1)
	copy(next, col)
	return append(next, c), true
}

// SaveResult describes the outcome of a save action.
type SaveResult struct {
	ID           string `json:"id"`
	Saved        bool   `json:"saved"`
	AlreadySaved bool   `json:"already_saved"`
	Count        int    `json:"count"`
}

// Manager owns the in-memory collection and keeps it in sync with a Store.
// It is the only mutator of the saved collection.
type Manager struct {
	mu     sync.Mutex
	store  Store
	cards  Collection
	logger *zap.Logger
}

// NewManager loads the collection from store once and returns a Manager.
func NewManager(ctx context.Context, store Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{store: store, logger: logger}
	m.cards = store.Load(ctx)
	logger.Debug("collection loaded", zap.Int("count", len(m.cards)))
	return m
}

// Cards returns a copy of the saved cards in insertion order.
func (m *Manager) Cards() Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards.Clone()
}

// Len returns the number of saved cards.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cards)
}

// Contains reports whether a card ID is saved. The UI uses it to render the
// save action as already done.
func (m *Manager) Contains(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards.Contains(id)
}

// Get returns a saved card by ID.
func (m *Manager) Get(id string) (card.Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards.Get(id)
}

// Reload replaces the in-memory collection with the persisted one. On a read
// failure the in-memory collection is kept and the error returned.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, err := m.store.Read(ctx)
	if err != nil {
		m.logger.Warn("collection reload failed, keeping in-memory cards", zap.Error(err))
		return err
	}
	m.cards = current
	return nil
}

// Save adds c to the collection and persists it. Saving a card whose ID is
// already present is a no-op reported as AlreadySaved.
//
// The store is re-read first so another process writing the same store
// (CLI next to a running server) is not clobbered; the last writer wins.
// If that read fails nothing is written.
func (m *Manager) Save(ctx context.Context, c card.Card) (*SaveResult, error) {
	if c.ID == "" {
		return nil, errors.NewInvalidRequest("card id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.store.Read(ctx)
	if err != nil {
		m.logger.Error("collection read failed, save aborted", zap.String("id", c.ID), zap.Error(err))
		return nil, err
	}
	next, added := TrySave(c, current)
	if !added {
		m.cards = current
		return &SaveResult{ID: c.ID, AlreadySaved: true, Count: len(current)}, nil
	}

	if err := m.store.Save(ctx, next); err != nil {
		m.logger.Error("collection write failed", zap.String("id", c.ID), zap.Error(err))
		m.cards = current
		return nil, err
	}

	m.cards = next
	m.logger.Info("card saved", zap.String("id", c.ID), zap.Int("count", len(next)))
	return &SaveResult{ID: c.ID, Saved: true, Count: len(next)}, nil
}
