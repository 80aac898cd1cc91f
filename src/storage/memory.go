package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"market-relay/src/config"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"
)

// NewSnapshotStore picks the backend named by storage.db_type. The store is
// not initialized.
func NewSnapshotStore(cfg *config.Config, log *logger.Logger) (interfaces.ISnapshotStore, error) {
	switch cfg.Storage.DBType {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.MConfig, log), nil
	case "postgres":
		return NewPostgresStore(cfg.MConfig, log), nil
	case "redis":
		return NewRedisStore(cfg.MConfig, log)
	}
	return nil, fmt.Errorf("unsupported database type '%s'", cfg.Storage.DBType)
}

// -----------------------------------------------------------------------------

// MemoryStore keeps snapshots for the process lifetime only.
type MemoryStore struct {
	mu     sync.RWMutex
	quotes map[models.Channel]map[string]models.MQuote
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{quotes: make(map[models.Channel]map[string]models.MQuote)}
}

func (m *MemoryStore) Initialize(ctx context.Context) error { return nil }

func (m *MemoryStore) SaveQuotes(ctx context.Context, channel models.Channel, quotes []models.MQuote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byKey, ok := m.quotes[channel]
	if !ok {
		byKey = make(map[string]models.MQuote, len(quotes))
		m.quotes[channel] = byKey
	}
	for _, q := range quotes {
		byKey[q.Symbol] = q
	}
	return nil
}

func (m *MemoryStore) LoadLatest(ctx context.Context, channel models.Channel) ([]models.MQuote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.MQuote, 0, len(m.quotes[channel]))
	for _, q := range m.quotes[channel] {
		out = append(out, q)
	}
	sortBySymbol(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// -----------------------------------------------------------------------------

func sortBySymbol(quotes []models.MQuote) {
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
}
