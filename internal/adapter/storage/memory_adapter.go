package storage

import (
	"context"
	"sync"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

type MemoryAdapter struct {
	mu  sync.RWMutex
	txs []domain.Transaction
	ids map[string]struct{}
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{ids: make(map[string]struct{})}
}

func (m *MemoryAdapter) AppendOne(ctx context.Context, tx domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[tx.ID]; ok {
		return ErrDuplicateTransaction
	}
	m.ids[tx.ID] = struct{}{}
	m.txs = append(m.txs, tx)
	return nil
}

func (m *MemoryAdapter) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Transaction, len(m.txs))
	copy(out, m.txs)
	return out, nil
}
