package service

import (
	"context"
	"errors"
	"sync"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/port"
)

var errBackendDown = errors.New("backend down")

// Mock LedgerBackend
type mockBackend struct {
	mu         sync.Mutex
	txs        []domain.Transaction
	failAppend bool
	failLoad   bool
}

func (m *mockBackend) AppendOne(ctx context.Context, tx domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAppend {
		return errBackendDown
	}
	m.txs = append(m.txs, tx)
	return nil
}

func (m *mockBackend) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failLoad {
		return nil, errBackendDown
	}
	return append([]domain.Transaction(nil), m.txs...), nil
}

func (m *mockBackend) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

// Mock IdempotencyStore
type mockIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
	fail bool
}

func newMockIdempotency() *mockIdempotency {
	return &mockIdempotency{keys: make(map[string]bool)}
}

func (m *mockIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fail {
		return false, errBackendDown
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *mockIdempotency) ReleaseIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

// Mock EventObserver
type mockObserver struct {
	mu       sync.Mutex
	outcomes []port.Outcome
}

func (m *mockObserver) ObserveEvent(kind domain.Kind, outcome port.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}
