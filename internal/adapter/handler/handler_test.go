package handler

import (
	"context"
	"errors"

	"github.com/rl1809/kitchen-ledger/internal/adapter/storage"
	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/core/service"
)

type failingBackend struct{}

func (failingBackend) AppendOne(ctx context.Context, tx domain.Transaction) error {
	return errors.New("disk unavailable")
}

func (failingBackend) LoadAll(ctx context.Context) ([]domain.Transaction, error) {
	return nil, errors.New("disk unavailable")
}

type memoryIdempotency struct {
	keys map[string]bool
}

func (m *memoryIdempotency) SetIdempotency(ctx context.Context, key string) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryIdempotency) ReleaseIdempotency(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func newInventory() *service.InventoryService {
	ledger := service.NewLedger(storage.NewMemoryAdapter(), 0)
	return service.NewInventoryService(ledger, service.WithIdempotency(&memoryIdempotency{keys: map[string]bool{}}))
}

func newFailingInventory() *service.InventoryService {
	return service.NewInventoryService(service.NewLedger(failingBackend{}, 0))
}
