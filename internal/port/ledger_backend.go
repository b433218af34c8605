package port

import (
	"context"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

type LedgerBackend interface {
	// AppendOne durably stores a normalized transaction. It must not return
	// nil before the record is visible to LoadAll.
	AppendOne(ctx context.Context, tx domain.Transaction) error

	// LoadAll returns every stored transaction in insertion order
	LoadAll(ctx context.Context) ([]domain.Transaction, error)
}
