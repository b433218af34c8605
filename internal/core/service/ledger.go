package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/port"
)

// Guard inspects a prepared transaction against the current history before it
// is appended. A non-nil error aborts the append.
type Guard func(tx domain.Transaction, history []domain.Transaction) error

type Ledger struct {
	backend port.LedgerBackend
	timeout time.Duration
	now     func() time.Time
	newID   func() string

	// mu orders appends from this process so timestamps follow insertion order
	mu   sync.Mutex
	last time.Time
}

func NewLedger(backend port.LedgerBackend, timeout time.Duration) *Ledger {
	return &Ledger{
		backend: backend,
		timeout: timeout,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func (l *Ledger) Append(ctx context.Context, kind domain.Kind, itemName string, quantity float64, unit string) (domain.Transaction, error) {
	return l.AppendGuarded(ctx, kind, itemName, quantity, unit, nil)
}

// AppendGuarded normalizes the input, runs guard against the full history and
// persists the transaction. It returns only after the backend acknowledged.
func (l *Ledger) AppendGuarded(ctx context.Context, kind domain.Kind, itemName string, quantity float64, unit string, guard Guard) (domain.Transaction, error) {
	name := strings.TrimSpace(itemName)
	switch {
	case !kind.Valid():
		return domain.Transaction{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTransaction, kind)
	case name == "":
		return domain.Transaction{}, fmt.Errorf("%w: item name is required", ErrInvalidTransaction)
	case math.IsNaN(quantity) || math.IsInf(quantity, 0) || quantity < 0:
		return domain.Transaction{}, fmt.Errorf("%w: quantity must be a non-negative number", ErrInvalidTransaction)
	}

	qty, canonical := domain.Normalize(quantity, unit)
	if math.IsInf(qty, 0) {
		return domain.Transaction{}, fmt.Errorf("%w: quantity %g %s is out of range", ErrInvalidTransaction, quantity, unit)
	}
	tx := domain.Transaction{
		ID:       l.newID(),
		Kind:     kind,
		ItemName: name,
		Quantity: qty,
		Unit:     canonical,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if guard != nil {
		history, err := l.ReadAll(ctx)
		if err != nil {
			return domain.Transaction{}, err
		}
		if err := guard(tx, history); err != nil {
			return domain.Transaction{}, err
		}
	}

	tx.Timestamp = l.stamp()

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	if err := l.backend.AppendOne(ctx, tx); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return tx, nil
}

// ReadAll returns the full history ordered by timestamp. Equal timestamps
// keep the backend's insertion order.
func (l *Ledger) ReadAll(ctx context.Context) ([]domain.Transaction, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	txs, err := l.backend.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return txs, nil
}

// stamp must be called with mu held.
func (l *Ledger) stamp() time.Time {
	ts := l.now().UTC().Truncate(time.Microsecond)
	if ts.Before(l.last) {
		ts = l.last
	}
	l.last = ts
	return ts
}

func (l *Ledger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, l.timeout)
}
