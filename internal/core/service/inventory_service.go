package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
	"github.com/rl1809/kitchen-ledger/internal/logger"
	"github.com/rl1809/kitchen-ledger/internal/port"
)

const idempotencyKeyPrefix = "intent:"

type InventoryService struct {
	ledger      *Ledger
	idempotency port.IdempotencyStore
	observer    port.EventObserver
	validate    *validator.Validate
	log         *logger.Logger
}

type Option func(*InventoryService)

func WithIdempotency(store port.IdempotencyStore) Option {
	return func(s *InventoryService) { s.idempotency = store }
}

func WithObserver(observer port.EventObserver) Option {
	return func(s *InventoryService) { s.observer = observer }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *InventoryService) { s.log = log }
}

func NewInventoryService(ledger *Ledger, opts ...Option) *InventoryService {
	s := &InventoryService{
		ledger:   ledger,
		validate: validator.New(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordEvent appends one normalized transaction and returns it together with
// the snapshot that includes it. Additions in a unit that differs from a
// non-empty balance are rejected with a *UnitConflictError.
func (s *InventoryService) RecordEvent(ctx context.Context, kind domain.Kind, itemName string, quantity float64, unit string) (domain.Transaction, domain.Snapshot, error) {
	ctx = s.log.WithFields(ctx, map[string]any{"kind": string(kind), "item": itemName})

	tx, err := s.ledger.AppendGuarded(ctx, kind, itemName, quantity, unit, rejectUnitConflict)
	if err != nil {
		s.observe(kind, outcomeOf(err))
		switch {
		case errors.Is(err, ErrUnitConflict):
			s.log.Warn(ctx, err.Error())
		case errors.Is(err, ErrPersistence):
			s.log.Error(ctx, "failed to record event", err)
		}
		return domain.Transaction{}, domain.Snapshot{}, err
	}
	s.observe(kind, port.OutcomeRecorded)
	s.log.Info(s.log.WithField(ctx, "transaction_id", tx.ID), "event recorded")

	snap, err := s.CurrentSnapshot(ctx)
	if err != nil {
		return tx, domain.Snapshot{}, err
	}
	for _, ignored := range snap.Ignored {
		if ignored.TransactionID == tx.ID {
			s.log.Warn(ctx, fmt.Sprintf("removal in %s ignored, %s is stocked in %s", tx.Unit, tx.ItemName, ignored.BalanceUnit))
		}
	}
	return tx, snap, nil
}

// RecordIntent validates a parser intent and records it. A non-empty
// requestID is recorded at most once when an idempotency store is configured.
func (s *InventoryService) RecordIntent(ctx context.Context, requestID string, intent domain.Intent) (domain.Transaction, domain.Snapshot, error) {
	if err := s.validate.Struct(intent); err != nil {
		s.observe(intent.Kind(), port.OutcomeRejected)
		return domain.Transaction{}, domain.Snapshot{}, fmt.Errorf("%w: %w", ErrParseRejected, err)
	}

	tx, snap, err := s.recordOnce(ctx, requestID, intent)
	if errors.Is(err, ErrInvalidTransaction) {
		err = fmt.Errorf("%w: %w", ErrParseRejected, err)
	}
	return tx, snap, err
}

func (s *InventoryService) recordOnce(ctx context.Context, requestID string, intent domain.Intent) (domain.Transaction, domain.Snapshot, error) {
	if requestID == "" || s.idempotency == nil {
		return s.RecordEvent(ctx, intent.Kind(), *intent.Item, *intent.Quantity, intent.UnitLabel())
	}

	ctx = s.log.WithRequestID(ctx, requestID)
	key := idempotencyKeyPrefix + requestID

	ok, err := s.idempotency.SetIdempotency(ctx, key)
	if err != nil {
		s.observe(intent.Kind(), port.OutcomeFailed)
		return domain.Transaction{}, domain.Snapshot{}, fmt.Errorf("%w: idempotency check failed: %w", ErrPersistence, err)
	}
	if !ok {
		s.observe(intent.Kind(), port.OutcomeDuplicate)
		return domain.Transaction{}, domain.Snapshot{}, ErrDuplicateRequest
	}

	tx, snap, err := s.RecordEvent(ctx, intent.Kind(), *intent.Item, *intent.Quantity, intent.UnitLabel())
	// Only an event that never reached the ledger may be retried.
	if err != nil && tx.ID == "" {
		if releaseErr := s.idempotency.ReleaseIdempotency(ctx, key); releaseErr != nil {
			s.log.Error(ctx, "failed to release idempotency key", releaseErr)
		}
	}
	return tx, snap, err
}

func (s *InventoryService) CurrentSnapshot(ctx context.Context) (domain.Snapshot, error) {
	txs, err := s.ledger.ReadAll(ctx)
	if err != nil {
		s.log.Error(ctx, "failed to read ledger", err)
		return domain.Snapshot{}, err
	}
	snap := domain.Aggregate(txs)
	s.log.Debug(s.log.WithFields(ctx, map[string]any{
		"transactions": len(txs),
		"items":        len(snap.Items),
		"conflicts":    len(snap.Conflicts),
		"ignored":      len(snap.Ignored),
	}), "snapshot rebuilt")
	return snap, nil
}

func (s *InventoryService) History(ctx context.Context) ([]domain.Transaction, error) {
	return s.ledger.ReadAll(ctx)
}

func (s *InventoryService) observe(kind domain.Kind, outcome port.Outcome) {
	if s.observer != nil {
		s.observer.ObserveEvent(kind, outcome)
	}
}

func rejectUnitConflict(tx domain.Transaction, history []domain.Transaction) error {
	if tx.Kind != domain.KindAdd {
		return nil
	}
	if m, conflict := domain.Probe(history, tx); conflict {
		return &UnitConflictError{Mismatch: m}
	}
	return nil
}

func outcomeOf(err error) port.Outcome {
	switch {
	case errors.Is(err, ErrUnitConflict):
		return port.OutcomeConflict
	case errors.Is(err, ErrInvalidTransaction):
		return port.OutcomeRejected
	default:
		return port.OutcomeFailed
	}
}
