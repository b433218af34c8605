package service

import (
	"errors"
	"fmt"

	"github.com/rl1809/kitchen-ledger/internal/core/domain"
)

var (
	ErrParseRejected      = errors.New("parse rejected")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrPersistence        = errors.New("persistence failure")
	ErrUnitConflict       = errors.New("unit conflict")
	ErrDuplicateRequest   = errors.New("duplicate request")
)

// UnitConflictError is returned when an addition names a unit that differs
// from the unit of a non-empty balance. Nothing is appended.
type UnitConflictError struct {
	Mismatch domain.UnitMismatch
}

func (e *UnitConflictError) Error() string {
	m := e.Mismatch
	return fmt.Sprintf("unit conflict: %s is stocked as %v %s, cannot add %v %s",
		m.ItemName, m.Balance, m.BalanceUnit, m.Quantity, m.Unit)
}

func (e *UnitConflictError) Is(target error) bool {
	return target == ErrUnitConflict
}
