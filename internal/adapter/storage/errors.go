package storage

import "errors"

// ErrDuplicateTransaction is returned when a transaction id is appended twice.
var ErrDuplicateTransaction = errors.New("duplicate transaction id")
