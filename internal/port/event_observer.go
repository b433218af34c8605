package port

import "github.com/rl1809/kitchen-ledger/internal/core/domain"

type Outcome string

const (
	OutcomeRecorded  Outcome = "recorded"
	OutcomeRejected  Outcome = "rejected"
	OutcomeConflict  Outcome = "conflict"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

type EventObserver interface {
	ObserveEvent(kind domain.Kind, outcome Outcome)
}
