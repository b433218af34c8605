package domain

import (
	"strings"
	"time"
)

type Kind string

const (
	KindAdd    Kind = "add"
	KindRemove Kind = "remove"
)

func (k Kind) Valid() bool {
	return k == KindAdd || k == KindRemove
}

// Transaction is one immutable ledger entry. Quantity and Unit are stored
// after normalization, so Unit is never empty.
type Transaction struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"kind"`
	ItemName  string    `json:"item_name"`
	Quantity  float64   `json:"quantity"`
	Unit      string    `json:"unit"`
}

// Key is the case-insensitive identity of the item the transaction refers to.
func (t Transaction) Key() string {
	return ItemKey(t.ItemName)
}

func ItemKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
