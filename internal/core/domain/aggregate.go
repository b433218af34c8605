package domain

import "github.com/shopspring/decimal"

type balance struct {
	quantity decimal.Decimal
	unit     string
	name     string
}

// apply folds one transaction into b and reports whether it changed the
// balance. It is the only place the fold rules live.
func (b *balance) apply(tx Transaction) bool {
	qty := decimal.NewFromFloat(tx.Quantity)
	switch tx.Kind {
	case KindAdd:
		if b.quantity.IsZero() {
			b.unit = tx.Unit
			b.quantity = b.quantity.Add(qty)
			return true
		}
		if tx.Unit == b.unit {
			b.quantity = b.quantity.Add(qty)
			return true
		}
	case KindRemove:
		if tx.Unit == b.unit {
			b.quantity = b.quantity.Sub(qty)
			return true
		}
	}
	return false
}

// Aggregate folds an ordered transaction history into the current snapshot.
// The input must already be in ledger order; it is not modified.
//
// An Add adopts its unit when the balance is exactly zero and is otherwise
// applied only when the units match. A mismatched Add is reported as a
// conflict and leaves the balance untouched. A mismatched Remove is a no-op.
// Items whose final balance is not positive are omitted.
func Aggregate(txs []Transaction) Snapshot {
	balances := make(map[string]*balance)
	order := make([]string, 0)

	var snap Snapshot
	for _, tx := range txs {
		key := tx.Key()
		b, ok := balances[key]
		if !ok {
			b = &balance{quantity: decimal.Zero}
			balances[key] = b
			order = append(order, key)
		}
		// Later transactions always win the display name, even skipped ones.
		b.name = tx.ItemName

		before := *b
		if b.apply(tx) {
			continue
		}
		m := mismatch(tx, before)
		switch tx.Kind {
		case KindAdd:
			snap.Conflicts = append(snap.Conflicts, m)
		case KindRemove:
			snap.Ignored = append(snap.Ignored, m)
		}
	}

	snap.Items = make([]InventoryItem, 0, len(order))
	for _, key := range order {
		b := balances[key]
		if !b.quantity.IsPositive() {
			continue
		}
		snap.Items = append(snap.Items, InventoryItem{
			Name:     b.name,
			Quantity: b.quantity.InexactFloat64(),
			Unit:     b.unit,
		})
	}
	return snap
}

// BalanceOf returns the raw balance of one item, including depleted or
// negative balances the snapshot hides. The unit is empty for unseen items.
func BalanceOf(txs []Transaction, itemName string) (float64, string) {
	key := ItemKey(itemName)
	b := balance{quantity: decimal.Zero}
	for _, tx := range txs {
		if tx.Key() == key {
			b.apply(tx)
		}
	}
	return b.quantity.InexactFloat64(), b.unit
}

// Probe folds the history of tx's item and reports the mismatch the fold
// would record if tx were appended next. ok is false when tx would apply.
func Probe(txs []Transaction, tx Transaction) (UnitMismatch, bool) {
	key := tx.Key()
	b := balance{quantity: decimal.Zero}
	for _, prev := range txs {
		if prev.Key() == key {
			b.apply(prev)
		}
	}
	before := b
	if b.apply(tx) {
		return UnitMismatch{}, false
	}
	return mismatch(tx, before), true
}

func mismatch(tx Transaction, b balance) UnitMismatch {
	return UnitMismatch{
		TransactionID: tx.ID,
		Kind:          tx.Kind,
		ItemName:      tx.ItemName,
		Quantity:      tx.Quantity,
		Unit:          tx.Unit,
		BalanceUnit:   b.unit,
		Balance:       b.quantity.InexactFloat64(),
	}
}
