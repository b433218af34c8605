package domain

type InventoryItem struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// UnitMismatch describes a transaction the fold skipped because its unit did
// not match the running balance of the item.
type UnitMismatch struct {
	TransactionID string  `json:"transaction_id"`
	Kind          Kind    `json:"kind"`
	ItemName      string  `json:"item_name"`
	Quantity      float64 `json:"quantity"`
	Unit          string  `json:"unit"`
	BalanceUnit   string  `json:"balance_unit"`
	Balance       float64 `json:"balance"`
}

type Snapshot struct {
	Items []InventoryItem `json:"items"`
	// Conflicts holds additions rejected for an incompatible unit.
	Conflicts []UnitMismatch `json:"conflicts,omitempty"`
	// Ignored holds removals that did not match the balance unit. They are
	// defined no-ops, kept only for diagnostics.
	Ignored []UnitMismatch `json:"ignored,omitempty"`
}

func (s Snapshot) Find(name string) (InventoryItem, bool) {
	key := ItemKey(name)
	for _, item := range s.Items {
		if ItemKey(item.Name) == key {
			return item, true
		}
	}
	return InventoryItem{}, false
}
