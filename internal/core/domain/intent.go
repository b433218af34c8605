package domain

// Intent is the structured command produced by the external language parser.
// Item and Quantity are pointers because the parser may omit them.
type Intent struct {
	Action   string   `json:"action" validate:"required,oneof=add remove"`
	Item     *string  `json:"item" validate:"required,min=1"`
	Quantity *float64 `json:"quantity" validate:"required,gte=0"`
	Unit     *string  `json:"unit,omitempty"`
}

func (i Intent) Kind() Kind {
	return Kind(i.Action)
}

func (i Intent) UnitLabel() string {
	if i.Unit == nil {
		return ""
	}
	return *i.Unit
}
