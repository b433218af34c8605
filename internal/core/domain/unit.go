package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	UnitCount      = "count"
	UnitGram       = "g"
	UnitMilliliter = "ml"
)

type unitAlias struct {
	canonical string
	factor    int64
}

var unitAliases = map[string]unitAlias{
	"kg":         {UnitGram, 1000},
	"kilo":       {UnitGram, 1000},
	"kilogram":   {UnitGram, 1000},
	"g":          {UnitGram, 1},
	"gr":         {UnitGram, 1},
	"gram":       {UnitGram, 1},
	"l":          {UnitMilliliter, 1000},
	"liter":      {UnitMilliliter, 1000},
	"ml":         {UnitMilliliter, 1},
	"milliliter": {UnitMilliliter, 1},
}

// Normalize maps a raw quantity and unit label to the canonical unit stored in
// the ledger. An empty label means a discrete count. Unknown labels pass
// through lower-cased.
func Normalize(quantity float64, unit string) (float64, string) {
	label := strings.ToLower(strings.TrimSpace(unit))
	if label == "" {
		return quantity, UnitCount
	}

	alias, ok := unitAliases[label]
	if !ok {
		return quantity, label
	}
	if alias.factor == 1 {
		return quantity, alias.canonical
	}

	scaled := decimal.NewFromFloat(quantity).Mul(decimal.NewFromInt(alias.factor))
	return scaled.InexactFloat64(), alias.canonical
}
