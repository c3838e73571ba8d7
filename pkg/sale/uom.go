package sale

import (
	"fmt"
	"math"
)

// UnitCategory groups units that can be converted into each other.
type UnitCategory string

const (
	CategoryUnits  UnitCategory = "units"
	CategoryWeight UnitCategory = "weight"
)

// Unit is a unit of measure. Factor relates the unit to the base unit of
// its category (kilogram for weight, piece for counts): one Unit equals
// Factor base units. Rounding is the precision converted quantities are
// rounded to, which keeps exact ratios (16 oz to the lb) exact despite
// the float arithmetic.
type Unit struct {
	Symbol   string
	Category UnitCategory
	Factor   float64
	Rounding float64
}

// Predeclared units. Weight factors are relative to the kilogram.
var (
	UnitPiece = Unit{Symbol: "u", Category: CategoryUnits, Factor: 1, Rounding: 0.01}
	UnitDozen = Unit{Symbol: "dz", Category: CategoryUnits, Factor: 12, Rounding: 0.01}

	UnitKilogram = Unit{Symbol: "kg", Category: CategoryWeight, Factor: 1, Rounding: 0.01}
	UnitGram     = Unit{Symbol: "g", Category: CategoryWeight, Factor: 0.001, Rounding: 0.01}
	UnitPound    = Unit{Symbol: "lb", Category: CategoryWeight, Factor: 0.45359237, Rounding: 0.01}
	UnitOunce    = Unit{Symbol: "oz", Category: CategoryWeight, Factor: 0.028349523125, Rounding: 0.01}
)

// UnitBySymbol resolves one of the predeclared units by its symbol.
func UnitBySymbol(symbol string) (Unit, bool) {
	for _, u := range []Unit{UnitPiece, UnitDozen, UnitKilogram, UnitGram, UnitPound, UnitOunce} {
		if u.Symbol == symbol {
			return u, true
		}
	}
	return Unit{}, false
}

// ConvertQty converts a quantity between two units of the same category
// and rounds the result to the target unit's precision.
func ConvertQty(qty float64, from, to Unit) (float64, error) {
	if from.Symbol == to.Symbol {
		return qty, nil
	}
	if from.Category != to.Category {
		return 0, fmt.Errorf("cannot convert %s to %s: incompatible categories", from.Symbol, to.Symbol)
	}
	if from.Factor == 0 || to.Factor == 0 {
		return 0, fmt.Errorf("cannot convert %s to %s: zero conversion factor", from.Symbol, to.Symbol)
	}
	result := qty * from.Factor / to.Factor
	if to.Rounding > 0 {
		result = math.Round(result/to.Rounding) * to.Rounding
	}
	return result, nil
}
