package sale

import (
	"math"

	"github.com/shopspring/decimal"
)

// ShippingWeight returns the shipping weight of an order line in whole
// ounces, rounded up. Under-declaring weight risks under-paying postage,
// so the ceiling is never relaxed.
//
// Lines without a product, lines for service products and lines with a
// non-positive quantity weigh zero.
func ShippingWeight(line OrderLine) (decimal.Decimal, error) {
	if line.Product == nil || line.Product.Type == ProductService || line.Quantity <= 0 {
		return decimal.Zero, nil
	}

	if line.Product.Weight == 0 {
		return decimal.Zero, MissingWeightError(line.Product.Name)
	}

	// The product weight is per unit in its default UOM, so bring the
	// line quantity into that UOM first.
	quantity := line.Quantity
	if line.Unit.Symbol != line.Product.DefaultUnit.Symbol {
		q, err := ConvertQty(line.Quantity, line.Unit, line.Product.DefaultUnit)
		if err != nil {
			return decimal.Zero, err
		}
		quantity = q
	}

	weight := line.Product.Weight * quantity

	if line.Product.WeightUnit.Symbol != UnitOunce.Symbol {
		w, err := ConvertQty(weight, line.Product.WeightUnit, UnitOunce)
		if err != nil {
			return decimal.Zero, err
		}
		weight = w
	}

	return decimal.NewFromFloat(math.Ceil(weight)), nil
}

// OrderShippingWeight sums the shipping weight of every line on the order.
func OrderShippingWeight(o *Order) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range o.Lines {
		w, err := ShippingWeight(line)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(w)
	}
	return total, nil
}
