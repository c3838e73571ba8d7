package sale

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyConverter converts monetary amounts between currencies. The host
// order-management system normally provides the implementation; StaticRates
// serves deployments without one.
type CurrencyConverter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// StaticRates is a CurrencyConverter backed by a fixed rate table. Rates
// are expressed against a base currency: one unit of the base buys
// Rates[code] units of that currency.
type StaticRates struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// NewStaticRates creates a converter with USD as base currency.
func NewStaticRates(rates map[string]decimal.Decimal) *StaticRates {
	return &StaticRates{Base: "USD", Rates: rates}
}

// Convert converts amount from one currency to another through the base.
func (s *StaticRates) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}
	fromRate, err := s.rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := s.rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Div(fromRate).Mul(toRate), nil
}

func (s *StaticRates) rate(code string) (decimal.Decimal, error) {
	if code == s.Base {
		return decimal.NewFromInt(1), nil
	}
	if r, ok := s.Rates[code]; ok && !r.IsZero() {
		return r, nil
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
}
