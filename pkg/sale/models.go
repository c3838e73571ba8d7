package sale

import (
	"github.com/shopspring/decimal"
)

// OrderState represents the workflow state of a sale order.
type OrderState string

const (
	StateDraft     OrderState = "draft"
	StateQuotation OrderState = "quotation"
	StateConfirmed OrderState = "confirmed"
	StateDone      OrderState = "done"
	StateCancelled OrderState = "cancelled"
)

// ProductType distinguishes physical goods from services.
type ProductType string

const (
	ProductGoods   ProductType = "goods"
	ProductService ProductType = "service"
)

// LineType represents the kind of an order line.
type LineType string

const (
	LineTypeLine    LineType = "line"
	LineTypeComment LineType = "comment"
)

// CostMethod identifies how a carrier computes shipping cost.
type CostMethod string

const (
	// CostMethodEndicia computes cost through the Endicia (USPS) API.
	CostMethodEndicia CostMethod = "endicia"
)

// ShippingLineSequence places the shipping charge after every product line.
const ShippingLineSequence = 9999

// Address represents a postal address.
type Address struct {
	Name        string
	Line1       string
	Line2       string
	City        string
	Subdivision string // state/province code
	PostalCode  string
	CountryCode string // ISO 3166-1 alpha-2, e.g. "US"
}

// Zip5 returns the first five characters of the postal code, as carrier
// rate APIs expect the base ZIP without the +4 extension.
func (a Address) Zip5() string {
	if len(a.PostalCode) > 5 {
		return a.PostalCode[:5]
	}
	return a.PostalCode
}

// Product represents a sellable product.
type Product struct {
	ID          string
	Name        string
	Type        ProductType
	Weight      float64 // per DefaultUnit quantity, expressed in WeightUnit
	WeightUnit  Unit
	DefaultUnit Unit
	SaleUnit    Unit
	ListPrice   decimal.Decimal
}

// MailClass represents a carrier service tier, e.g. "Priority Mail".
type MailClass struct {
	ID    string
	Name  string // display name
	Value string // wire value sent to the carrier API
}

// Carrier represents a shipping carrier configuration.
type Carrier struct {
	ID         string
	Title      string
	CostMethod CostMethod
	// Product is the reference product used to represent the shipping
	// charge on an order.
	Product *Product
}

// MailClassName returns the display name of a mail class for this carrier.
func (c *Carrier) MailClassName(mc MailClass) string {
	return mc.Name
}

// OrderLine represents a single line on a sale order.
type OrderLine struct {
	ID          string
	Type        LineType
	Product     *Product
	Description string
	Quantity    float64
	Unit        Unit
	UnitPrice   decimal.Decimal
	Amount      decimal.Decimal
	Taxes       []string
	Sequence    int
	// ShipmentCost holds the shipping charge when this line carries one;
	// a non-zero value flags the line as a shipment-cost line.
	ShipmentCost decimal.Decimal
}

// IsShipmentCost reports whether the line carries a shipping charge.
func (l OrderLine) IsShipmentCost() bool {
	return !l.ShipmentCost.IsZero()
}

// Order represents a sale order.
type Order struct {
	ID       string
	State    OrderState
	Currency string // ISO 4217, e.g. "USD"
	Carrier  *Carrier
	// MailClass is the Endicia mail class selected for the order, nil
	// until one has been chosen.
	MailClass        *MailClass
	Lines            []OrderLine
	ShipmentAddress  Address
	WarehouseAddress Address
}

// IsEndiciaShipping reports whether the order ships through Endicia.
func (o *Order) IsEndiciaShipping() bool {
	return o.Carrier != nil && o.Carrier.CostMethod == CostMethodEndicia
}

// ShipFromAddress returns the origin address for rating, usually the
// warehouse the order ships from.
func (o *Order) ShipFromAddress() Address {
	return o.WarehouseAddress
}

// SetShippingLine replaces every shipment-cost line on the order with the
// given line. Callers must hold whatever lock guards the order so the
// delete and insert are observed together.
func (o *Order) SetShippingLine(line OrderLine) {
	kept := make([]OrderLine, 0, len(o.Lines)+1)
	for _, l := range o.Lines {
		if !l.IsShipmentCost() {
			kept = append(kept, l)
		}
	}
	o.Lines = append(kept, line)
}

// ShippingLines returns the order's shipment-cost lines.
func (o *Order) ShippingLines() []OrderLine {
	var lines []OrderLine
	for _, l := range o.Lines {
		if l.IsShipmentCost() {
			lines = append(lines, l)
		}
	}
	return lines
}

// WriteValues are the fields to persist on an order when a rate option is
// chosen.
type WriteValues struct {
	CarrierID   string
	MailClassID string
}

// RateOption represents one quoted shipping rate during rate shopping.
type RateOption struct {
	Label    string
	Cost     decimal.Decimal
	Currency string
	Metadata map[string]string
	Write    WriteValues
}
