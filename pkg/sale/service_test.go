package sale_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fulfilware/postage/pkg/sale"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// stubRateClient is a RateClient returning canned costs per mail class.
type stubRateClient struct {
	costs map[string]decimal.Decimal
	errs  map[string]error
	calls []sale.RateQuery
}

func (s *stubRateClient) Name() string { return "endicia" }

func (s *stubRateClient) CalculatePostage(_ context.Context, q *sale.RateQuery) (decimal.Decimal, error) {
	s.calls = append(s.calls, *q)
	if err, ok := s.errs[q.MailClass]; ok {
		return decimal.Zero, err
	}
	if cost, ok := s.costs[q.MailClass]; ok {
		return cost, nil
	}
	return decimal.RequireFromString("9.35"), nil
}

// staticClasses is a MailClassSource with a fixed set.
type staticClasses []sale.MailClass

func (c staticClasses) EligibleMailClasses(*sale.Order) []sale.MailClass { return c }

var testClasses = staticClasses{
	{ID: "mc-1", Name: "First-Class Mail", Value: "First"},
	{ID: "mc-2", Name: "Priority Mail", Value: "Priority"},
	{ID: "mc-3", Name: "Priority Mail Express", Value: "Express"},
}

func testCarrier() *sale.Carrier {
	return &sale.Carrier{
		ID:         "carrier-endicia",
		Title:      "USPS [Endicia]",
		CostMethod: sale.CostMethodEndicia,
		Product: &sale.Product{
			ID:          "prod-shipping",
			Name:        "Shipping",
			Type:        sale.ProductService,
			DefaultUnit: sale.UnitPiece,
			SaleUnit:    sale.UnitPiece,
		},
	}
}

func newTestService(client sale.RateClient, rates map[string]decimal.Decimal) *sale.Service {
	logger := otelzap.New(zap.NewNop())
	return sale.NewService(
		sale.ServiceConfig{Carrier: testCarrier(), Classes: testClasses},
		client,
		sale.NewStaticRates(rates),
		logger,
		nil,
	)
}

func testOrder(carrier *sale.Carrier) *sale.Order {
	return &sale.Order{
		ID:       "order-1",
		State:    sale.StateDraft,
		Currency: "USD",
		Carrier:  carrier,
		MailClass: &sale.MailClass{
			ID: "mc-2", Name: "Priority Mail", Value: "Priority",
		},
		ShipmentAddress: sale.Address{
			City:        "Provo",
			PostalCode:  "846011234",
			CountryCode: "US",
		},
		WarehouseAddress: sale.Address{
			City:        "Boise",
			PostalCode:  "83702",
			CountryCode: "US",
		},
		Lines: []sale.OrderLine{
			{
				Product:   physicalProduct("widget", 3, sale.UnitOunce),
				Quantity:  2,
				Unit:      sale.UnitPiece,
				UnitPrice: decimal.RequireFromString("10.00"),
			},
		},
	}
}

func TestService_Rate_MailClassMissing(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())
	order.MailClass = nil

	_, err := svc.Rate(context.Background(), order, "")

	assert.ErrorIs(t, err, sale.ErrMailClassMissing)
	assert.Empty(t, client.calls)
}

func TestService_Rate_BuildsQuery(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	_, err := svc.Rate(context.Background(), order, "")

	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	q := client.calls[0]
	assert.Equal(t, "Priority", q.MailClass)
	assert.Equal(t, "6", q.WeightOz.String())
	assert.Equal(t, "83702", q.FromPostalCode)
	assert.Equal(t, "84601", q.ToPostalCode, "destination zip is truncated to zip5")
	assert.Equal(t, "US", q.ToCountryCode)
}

func TestService_Rate_ExplicitMailClassWins(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	_, err := svc.Rate(context.Background(), order, "Express")

	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Equal(t, "Express", client.calls[0].MailClass)
}

func TestService_Rate_MissingWeightPropagates(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())
	order.Lines[0].Product.Weight = 0

	_, err := svc.Rate(context.Background(), order, "")

	assert.ErrorIs(t, err, sale.ErrMissingWeight)
	assert.Empty(t, client.calls)
}

func TestService_RateOptions_DefaultSwallowsMailClassMissing(t *testing.T) {
	client := &stubRateClient{
		costs: map[string]decimal.Decimal{
			"First":   decimal.RequireFromString("4.15"),
			"Express": decimal.RequireFromString("26.35"),
		},
		errs: map[string]error{
			"Priority": sale.ErrMailClassMissing,
		},
	}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	options, err := svc.RateOptions(context.Background(), order, nil)

	require.NoError(t, err)
	require.Len(t, options, 2)
	// Enumeration order is preserved, never sorted by price.
	assert.Equal(t, "First-Class Mail", options[0].Label)
	assert.Equal(t, "Priority Mail Express", options[1].Label)
	assert.Equal(t, "USD", options[0].Currency)
	assert.True(t, options[0].Cost.Equal(decimal.RequireFromString("4.15")))
	assert.Equal(t, "carrier-endicia", options[0].Write.CarrierID)
	assert.Equal(t, "mc-1", options[0].Write.MailClassID)
}

func TestService_RateOptions_NilSwallowPropagates(t *testing.T) {
	client := &stubRateClient{
		errs: map[string]error{
			"Priority": sale.ErrMailClassMissing,
		},
	}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	options, err := svc.RateOptions(context.Background(), order, &sale.ShopOptions{})

	assert.ErrorIs(t, err, sale.ErrMailClassMissing)
	assert.Nil(t, options)
}

func TestService_RateOptions_TransportErrorNotSwallowed(t *testing.T) {
	transportErr := errors.New("dial tcp: connection refused")
	client := &stubRateClient{
		errs: map[string]error{
			"Priority": transportErr,
		},
	}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	_, err := svc.RateOptions(context.Background(), order, nil)

	assert.ErrorIs(t, err, transportErr)
}

func TestService_ApplyShipping_CreatesLine(t *testing.T) {
	client := &stubRateClient{
		costs: map[string]decimal.Decimal{
			"Priority": decimal.RequireFromString("9.35"),
		},
	}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	err := svc.ApplyShipping(context.Background(), order)

	require.NoError(t, err)
	shipping := order.ShippingLines()
	require.Len(t, shipping, 1)
	line := shipping[0]
	assert.Equal(t, sale.LineTypeLine, line.Type)
	assert.Equal(t, "prod-shipping", line.Product.ID)
	assert.Equal(t, "Priority Mail", line.Description)
	assert.Equal(t, float64(1), line.Quantity)
	assert.Equal(t, "u", line.Unit.Symbol)
	assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("9.35")))
	assert.True(t, line.Amount.Equal(line.UnitPrice))
	assert.True(t, line.ShipmentCost.Equal(line.UnitPrice))
	assert.Empty(t, line.Taxes)
	assert.Equal(t, sale.ShippingLineSequence, line.Sequence)
	// The product line is untouched.
	assert.Len(t, order.Lines, 2)
}

func TestService_ApplyShipping_Idempotent(t *testing.T) {
	client := &stubRateClient{
		costs: map[string]decimal.Decimal{
			"Priority": decimal.RequireFromString("9.35"),
		},
	}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	require.NoError(t, svc.ApplyShipping(context.Background(), order))

	// The rate changes; reapplying must replace, not accumulate.
	client.costs["Priority"] = decimal.RequireFromString("11.10")
	require.NoError(t, svc.ApplyShipping(context.Background(), order))

	shipping := order.ShippingLines()
	require.Len(t, shipping, 1)
	assert.True(t, shipping[0].ShipmentCost.Equal(decimal.RequireFromString("11.10")))
}

func TestService_ApplyShipping_OtherCarrierUntouched(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(&sale.Carrier{ID: "carrier-ups", CostMethod: "ups"})
	before := len(order.Lines)

	err := svc.ApplyShipping(context.Background(), order)

	require.NoError(t, err)
	assert.Len(t, order.Lines, before)
	assert.Empty(t, client.calls)
}

func TestService_ApplyShipping_NoCarrierUntouched(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(nil)

	err := svc.ApplyShipping(context.Background(), order)

	require.NoError(t, err)
	assert.Empty(t, order.ShippingLines())
}

func TestService_ApplyShipping_ZeroCostNoLine(t *testing.T) {
	client := &stubRateClient{
		costs: map[string]decimal.Decimal{
			"Priority": decimal.Zero,
		},
	}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	err := svc.ApplyShipping(context.Background(), order)

	require.NoError(t, err)
	assert.Empty(t, order.ShippingLines())
	assert.Len(t, order.Lines, 1)
}

func TestService_ApplyShipping_MailClassMissing(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())
	order.MailClass = nil

	err := svc.ApplyShipping(context.Background(), order)

	assert.ErrorIs(t, err, sale.ErrMailClassMissing)
}

func TestService_ApplyShipping_ConvertsCurrency(t *testing.T) {
	client := &stubRateClient{
		costs: map[string]decimal.Decimal{
			"Priority": decimal.RequireFromString("10.00"),
		},
	}
	svc := newTestService(client, map[string]decimal.Decimal{
		"EUR": decimal.RequireFromString("0.5"),
	})
	order := testOrder(testCarrier())
	order.Currency = "EUR"

	err := svc.ApplyShipping(context.Background(), order)

	require.NoError(t, err)
	shipping := order.ShippingLines()
	require.Len(t, shipping, 1)
	assert.True(t, shipping[0].ShipmentCost.Equal(decimal.RequireFromString("5")),
		"got %s", shipping[0].ShipmentCost)
}

func TestService_UpdateShipmentCost_OnlyInQuotation(t *testing.T) {
	client := &stubRateClient{}
	svc := newTestService(client, nil)
	order := testOrder(testCarrier())

	err := svc.UpdateShipmentCost(context.Background(), order)
	assert.ErrorIs(t, err, sale.ErrInvalidState)

	order.State = sale.StateQuotation
	err = svc.UpdateShipmentCost(context.Background(), order)
	require.NoError(t, err)
	assert.Len(t, order.ShippingLines(), 1)
}
