package endicia

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MockAPIClient is a mock implementation of APIClient for testing.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	OnCalculatePostageRate func(ctx context.Context, req *RateRequest) (*RateResponse, error)
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{}
}

// mockBaseRates approximates the Label Server test prices per mail class.
var mockBaseRates = map[string]decimal.Decimal{
	"Priority":           decimal.RequireFromString("9.35"),
	"Express":            decimal.RequireFromString("26.35"),
	"First":              decimal.RequireFromString("4.15"),
	"ParcelSelect":       decimal.RequireFromString("7.90"),
	"MediaMail":          decimal.RequireFromString("3.17"),
	"PriorityMailIntl":   decimal.RequireFromString("35.15"),
	"FirstClassMailIntl": decimal.RequireFromString("14.25"),
}

// CalculatePostageRate returns a mock postage rate.
func (m *MockAPIClient) CalculatePostageRate(ctx context.Context, req *RateRequest) (*RateResponse, error) {
	if m.SimulateLatency > 0 {
		time.Sleep(m.SimulateLatency)
	}

	if m.SimulateErrors {
		return nil, &APIError{Status: 12345, Description: "Simulated API error"}
	}

	if m.OnCalculatePostageRate != nil {
		return m.OnCalculatePostageRate(ctx, req)
	}

	base, ok := mockBaseRates[req.MailClass]
	if !ok {
		return nil, &APIError{
			Status:      1001,
			Description: "Invalid or missing MailClass: " + req.MailClass,
		}
	}

	// Scale with weight the way the test server roughly does: base price
	// plus 40 cents per ounce past the first.
	weight, err := decimal.NewFromString(req.WeightOz)
	if err != nil || weight.LessThan(decimal.NewFromInt(1)) {
		weight = decimal.NewFromInt(1)
	}
	perOz := decimal.RequireFromString("0.40")
	total := base.Add(weight.Sub(decimal.NewFromInt(1)).Mul(perOz))

	return &RateResponse{
		Status:      0,
		TotalAmount: total.StringFixed(2),
		MailService: req.MailClass,
		Zone:        "1",
	}, nil
}

var _ APIClient = (*MockAPIClient)(nil)
