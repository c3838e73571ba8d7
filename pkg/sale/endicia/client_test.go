package endicia_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fulfilware/postage/pkg/sale"
	"github.com/fulfilware/postage/pkg/sale/endicia"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestClient(mockClient *endicia.MockAPIClient) *endicia.Client {
	logger := otelzap.New(zap.NewNop())
	return endicia.NewWithAPIClient(
		endicia.Config{AccountID: "123456", RequesterID: "abcd", Passphrase: "passphrase", Test: true},
		mockClient,
		logger,
		nil,
	)
}

func testQuery() *sale.RateQuery {
	return &sale.RateQuery{
		MailClass:      "Priority",
		WeightOz:       decimal.NewFromInt(6),
		FromPostalCode: "83702",
		ToPostalCode:   "84601",
		ToCountryCode:  "US",
	}
}

func TestClient_CalculatePostage_Success(t *testing.T) {
	mockAPI := endicia.NewMockAPIClient()
	client := newTestClient(mockAPI)

	cost, err := client.CalculatePostage(context.Background(), testQuery())

	require.NoError(t, err)
	assert.True(t, cost.GreaterThan(decimal.Zero))
}

func TestClient_CalculatePostage_CustomMock(t *testing.T) {
	mockAPI := endicia.NewMockAPIClient()
	mockAPI.OnCalculatePostageRate = func(ctx context.Context, req *endicia.RateRequest) (*endicia.RateResponse, error) {
		assert.Equal(t, "Priority", req.MailClass)
		assert.Equal(t, "6", req.WeightOz)
		assert.Equal(t, "83702", req.FromPostalCode)
		assert.Equal(t, "84601", req.ToPostalCode)
		return &endicia.RateResponse{
			Status:      0,
			TotalAmount: "12.65",
			MailService: "Priority Mail",
		}, nil
	}

	client := newTestClient(mockAPI)

	cost, err := client.CalculatePostage(context.Background(), testQuery())

	require.NoError(t, err)
	assert.True(t, cost.Equal(decimal.RequireFromString("12.65")))
}

func TestClient_CalculatePostage_APIError(t *testing.T) {
	mockAPI := endicia.NewMockAPIClient()
	mockAPI.SimulateErrors = true

	client := newTestClient(mockAPI)

	_, err := client.CalculatePostage(context.Background(), testQuery())

	require.Error(t, err)
	var reqErr *sale.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, "endicia", reqErr.Carrier)
	// The service message is forwarded verbatim.
	assert.Contains(t, reqErr.Message, "Simulated API error")
}

func TestClient_CalculatePostage_UnknownMailClass(t *testing.T) {
	mockAPI := endicia.NewMockAPIClient()
	client := newTestClient(mockAPI)

	q := testQuery()
	q.MailClass = "PigeonPost"
	_, err := client.CalculatePostage(context.Background(), q)

	require.Error(t, err)
	var reqErr *sale.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Contains(t, reqErr.Message, "PigeonPost")
}

func TestClient_CalculatePostage_InvalidAmount(t *testing.T) {
	mockAPI := endicia.NewMockAPIClient()
	mockAPI.OnCalculatePostageRate = func(ctx context.Context, req *endicia.RateRequest) (*endicia.RateResponse, error) {
		return &endicia.RateResponse{Status: 0, TotalAmount: "not-a-number"}, nil
	}

	client := newTestClient(mockAPI)

	_, err := client.CalculatePostage(context.Background(), testQuery())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid postage amount")
}

func TestClient_Name(t *testing.T) {
	client := newTestClient(endicia.NewMockAPIClient())

	assert.Equal(t, "endicia", client.Name())
}

func TestClient_New_WithMock(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	client := endicia.New(
		endicia.Config{UseMock: true, AccountID: "123456"},
		logger,
		nil,
	)

	cost, err := client.CalculatePostage(context.Background(), testQuery())

	require.NoError(t, err)
	assert.True(t, cost.GreaterThan(decimal.Zero))
}
