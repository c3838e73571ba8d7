// Package endicia provides integration with the Endicia (USPS) postage API.
package endicia

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulfilware/postage/pkg/sale"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const carrierName = "endicia"

// Config holds Endicia credentials and connection settings. Credentials
// are configured once process-wide and read on every request.
type Config struct {
	AccountID   string
	RequesterID string
	Passphrase  string
	Test        bool
	BaseURL     string
	UseMock     bool
}

// Client is the Endicia rate client.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
	tracer    trace.Tracer
}

// New creates a new Endicia client.
func New(cfg Config, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		apiClient = NewMockAPIClient()
	} else {
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL:     cfg.BaseURL,
			RequesterID: cfg.RequesterID,
			AccountID:   cfg.AccountID,
			Passphrase:  cfg.Passphrase,
			Test:        cfg.Test,
			Timeout:     30 * time.Second,
		})
	}

	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// NewWithAPIClient creates a new Endicia client with a custom API client.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger, tracer trace.Tracer) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
		tracer:    tracer,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// CalculatePostage returns the postage cost for the query, in USD. A
// single attempt is made; service-reported failures come back as a
// *sale.RequestError carrying the service message verbatim.
func (c *Client) CalculatePostage(ctx context.Context, q *sale.RateQuery) (decimal.Decimal, error) {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "endicia.CalculatePostage")
		defer span.End()
	}

	c.logger.Info("Calculating Endicia postage",
		zap.String("mail_class", q.MailClass),
		zap.String("weight_oz", q.WeightOz.String()),
		zap.String("from_postal", q.FromPostalCode),
		zap.String("to_postal", q.ToPostalCode),
		zap.Bool("test", c.config.Test),
	)

	apiReq := &RateRequest{
		MailClass:      q.MailClass,
		WeightOz:       q.WeightOz.String(),
		FromPostalCode: q.FromPostalCode,
		ToPostalCode:   q.ToPostalCode,
		ToCountryCode:  q.ToCountryCode,
	}

	apiResp, err := c.apiClient.CalculatePostageRate(ctx, apiReq)
	if err != nil {
		c.logger.Error("Endicia API error", zap.Error(err))
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return decimal.Zero, sale.NewRequestError(
				carrierName,
				fmt.Sprintf("%d", apiErr.Status),
				apiErr.Description,
			).WithCause(err)
		}
		return decimal.Zero, err
	}

	amount, err := decimal.NewFromString(apiResp.TotalAmount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid postage amount %q: %w", apiResp.TotalAmount, err)
	}

	return amount, nil
}

var _ sale.RateClient = (*Client)(nil)
