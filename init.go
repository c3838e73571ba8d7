package main

import (
	"context"

	"github.com/fulfilware/postage/internal/config"
	"github.com/fulfilware/postage/internal/store"
	"github.com/fulfilware/postage/internal/telemetry"
	"github.com/fulfilware/postage/pkg/sale"
	"github.com/fulfilware/postage/pkg/sale/endicia"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return nil, func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
}

// uspsMailClasses are the Endicia mail classes offered out of the box.
var uspsMailClasses = []sale.MailClass{
	{ID: "mc-first", Name: "First-Class Mail", Value: "First"},
	{ID: "mc-priority", Name: "Priority Mail", Value: "Priority"},
	{ID: "mc-express", Name: "Priority Mail Express", Value: "Express"},
	{ID: "mc-parcel", Name: "Parcel Select", Value: "ParcelSelect"},
	{ID: "mc-media", Name: "Media Mail", Value: "MediaMail"},
}

// initSaleConfiguration installs the sale configuration singleton that new
// orders read their defaults from.
func initSaleConfiguration(cfg *config.Config) {
	c := sale.DefaultConfiguration()
	c.MailClasses = uspsMailClasses
	if cfg.DefaultMailClass != "" {
		if mc, ok := c.MailClassByValue(cfg.DefaultMailClass); ok {
			c.DefaultMailClass = mc
		}
	}
	sale.SetConfig(c)
}

// endiciaCarrier builds the carrier record for the Endicia cost method,
// with the reference product that represents shipping charges on orders.
func endiciaCarrier() *sale.Carrier {
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

func initShipping(cfg *config.Config, carrier *sale.Carrier, logger *otelzap.Logger, tracer trace.Tracer) (*sale.Service, *sale.Registry) {
	client := endicia.New(endicia.Config{
		AccountID:   cfg.EndiciaAccountID,
		RequesterID: cfg.EndiciaRequesterID,
		Passphrase:  cfg.EndiciaPassphrase,
		Test:        cfg.EndiciaTest,
		BaseURL:     cfg.EndiciaBaseURL,
		UseMock:     cfg.EndiciaUseMock,
	}, logger, tracer)

	service := sale.NewService(
		sale.ServiceConfig{Carrier: carrier},
		client,
		sale.NewStaticRates(map[string]decimal.Decimal{
			"CAD": decimal.RequireFromString("1.37"),
			"EUR": decimal.RequireFromString("0.92"),
			"GBP": decimal.RequireFromString("0.79"),
		}),
		logger,
		tracer,
	)

	registry := sale.NewRegistry()
	registry.Register(service)

	return service, registry
}

func newOrderStore() *store.OrderStore {
	return store.NewOrderStore()
}
