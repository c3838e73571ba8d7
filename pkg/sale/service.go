// Package sale implements shipping-cost computation for sale orders
// through a postage-calculation carrier API.
package sale

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RateQuery is the carrier-facing postage query.
type RateQuery struct {
	MailClass      string
	WeightOz       decimal.Decimal
	FromPostalCode string
	ToPostalCode   string
	ToCountryCode  string
}

// RateClient fetches postage costs from a carrier API. Costs are in USD.
type RateClient interface {
	Name() string
	CalculatePostage(ctx context.Context, q *RateQuery) (decimal.Decimal, error)
}

// MailClassSource enumerates the mail classes eligible for an order.
// Downstream systems can narrow the set per order.
type MailClassSource interface {
	EligibleMailClasses(o *Order) []MailClass
}

// ConfiguredMailClasses is the default MailClassSource: every mail class
// in the sale configuration, in insertion order.
type ConfiguredMailClasses struct{}

// EligibleMailClasses returns all configured mail classes.
func (ConfiguredMailClasses) EligibleMailClasses(*Order) []MailClass {
	return Config().MailClasses
}

// ShopOptions controls error handling during rate shopping. Swallow names
// exactly which per-class failures are skipped; a nil predicate propagates
// every failure.
type ShopOptions struct {
	Swallow func(error) bool
}

// SwallowMailClassMissing skips mail-class-missing failures only; any
// other failure, including transport errors, aborts the shop.
func SwallowMailClassMissing(err error) bool {
	return errors.Is(err, ErrMailClassMissing)
}

// SwallowBusiness skips every business-rule failure.
func SwallowBusiness(err error) bool {
	return IsBusiness(err)
}

// DefaultShopOptions returns the options used when none are given.
func DefaultShopOptions() *ShopOptions {
	return &ShopOptions{Swallow: SwallowMailClassMissing}
}

// ServiceConfig holds the Endicia sale service dependencies that come
// from carrier configuration.
type ServiceConfig struct {
	// Carrier is the carrier record configured for the Endicia cost
	// method; its reference product represents the shipping charge.
	Carrier *Carrier
	// Classes defaults to the configured mail classes when nil.
	Classes MailClassSource
}

// Service computes and applies Endicia shipping costs for sale orders.
type Service struct {
	config   ServiceConfig
	client   RateClient
	currency CurrencyConverter
	classes  MailClassSource
	logger   *otelzap.Logger
	tracer   trace.Tracer
}

// NewService creates a new shipping service.
func NewService(cfg ServiceConfig, client RateClient, currency CurrencyConverter, logger *otelzap.Logger, tracer trace.Tracer) *Service {
	classes := cfg.Classes
	if classes == nil {
		classes = ConfiguredMailClasses{}
	}
	return &Service{
		config:   cfg,
		client:   client,
		currency: currency,
		classes:  classes,
		logger:   logger,
		tracer:   tracer,
	}
}

// Name returns the carrier name of the underlying rate client.
func (s *Service) Name() string {
	return s.client.Name()
}

// Applies reports whether this service computes shipping for the order.
func (s *Service) Applies(o *Order) bool {
	return o.IsEndiciaShipping()
}

// Rate returns the shipping cost of the order for a mail class, in USD.
// An empty mailClass falls back to the class selected on the order;
// ErrMailClassMissing is returned when neither resolves.
func (s *Service) Rate(ctx context.Context, o *Order, mailClass string) (decimal.Decimal, error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "sale.Rate")
		defer span.End()
	}

	if mailClass == "" {
		if o.MailClass == nil {
			return decimal.Zero, ErrMailClassMissing
		}
		mailClass = o.MailClass.Value
	}

	weight, err := OrderShippingWeight(o)
	if err != nil {
		return decimal.Zero, err
	}

	from := o.ShipFromAddress()

	return s.client.CalculatePostage(ctx, &RateQuery{
		MailClass:      mailClass,
		WeightOz:       weight,
		FromPostalCode: from.Zip5(),
		ToPostalCode:   o.ShipmentAddress.Zip5(),
		ToCountryCode:  o.ShipmentAddress.CountryCode,
	})
}

// RateOptions quotes every eligible mail class sequentially and returns
// the successful quotes in enumeration order, not sorted by price. Each
// option carries the values to persist when the choice is made.
func (s *Service) RateOptions(ctx context.Context, o *Order, opts *ShopOptions) ([]RateOption, error) {
	if opts == nil {
		opts = DefaultShopOptions()
	}

	var options []RateOption
	for _, mc := range s.classes.EligibleMailClasses(o) {
		cost, err := s.Rate(ctx, o, mc.Value)
		if err != nil {
			if opts.Swallow != nil && opts.Swallow(err) {
				s.logger.Debug("Skipping mail class during rate shopping",
					zap.String("mail_class", mc.Value),
					zap.Error(err),
				)
				continue
			}
			return nil, err
		}
		options = append(options, RateOption{
			Label:    s.config.Carrier.MailClassName(mc),
			Cost:     cost,
			Currency: "USD",
			Metadata: map[string]string{},
			Write: WriteValues{
				CarrierID:   s.config.Carrier.ID,
				MailClassID: mc.ID,
			},
		})
	}
	return options, nil
}

// ApplyShipping computes the shipping cost and replaces the order's
// shipment-cost line with it. Orders not shipping through Endicia are
// left untouched, and a zero cost creates no line. Repeated calls
// converge to a single line carrying the latest cost.
func (s *Service) ApplyShipping(ctx context.Context, o *Order) error {
	if !o.IsEndiciaShipping() {
		return nil
	}
	if o.MailClass == nil {
		return ErrMailClassMissing
	}

	costUSD, err := s.Rate(ctx, o, o.MailClass.Value)
	if err != nil {
		return err
	}
	if costUSD.IsZero() {
		s.logger.Info("No shipping charge applicable",
			zap.String("order_id", o.ID),
			zap.String("mail_class", o.MailClass.Value),
		)
		return nil
	}

	cost, err := s.currency.Convert(costUSD, "USD", o.Currency)
	if err != nil {
		return err
	}

	product := o.Carrier.Product
	o.SetShippingLine(OrderLine{
		ID:           uuid.NewString(),
		Type:         LineTypeLine,
		Product:      product,
		Description:  o.Carrier.MailClassName(*o.MailClass),
		Quantity:     1,
		Unit:         product.SaleUnit,
		UnitPrice:    cost,
		Amount:       cost,
		ShipmentCost: cost,
		Taxes:        nil,
		Sequence:     ShippingLineSequence,
	})

	s.logger.Info("Applied shipping cost",
		zap.String("order_id", o.ID),
		zap.String("mail_class", o.MailClass.Value),
		zap.String("cost", cost.StringFixed(2)),
		zap.String("currency", o.Currency),
	)
	return nil
}

// UpdateShipmentCost is the manual recompute action. It is only valid
// while the order is in quotation state.
func (s *Service) UpdateShipmentCost(ctx context.Context, o *Order) error {
	if o.State != StateQuotation {
		return fmt.Errorf("%w: shipment cost can only be updated in quotation, order %s is %s",
			ErrInvalidState, o.ID, o.State)
	}
	return s.ApplyShipping(ctx, o)
}
