package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fulfilware/postage/internal/store"
	"github.com/fulfilware/postage/internal/telemetry"
	"github.com/fulfilware/postage/pkg/sale"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Server is the HTTP server exposing the host-facing order actions.
type Server struct {
	port    int
	carrier *sale.Carrier
	service *sale.Service
	reg     *sale.Registry
	orders  *store.OrderStore
	logger  *otelzap.Logger
	metrics *telemetry.Metrics
	promReg *prometheus.Registry
}

// Config holds server configuration.
type Config struct {
	Port int
	// Carrier is assigned to orders created through the API.
	Carrier *sale.Carrier
}

// New creates a new server instance. Each server carries its own metrics
// registry so tests can construct servers freely.
func New(cfg Config, service *sale.Service, reg *sale.Registry, orders *store.OrderStore, logger *otelzap.Logger) *Server {
	promReg := prometheus.NewRegistry()
	return &Server{
		port:    cfg.Port,
		carrier: cfg.Carrier,
		service: service,
		reg:     reg,
		orders:  orders,
		logger:  logger,
		metrics: telemetry.NewMetricsWith(promReg),
		promReg: promReg,
	}
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /orders", s.instrument("create_order", s.handleCreateOrder))
	mux.HandleFunc("GET /orders/{id}", s.instrument("get_order", s.handleGetOrder))
	mux.HandleFunc("POST /orders/{id}/quote", s.instrument("quote_order", s.handleQuote))
	mux.HandleFunc("POST /orders/{id}/shipping-cost", s.instrument("update_shipping_cost", s.handleUpdateShippingCost))
	mux.HandleFunc("GET /orders/{id}/rates", s.instrument("rate_options", s.handleRateOptions))

	return mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// instrument wraps a handler with request metrics.
func (s *Server) instrument(operation string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.RecordRequest(operation, fmt.Sprintf("%d", rec.status), time.Since(start).Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// ============================================================================
// Request/response types
// ============================================================================

type addressRequest struct {
	Name        string `json:"name"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	Subdivision string `json:"subdivision,omitempty"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

type productRequest struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"` // "goods" or "service"
	Weight      float64 `json:"weight"`
	WeightUnit  string  `json:"weightUnit"`  // e.g. "oz", "lb"
	DefaultUnit string  `json:"defaultUnit"` // e.g. "u"
}

type lineRequest struct {
	Product   *productRequest `json:"product"`
	Quantity  float64         `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice string          `json:"unitPrice"`
}

type createOrderRequest struct {
	Currency         string         `json:"currency"`
	MailClass        string         `json:"mailClass,omitempty"`
	ShipmentAddress  addressRequest `json:"shipmentAddress"`
	WarehouseAddress addressRequest `json:"warehouseAddress"`
	Lines            []lineRequest  `json:"lines"`
}

type lineResponse struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Product      string  `json:"product,omitempty"`
	Description  string  `json:"description,omitempty"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	UnitPrice    string  `json:"unitPrice"`
	Amount       string  `json:"amount"`
	ShipmentCost string  `json:"shipmentCost,omitempty"`
	Sequence     int     `json:"sequence"`
}

type orderResponse struct {
	ID        string         `json:"id"`
	State     string         `json:"state"`
	Currency  string         `json:"currency"`
	Carrier   string         `json:"carrier,omitempty"`
	MailClass string         `json:"mailClass,omitempty"`
	Lines     []lineResponse `json:"lines"`
}

type rateOptionResponse struct {
	Label       string            `json:"label"`
	Cost        string            `json:"cost"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CarrierID   string            `json:"carrierId"`
	MailClassID string            `json:"mailClassId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}
	if req.Currency == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("currency is required"))
		return
	}

	order := sale.NewOrder("", req.Currency, s.carrier)
	if req.MailClass != "" {
		mc, ok := sale.Config().MailClassByValue(req.MailClass)
		if !ok {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("unknown mail class %q", req.MailClass))
			return
		}
		order.MailClass = mc
	}
	order.ShipmentAddress = toAddress(req.ShipmentAddress)
	order.WarehouseAddress = toAddress(req.WarehouseAddress)

	for i, lr := range req.Lines {
		line, err := toOrderLine(lr)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("line %d: %w", i, err))
			return
		}
		order.Lines = append(order.Lines, line)
	}

	s.orders.Create(order)
	s.logger.Info("Created order",
		zap.String("order_id", order.ID),
		zap.Int("lines", len(order.Lines)),
	)
	s.writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Update(r.PathValue("id"), func(o *sale.Order) error {
		return sale.Quote(r.Context(), s.reg, o)
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleUpdateShippingCost(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Update(r.PathValue("id"), func(o *sale.Order) error {
		return s.service.UpdateShipmentCost(r.Context(), o)
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (s *Server) handleRateOptions(w http.ResponseWriter, r *http.Request) {
	order, err := s.orders.Get(r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	opts := sale.DefaultShopOptions()
	if r.URL.Query().Get("silent") == "false" {
		opts = &sale.ShopOptions{}
	}

	options, err := s.service.RateOptions(r.Context(), order, opts)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := make([]rateOptionResponse, 0, len(options))
	for _, opt := range options {
		resp = append(resp, rateOptionResponse{
			Label:       opt.Label,
			Cost:        opt.Cost.StringFixed(2),
			Currency:    opt.Currency,
			Metadata:    opt.Metadata,
			CarrierID:   opt.Write.CarrierID,
			MailClassID: opt.Write.MailClassID,
		})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// Conversion and error mapping
// ============================================================================

func toAddress(a addressRequest) sale.Address {
	return sale.Address{
		Name:        a.Name,
		Line1:       a.Line1,
		Line2:       a.Line2,
		City:        a.City,
		Subdivision: a.Subdivision,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
	}
}

func toOrderLine(lr lineRequest) (sale.OrderLine, error) {
	line := sale.OrderLine{
		Type:     sale.LineTypeLine,
		Quantity: lr.Quantity,
	}

	unit, ok := sale.UnitBySymbol(lr.Unit)
	if !ok {
		return line, fmt.Errorf("unknown unit %q", lr.Unit)
	}
	line.Unit = unit

	if lr.UnitPrice != "" {
		price, err := decimal.NewFromString(lr.UnitPrice)
		if err != nil {
			return line, fmt.Errorf("invalid unit price %q", lr.UnitPrice)
		}
		line.UnitPrice = price
		line.Amount = price.Mul(decimal.NewFromFloat(lr.Quantity))
	}

	if lr.Product != nil {
		weightUnit, ok := sale.UnitBySymbol(lr.Product.WeightUnit)
		if !ok {
			return line, fmt.Errorf("unknown weight unit %q", lr.Product.WeightUnit)
		}
		defaultUnit, ok := sale.UnitBySymbol(lr.Product.DefaultUnit)
		if !ok {
			return line, fmt.Errorf("unknown default unit %q", lr.Product.DefaultUnit)
		}
		productType := sale.ProductGoods
		if lr.Product.Type == string(sale.ProductService) {
			productType = sale.ProductService
		}
		line.Product = &sale.Product{
			Name:        lr.Product.Name,
			Type:        productType,
			Weight:      lr.Product.Weight,
			WeightUnit:  weightUnit,
			DefaultUnit: defaultUnit,
			SaleUnit:    defaultUnit,
		}
		line.Description = lr.Product.Name
	}

	return line, nil
}

func toOrderResponse(o *sale.Order) orderResponse {
	resp := orderResponse{
		ID:       o.ID,
		State:    string(o.State),
		Currency: o.Currency,
		Lines:    make([]lineResponse, 0, len(o.Lines)),
	}
	if o.Carrier != nil {
		resp.Carrier = o.Carrier.Title
	}
	if o.MailClass != nil {
		resp.MailClass = o.MailClass.Value
	}
	for _, l := range o.Lines {
		lr := lineResponse{
			ID:          l.ID,
			Type:        string(l.Type),
			Description: l.Description,
			Quantity:    l.Quantity,
			Unit:        l.Unit.Symbol,
			UnitPrice:   l.UnitPrice.StringFixed(2),
			Amount:      l.Amount.StringFixed(2),
			Sequence:    l.Sequence,
		}
		if l.Product != nil {
			lr.Product = l.Product.Name
		}
		if l.IsShipmentCost() {
			lr.ShipmentCost = l.ShipmentCost.StringFixed(2)
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

// writeDomainError maps domain errors to HTTP statuses: missing orders to
// 404, state violations to 409, business-rule errors to 422, carrier
// failures to 502.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var reqErr *sale.RequestError
	switch {
	case errors.Is(err, sale.ErrOrderNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, sale.ErrInvalidState):
		s.writeError(w, http.StatusConflict, err)
	case sale.IsBusiness(err):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.As(err, &reqErr):
		s.metrics.RecordError(reqErr.Carrier, reqErr.Code)
		s.writeError(w, http.StatusBadGateway, err)
	default:
		s.writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	} else {
		s.logger.Warn("Request rejected", zap.Int("status", status), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
