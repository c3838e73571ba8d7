package endicia

import (
	"context"
)

// APIClient defines the interface for Endicia Label Server operations.
// This abstraction allows for mock implementations during testing
// and real implementations in production.
type APIClient interface {
	// CalculatePostageRate fetches the postage cost for a single mail class
	CalculatePostageRate(ctx context.Context, req *RateRequest) (*RateResponse, error)
}

// ============================================================================
// API Request/Response Types (match the Endicia Label Server structure)
// ============================================================================

// RateRequest represents an Endicia postage rate request. Credentials are
// supplied by the API client, not the caller.
type RateRequest struct {
	MailClass      string
	WeightOz       string // decimal ounces, already rounded up
	FromPostalCode string // zip5
	ToPostalCode   string // zip5
	ToCountryCode  string
}

// RateResponse represents the Endicia postage rate response.
type RateResponse struct {
	Status       int
	ErrorMessage string
	// TotalAmount is the total postage in USD, as the decimal string the
	// service returned.
	TotalAmount string
	MailService string
	Zone        string
}

// APIError represents an error reported by the Endicia Label Server.
type APIError struct {
	Status      int
	Description string
}

func (e *APIError) Error() string {
	return e.Description
}
