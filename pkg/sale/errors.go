package sale

import (
	"errors"
	"fmt"
)

// RequestError represents an error reported by a carrier API. The message
// is forwarded to the user verbatim.
type RequestError struct {
	Carrier string
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Carrier, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Carrier, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for RequestError.
func (e *RequestError) Is(target error) bool {
	t, ok := target.(*RequestError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewRequestError creates a new RequestError.
func NewRequestError(carrier, code, message string) *RequestError {
	return &RequestError{
		Carrier: carrier,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *RequestError) WithCause(err error) *RequestError {
	e.Cause = err
	return e
}

// Sentinel errors for the shipping-cost business rules.
var (
	// ErrMailClassMissing indicates no mail class is selected on the order
	// and none was supplied.
	ErrMailClassMissing = errors.New("select a mail class to ship using Endicia [USPS]")

	// ErrMissingWeight indicates a physical product has no weight set.
	ErrMissingWeight = errors.New("weight is missing")

	// ErrUnknownCurrency indicates no conversion rate is known for a currency.
	ErrUnknownCurrency = errors.New("unknown currency")

	// ErrOrderNotFound indicates the order ID was not found.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidState indicates the order is not in a state that allows
	// the requested action.
	ErrInvalidState = errors.New("invalid order state")
)

// MissingWeightError builds a missing-weight error naming the offending
// product, matchable with errors.Is(err, ErrMissingWeight).
func MissingWeightError(productName string) error {
	return fmt.Errorf("%w on product %s", ErrMissingWeight, productName)
}

// IsBusiness reports whether the error is a business-rule error surfaced
// to the user as an actionable message, as opposed to a transport or
// carrier failure.
func IsBusiness(err error) bool {
	return errors.Is(err, ErrMailClassMissing) ||
		errors.Is(err, ErrMissingWeight) ||
		errors.Is(err, ErrInvalidState)
}
