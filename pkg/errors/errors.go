package errors

import "fmt"

// ErrValidation indicates malformed input that is rejected before any
// repository or gateway call.
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrNotFound indicates a missing resource
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConflict indicates an operation that is not permitted in the current
// state, such as cancelling a delivered order or re-assigning a partner.
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrInvalidStateTransition indicates an invalid order status transition
type ErrInvalidStateTransition struct {
	From string
	To   string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.From, e.To)
}

// ErrUnauthorized indicates authentication failure
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrGateway indicates a payment gateway failure or signature mismatch.
// Always terminal for the attempt; never retried automatically.
type ErrGateway struct {
	Message string
}

func (e *ErrGateway) Error() string {
	return e.Message
}

// ErrCouponExpired indicates a coupon that is inactive or outside its
// validity window at the moment it is checked.
type ErrCouponExpired struct {
	Code string
}

func (e *ErrCouponExpired) Error() string {
	return fmt.Sprintf("coupon %s is expired or no longer active", e.Code)
}

// ErrUpstreamUnavailable indicates a non-fatal dependency failure
// (geocoder, config fetch); callers degrade rather than abort.
type ErrUpstreamUnavailable struct {
	Service string
	Err     error
}

func (e *ErrUpstreamUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s unavailable", e.Service)
}

func (e *ErrUpstreamUnavailable) Unwrap() error {
	return e.Err
}
