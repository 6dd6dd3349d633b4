package model

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Standard error codes for API responses
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeAuthentication  = "AUTHENTICATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeExternalService = "EXTERNAL_SERVICE_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// DomainError is a business-rule failure with a stable code.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates a validation error with a caller-facing reason.
// The message is shown verbatim to buyers and administrators.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}

// NewConflictError creates a conflict error for a guard failure against the
// order state machine.
func NewConflictError(message string) *DomainError {
	return NewDomainError(ErrCodeConflict, message)
}

// Common domain errors
var (
	ErrOrderNotFound     = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrProductNotFound   = NewDomainError(ErrCodeNotFound, "One or more products not found")
	ErrSessionNotFound   = NewDomainError(ErrCodeNotFound, "Checkout session not found")
	ErrEmptyCart         = NewDomainError(ErrCodeValidation, "Cart is empty")
	ErrInvalidQuantity   = NewDomainError(ErrCodeValidation, "Quantity must be greater than zero")
	ErrInvalidSignature  = NewDomainError(ErrCodeAuthentication, "Webhook signature verification failed")
	ErrAmbiguousOrderRef = NewDomainError(ErrCodeConflict, "Order reference matches more than one order")
	ErrOrderModified     = NewDomainError(ErrCodeConflict, "Order was modified concurrently, retry the operation")
)
