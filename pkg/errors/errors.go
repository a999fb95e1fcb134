package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Standard error types
var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")
	ErrInternal   = errors.New("internal server error")
	ErrValidation = errors.New("validation error")

	// Domain error types
	ErrIncompatibleUnit        = errors.New("incompatible unit conversion")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrUserRejected            = errors.New("operation cancelled by user")
	ErrAllocationConservation  = errors.New("allocation does not conserve total")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
		Details:    map[string]string{"resource": resource},
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Domain error constructors

// IncompatibleUnit reports a conversion between units that have no defined
// ratio (a discrete unit against anything other than itself).
func IncompatibleUnit(productName, fromUnit, toUnit string) *AppError {
	return &AppError{
		Err:        ErrIncompatibleUnit,
		Code:       "INCOMPATIBLE_UNIT",
		Message:    fmt.Sprintf("cannot convert %q from %q to %q", productName, fromUnit, toUnit),
		StatusCode: http.StatusUnprocessableEntity,
		Details: map[string]string{
			"product":   productName,
			"from_unit": fromUnit,
			"to_unit":   toUnit,
		},
	}
}

// InsufficientStock reports a debit that would drive a shelf's stock negative.
// The message carries the concrete numbers the operator needs to fix the input.
func InsufficientStock(productName, shelfLabel string, current, shortfall float64) *AppError {
	return &AppError{
		Err:  ErrInsufficientStock,
		Code: "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("insufficient stock of %q on shelf %q: have %s, short %s",
			productName, shelfLabel, formatQty(current), formatQty(shortfall)),
		StatusCode: http.StatusUnprocessableEntity,
		Details: map[string]string{
			"product":   productName,
			"shelf":     shelfLabel,
			"current":   formatQty(current),
			"shortfall": formatQty(shortfall),
		},
	}
}

// UserRejected reports that the operator declined a unit-conversion prompt.
// It is a cancellation, not a fault.
func UserRejected(productName string) *AppError {
	return &AppError{
		Err:        ErrUserRejected,
		Code:       "OPERATION_CANCELLED",
		Message:    fmt.Sprintf("conversion for %q was not accepted; operation cancelled", productName),
		StatusCode: http.StatusConflict,
		Details:    map[string]string{"product": productName},
	}
}

// AllocationConservation reports a split whose outputs failed to sum back to
// the input. Reaching it indicates a programming defect.
func AllocationConservation(total, allocated float64) *AppError {
	return &AppError{
		Err:  ErrAllocationConservation,
		Code: "ALLOCATION_CONSERVATION",
		Message: fmt.Sprintf("allocation defect: split of %s produced %s",
			formatQty(total), formatQty(allocated)),
		StatusCode: http.StatusInternalServerError,
		Details: map[string]string{
			"total":     formatQty(total),
			"allocated": formatQty(allocated),
		},
	}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
