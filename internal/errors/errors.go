package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/wallet-performance/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryInvalidAddress represents a malformed wallet identifier (fatal to the request)
	CategoryInvalidAddress ErrorCategory = "invalid_address"
	// CategoryDataSource represents a transport, auth or rate-limit failure of a collaborator
	CategoryDataSource ErrorCategory = "data_source_unavailable"
	// CategoryValidation represents invalid request parameters
	CategoryValidation ErrorCategory = "validation"
	// CategorySystem represents unexpected internal failures
	CategorySystem ErrorCategory = "system"
)

// Error codes
const (
	CodeInvalidAddress        = "INVALID_ADDRESS"
	CodeDataSourceUnavailable = "DATA_SOURCE_UNAVAILABLE"
	CodeDataSourceRateLimited = "DATA_SOURCE_RATE_LIMITED"
	CodeInvalidParameter      = "INVALID_PARAMETER"
	CodeInternal              = "INTERNAL_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
	Retryable  bool // Transient failure that the same request may not hit again
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError converts to a ServiceError
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return &types.ServiceError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// NewInvalidAddressError creates an invalid address error
func NewInvalidAddressError(address string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInvalidAddress,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidAddress,
		Message:    fmt.Sprintf("invalid address format: %s", address),
		Details: map[string]interface{}{
			"address": address,
			"reason":  reason,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error
func NewInvalidParameterError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryValidation,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidParameter,
		Message:    fmt.Sprintf("invalid parameter '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewDataSourceError creates a data source unavailable error for a collaborator.
// The error is not retryable; see NewDataSourceTransportError.
func NewDataSourceError(source string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDataSource,
		StatusCode: http.StatusBadGateway,
		Code:       CodeDataSourceUnavailable,
		Message:    fmt.Sprintf("data source unavailable: %s", source),
		Cause:      cause,
		Details: map[string]interface{}{
			"source": source,
		},
	}
}

// NewDataSourceTransportError creates a retryable data source error for a request
// that never produced a response
func NewDataSourceTransportError(source string, cause error) *CategorizedError {
	err := NewDataSourceError(source, cause)
	err.Retryable = true
	return err
}

// NewDataSourceRateLimitError creates a rate limited data source error
func NewDataSourceRateLimitError(source string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryDataSource,
		StatusCode: http.StatusTooManyRequests,
		Code:       CodeDataSourceRateLimited,
		Message:    fmt.Sprintf("data source rate limit exceeded: %s", source),
		Details: map[string]interface{}{
			"source": source,
		},
		Retryable: true,
	}
}

// NewDataSourceStatusError maps an unexpected HTTP status from a collaborator.
// 429 and 5xx are retryable, other statuses such as 401 and 403 are not.
func NewDataSourceStatusError(source string, status int, body string) *CategorizedError {
	if status == http.StatusTooManyRequests {
		return NewDataSourceRateLimitError(source)
	}
	err := NewDataSourceError(source, fmt.Errorf("unexpected status %d: %s", status, body))
	err.Details["status"] = status
	err.Retryable = status >= http.StatusInternalServerError
	return err
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

// IsInvalidAddress reports whether err is an invalid address error
func IsInvalidAddress(err error) bool {
	catErr := asCategorized(err)
	return catErr != nil && catErr.Category == CategoryInvalidAddress
}

// IsDataSourceUnavailable reports whether err is a collaborator failure
func IsDataSourceUnavailable(err error) bool {
	catErr := asCategorized(err)
	return catErr != nil && catErr.Category == CategoryDataSource
}

// IsRateLimited reports whether err is a collaborator rate limit rejection
func IsRateLimited(err error) bool {
	catErr := asCategorized(err)
	return catErr != nil && catErr.Code == CodeDataSourceRateLimited
}

// IsRetryable reports whether err is a transient collaborator failure:
// a rate limit, a transport error or a 5xx status
func IsRetryable(err error) bool {
	catErr := asCategorized(err)
	return catErr != nil && catErr.Retryable
}

// asCategorized unwraps err to a CategorizedError without falling back to internal
func asCategorized(err error) *CategorizedError {
	if err == nil {
		return nil
	}
	var catErr *CategorizedError
	if errors.As(err, &catErr) {
		return catErr
	}
	return nil
}
