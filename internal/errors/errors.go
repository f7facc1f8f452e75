package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound          = New(ErrCodeNotFound, "resource not found")
	ErrValidation        = New(ErrCodeValidation, "validation error")
	ErrConfiguration     = New(ErrCodeConfiguration, "configuration error")
	ErrMissingSessionID  = New(ErrCodeMissingSessionID, "missing session id")
	ErrUnauthenticated   = New(ErrCodeUnauthenticated, "unauthenticated")
	ErrNetwork           = New(ErrCodeNetwork, "network failure")
	ErrProvider          = New(ErrCodeProvider, "provider error")
	ErrSessionUnpaid     = New(ErrCodeSessionUnpaid, "checkout session not paid")
	ErrExportRender      = New(ErrCodeExportRender, "export render failure")
	ErrMethodNotAllowed  = New(ErrCodeMethodNotAllowed, "method not allowed")
	ErrHTTPClient        = New(ErrCodeHTTPClient, "http client error")
	ErrSystem            = New(ErrCodeSystemError, "system error")
	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:       http.StatusInternalServerError,
		ErrNotFound:         http.StatusNotFound,
		ErrValidation:       http.StatusBadRequest,
		ErrConfiguration:    http.StatusBadRequest,
		ErrMissingSessionID: http.StatusBadRequest,
		ErrUnauthenticated:  http.StatusUnauthorized,
		ErrNetwork:          http.StatusBadGateway,
		ErrProvider:         http.StatusInternalServerError,
		ErrSessionUnpaid:    http.StatusPaymentRequired,
		ErrExportRender:     http.StatusInternalServerError,
		ErrMethodNotAllowed: http.StatusMethodNotAllowed,
		ErrSystem:           http.StatusInternalServerError,
	}
	// sentinels in the order codes are resolved, most specific first
	codeOrder = []*InternalError{
		ErrMissingSessionID,
		ErrConfiguration,
		ErrUnauthenticated,
		ErrSessionUnpaid,
		ErrExportRender,
		ErrMethodNotAllowed,
		ErrValidation,
		ErrNotFound,
		ErrNetwork,
		ErrProvider,
		ErrHTTPClient,
		ErrSystem,
	}
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeValidation       = "validation_error"
	ErrCodeConfiguration    = "configuration_error"
	ErrCodeMissingSessionID = "missing_session_id"
	ErrCodeUnauthenticated  = "unauthenticated"
	ErrCodeNetwork          = "network_failure"
	ErrCodeProvider         = "provider_error"
	ErrCodeSessionUnpaid    = "session_unpaid"
	ErrCodeExportRender     = "export_render_failure"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func New(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConfiguration checks if an error is an operator-fixable configuration error
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsNetwork checks if an error is a transient transport failure
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

// IsProvider checks if an error was raised by an external payment or auth provider
func IsProvider(err error) bool {
	return errors.Is(err, ErrProvider)
}

// IsSessionUnpaid checks if an error carries a not-paid checkout session
func IsSessionUnpaid(err error) bool {
	return errors.Is(err, ErrSessionUnpaid)
}

// IsExportRender checks if an error is a retryable PDF generation failure
func IsExportRender(err error) bool {
	return errors.Is(err, ErrExportRender)
}

// IsUnauthenticated checks if an error requires the user to sign in
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

func HTTPStatusFromErr(err error) int {
	for _, e := range codeOrder {
		if errors.Is(err, e) {
			return statusCodeMap[e]
		}
	}
	return http.StatusInternalServerError
}

// CodeFromErr returns the machine readable code of the most specific sentinel err is marked with
func CodeFromErr(err error) string {
	for _, e := range codeOrder {
		if errors.Is(err, e) {
			return e.Code
		}
	}
	return ErrCodeSystemError
}

// FromCode maps a machine readable code back to its sentinel, defaulting to ErrProvider
func FromCode(code string) error {
	for _, e := range codeOrder {
		if e.Code == code {
			return e
		}
	}
	return ErrProvider
}

// DisplayMessage returns the first user facing hint attached to err
func DisplayMessage(err error, fallback string) string {
	for _, hint := range errors.GetAllHints(err) {
		if hint != "" {
			return hint
		}
	}
	return fallback
}
