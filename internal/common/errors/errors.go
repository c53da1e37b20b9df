// Package errors provides standardized error handling for payment preparation
// and its BPMN workflow integration.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Payment preparation errors
const (
	ErrCodeConfiguration        ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeKeyUnavailable       ErrorCode = "KEY_UNAVAILABLE"
	ErrCodePayloadEncodingError ErrorCode = "PAYLOAD_ENCODING_ERROR"
	ErrCodeCipherError          ErrorCode = "CIPHER_ERROR"

	ErrCodeProductNotFound     ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeProductLookupFailed ErrorCode = "PRODUCT_LOOKUP_FAILED"
	ErrCodeKeySourceFailed     ErrorCode = "KEY_SOURCE_FAILED"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT"
	ErrCodeNotFound        ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeAuthentication  ErrorCode = "AUTHENTICATION_FAILED"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// Sentinels for errors.Is matching by code.
var (
	ErrConfiguration       = &StandardError{Code: ErrCodeConfiguration}
	ErrKeyUnavailable      = &StandardError{Code: ErrCodeKeyUnavailable}
	ErrPayloadEncoding     = &StandardError{Code: ErrCodePayloadEncodingError}
	ErrCipher              = &StandardError{Code: ErrCodeCipherError}
	ErrProductNotFound     = &StandardError{Code: ErrCodeProductNotFound}
	ErrProductLookupFailed = &StandardError{Code: ErrCodeProductLookupFailed}
	ErrKeySourceFailed     = &StandardError{Code: ErrCodeKeySourceFailed}
	ErrInvalidInput        = &StandardError{Code: ErrCodeInvalidInput}
	ErrExternalService     = &StandardError{Code: ErrCodeExternalService}
	ErrTimeout             = &StandardError{Code: ErrCodeTimeout}
	ErrResourceNotFound    = &StandardError{Code: ErrCodeNotFound}
	ErrAuthentication      = &StandardError{Code: ErrCodeAuthentication}
	ErrInternal            = &StandardError{Code: ErrCodeInternal}
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is reports whether target is a StandardError with the same code.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Unwrap returns the underlying cause, if any. The cause is never serialized.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// CodeOf returns the code of the first StandardError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code, true
	}
	return "", false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewConfigurationError reports a malformed rule definition. It indicates a bug
// in server-declared metadata and is never retried.
func NewConfigurationError(fieldID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   "Malformed rule definition",
		Details:   fmt.Sprintf("fieldId: %s, %s", fieldID, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"fieldId": fieldID},
		Timestamp: time.Now().UTC(),
	}
}

// NewKeyUnavailableError reports an absent or unparsable gateway public key.
func NewKeyUnavailableError(keyID string, cause error) *StandardError {
	details := fmt.Sprintf("keyId: %s", keyID)
	if cause != nil {
		details = fmt.Sprintf("%s, error: %s", details, cause.Error())
	}
	return &StandardError{
		Code:      ErrCodeKeyUnavailable,
		Message:   "Gateway public key unavailable",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewPayloadEncodingError reports input that cannot be represented in the
// encrypted payload.
func NewPayloadEncodingError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadEncodingError,
		Message:   "Payload cannot be encoded",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCipherError reports a failure of the underlying cipher. step names the
// failed stage; the cause is kept for errors.Unwrap but not rendered.
func NewCipherError(step string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCipherError,
		Message:   "Encryption failed",
		Details:   fmt.Sprintf("step: %s", step),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewProductNotFoundError creates a non-retryable lookup error.
func NewProductNotFoundError(productID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProductNotFound,
		Message:   "Payment product not found",
		Details:   fmt.Sprintf("paymentProductId: %s", productID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProductLookupFailedError creates a retryable lookup error.
func NewProductLookupFailedError(productID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProductLookupFailed,
		Message:   "Payment product lookup failed",
		Details:   fmt.Sprintf("paymentProductId: %s, error: %s", productID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewKeySourceFailedError reports that key material could not be read from its source.
func NewKeySourceFailedError(source string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeKeySourceFailed,
		Message:   "Gateway key source failed",
		Details:   fmt.Sprintf("source: %s, error: %s", source, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidInputError creates a non-retryable job input error.
func NewInvalidInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidInput,
		Message:   "Invalid job input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service %s failed", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Timeout calling %s", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthentication,
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Internal error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfiguration:        "CONFIGURATION_ERROR",
	ErrCodeKeyUnavailable:       "KEY_UNAVAILABLE",
	ErrCodePayloadEncodingError: "PAYLOAD_ENCODING_ERROR",
	ErrCodeCipherError:          "CIPHER_ERROR",
	ErrCodeProductNotFound:      "PRODUCT_NOT_FOUND",
	ErrCodeProductLookupFailed:  "PRODUCT_LOOKUP_FAILED",
	ErrCodeKeySourceFailed:      "KEY_SOURCE_FAILED",
	ErrCodeInvalidInput:         "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeKeyUnavailable, ErrCodeKeySourceFailed, ErrCodeProductLookupFailed:
		return 3
	case ErrCodeCipherError, ErrCodeExternalService, ErrCodeTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, ok := BPMNErrorMapping[stdErr.Code]
	if !ok {
		bpmnCode = string(stdErr.Code)
	}

	vars := map[string]interface{}{}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        GetRetryCount(stdErr.Code),
		ErrorVariables: vars,
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	c := string(code)
	switch {
	case code == ErrCodeInvalidInput:
		return "validation"
	case code == ErrCodeConfiguration:
		return "configuration"
	case code == ErrCodeKeyUnavailable || code == ErrCodePayloadEncodingError || code == ErrCodeCipherError:
		return "encryption"
	case strings.HasPrefix(c, "PRODUCT_"):
		return "product"
	case strings.HasPrefix(c, "KEY_"):
		return "key_source"
	default:
		return "system"
	}
}
