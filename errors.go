package swatches

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeStorage      ErrorType = "storage"
	ErrorTypeCatalog      ErrorType = "catalog"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeExport       ErrorType = "export"
	ErrorTypeInternal     ErrorType = "internal"
)

// SwatchError is the error type returned across the swatch pipeline.
type SwatchError struct {
	Type      ErrorType      `json:"type"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	ProductID ProductID      `json:"product_id,omitempty"`
	Field     string         `json:"field,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

func (e *SwatchError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.ProductID != 0 {
		return fmt.Sprintf("[%s:%s] product %d: %s", e.Type, e.Code, e.ProductID, msg)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, msg)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, msg)
}

func (e *SwatchError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a SwatchError
func (e *SwatchError) WithDetail(key string, value any) *SwatchError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a SwatchError
func (e *SwatchError) WithCause(cause error) *SwatchError {
	e.Cause = cause
	return e
}

// WithProduct adds product context to a SwatchError
func (e *SwatchError) WithProduct(id ProductID) *SwatchError {
	e.ProductID = id
	return e
}

// WithField adds field context to a SwatchError
func (e *SwatchError) WithField(field string) *SwatchError {
	e.Field = field
	return e
}

const (
	ErrCodeValidationFailed     = "VALIDATION_FAILED"
	ErrCodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	ErrCodeUnknownTaxonomy      = "UNKNOWN_TAXONOMY"
	ErrCodeUnknownAttributeType = "UNKNOWN_ATTRIBUTE_TYPE"
	ErrCodeProductNotFound      = "PRODUCT_NOT_FOUND"
	ErrCodeStorageFailed        = "STORAGE_FAILED"
	ErrCodeCatalogFailed        = "CATALOG_FAILED"
	ErrCodeRunLockLost          = "RUN_LOCK_LOST"
	ErrCodeQueueFailed          = "QUEUE_FAILED"
	ErrCodeExportFailed         = "EXPORT_FAILED"
	ErrCodeExportUnavailable    = "EXPORT_UNAVAILABLE"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// RequiredFieldsMessage is shown to the administrator when a term save misses required values.
const RequiredFieldsMessage = "At least one required field was not filled! Please fill out the form completely."

// NewSwatchError creates a new SwatchError
func NewSwatchError(errorType ErrorType, code, message string) *SwatchError {
	return &SwatchError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeValidationFailed,
		Message: message,
		Field:   field,
		Details: make(map[string]any),
	}
}

// NewRequiredFieldsError reports a term save rejected because a required field was empty or missing.
func NewRequiredFieldsError(fields []string) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeValidation,
		Code:    ErrCodeRequiredFieldMissing,
		Message: RequiredFieldsMessage,
		Details: map[string]any{"fields": fields},
	}
}

// NewUnknownTaxonomyError creates a not found error for a taxonomy name.
func NewUnknownTaxonomyError(taxonomy string) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeUnknownTaxonomy,
		Message: fmt.Sprintf("taxonomy '%s' not found", taxonomy),
		Details: map[string]any{"taxonomy": taxonomy},
	}
}

// NewUnknownAttributeTypeError is returned where a caller explicitly asks for a type that is not registered.
func NewUnknownAttributeTypeError(typeKey string) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeUnknownAttributeType,
		Message: fmt.Sprintf("attribute type '%s' is not registered", typeKey),
		Details: map[string]any{"type": typeKey},
	}
}

// NewProductNotFoundError creates a product not found error
func NewProductNotFoundError(id ProductID) *SwatchError {
	return &SwatchError{
		Type:      ErrorTypeNotFound,
		Code:      ErrCodeProductNotFound,
		Message:   "product not found",
		ProductID: id,
		Details:   make(map[string]any),
	}
}

// NewStorageError wraps a persistence failure
func NewStorageError(message string, cause error) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeStorageFailed,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewCatalogError wraps a catalog read failure
func NewCatalogError(message string, cause error) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeCatalog,
		Code:    ErrCodeCatalogFailed,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewRunLockLostError reports that a pass found its run-lock taken over and stopped.
func NewRunLockLostError(runID string) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeConflict,
		Code:    ErrCodeRunLockLost,
		Message: "run lock was taken over by another pass",
		Details: map[string]any{"run_id": runID},
	}
}

// NewQueueError wraps a work queue failure
func NewQueueError(message string, cause error) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeStorage,
		Code:    ErrCodeQueueFailed,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewExportError wraps a snapshot export failure
func NewExportError(message string, cause error) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeExport,
		Code:    ErrCodeExportFailed,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeUnauthorized,
		Code:    ErrCodeUnauthorized,
		Message: message,
		Details: make(map[string]any),
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *SwatchError {
	return &SwatchError{
		Type:    ErrorTypeInternal,
		Code:    ErrCodeInternalError,
		Message: message,
		Cause:   cause,
		Details: make(map[string]any),
	}
}

// AsSwatchError extracts a *SwatchError from an error chain.
func AsSwatchError(err error) (*SwatchError, bool) {
	var se *SwatchError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	se, ok := AsSwatchError(err)
	return ok && se.Type == ErrorTypeValidation
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	se, ok := AsSwatchError(err)
	return ok && se.Type == ErrorTypeNotFound
}

// IsStorageError checks if an error came from the persistence layer
func IsStorageError(err error) bool {
	se, ok := AsSwatchError(err)
	return ok && se.Type == ErrorTypeStorage
}

// IsRunLockLostError checks if an error reports a pass that lost its run-lock
func IsRunLockLostError(err error) bool {
	se, ok := AsSwatchError(err)
	return ok && se.Code == ErrCodeRunLockLost
}

// GetErrorCode extracts the error code, falling back to INTERNAL_ERROR for foreign errors.
func GetErrorCode(err error) string {
	if se, ok := AsSwatchError(err); ok {
		return se.Code
	}
	return ErrCodeInternalError
}
