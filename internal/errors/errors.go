package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"gocausal/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped
// AppError or the code derived from a domain error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    GetCode(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetCode returns the code of the outermost AppError, else the code of the
// domain error err wraps, else CodeInternalError
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return domainCode(err)
}

// Predefined error codes
const (
	CodeConfiguration        = "CONFIGURATION_ERROR"
	CodeInterventionRequired = "INTERVENTION_REQUIRED"
	CodeModelFit             = "MODEL_FIT_ERROR"
	CodeUnidentifiable       = "UNIDENTIFIABLE_EFFECT"
	CodeInsufficientData     = "INSUFFICIENT_DATA"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeNotFound             = "NOT_FOUND"
	CodeDatabaseError        = "DATABASE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// FromDomain converts a domain error into an AppError carrying its code.
// AppErrors pass through unchanged.
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: domainCode(err), Message: err.Error(), Cause: err}
}

func domainCode(err error) string {
	switch {
	case core.IsConfigurationError(err):
		return CodeConfiguration
	case core.IsInterventionRequired(err):
		return CodeInterventionRequired
	case core.IsModelFitError(err):
		return CodeModelFit
	case core.IsUnidentifiable(err):
		return CodeUnidentifiable
	case stderrors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	}
	return CodeInternalError
}

// HTTPStatus maps an error code to the status an HTTP surface reports
func HTTPStatus(code string) int {
	switch code {
	case CodeConfiguration, CodeInterventionRequired, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeModelFit, CodeUnidentifiable, CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDatabaseError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfiguration, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
