// Package apperror defines a centralized system for application-specific errors.
// Every error that can reach an HTTP client passes through AppError, so the
// response body always has the same `{"error": "..."}` shape.
// It's similar in concept to Nest.js's Exception Filters, where you can catch specific
// error types and customize the HTTP response.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is an enumeration (using `iota`) for different categories of application errors.
type ErrorType int

const (
	// UnknownError is for unspecified errors
	UnknownError ErrorType = iota
	// DatabaseError represents an error originating from the database
	DatabaseError
	// ConfigError represents an error related to application configuration
	ConfigError
	// BadRequestError represents a malformed request at the HTTP boundary
	BadRequestError
	// InternalError represents a generic internal server error
	InternalError
	// ExternalServiceError represents an error from an external service (mail relay, broker)
	ExternalServiceError
	// MigrationError represents an error while applying the database schema
	MigrationError

	// The registration kinds below are the only errors the registration
	// workflow ever returns to its callers.

	// InvalidEmailFormat means the email does not look like local@domain.tld
	InvalidEmailFormat
	// UsernameRequired means the username is empty or whitespace only
	UsernameRequired
	// EmailAlreadyRegistered means an account with this exact email exists
	EmailAlreadyRegistered
	// RegistrationFailed means storage failed for a reason other than a duplicate email
	RegistrationFailed
)

// String returns a snake_case name, used for metric labels and log fields.
func (t ErrorType) String() string {
	switch t {
	case DatabaseError:
		return "database_error"
	case ConfigError:
		return "config_error"
	case BadRequestError:
		return "bad_request"
	case InternalError:
		return "internal_error"
	case ExternalServiceError:
		return "external_service_error"
	case MigrationError:
		return "migration_error"
	case InvalidEmailFormat:
		return "invalid_email_format"
	case UsernameRequired:
		return "username_required"
	case EmailAlreadyRegistered:
		return "email_already_registered"
	case RegistrationFailed:
		return "registration_failed"
	default:
		return "unknown_error"
	}
}

// AppError is a custom error type for the application.
// It allows wrapping an underlying error (`Err`) for more detailed debugging,
// while `Message` is the only part that is ever shown to a client.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error // Underlying error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error, so `errors.Is` and `errors.As` can
// inspect the chain of wrapped errors.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError of the same Type.
// This makes `errors.Is(err, apperror.ErrEmailAlreadyRegistered)` match any
// EmailAlreadyRegistered error regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// StatusCode returns the HTTP status code appropriate for the error type
func (e *AppError) StatusCode() int {
	switch e.Type {
	case DatabaseError:
		return http.StatusInternalServerError
	case ConfigError:
		return http.StatusInternalServerError
	case BadRequestError:
		return http.StatusBadRequest
	case InternalError:
		return http.StatusInternalServerError
	case ExternalServiceError:
		return http.StatusBadGateway
	case MigrationError:
		return http.StatusInternalServerError
	case InvalidEmailFormat, UsernameRequired, EmailAlreadyRegistered, RegistrationFailed:
		// All registration outcomes are reported as client errors, including
		// RegistrationFailed, whose storage cause is never exposed.
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// NewAppError creates a new AppError. This is a generic constructor.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// Constructor functions for specific error types.

// NewDatabaseError creates a new DatabaseError
func NewDatabaseError(message string, underlyingError error) *AppError {
	return NewAppError(DatabaseError, message, underlyingError)
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, message, underlyingError)
}

// NewBadRequestError creates a new BadRequestError
func NewBadRequestError(message string, underlyingError error) *AppError {
	return NewAppError(BadRequestError, message, underlyingError)
}

// NewInternalError creates a new InternalError
func NewInternalError(message string, underlyingError error) *AppError {
	return NewAppError(InternalError, message, underlyingError)
}

// NewExternalServiceError creates a new ExternalServiceError
func NewExternalServiceError(message string, underlyingError error) *AppError {
	return NewAppError(ExternalServiceError, message, underlyingError)
}

// NewMigrationError creates a new MigrationError
func NewMigrationError(message string, underlyingError error) *AppError {
	return NewAppError(MigrationError, message, underlyingError)
}

// Registration errors. The messages are part of the public API contract.
var (
	ErrInvalidEmailFormat     = NewAppError(InvalidEmailFormat, "Invalid email format", nil)
	ErrUsernameRequired       = NewAppError(UsernameRequired, "Username is required", nil)
	ErrEmailAlreadyRegistered = NewAppError(EmailAlreadyRegistered, "Email already registered", nil)
	ErrRegistrationFailed     = NewAppError(RegistrationFailed, "Registration failed", nil)
)

// NewRegistrationFailedError wraps a storage cause. The cause is kept for
// logging and `errors.Is` checks but never appears in ToResponse.
func NewRegistrationFailedError(cause error) *AppError {
	return NewAppError(RegistrationFailed, ErrRegistrationFailed.Message, cause)
}

// ErrorResponse represents a generic error response payload for API clients.
type ErrorResponse struct {
	Error string `json:"error" example:"Email already registered"`
}

// ToResponse converts an AppError to an ErrorResponse suitable for API responses.
// Only the user-facing `Message` is included, never the underlying `Err`.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError attempts to find an *AppError in err's chain.
// It returns the *AppError and true if successful, otherwise nil and false.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// TypeOf returns the ErrorType of the first AppError in err's chain,
// or UnknownError if there is none.
func TypeOf(err error) ErrorType {
	if ae, ok := FromError(err); ok {
		return ae.Type
	}
	return UnknownError
}

// IsDomainError reports whether err is one of the four registration kinds.
// The HTTP layer echoes the message of these errors to the client.
func IsDomainError(err error) bool {
	switch TypeOf(err) {
	case InvalidEmailFormat, UsernameRequired, EmailAlreadyRegistered, RegistrationFailed:
		return true
	default:
		return false
	}
}
