package lifecycle

import (
	"context"
	"errors"
	"fmt"
)

// ConfigurationError reports an invalid or contradictory option.
type ConfigurationError struct {
	Field   string // Option that failed ("end", "destination", ...)
	Message string // Human-readable reason
	Cause   error  // Optional underlying error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	msg := "configuration error: " + e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("configuration error in %s: %s", e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: message,
	}
}

// AuthenticationError reports a failed credential acquisition.
type AuthenticationError struct {
	Principal string // Kerberos principal
	Cause     error  // Underlying error
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error [principal=%s]: %v", e.Principal, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// NewAuthenticationError creates a new AuthenticationError.
func NewAuthenticationError(principal string, cause error) *AuthenticationError {
	return &AuthenticationError{
		Principal: principal,
		Cause:     cause,
	}
}

// QueryError reports a failed index query.
type QueryError struct {
	URL   string // Request that failed
	Cause error  // Underlying error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error [url=%s]: %v", e.URL, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(url string, cause error) *QueryError {
	return &QueryError{
		URL:   url,
		Cause: cause,
	}
}

// UploadError reports an artifact a destination did not accept.
type UploadError struct {
	Backend  string // Destination type ("hdfs", "s3", ...)
	Artifact string // Local artifact path
	Cause    error  // Underlying error
}

// Error implements the error interface.
func (e *UploadError) Error() string {
	return fmt.Sprintf("upload error [backend=%s, artifact=%s]: %v", e.Backend, e.Artifact, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *UploadError) Unwrap() error {
	return e.Cause
}

// NewUploadError creates a new UploadError.
func NewUploadError(backend, artifact string, cause error) *UploadError {
	return &UploadError{
		Backend:  backend,
		Artifact: artifact,
		Cause:    cause,
	}
}

// PurgeError reports a failed delete-by-query.
type PurgeError struct {
	Collection string // Collection the delete targeted
	Query      string // Delete query
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge error [collection=%s, query=%s]: %v", e.Collection, e.Query, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *PurgeError) Unwrap() error {
	return e.Cause
}

// NewPurgeError creates a new PurgeError.
func NewPurgeError(collection, query string, cause error) *PurgeError {
	return &PurgeError{
		Collection: collection,
		Query:      query,
		Cause:      cause,
	}
}

// Failure kinds returned by Classify.
const (
	KindInterrupted    = "interrupted"
	KindAuthentication = "authentication"
	KindConfiguration  = "configuration"
	KindQuery          = "query"
	KindUpload         = "upload"
	KindPurge          = "purge"
	KindUnknown        = "unknown"
)

// Classify returns the failure kind of err, or "" for nil. Cancellation wins
// over everything else, and an authentication failure wins over the
// operation it interrupted.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var (
		authErr   *AuthenticationError
		cfgErr    *ConfigurationError
		queryErr  *QueryError
		uploadErr *UploadError
		purgeErr  *PurgeError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return KindInterrupted
	case errors.As(err, &authErr):
		return KindAuthentication
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &queryErr):
		return KindQuery
	case errors.As(err, &uploadErr):
		return KindUpload
	case errors.As(err, &purgeErr):
		return KindPurge
	}
	return KindUnknown
}
