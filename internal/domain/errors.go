package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConfiguration      = "CONFIGURATION_ERROR"
	ErrCodeCapacity           = "CAPACITY_ERROR"
	ErrCodeEmbeddingProvider  = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeGenerationProvider = "GENERATION_PROVIDER_ERROR"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Configuration errors: the tenant, agent, or platform is not set up for
// the requested operation. Never retried.
var (
	ErrTenantNotConfigured  = NewDomainError(ErrCodeConfiguration, "tenant is not configured")
	ErrAgentNotConfigured   = NewDomainError(ErrCodeConfiguration, "agent is not configured for tenant")
	ErrPlatformNotPermitted = NewDomainError(ErrCodeConfiguration, "platform is not permitted for agent")
	ErrSourceKindDisabled   = NewDomainError(ErrCodeConfiguration, "source kind is not enabled for tenant")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
)

// Capacity errors
var (
	ErrDocumentQuotaExceeded = NewDomainError(ErrCodeCapacity, "tenant document quota exceeded")
)

// Store invariant errors
var (
	ErrEmbeddingDimensionMismatch = NewDomainError(ErrCodeValidation, "embedding dimensionality does not match tenant store")
	ErrEmbeddingModelLocked       = NewDomainError(ErrCodeValidation, "embedding model cannot change while embedded documents exist; delete them first")
)

// NewEmbeddingProviderError wraps an external embedding failure. The
// caller must surface it; substituting a fabricated vector would corrupt
// similarity rankings without any signal.
func NewEmbeddingProviderError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbeddingProvider, "embedding provider call failed", err)
}

// NewGenerationProviderError wraps an external text-generation failure.
func NewGenerationProviderError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGenerationProvider, "generation provider call failed", err)
}
