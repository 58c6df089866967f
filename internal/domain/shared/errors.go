package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Domain validation error codes. Every guard in the domain layer fails with
// one of these three codes.
const (
	CodeRequiredField         = "REQUIRED_FIELD"
	CodeInvalidValue          = "INVALID_VALUE"
	CodeBusinessRuleViolation = "BUSINESS_RULE_VIOLATION"
)

// NewRequiredFieldError reports a missing mandatory value
func NewRequiredFieldError(message string) *DomainError {
	return NewDomainError(CodeRequiredField, message)
}

// NewInvalidValueError reports a value that is present but out of domain
func NewInvalidValueError(message string) *DomainError {
	return NewDomainError(CodeInvalidValue, message)
}

// NewBusinessRuleViolationError reports a well-formed value whose operation is
// not permitted in the current state
func NewBusinessRuleViolationError(message string) *DomainError {
	return NewDomainError(CodeBusinessRuleViolation, message)
}

// Common infrastructure-facing domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
)
