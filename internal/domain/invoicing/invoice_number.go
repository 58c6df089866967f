package invoicing

import (
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/invoicing/backend/internal/domain/shared"
)

var (
	invoiceNumberPattern = regexp.MustCompile(`^[A-Z]{2,4}-\d{3,6}$`)
	invoicePrefixPattern = regexp.MustCompile(`^[A-Z]{2,4}$`)
)

// invoiceNumberSeed is where the process-local counter starts. Generated
// numbers are six digits, so the first one reads e.g. "INV-001000".
const invoiceNumberSeed = 1000

// invoiceNumberCounter backs GenerateInvoiceNumber. It is process-local
// state: a multi-instance deployment must allocate numbers through
// InvoiceRepository.NextInvoiceNumber instead.
var invoiceNumberCounter atomic.Int64

// InvoiceNumber is a validated invoice identifier, e.g. "INV-001042".
type InvoiceNumber struct {
	value string
}

// NewInvoiceNumber parses an invoice number from stored text
func NewInvoiceNumber(value string) (InvoiceNumber, error) {
	if value == "" {
		return InvoiceNumber{}, shared.NewRequiredFieldError("Invoice number is required")
	}
	if !invoiceNumberPattern.MatchString(value) {
		return InvoiceNumber{}, shared.NewInvalidValueError(fmt.Sprintf("Invoice number %q does not match the required pattern", value))
	}
	return InvoiceNumber{value: value}, nil
}

// GenerateInvoiceNumber produces the next invoice number for the given
// prefix using the process-local counter.
func GenerateInvoiceNumber(prefix string) (InvoiceNumber, error) {
	if prefix == "" {
		return InvoiceNumber{}, shared.NewRequiredFieldError("Invoice number prefix is required")
	}
	if !invoicePrefixPattern.MatchString(prefix) {
		return InvoiceNumber{}, shared.NewInvalidValueError(fmt.Sprintf("Invoice number prefix %q must be 2-4 uppercase letters", prefix))
	}
	n := invoiceNumberCounter.Add(1) + invoiceNumberSeed - 1
	return NewInvoiceNumber(fmt.Sprintf("%s-%06d", prefix, n))
}

// FormatInvoiceNumber builds an invoice number from a prefix and a
// sequence value allocated elsewhere (e.g. by the persistence layer).
func FormatInvoiceNumber(prefix string, sequence int64) (InvoiceNumber, error) {
	if !invoicePrefixPattern.MatchString(prefix) {
		return InvoiceNumber{}, shared.NewInvalidValueError(fmt.Sprintf("Invoice number prefix %q must be 2-4 uppercase letters", prefix))
	}
	return NewInvoiceNumber(fmt.Sprintf("%s-%06d", prefix, sequence))
}

// Prefix returns the letter prefix of the invoice number, e.g. "INV"
// for "INV-001042". Empty for the zero value.
func (n InvoiceNumber) Prefix() string {
	for i := 0; i < len(n.value); i++ {
		if n.value[i] == '-' {
			return n.value[:i]
		}
	}
	return ""
}

// String returns the textual form of the invoice number
func (n InvoiceNumber) String() string {
	return n.value
}

// Equals returns true if both numbers have the same value
func (n InvoiceNumber) Equals(other InvoiceNumber) bool {
	return n.value == other.value
}

// IsZero returns true for the zero-value InvoiceNumber
func (n InvoiceNumber) IsZero() bool {
	return n.value == ""
}
