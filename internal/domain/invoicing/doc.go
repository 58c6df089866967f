// Package invoicing holds the invoice aggregate and its supporting
// domain types: validated invoice numbers, immutable line items, and the
// lifecycle state machine from draft through payment to settlement or
// void. All monetary arithmetic goes through the shared Money value
// object so amounts stay exact and currency-consistent.
package invoicing
