package invoicing

import "errors"

var (
	ErrEmptyAccountID       = errors.New("invoicing: empty account id")
	ErrInvalidStatementDate = errors.New("invoicing: invalid statement date")
	ErrNothingToInvoice     = errors.New("invoicing: nothing to invoice")
	ErrInvoiceNotFound      = errors.New("invoicing: invoice not found")
	ErrAlreadyDelivered     = errors.New("invoicing: invoice already delivered")
)
