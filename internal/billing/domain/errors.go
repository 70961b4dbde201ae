package billing

import "errors"

var (
	// ErrEmptyAccountID is returned when an account reference is missing.
	ErrEmptyAccountID = errors.New("billing: empty account id")
	// ErrInvalidChargeKind is returned when a charge kind is unsupported.
	ErrInvalidChargeKind = errors.New("billing: invalid charge kind")
	// ErrNegativeAmount is returned when a non-OTHER charge carries a negative amount.
	ErrNegativeAmount = errors.New("billing: amount cannot be negative unless charge kind is OTHER")
	// ErrInvalidStatementDate is returned when the statement date is zero.
	ErrInvalidStatementDate = errors.New("billing: invalid statement date")
	// ErrNonPositivePayment is returned when a payment amount is not positive.
	ErrNonPositivePayment = errors.New("billing: payment amount must be positive")
	// ErrMeterRegression is returned when a current reading is below the previous one.
	ErrMeterRegression = errors.New("billing: current reading cannot be less than previous reading")
	// ErrReceivableNotFound is returned when a receivable lookup finds nothing.
	ErrReceivableNotFound = errors.New("billing: receivable not found")
	// ErrPaymentNotFound is returned when a payment lookup finds nothing.
	ErrPaymentNotFound = errors.New("billing: payment not found")
	// ErrAccountNotFound is returned when an account lookup finds nothing.
	ErrAccountNotFound = errors.New("billing: account not found")
	// ErrRateConfigNotFound is returned when no rate config covers a statement date.
	ErrRateConfigNotFound = errors.New("billing: rate config not found")
	// ErrIncompleteChargeData is returned when a charge batch is missing a
	// required candidate list, e.g. no water usages recorded for the period.
	ErrIncompleteChargeData = errors.New("billing: incomplete charge data")
)
