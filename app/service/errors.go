package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrSaleNotFound        = errors.New("sale not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrGatewayNotFound     = errors.New("gateway not found")
	ErrProfileNotFound     = errors.New("payment profile not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrProviderUnsupported = errors.New("provider is not supported")
	ErrCallbackRejected    = errors.New("callback rejected")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDeletionConflict  = errors.New("payment has consumed funds and cannot be deleted")
	ErrSettlementFailure = errors.New("payment failure, cannot complete")
)

const (
	FundsScopePayment = "payment"
	FundsScopeSale    = "sale"
)

// InsufficientFundsError reports a request that exceeds the remaining capacity
// of a payment or of all payments on a sale. Ceiling is the declared amount
// (payment amount or sale payment total), Count the number of transactions on
// the payment or payments on the sale.
type InsufficientFundsError struct {
	Scope     string
	ID        uint64
	Requested decimal.Decimal
	Ceiling   decimal.Decimal
	Remaining decimal.Decimal
	Count     int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf(
		"insufficient amount remaining in %s %d: requested=%s ceiling=%s remaining=%s count=%d",
		e.Scope, e.ID, e.Requested, e.Ceiling, e.Remaining, e.Count,
	)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}
