package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceTypeOut           = "out_invoice"
	InvoiceTypeOutCreditNote = "out_credit_note"

	InvoiceStateOpen      = "open"
	InvoiceStatePaid      = "paid"
	InvoiceStateCancelled = "cancelled"
)

type Invoice struct {
	ID uint64

	Number   string
	SaleID   uint64
	Type     string
	State    string
	Currency Currency

	TotalAmount decimal.Decimal
	AmountPaid  decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i *Invoice) AmountToPayToday() decimal.Decimal {
	if i.State == InvoiceStateCancelled {
		return decimal.Zero
	}
	due := i.TotalAmount.Sub(i.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

type InvoicePayment struct {
	ID uint64

	InvoiceID     uint64
	TransactionID uint64
	Amount        decimal.Decimal

	CreatedAt time.Time
}

func IsValidInvoiceType(invoiceType string) bool {
	return invoiceType == InvoiceTypeOut || invoiceType == InvoiceTypeOutCreditNote
}
