package events

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

const (
	TopicTransactionSettled   = "transaction.settled"
	TopicTransactionCancelled = "transaction.cancelled"
	TopicInvoicePaid          = "invoice.paid"
)

type TransactionPayload struct {
	TransactionID uint64          `json:"transaction_id"`
	UUID          string          `json:"uuid"`
	SaleID        uint64          `json:"sale_id"`
	PaymentID     *uint64         `json:"payment_id,omitempty"`
	Method        string          `json:"method"`
	Provider      string          `json:"provider"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	State         string          `json:"state"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

type InvoicePaidPayload struct {
	InvoiceID   uint64          `json:"invoice_id"`
	Number      string          `json:"number"`
	SaleID      uint64          `json:"sale_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	Currency    string          `json:"currency"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func NewTransactionPayload(txn *entity.Transaction, at time.Time) TransactionPayload {
	return TransactionPayload{
		TransactionID: txn.ID,
		UUID:          txn.UUID,
		SaleID:        txn.SaleID,
		PaymentID:     txn.PaymentID,
		Method:        txn.Method(),
		Provider:      txn.Provider(),
		Amount:        txn.Amount,
		Currency:      txn.Currency.Code,
		State:         txn.State,
		OccurredAt:    at,
	}
}

func NewInvoicePaidPayload(invoice *entity.Invoice, at time.Time) InvoicePaidPayload {
	return InvoicePaidPayload{
		InvoiceID:   invoice.ID,
		Number:      invoice.Number,
		SaleID:      invoice.SaleID,
		TotalAmount: invoice.TotalAmount,
		AmountPaid:  invoice.AmountPaid,
		Currency:    invoice.Currency.Code,
		OccurredAt:  at,
	}
}
