package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SaleStateDraft      = "draft"
	SaleStateQuotation  = "quotation"
	SaleStateConfirmed  = "confirmed"
	SaleStateProcessing = "processing"
	SaleStateDone       = "done"
	SaleStateCancel     = "cancel"
)

// Sale is the aggregate the allocation logic works on: payments ordered by
// (Sequence, ID) and every gateway transaction that references the sale.
// Payment transactions are shared pointers with Transactions.
type Sale struct {
	ID uint64

	Reference        string
	PartyID          uint64
	PartyName        string
	InvoiceAddressID *uint64

	Currency    Currency
	TotalAmount decimal.Decimal
	State       string

	Payments     []*SalePayment
	Transactions []*Transaction
	Invoices     []*Invoice

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment amounts are assumed to be in the sale currency.
func (s *Sale) PaymentTotal() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range s.Payments {
		total = total.Add(payment.Amount)
	}
	return total
}

func (s *Sale) PaymentRemaining() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range s.Payments {
		total = total.Add(payment.AmountRemaining())
	}
	return total
}

func (s *Sale) PaymentAuthorized() decimal.Decimal {
	return SumTransactions(s.Transactions, func(t *Transaction) bool {
		return t.State == TransactionStateAuthorized
	})
}

// PaymentCaptured includes manual payments, which count as received once
// processed, and captured card transactions.
func (s *Sale) PaymentCaptured() decimal.Decimal {
	return SumTransactions(s.Transactions, (*Transaction).IsCaptured)
}

func (s *Sale) AmountInvoiced() decimal.Decimal {
	total := decimal.Zero
	for _, invoice := range s.Invoices {
		if invoice.State == InvoiceStateCancelled {
			continue
		}
		switch invoice.Type {
		case InvoiceTypeOut:
			total = total.Add(invoice.TotalAmount)
		case InvoiceTypeOutCreditNote:
			total = total.Sub(invoice.TotalAmount)
		}
	}
	return total
}

func (s *Sale) AmountToReceive() decimal.Decimal {
	amount := s.TotalAmount.Sub(s.PaymentCaptured())
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

func (s *Sale) LastCardPayment() *SalePayment {
	for i := len(s.Payments) - 1; i >= 0; i-- {
		if s.Payments[i].Method() == MethodCreditCard {
			return s.Payments[i]
		}
	}
	return nil
}

func (s *Sale) AcceptsPayments() bool {
	return s.State != SaleStateDraft && s.State != SaleStateCancel
}

func (s *Sale) Payment(id uint64) *SalePayment {
	for _, payment := range s.Payments {
		if payment.ID == id {
			return payment
		}
	}
	return nil
}

// AttachTransaction links a new transaction into the aggregate so the derived
// amounts reflect it immediately.
func (s *Sale) AttachTransaction(txn *Transaction) {
	s.Transactions = append(s.Transactions, txn)
	if txn.PaymentID == nil {
		return
	}
	if payment := s.Payment(*txn.PaymentID); payment != nil {
		payment.Transactions = append(payment.Transactions, txn)
	}
}
