package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultPaymentSequence int32 = 10

// SalePayment is a bounded funding intent attached to a sale. Its consumed
// and remaining amounts are derived from Transactions on every read.
type SalePayment struct {
	ID uint64

	SaleID   uint64
	Sequence int32

	Gateway          *Gateway
	PaymentProfileID *uint64

	Amount    decimal.Decimal
	Reference *string

	Transactions []*Transaction

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *SalePayment) Method() string {
	if p.Gateway == nil {
		return ""
	}
	return p.Gateway.Method
}

func (p *SalePayment) Provider() string {
	if p.Gateway == nil {
		return ""
	}
	return p.Gateway.Provider
}

func (p *SalePayment) AmountConsumed() decimal.Decimal {
	return SumTransactions(p.Transactions, (*Transaction).IsLive)
}

// AmountRemaining never goes below zero, even when the payment is overdrawn.
func (p *SalePayment) AmountRemaining() decimal.Decimal {
	remaining := p.Amount.Sub(p.AmountConsumed())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}
