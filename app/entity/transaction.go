package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionStatePending    = "pending"
	TransactionStateAuthorized = "authorized"
	TransactionStateCompleted  = "completed"
	TransactionStatePosted     = "posted"
	TransactionStateCancelled  = "cancelled"
	TransactionStateFailed     = "failed"
)

var transactionTransitions = map[string][]string{
	TransactionStatePending: {
		TransactionStateAuthorized,
		TransactionStateCompleted,
		TransactionStateCancelled,
		TransactionStateFailed,
	},
	TransactionStateAuthorized: {
		TransactionStateCompleted,
		TransactionStateCancelled,
		TransactionStateFailed,
	},
	TransactionStateCompleted: {
		TransactionStatePosted,
	},
}

// Transaction is a gateway transaction. PaymentID is nil for transactions that
// were not created from a sale payment.
type Transaction struct {
	ID   uint64
	UUID string

	SaleID           uint64
	PaymentID        *uint64
	Gateway          *Gateway
	PaymentProfileID *uint64
	PartyID          uint64
	AddressID        *uint64

	Description string
	Date        time.Time
	Amount      decimal.Decimal
	Currency    Currency
	State       string

	ProviderReference *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Transaction) Method() string {
	if t.Gateway == nil {
		return ""
	}
	return t.Gateway.Method
}

func (t *Transaction) Provider() string {
	if t.Gateway == nil {
		return ""
	}
	return t.Gateway.Provider
}

// IsLive reports whether the transaction still holds or has taken funds.
func (t *Transaction) IsLive() bool {
	return t.State != TransactionStateCancelled && t.State != TransactionStateFailed
}

func (t *Transaction) IsCaptured() bool {
	return t.State == TransactionStateCompleted || t.State == TransactionStatePosted
}

func (t *Transaction) CanTransitionTo(state string) bool {
	for _, next := range transactionTransitions[t.State] {
		if next == state {
			return true
		}
	}
	return false
}

func IsValidTransactionState(state string) bool {
	switch state {
	case TransactionStatePending,
		TransactionStateAuthorized,
		TransactionStateCompleted,
		TransactionStatePosted,
		TransactionStateCancelled,
		TransactionStateFailed:
		return true
	default:
		return false
	}
}

func SumTransactions(txns []*Transaction, include func(*Transaction) bool) decimal.Decimal {
	total := decimal.Zero
	for _, txn := range txns {
		if include(txn) {
			total = total.Add(txn.Amount)
		}
	}
	return total
}
