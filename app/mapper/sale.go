package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/service"
	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
)

func SaleToType(item *entity.Sale) *types.Sale {
	if item == nil {
		return nil
	}

	return &types.Sale{
		Id:                item.ID,
		Reference:         item.Reference,
		PartyId:           item.PartyID,
		State:             item.State,
		Currency:          item.Currency.Code,
		TotalAmount:       item.TotalAmount,
		PaymentTotal:      item.PaymentTotal(),
		PaymentRemaining:  item.PaymentRemaining(),
		PaymentAuthorized: item.PaymentAuthorized(),
		PaymentCaptured:   item.PaymentCaptured(),
		AmountInvoiced:    item.AmountInvoiced(),
		AmountToReceive:   item.AmountToReceive(),
		Payments:          PaymentsToType(item.Payments),
		Transactions:      TransactionsToType(item.Transactions),
		Invoices:          InvoicesToType(item.Invoices),
	}
}

func PaymentToType(item *entity.SalePayment) *types.SalePayment {
	if item == nil {
		return nil
	}

	out := &types.SalePayment{
		Id:               item.ID,
		SaleId:           item.SaleID,
		Sequence:         item.Sequence,
		Method:           item.Method(),
		Provider:         item.Provider(),
		PaymentProfileId: derefUint64(item.PaymentProfileID),
		Amount:           item.Amount,
		AmountConsumed:   item.AmountConsumed(),
		AmountRemaining:  item.AmountRemaining(),
		Reference:        derefString(item.Reference),
		CreatedAt:        formatTime(item.CreatedAt),
	}
	if item.Gateway != nil {
		out.GatewayId = item.Gateway.ID
	}
	return out
}

func PaymentsToType(items []*entity.SalePayment) []*types.SalePayment {
	out := make([]*types.SalePayment, 0, len(items))
	for _, item := range items {
		out = append(out, PaymentToType(item))
	}
	return out
}

func TransactionToType(item *entity.Transaction) *types.Transaction {
	if item == nil {
		return nil
	}

	return &types.Transaction{
		Id:                item.ID,
		Uuid:              item.UUID,
		SaleId:            item.SaleID,
		PaymentId:         derefUint64(item.PaymentID),
		Method:            item.Method(),
		Provider:          item.Provider(),
		Description:       item.Description,
		Amount:            item.Amount,
		Currency:          item.Currency.Code,
		State:             item.State,
		ProviderReference: derefString(item.ProviderReference),
		Date:              formatTime(item.Date),
	}
}

func TransactionsToType(items []*entity.Transaction) []*types.Transaction {
	out := make([]*types.Transaction, 0, len(items))
	for _, item := range items {
		out = append(out, TransactionToType(item))
	}
	return out
}

func InvoiceToType(item *entity.Invoice) *types.Invoice {
	if item == nil {
		return nil
	}

	return &types.Invoice{
		Id:          item.ID,
		Number:      item.Number,
		SaleId:      item.SaleID,
		Type:        item.Type,
		State:       item.State,
		Currency:    item.Currency.Code,
		TotalAmount: item.TotalAmount,
		AmountPaid:  item.AmountPaid,
		AmountDue:   item.AmountToPayToday(),
	}
}

func InvoicesToType(items []*entity.Invoice) []*types.Invoice {
	out := make([]*types.Invoice, 0, len(items))
	for _, item := range items {
		out = append(out, InvoiceToType(item))
	}
	return out
}

func PaymentDefaultsToType(item *service.PaymentDefaults) *types.PaymentDefaultsResponse {
	if item == nil {
		return nil
	}

	out := &types.PaymentDefaultsResponse{
		PartyId:        item.PartyID,
		Owner:          item.Owner,
		CurrencyDigits: item.CurrencyDigits,
		Amount:         item.Amount,
	}
	if item.Sale != nil {
		out.SaleId = item.Sale.ID
	}
	return out
}

// InsufficientFundsToType returns nil unless err carries funds figures.
func InsufficientFundsToType(err *service.InsufficientFundsError) *types.InsufficientFundsInfo {
	if err == nil {
		return nil
	}
	return &types.InsufficientFundsInfo{
		Scope:     err.Scope,
		Id:        err.ID,
		Requested: err.Requested,
		Ceiling:   err.Ceiling,
		Remaining: err.Remaining,
		Count:     int32(err.Count),
	}
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func derefUint64(value *uint64) uint64 {
	if value == nil {
		return 0
	}
	return *value
}
