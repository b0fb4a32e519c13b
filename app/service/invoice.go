package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/events"
	"github.com/vibast-solutions/ms-go-sale-payments/app/repository"
)

type InvoiceService struct {
	transactions *TransactionService
	sales        *SaleService
	publisher    eventPublisher
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewInvoiceService(transactions *TransactionService, sales *SaleService, publisher eventPublisher, logger logrus.FieldLogger) *InvoiceService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &InvoiceService{
		transactions: transactions,
		sales:        sales,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateInvoice invoices the part of the sale that is not invoiced yet, or
// credits the over-invoiced part. Customer invoices are paid right away from
// the sale payments. A nil invoice means there was nothing to invoice.
func (s *InvoiceService) CreateInvoice(ctx context.Context, uow *UnitOfWork, saleID uint64, invoiceType string) (*entity.Invoice, error) {
	if !entity.IsValidInvoiceType(invoiceType) {
		return nil, fmt.Errorf("%w: invalid invoice type %q", ErrInvalidRequest, invoiceType)
	}

	sale, err := s.sales.LoadSale(ctx, uow, saleID)
	if err != nil {
		return nil, err
	}
	if sale.State != entity.SaleStateProcessing && sale.State != entity.SaleStateDone {
		return nil, fmt.Errorf("%w: sale %d is %s", ErrInvalidState, sale.ID, sale.State)
	}

	amount := sale.TotalAmount.Sub(sale.AmountInvoiced())
	if invoiceType == entity.InvoiceTypeOutCreditNote {
		amount = amount.Neg()
	}
	if !amount.IsPositive() {
		return nil, nil
	}

	now := s.now()
	invoice := &entity.Invoice{
		Number:      fmt.Sprintf("%s/%d", sale.Reference, len(sale.Invoices)+1),
		SaleID:      sale.ID,
		Type:        invoiceType,
		State:       entity.InvoiceStateOpen,
		Currency:    sale.Currency,
		TotalAmount: sale.Currency.Round(amount),
		AmountPaid:  decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uow.Invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	sale.Invoices = append(sale.Invoices, invoice)

	if invoiceType != entity.InvoiceTypeOut {
		return invoice, nil
	}

	if err := s.AutoPayFrom(ctx, uow, invoice, sale); err != nil {
		return nil, err
	}
	if due := invoice.AmountToPayToday(); due.IsPositive() {
		s.logger.WithFields(logrus.Fields{
			"sale_id":    sale.ID,
			"invoice_id": invoice.ID,
			"amount_due": due.String(),
		}).Warn("invoice_unpaid_after_autopay")
	}
	return invoice, nil
}

// AutoPayInvoice pays an open customer invoice from its sale.
func (s *InvoiceService) AutoPayInvoice(ctx context.Context, uow *UnitOfWork, invoiceID uint64) (*entity.Invoice, error) {
	invoice, err := uow.Invoices.FindByIDForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}
	if invoice.Type != entity.InvoiceTypeOut || invoice.State != entity.InvoiceStateOpen {
		return nil, fmt.Errorf("%w: invoice %d is a %s in state %s", ErrInvalidState, invoice.ID, invoice.Type, invoice.State)
	}

	sale, err := s.sales.LoadSale(ctx, uow, invoice.SaleID)
	if err != nil {
		return nil, err
	}
	if err := s.AutoPayFrom(ctx, uow, invoice, sale); err != nil {
		return nil, err
	}
	return invoice, nil
}

// AutoPayFrom settles the invoice amount due from the sale. Existing holds
// are used first, manual before card; any shortfall is authorized from the
// sale payments. When one of those new holds is not authorized, the other new
// holds are released and ErrSettlementFailure is returned. Holds that existed
// before are not touched.
func (s *InvoiceService) AutoPayFrom(ctx context.Context, uow *UnitOfWork, invoice *entity.Invoice, sale *entity.Sale) error {
	needed := invoice.AmountToPayToday()
	if !needed.IsPositive() {
		return nil
	}

	authorized := make([]*entity.Transaction, 0)
	for _, txn := range sale.Transactions {
		if txn.State == entity.TransactionStateAuthorized {
			authorized = append(authorized, txn)
		}
	}

	toSettle := make([]*entity.Transaction, 0)
	for _, txn := range sortTransactionsByMethod(authorized) {
		if !needed.IsPositive() {
			break
		}
		capture, err := s.shrinkTo(ctx, uow, txn, needed)
		if err != nil {
			return err
		}
		toSettle = append(toSettle, txn)
		needed = needed.Sub(capture)
	}

	if needed.IsPositive() {
		fresh, err := s.sales.AuthorizeFromSale(ctx, uow, sale, needed, "Invoice: "+invoice.Number)
		if err != nil {
			return err
		}

		// Nothing is captured unless every new hold is authorized.
		for _, txn := range fresh {
			if txn.State != entity.TransactionStateAuthorized {
				if err := s.transactions.Cancel(ctx, uow, authorizedOnly(fresh)); err != nil {
					return err
				}
				return fmt.Errorf("%w: transaction %s is %s after authorization", ErrSettlementFailure, txn.UUID, txn.State)
			}
		}

		for _, txn := range fresh {
			if !needed.IsPositive() {
				break
			}
			capture, err := s.shrinkTo(ctx, uow, txn, needed)
			if err != nil {
				return err
			}
			toSettle = append(toSettle, txn)
			needed = needed.Sub(capture)
		}
	}

	if err := s.transactions.Settle(ctx, uow, toSettle); err != nil {
		return err
	}
	for _, txn := range toSettle {
		if err := s.PayUsingTransaction(ctx, uow, invoice, txn); err != nil {
			return err
		}
	}
	return nil
}

// PayUsingTransaction applies a captured transaction to the invoice and posts
// it.
func (s *InvoiceService) PayUsingTransaction(ctx context.Context, uow *UnitOfWork, invoice *entity.Invoice, txn *entity.Transaction) error {
	if txn.State != entity.TransactionStateCompleted {
		return fmt.Errorf("%w: transaction %s is %s and cannot pay an invoice", ErrInvalidState, txn.UUID, txn.State)
	}

	now := s.now()
	line := &entity.InvoicePayment{
		InvoiceID:     invoice.ID,
		TransactionID: txn.ID,
		Amount:        txn.Amount,
		CreatedAt:     now,
	}
	if err := uow.Invoices.CreatePayment(ctx, line); err != nil {
		return err
	}

	invoice.AmountPaid = invoice.AmountPaid.Add(txn.Amount)
	invoice.UpdatedAt = now
	paid := false
	if invoice.State == entity.InvoiceStateOpen && !invoice.AmountToPayToday().IsPositive() {
		invoice.State = entity.InvoiceStatePaid
		paid = true
	}
	if err := uow.Invoices.Update(ctx, invoice); err != nil {
		if errors.Is(err, repository.ErrInvoiceNotFound) {
			return ErrInvoiceNotFound
		}
		return err
	}

	if err := s.transactions.Post(ctx, uow, txn); err != nil {
		return err
	}

	if paid {
		payload := events.NewInvoicePaidPayload(invoice, now)
		uow.AfterCommit(func() {
			if err := s.publisher.Publish(context.Background(), events.TopicInvoicePaid, payload.Number, payload); err != nil {
				s.logger.WithError(err).WithField("topic", events.TopicInvoicePaid).Error("event_publish_failed")
			}
		})
	}
	return nil
}

func (s *InvoiceService) shrinkTo(ctx context.Context, uow *UnitOfWork, txn *entity.Transaction, needed decimal.Decimal) (decimal.Decimal, error) {
	capture := decimal.Min(needed, txn.Amount)
	if capture.Equal(txn.Amount) {
		return capture, nil
	}
	txn.Amount = capture
	if err := s.transactions.UpdateAmount(ctx, uow, txn); err != nil {
		return decimal.Zero, err
	}
	return capture, nil
}

func authorizedOnly(txns []*entity.Transaction) []*entity.Transaction {
	out := make([]*entity.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.State == entity.TransactionStateAuthorized {
			out = append(out, txn)
		}
	}
	return out
}
