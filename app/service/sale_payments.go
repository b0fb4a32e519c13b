package service

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
)

// SalePaymentsService is the entry point used by the transports. Every call
// runs in its own unit of work.
type SalePaymentsService struct {
	uows         UnitOfWorkFactory
	transactions *TransactionService
	sales        *SaleService
	invoices     *InvoiceService
	logger       logrus.FieldLogger
}

func NewSalePaymentsService(
	uows UnitOfWorkFactory,
	transactions *TransactionService,
	sales *SaleService,
	invoices *InvoiceService,
	logger logrus.FieldLogger,
) *SalePaymentsService {
	return &SalePaymentsService{
		uows:         uows,
		transactions: transactions,
		sales:        sales,
		invoices:     invoices,
		logger:       logger,
	}
}

func (s *SalePaymentsService) GetSale(ctx context.Context, saleID uint64) (*entity.Sale, error) {
	var sale *entity.Sale
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		sale, err = s.sales.GetSale(ctx, uow, saleID)
		return err
	})
	return sale, err
}

func (s *SalePaymentsService) PaymentDefaults(ctx context.Context, saleID uint64) (*PaymentDefaults, error) {
	var defaults *PaymentDefaults
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		defaults, err = s.sales.PaymentDefaults(ctx, uow, saleID)
		return err
	})
	return defaults, err
}

func (s *SalePaymentsService) AddPayment(ctx context.Context, req *types.AddPaymentRequest) (*entity.SalePayment, error) {
	var payment *entity.SalePayment
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		payment, err = s.sales.AddPayment(ctx, uow, req)
		return err
	})
	return payment, err
}

func (s *SalePaymentsService) AuthorizePayment(ctx context.Context, req *types.AuthorizePaymentRequest) (*entity.Transaction, error) {
	var txn *entity.Transaction
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		txn, err = s.sales.AuthorizePayment(ctx, uow, req.GetPaymentId(), req.GetAmount(), req.GetDescription())
		return err
	})
	return txn, err
}

func (s *SalePaymentsService) AuthorizeFromSalePayments(ctx context.Context, req *types.AuthorizeFromSalePaymentsRequest) ([]*entity.Transaction, error) {
	var txns []*entity.Transaction
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		txns, err = s.sales.AuthorizeFromSalePayments(ctx, uow, req.GetSaleId(), req.GetAmount(), req.GetDescription())
		return err
	})
	return txns, err
}

func (s *SalePaymentsService) ProceedSale(ctx context.Context, saleID uint64) (*entity.Sale, []*entity.Transaction, error) {
	var (
		sale *entity.Sale
		txns []*entity.Transaction
	)
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		sale, txns, err = s.sales.Proceed(ctx, uow, saleID)
		return err
	})
	return sale, txns, err
}

func (s *SalePaymentsService) CreateInvoice(ctx context.Context, req *types.CreateInvoiceRequest) (*entity.Invoice, error) {
	var invoice *entity.Invoice
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		invoice, err = s.invoices.CreateInvoice(ctx, uow, req.GetSaleId(), req.GetType())
		return err
	})
	return invoice, err
}

func (s *SalePaymentsService) CancelPayments(ctx context.Context, paymentIDs []uint64) ([]*entity.Transaction, error) {
	var txns []*entity.Transaction
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		txns, err = s.sales.CancelPayments(ctx, uow, paymentIDs)
		return err
	})
	return txns, err
}

func (s *SalePaymentsService) DeletePayments(ctx context.Context, paymentIDs []uint64) error {
	return s.uows.Run(ctx, func(uow *UnitOfWork) error {
		return s.sales.DeletePayments(ctx, uow, paymentIDs)
	})
}

func (s *SalePaymentsService) AutoPayInvoice(ctx context.Context, invoiceID uint64) (*entity.Invoice, error) {
	var invoice *entity.Invoice
	err := s.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		invoice, err = s.invoices.AutoPayInvoice(ctx, uow, invoiceID)
		return err
	})
	return invoice, err
}

// HandleGatewayCallback keeps the callback log row of a rejected webhook by
// committing before the rejection is returned.
func (s *SalePaymentsService) HandleGatewayCallback(ctx context.Context, req *types.HandleGatewayCallbackRequest) (*entity.Transaction, error) {
	uow, err := s.uows(ctx)
	if err != nil {
		return nil, err
	}

	txn, err := s.transactions.HandleGatewayCallback(ctx, uow, req)
	if err != nil {
		if IsCallbackRejection(err) {
			if commitErr := uow.Commit(); commitErr != nil {
				s.logger.WithError(commitErr).Error("gateway_callback_log_failed")
			}
			return nil, err
		}
		_ = uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return txn, nil
}
