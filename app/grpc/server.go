package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-sale-payments/app/service"
	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type salePaymentsService interface {
	GetSale(ctx context.Context, saleID uint64) (*entity.Sale, error)
	PaymentDefaults(ctx context.Context, saleID uint64) (*service.PaymentDefaults, error)
	AddPayment(ctx context.Context, req *types.AddPaymentRequest) (*entity.SalePayment, error)
	AuthorizePayment(ctx context.Context, req *types.AuthorizePaymentRequest) (*entity.Transaction, error)
	AuthorizeFromSalePayments(ctx context.Context, req *types.AuthorizeFromSalePaymentsRequest) ([]*entity.Transaction, error)
	ProceedSale(ctx context.Context, saleID uint64) (*entity.Sale, []*entity.Transaction, error)
	CreateInvoice(ctx context.Context, req *types.CreateInvoiceRequest) (*entity.Invoice, error)
	CancelPayments(ctx context.Context, paymentIDs []uint64) ([]*entity.Transaction, error)
	DeletePayments(ctx context.Context, paymentIDs []uint64) error
	AutoPayInvoice(ctx context.Context, invoiceID uint64) (*entity.Invoice, error)
	HandleGatewayCallback(ctx context.Context, req *types.HandleGatewayCallbackRequest) (*entity.Transaction, error)
}

type Server struct {
	salePayments salePaymentsService
}

func NewServer(salePayments salePaymentsService) *Server {
	return &Server{salePayments: salePayments}
}

func (s *Server) Health(_ context.Context, _ *types.HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) GetSale(ctx context.Context, req *types.GetSaleRequest) (*types.SaleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sale, err := s.salePayments.GetSale(ctx, req.GetSaleId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get sale failed")
	}

	return &types.SaleResponse{Sale: mapper.SaleToType(sale)}, nil
}

func (s *Server) GetPaymentDefaults(ctx context.Context, req *types.GetSaleRequest) (*types.PaymentDefaultsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	defaults, err := s.salePayments.PaymentDefaults(ctx, req.GetSaleId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Get payment defaults failed")
	}

	return mapper.PaymentDefaultsToType(defaults), nil
}

func (s *Server) AddPayment(ctx context.Context, req *types.AddPaymentRequest) (*types.PaymentResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		loggerWithContext(ctx).WithError(err).Debug("Add payment validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	payment, err := s.salePayments.AddPayment(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Add payment failed")
	}

	return &types.PaymentResponse{Payment: mapper.PaymentToType(payment)}, nil
}

func (s *Server) AuthorizePayment(ctx context.Context, req *types.AuthorizePaymentRequest) (*types.TransactionResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	txn, err := s.salePayments.AuthorizePayment(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Authorize payment failed")
	}

	return &types.TransactionResponse{Transaction: mapper.TransactionToType(txn)}, nil
}

func (s *Server) AuthorizeFromSalePayments(ctx context.Context, req *types.AuthorizeFromSalePaymentsRequest) (*types.TransactionsResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	txns, err := s.salePayments.AuthorizeFromSalePayments(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Authorize from sale payments failed")
	}

	return &types.TransactionsResponse{Transactions: mapper.TransactionsToType(txns)}, nil
}

func (s *Server) ProceedSale(ctx context.Context, req *types.ProceedSaleRequest) (*types.SaleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	sale, txns, err := s.salePayments.ProceedSale(ctx, req.GetSaleId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Proceed sale failed")
	}

	return &types.SaleResponse{
		Sale:         mapper.SaleToType(sale),
		Transactions: mapper.TransactionsToType(txns),
	}, nil
}

// CreateInvoice answers with an empty envelope when nothing is left to invoice.
func (s *Server) CreateInvoice(ctx context.Context, req *types.CreateInvoiceRequest) (*types.InvoiceResponse, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	invoice, err := s.salePayments.CreateInvoice(ctx, req)
	if err != nil {
		return nil, statusFromError(ctx, err, "Create invoice failed")
	}

	return &types.InvoiceResponse{Invoice: mapper.InvoiceToType(invoice)}, nil
}

func (s *Server) CancelPayments(ctx context.Context, req *types.PaymentBatchRequest) (*types.TransactionsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	txns, err := s.salePayments.CancelPayments(ctx, req.GetPaymentIds())
	if err != nil {
		return nil, statusFromError(ctx, err, "Cancel payments failed")
	}

	return &types.TransactionsResponse{Transactions: mapper.TransactionsToType(txns)}, nil
}

func (s *Server) DeletePayments(ctx context.Context, req *types.PaymentBatchRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.salePayments.DeletePayments(ctx, req.GetPaymentIds()); err != nil {
		return nil, statusFromError(ctx, err, "Delete payments failed")
	}

	return &types.MessageResponse{Message: "Payments deleted"}, nil
}

func (s *Server) AutoPayInvoice(ctx context.Context, req *types.AutoPayInvoiceRequest) (*types.InvoiceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	invoice, err := s.salePayments.AutoPayInvoice(ctx, req.GetInvoiceId())
	if err != nil {
		return nil, statusFromError(ctx, err, "Auto-pay invoice failed")
	}

	return &types.InvoiceResponse{Invoice: mapper.InvoiceToType(invoice)}, nil
}

func (s *Server) HandleGatewayCallback(ctx context.Context, req *types.HandleGatewayCallbackRequest) (*types.MessageResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if _, err := s.salePayments.HandleGatewayCallback(ctx, req); err != nil {
		if errors.Is(err, service.ErrCallbackRejected) {
			return nil, status.Error(codes.InvalidArgument, err.Error())
		}
		return nil, statusFromError(ctx, err, "Handle gateway callback failed")
	}

	return &types.MessageResponse{Message: "Gateway callback processed"}, nil
}

func statusFromError(ctx context.Context, err error, logMessage string) error {
	switch {
	case errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrDeletionConflict),
		errors.Is(err, service.ErrInvalidState):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrSettlementFailure):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrInvoiceNotFound),
		errors.Is(err, service.ErrGatewayNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		loggerWithContext(ctx).WithError(err).Error(logMessage)
		return status.Error(codes.Internal, "internal server error")
	}
}
