package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/factory"
	"github.com/vibast-solutions/ms-go-sale-payments/app/mapper"
	"github.com/vibast-solutions/ms-go-sale-payments/app/service"
	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
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

type SaleController struct {
	salePayments salePaymentsService
	logger       logrus.FieldLogger
}

func NewSaleController(salePayments salePaymentsService) *SaleController {
	return &SaleController{
		salePayments: salePayments,
		logger:       factory.NewModuleLogger("sales-controller"),
	}
}

func (c *SaleController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *SaleController) GetSale(ctx echo.Context) error {
	req, err := types.NewGetSaleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	sale, err := c.salePayments.GetSale(ctx.Request().Context(), req.GetSaleId())
	if err != nil {
		return c.handleServiceError(ctx, err, "Get sale failed")
	}

	return ctx.JSON(http.StatusOK, &types.SaleResponse{Sale: mapper.SaleToType(sale)})
}

func (c *SaleController) GetPaymentDefaults(ctx echo.Context) error {
	req, err := types.NewGetSaleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	defaults, err := c.salePayments.PaymentDefaults(ctx.Request().Context(), req.GetSaleId())
	if err != nil {
		return c.handleServiceError(ctx, err, "Get payment defaults failed")
	}

	return ctx.JSON(http.StatusOK, mapper.PaymentDefaultsToType(defaults))
}

func (c *SaleController) AddPayment(ctx echo.Context) error {
	req, err := types.NewAddPaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	payment, err := c.salePayments.AddPayment(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Add payment failed")
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentResponse{Payment: mapper.PaymentToType(payment)})
}

func (c *SaleController) AuthorizePayment(ctx echo.Context) error {
	req, err := types.NewAuthorizePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	txn, err := c.salePayments.AuthorizePayment(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Authorize payment failed")
	}

	return ctx.JSON(http.StatusOK, &types.TransactionResponse{Transaction: mapper.TransactionToType(txn)})
}

func (c *SaleController) AuthorizeFromSalePayments(ctx echo.Context) error {
	req, err := types.NewAuthorizeFromSalePaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	txns, err := c.salePayments.AuthorizeFromSalePayments(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Authorize from sale payments failed")
	}

	return ctx.JSON(http.StatusOK, &types.TransactionsResponse{Transactions: mapper.TransactionsToType(txns)})
}

func (c *SaleController) ProceedSale(ctx echo.Context) error {
	req, err := types.NewProceedSaleRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	sale, txns, err := c.salePayments.ProceedSale(ctx.Request().Context(), req.GetSaleId())
	if err != nil {
		return c.handleServiceError(ctx, err, "Proceed sale failed")
	}

	return ctx.JSON(http.StatusOK, &types.SaleResponse{
		Sale:         mapper.SaleToType(sale),
		Transactions: mapper.TransactionsToType(txns),
	})
}

func (c *SaleController) CreateInvoice(ctx echo.Context) error {
	req, err := types.NewCreateInvoiceRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	invoice, err := c.salePayments.CreateInvoice(ctx.Request().Context(), req)
	if err != nil {
		return c.handleServiceError(ctx, err, "Create invoice failed")
	}
	if invoice == nil {
		return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Nothing to invoice"})
	}

	return ctx.JSON(http.StatusCreated, &types.InvoiceResponse{Invoice: mapper.InvoiceToType(invoice)})
}

func (c *SaleController) CancelPayments(ctx echo.Context) error {
	req, err := types.NewPaymentBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	txns, err := c.salePayments.CancelPayments(ctx.Request().Context(), req.GetPaymentIds())
	if err != nil {
		return c.handleServiceError(ctx, err, "Cancel payments failed")
	}

	return ctx.JSON(http.StatusOK, &types.TransactionsResponse{Transactions: mapper.TransactionsToType(txns)})
}

func (c *SaleController) DeletePayments(ctx echo.Context) error {
	req, err := types.NewPaymentBatchRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.salePayments.DeletePayments(ctx.Request().Context(), req.GetPaymentIds()); err != nil {
		return c.handleServiceError(ctx, err, "Delete payments failed")
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Payments deleted"})
}

func (c *SaleController) AutoPayInvoice(ctx echo.Context) error {
	req, err := types.NewAutoPayInvoiceRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	invoice, err := c.salePayments.AutoPayInvoice(ctx.Request().Context(), req.GetInvoiceId())
	if err != nil {
		return c.handleServiceError(ctx, err, "Auto-pay invoice failed")
	}

	return ctx.JSON(http.StatusOK, &types.InvoiceResponse{Invoice: mapper.InvoiceToType(invoice)})
}

func (c *SaleController) HandleGatewayCallback(ctx echo.Context) error {
	req, err := types.NewHandleGatewayCallbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if _, err := c.salePayments.HandleGatewayCallback(ctx.Request().Context(), req); err != nil {
		switch {
		case errors.Is(err, service.ErrProviderUnsupported), errors.Is(err, service.ErrCallbackRejected):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrTransactionNotFound):
			return c.writeError(ctx, http.StatusNotFound, "transaction not found")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Handle gateway callback failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Gateway callback processed"})
}

func (c *SaleController) handleServiceError(ctx echo.Context, err error, logMessage string) error {
	var funds *service.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		return ctx.JSON(http.StatusUnprocessableEntity, &types.ErrorResponse{
			Error: err.Error(),
			Funds: mapper.InsufficientFundsToType(funds),
		})
	case errors.Is(err, service.ErrSettlementFailure):
		return c.writeError(ctx, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, service.ErrDeletionConflict), errors.Is(err, service.ErrInvalidState):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSaleNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrInvoiceNotFound),
		errors.Is(err, service.ErrGatewayNotFound),
		errors.Is(err, service.ErrProfileNotFound),
		errors.Is(err, service.ErrTransactionNotFound):
		return c.writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	default:
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error(logMessage)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func (c *SaleController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
