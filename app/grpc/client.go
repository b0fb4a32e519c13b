package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
	"google.golang.org/grpc"
)

// Client calls the sale payments service over an existing connection using
// the JSON codec.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	callOpts := append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, callOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Health(ctx context.Context, in *types.HealthRequest, opts ...grpc.CallOption) (*types.HealthResponse, error) {
	return invoke[types.HealthResponse](ctx, c.cc, SalePaymentsService_Health_FullMethodName, in, opts)
}

func (c *Client) GetSale(ctx context.Context, in *types.GetSaleRequest, opts ...grpc.CallOption) (*types.SaleResponse, error) {
	return invoke[types.SaleResponse](ctx, c.cc, SalePaymentsService_GetSale_FullMethodName, in, opts)
}

func (c *Client) GetPaymentDefaults(ctx context.Context, in *types.GetSaleRequest, opts ...grpc.CallOption) (*types.PaymentDefaultsResponse, error) {
	return invoke[types.PaymentDefaultsResponse](ctx, c.cc, SalePaymentsService_GetPaymentDefaults_FullMethodName, in, opts)
}

func (c *Client) AddPayment(ctx context.Context, in *types.AddPaymentRequest, opts ...grpc.CallOption) (*types.PaymentResponse, error) {
	return invoke[types.PaymentResponse](ctx, c.cc, SalePaymentsService_AddPayment_FullMethodName, in, opts)
}

func (c *Client) AuthorizePayment(ctx context.Context, in *types.AuthorizePaymentRequest, opts ...grpc.CallOption) (*types.TransactionResponse, error) {
	return invoke[types.TransactionResponse](ctx, c.cc, SalePaymentsService_AuthorizePayment_FullMethodName, in, opts)
}

func (c *Client) AuthorizeFromSalePayments(ctx context.Context, in *types.AuthorizeFromSalePaymentsRequest, opts ...grpc.CallOption) (*types.TransactionsResponse, error) {
	return invoke[types.TransactionsResponse](ctx, c.cc, SalePaymentsService_AuthorizeFromSalePayments_FullMethodName, in, opts)
}

func (c *Client) ProceedSale(ctx context.Context, in *types.ProceedSaleRequest, opts ...grpc.CallOption) (*types.SaleResponse, error) {
	return invoke[types.SaleResponse](ctx, c.cc, SalePaymentsService_ProceedSale_FullMethodName, in, opts)
}

func (c *Client) CreateInvoice(ctx context.Context, in *types.CreateInvoiceRequest, opts ...grpc.CallOption) (*types.InvoiceResponse, error) {
	return invoke[types.InvoiceResponse](ctx, c.cc, SalePaymentsService_CreateInvoice_FullMethodName, in, opts)
}

func (c *Client) CancelPayments(ctx context.Context, in *types.PaymentBatchRequest, opts ...grpc.CallOption) (*types.TransactionsResponse, error) {
	return invoke[types.TransactionsResponse](ctx, c.cc, SalePaymentsService_CancelPayments_FullMethodName, in, opts)
}

func (c *Client) DeletePayments(ctx context.Context, in *types.PaymentBatchRequest, opts ...grpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, SalePaymentsService_DeletePayments_FullMethodName, in, opts)
}

func (c *Client) AutoPayInvoice(ctx context.Context, in *types.AutoPayInvoiceRequest, opts ...grpc.CallOption) (*types.InvoiceResponse, error) {
	return invoke[types.InvoiceResponse](ctx, c.cc, SalePaymentsService_AutoPayInvoice_FullMethodName, in, opts)
}

func (c *Client) HandleGatewayCallback(ctx context.Context, in *types.HandleGatewayCallbackRequest, opts ...grpc.CallOption) (*types.MessageResponse, error) {
	return invoke[types.MessageResponse](ctx, c.cc, SalePaymentsService_HandleGatewayCallback_FullMethodName, in, opts)
}
