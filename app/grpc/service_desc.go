package grpc

import (
	"context"

	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
	"google.golang.org/grpc"
)

const (
	SalePaymentsServiceName = "salepayments.SalePaymentsService"

	SalePaymentsService_Health_FullMethodName                    = "/salepayments.SalePaymentsService/Health"
	SalePaymentsService_GetSale_FullMethodName                   = "/salepayments.SalePaymentsService/GetSale"
	SalePaymentsService_GetPaymentDefaults_FullMethodName        = "/salepayments.SalePaymentsService/GetPaymentDefaults"
	SalePaymentsService_AddPayment_FullMethodName                = "/salepayments.SalePaymentsService/AddPayment"
	SalePaymentsService_AuthorizePayment_FullMethodName          = "/salepayments.SalePaymentsService/AuthorizePayment"
	SalePaymentsService_AuthorizeFromSalePayments_FullMethodName = "/salepayments.SalePaymentsService/AuthorizeFromSalePayments"
	SalePaymentsService_ProceedSale_FullMethodName               = "/salepayments.SalePaymentsService/ProceedSale"
	SalePaymentsService_CreateInvoice_FullMethodName             = "/salepayments.SalePaymentsService/CreateInvoice"
	SalePaymentsService_CancelPayments_FullMethodName            = "/salepayments.SalePaymentsService/CancelPayments"
	SalePaymentsService_DeletePayments_FullMethodName            = "/salepayments.SalePaymentsService/DeletePayments"
	SalePaymentsService_AutoPayInvoice_FullMethodName            = "/salepayments.SalePaymentsService/AutoPayInvoice"
	SalePaymentsService_HandleGatewayCallback_FullMethodName     = "/salepayments.SalePaymentsService/HandleGatewayCallback"
)

// SalePaymentsServiceServer is the server API for the sale payments service.
// Messages travel with the JSON codec.
type SalePaymentsServiceServer interface {
	Health(context.Context, *types.HealthRequest) (*types.HealthResponse, error)
	GetSale(context.Context, *types.GetSaleRequest) (*types.SaleResponse, error)
	GetPaymentDefaults(context.Context, *types.GetSaleRequest) (*types.PaymentDefaultsResponse, error)
	AddPayment(context.Context, *types.AddPaymentRequest) (*types.PaymentResponse, error)
	AuthorizePayment(context.Context, *types.AuthorizePaymentRequest) (*types.TransactionResponse, error)
	AuthorizeFromSalePayments(context.Context, *types.AuthorizeFromSalePaymentsRequest) (*types.TransactionsResponse, error)
	ProceedSale(context.Context, *types.ProceedSaleRequest) (*types.SaleResponse, error)
	CreateInvoice(context.Context, *types.CreateInvoiceRequest) (*types.InvoiceResponse, error)
	CancelPayments(context.Context, *types.PaymentBatchRequest) (*types.TransactionsResponse, error)
	DeletePayments(context.Context, *types.PaymentBatchRequest) (*types.MessageResponse, error)
	AutoPayInvoice(context.Context, *types.AutoPayInvoiceRequest) (*types.InvoiceResponse, error)
	HandleGatewayCallback(context.Context, *types.HandleGatewayCallbackRequest) (*types.MessageResponse, error)
}

func RegisterSalePaymentsServiceServer(s grpc.ServiceRegistrar, srv SalePaymentsServiceServer) {
	s.RegisterService(&SalePaymentsService_ServiceDesc, srv)
}

// unaryHandler adapts one typed server method to grpc.MethodHandler.
func unaryHandler[Req any, Resp any](
	fullMethod string,
	call func(srv SalePaymentsServiceServer, ctx context.Context, req *Req) (*Resp, error),
) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(SalePaymentsServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(SalePaymentsServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var SalePaymentsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: SalePaymentsServiceName,
	HandlerType: (*SalePaymentsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Health",
			Handler:    unaryHandler(SalePaymentsService_Health_FullMethodName, SalePaymentsServiceServer.Health),
		},
		{
			MethodName: "GetSale",
			Handler:    unaryHandler(SalePaymentsService_GetSale_FullMethodName, SalePaymentsServiceServer.GetSale),
		},
		{
			MethodName: "GetPaymentDefaults",
			Handler:    unaryHandler(SalePaymentsService_GetPaymentDefaults_FullMethodName, SalePaymentsServiceServer.GetPaymentDefaults),
		},
		{
			MethodName: "AddPayment",
			Handler:    unaryHandler(SalePaymentsService_AddPayment_FullMethodName, SalePaymentsServiceServer.AddPayment),
		},
		{
			MethodName: "AuthorizePayment",
			Handler:    unaryHandler(SalePaymentsService_AuthorizePayment_FullMethodName, SalePaymentsServiceServer.AuthorizePayment),
		},
		{
			MethodName: "AuthorizeFromSalePayments",
			Handler:    unaryHandler(SalePaymentsService_AuthorizeFromSalePayments_FullMethodName, SalePaymentsServiceServer.AuthorizeFromSalePayments),
		},
		{
			MethodName: "ProceedSale",
			Handler:    unaryHandler(SalePaymentsService_ProceedSale_FullMethodName, SalePaymentsServiceServer.ProceedSale),
		},
		{
			MethodName: "CreateInvoice",
			Handler:    unaryHandler(SalePaymentsService_CreateInvoice_FullMethodName, SalePaymentsServiceServer.CreateInvoice),
		},
		{
			MethodName: "CancelPayments",
			Handler:    unaryHandler(SalePaymentsService_CancelPayments_FullMethodName, SalePaymentsServiceServer.CancelPayments),
		},
		{
			MethodName: "DeletePayments",
			Handler:    unaryHandler(SalePaymentsService_DeletePayments_FullMethodName, SalePaymentsServiceServer.DeletePayments),
		},
		{
			MethodName: "AutoPayInvoice",
			Handler:    unaryHandler(SalePaymentsService_AutoPayInvoice_FullMethodName, SalePaymentsServiceServer.AutoPayInvoice),
		},
		{
			MethodName: "HandleGatewayCallback",
			Handler:    unaryHandler(SalePaymentsService_HandleGatewayCallback_FullMethodName, SalePaymentsServiceServer.HandleGatewayCallback),
		},
	},
	Streams: []grpc.StreamDesc{},
}
