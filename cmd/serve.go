package cmd

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-sale-payments/app/controller"
	"github.com/vibast-solutions/ms-go-sale-payments/app/events"
	"github.com/vibast-solutions/ms-go-sale-payments/app/factory"
	salepaymentsgrpc "github.com/vibast-solutions/ms-go-sale-payments/app/grpc"
	"github.com/vibast-solutions/ms-go-sale-payments/app/provider"
	"github.com/vibast-solutions/ms-go-sale-payments/app/repository"
	"github.com/vibast-solutions/ms-go-sale-payments/app/service"
	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
	"github.com/vibast-solutions/ms-go-sale-payments/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the sale payments service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// services holds everything built from configuration.
type services struct {
	cfg          *config.Config
	salePayments *service.SalePaymentsService
	jobs         *service.JobRunner
}

func runServe(_ *cobra.Command, _ []string) {
	svc, cleanup := mustCreateServices()
	defer cleanup()
	cfg := svc.cfg

	saleController := controller.NewSaleController(svc.salePayments)
	grpcSalePaymentsServer := salepaymentsgrpc.NewServer(svc.salePayments)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()

	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(saleController, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcSalePaymentsServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	saleController *controller.SaleController,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(requireRequestID())
	e.Use(internalAuthMiddleware.RequireInternalAccess(appServiceName))

	e.GET("/health", saleController.Health)

	sales := e.Group("/sales")
	sales.GET("/:id", saleController.GetSale)
	sales.GET("/:id/payments/defaults", saleController.GetPaymentDefaults)
	sales.POST("/:id/payments", saleController.AddPayment)
	sales.POST("/:id/authorize", saleController.AuthorizeFromSalePayments)
	sales.POST("/:id/proceed", saleController.ProceedSale)
	sales.POST("/:id/invoices", saleController.CreateInvoice)

	payments := e.Group("/payments")
	payments.POST("/:id/authorize", saleController.AuthorizePayment)
	payments.POST("/cancel", saleController.CancelPayments)
	payments.POST("/delete", saleController.DeletePayments)

	invoices := e.Group("/invoices")
	invoices.POST("/:id/auto-pay", saleController.AutoPayInvoice)

	webhooks := e.Group("/webhooks/gateways")
	webhooks.POST("/:provider", saleController.HandleGatewayCallback)

	return e
}

func requireRequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			requestID := strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
			if requestID == "" {
				return ctx.JSON(http.StatusBadRequest, &types.ErrorResponse{Error: "x-request-id header is required"})
			}
			ctx.Response().Header().Set(echo.HeaderXRequestID, requestID)
			return next(ctx)
		}
	}
}

func setupGRPCServer(
	cfg *config.Config,
	salePaymentsServer *salepaymentsgrpc.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			salepaymentsgrpc.RecoveryInterceptor(),
			salepaymentsgrpc.RequestIDInterceptor(),
			salepaymentsgrpc.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	salepaymentsgrpc.RegisterSalePaymentsServiceServer(grpcSrv, salePaymentsServer)

	return grpcSrv, lis
}

// newUnitOfWorkFactory binds a fresh set of repositories to every database
// transaction it opens.
func newUnitOfWorkFactory(db *sql.DB) service.UnitOfWorkFactory {
	return func(ctx context.Context) (*service.UnitOfWork, error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}

		return service.NewUnitOfWork(tx, service.Repositories{
			Sales:        repository.NewSaleRepository(tx),
			Payments:     repository.NewPaymentRepository(tx),
			Transactions: repository.NewTransactionRepository(tx),
			Gateways:     repository.NewGatewayRepository(tx),
			Profiles:     repository.NewPaymentProfileRepository(tx),
			Invoices:     repository.NewInvoiceRepository(tx),
			Events:       repository.NewTransactionEventRepository(tx),
			Callbacks:    repository.NewGatewayCallbackRepository(tx),
		}), nil
	}
}

type closablePublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
	Close() error
}

func mustCreatePublisher(cfg config.KafkaConfig) closablePublisher {
	if len(cfg.Brokers) == 0 {
		logrus.Warn("KAFKA_BROKERS is empty, transaction events are not published")
		return events.NoopPublisher{}
	}

	producer, err := events.NewSyncProducer(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to Kafka")
	}
	return events.NewKafkaPublisher(producer, cfg.TopicPrefix, factory.NewModuleLogger("events"))
}

func mustCreateServices() (*services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	stripeProvider := provider.NewStripeProvider(provider.StripeConfig{
		SecretKey:                 cfg.Stripe.SecretKey,
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		BaseURL:                   cfg.Stripe.BaseURL,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
		HTTPTimeout:               cfg.Stripe.HTTPTimeout,
	})
	providerRegistry := provider.NewRegistry(provider.NewSelfProvider(), stripeProvider)
	publisher := mustCreatePublisher(cfg.Kafka)
	uows := newUnitOfWorkFactory(db)

	transactionService := service.NewTransactionService(providerRegistry, publisher, factory.NewModuleLogger("transactions"))
	saleService := service.NewSaleService(transactionService, providerRegistry, factory.NewModuleLogger("sales"))
	invoiceService := service.NewInvoiceService(transactionService, saleService, publisher, factory.NewModuleLogger("invoices"))

	svc := &services{
		cfg: cfg,
		salePayments: service.NewSalePaymentsService(
			uows,
			transactionService,
			saleService,
			invoiceService,
			factory.NewModuleLogger("sale-payments"),
		),
		jobs: service.NewJobRunner(
			uows,
			transactionService,
			invoiceService,
			cfg.Sales,
			factory.NewModuleLogger("jobs"),
		),
	}

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close event publisher")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return svc, cleanup
}
