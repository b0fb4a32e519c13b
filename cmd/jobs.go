package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-sale-payments/app/service"
	"github.com/vibast-solutions/ms-go-sale-payments/config"
)

var (
	workerMode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Refresh stale gateway transactions from their providers",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"reconcile",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ReconcileInterval },
			func(r *service.JobRunner, ctx context.Context) error {
				return r.RunReconcileBatch(ctx)
			},
		)
	},
}

var expireCmd = &cobra.Command{
	Use:   "expire",
	Short: "Run expiration-related commands",
}

var expirePendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Fail gateway transactions that stayed pending for too long",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"expire_pending",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ExpirePendingInterval },
			func(r *service.JobRunner, ctx context.Context) error {
				return r.RunExpirePendingBatch(ctx)
			},
		)
	},
}

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Run invoice related commands",
}

var invoicesAutoPayCmd = &cobra.Command{
	Use:   "autopay",
	Short: "Settle open customer invoices from their sale payments",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"invoices_autopay",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.AutoPayInterval },
			func(r *service.JobRunner, ctx context.Context) error {
				return r.RunAutoPayBatch(ctx)
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(invoicesCmd)
	expireCmd.AddCommand(expirePendingCmd)
	invoicesCmd.AddCommand(invoicesAutoPayCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(r *service.JobRunner, ctx context.Context) error,
) {
	svc, cleanup := mustCreateServices()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(svc.cfg), svc.jobs, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(svc.jobs, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	jobs *service.JobRunner,
	fn func(r *service.JobRunner, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(jobs, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(jobs, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
