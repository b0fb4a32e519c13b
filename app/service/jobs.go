package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/config"
)

const defaultBatchSize = int32(100)

// JobRunner runs the background batches. Each item gets its own unit of work
// so one failure does not undo the rest of the batch.
type JobRunner struct {
	uows         UnitOfWorkFactory
	transactions *TransactionService
	invoices     *InvoiceService
	salesCfg     config.SalesConfig
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewJobRunner(
	uows UnitOfWorkFactory,
	transactions *TransactionService,
	invoices *InvoiceService,
	salesCfg config.SalesConfig,
	logger logrus.FieldLogger,
) *JobRunner {
	return &JobRunner{
		uows:         uows,
		transactions: transactions,
		invoices:     invoices,
		salesCfg:     salesCfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RunReconcileBatch re-reads stale card holds from their provider so expired
// or externally captured holds stop counting as available.
func (r *JobRunner) RunReconcileBatch(ctx context.Context) error {
	before := r.now().Add(-r.salesCfg.ReconcileStaleAfter)

	var items []*entity.Transaction
	err := r.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		items, err = uow.Transactions.ListForReconcile(ctx, before, r.batchSize())
		return err
	})
	if err != nil {
		return err
	}

	var firstErr error
	for _, item := range items {
		if item == nil || item.ProviderReference == nil || strings.TrimSpace(*item.ProviderReference) == "" {
			continue
		}

		p, err := r.transactions.providerFor(item)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		state, err := p.GetState(ctx, strings.TrimSpace(*item.ProviderReference))
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if state == "" || state == item.State {
			continue
		}

		err = r.uows.Run(ctx, func(uow *UnitOfWork) error {
			txn, err := uow.Transactions.FindByID(ctx, item.ID)
			if err != nil || txn == nil {
				return err
			}
			_, err = r.transactions.ApplyProviderState(ctx, uow, txn, state, "transaction_reconciled", nil, nil)
			return err
		})
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunExpirePendingBatch fails transactions that never left pending, which
// frees the capacity they hold on their payment.
func (r *JobRunner) RunExpirePendingBatch(ctx context.Context) error {
	cutoff := r.now().Add(-r.salesCfg.PendingTimeout)

	var items []*entity.Transaction
	err := r.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		items, err = uow.Transactions.ListExpiredPending(ctx, cutoff, r.batchSize())
		return err
	})
	if err != nil {
		return err
	}

	var firstErr error
	for _, item := range items {
		if item == nil {
			continue
		}
		err := r.uows.Run(ctx, func(uow *UnitOfWork) error {
			txn, err := uow.Transactions.FindByID(ctx, item.ID)
			if err != nil || txn == nil {
				return err
			}
			_, err = r.transactions.ApplyProviderState(ctx, uow, txn, entity.TransactionStateFailed, "transaction_expired", nil, nil)
			return err
		})
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

// RunAutoPayBatch pays open customer invoices from their sales.
func (r *JobRunner) RunAutoPayBatch(ctx context.Context) error {
	var items []*entity.Invoice
	err := r.uows.Run(ctx, func(uow *UnitOfWork) error {
		var err error
		items, err = uow.Invoices.ListDueForAutoPay(ctx, r.batchSize())
		return err
	})
	if err != nil {
		return err
	}

	var firstErr error
	for _, item := range items {
		if item == nil {
			continue
		}
		err := r.uows.Run(ctx, func(uow *UnitOfWork) error {
			_, err := r.invoices.AutoPayInvoice(ctx, uow, item.ID)
			return err
		})
		if err != nil {
			r.logger.WithError(err).WithField("invoice_id", item.ID).Warn("invoice_autopay_failed")
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func (r *JobRunner) batchSize() int32 {
	if r.salesCfg.JobBatchSize > 0 {
		return r.salesCfg.JobBatchSize
	}
	return defaultBatchSize
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
