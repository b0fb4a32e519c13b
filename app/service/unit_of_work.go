package service

import (
	"context"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

type saleRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Sale, error)
	UpdateState(ctx context.Context, sale *entity.Sale) error
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.SalePayment) error
	FindByID(ctx context.Context, id uint64) (*entity.SalePayment, error)
	ListBySale(ctx context.Context, saleID uint64) ([]*entity.SalePayment, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]*entity.SalePayment, error)
	DeleteByIDs(ctx context.Context, ids []uint64) (int64, error)
}

type transactionRepository interface {
	Create(ctx context.Context, txn *entity.Transaction) error
	Update(ctx context.Context, txn *entity.Transaction) error
	FindByID(ctx context.Context, id uint64) (*entity.Transaction, error)
	FindByProviderReference(ctx context.Context, provider, reference string) (*entity.Transaction, error)
	ListBySale(ctx context.Context, saleID uint64) ([]*entity.Transaction, error)
	ListByPaymentIDs(ctx context.Context, paymentIDs []uint64) ([]*entity.Transaction, error)
	ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Transaction, error)
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error)
}

type gatewayRepository interface {
	FindByID(ctx context.Context, id uint64) (*entity.Gateway, error)
}

type paymentProfileRepository interface {
	Create(ctx context.Context, profile *entity.PaymentProfile) error
	FindByID(ctx context.Context, id uint64) (*entity.PaymentProfile, error)
}

type invoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	Update(ctx context.Context, invoice *entity.Invoice) error
	FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Invoice, error)
	ListBySale(ctx context.Context, saleID uint64) ([]*entity.Invoice, error)
	ListDueForAutoPay(ctx context.Context, limit int32) ([]*entity.Invoice, error)
	CreatePayment(ctx context.Context, line *entity.InvoicePayment) error
}

type transactionEventRepository interface {
	Create(ctx context.Context, event *entity.TransactionEvent) error
}

type gatewayCallbackRepository interface {
	Create(ctx context.Context, callback *entity.GatewayCallback) error
}

// Repositories is the set of stores bound to one database transaction.
type Repositories struct {
	Sales        saleRepository
	Payments     paymentRepository
	Transactions transactionRepository
	Gateways     gatewayRepository
	Profiles     paymentProfileRepository
	Invoices     invoiceRepository
	Events       transactionEventRepository
	Callbacks    gatewayCallbackRepository
}

type txFinisher interface {
	Commit() error
	Rollback() error
}

var ErrUnitOfWorkFinished = errors.New("unit of work already finished")

// UnitOfWork carries one database transaction through a domain operation.
// The caller that opened it decides whether to commit or roll back; hooks
// registered with AfterCommit only run once the commit succeeded.
type UnitOfWork struct {
	Repositories

	tx          txFinisher
	afterCommit []func()
	finished    bool
}

func NewUnitOfWork(tx txFinisher, repos Repositories) *UnitOfWork {
	return &UnitOfWork{Repositories: repos, tx: tx}
}

func (u *UnitOfWork) AfterCommit(fn func()) {
	u.afterCommit = append(u.afterCommit, fn)
}

func (u *UnitOfWork) Commit() error {
	if u.finished {
		return ErrUnitOfWorkFinished
	}
	u.finished = true
	if err := u.tx.Commit(); err != nil {
		u.afterCommit = nil
		return err
	}

	hooks := u.afterCommit
	u.afterCommit = nil
	for _, hook := range hooks {
		hook()
	}
	return nil
}

func (u *UnitOfWork) Rollback() error {
	if u.finished {
		return ErrUnitOfWorkFinished
	}
	u.finished = true
	u.afterCommit = nil
	return u.tx.Rollback()
}

type UnitOfWorkFactory func(ctx context.Context) (*UnitOfWork, error)

// Run opens a unit of work, commits it when fn succeeds and rolls it back
// otherwise.
func (f UnitOfWorkFactory) Run(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	uow, err := f(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
	}()

	if err := fn(uow); err != nil {
		_ = uow.Rollback()
		return err
	}
	return uow.Commit()
}
