package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var (
	paymentRowColumns = []string{
		"id", "sale_id", "sequence", "payment_profile_id", "amount", "reference",
		"created_at", "updated_at",
		"gid", "gname", "gprovider", "gmethod", "gactive",
	}
	transactionRowColumns = []string{
		"id", "uuid", "sale_id", "payment_id", "payment_profile_id", "party_id", "address_id",
		"description", "transaction_date", "amount", "currency_code", "currency_digits", "state",
		"provider_reference", "created_at", "updated_at",
		"gid", "gname", "gprovider", "gmethod", "gactive",
	}
)

func TestSaleRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("locks and scans the sale row", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSaleRepository(db)
		now := time.Now().UTC()

		rows := sqlmock.NewRows([]string{
			"id", "reference", "party_id", "party_name", "invoice_address_id",
			"currency_code", "currency_digits", "total_amount", "state", "created_at", "updated_at",
		}).AddRow(7, "SO-7", 3, "Acme", 11, "USD", 2, "150.00", entity.SaleStateConfirmed, now, now)

		mock.ExpectQuery(`FROM sales WHERE id = \? FOR UPDATE`).
			WithArgs(uint64(7)).
			WillReturnRows(rows)

		sale, err := repo.FindByIDForUpdate(context.Background(), 7)
		require.NoError(t, err)
		require.NotNil(t, sale)
		assert.Equal(t, "SO-7", sale.Reference)
		assert.Equal(t, int32(2), sale.Currency.Digits)
		assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(150)))
		require.NotNil(t, sale.InvoiceAddressID)
		assert.Equal(t, uint64(11), *sale.InvoiceAddressID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when the sale does not exist", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSaleRepository(db)

		mock.ExpectQuery(`FROM sales WHERE id = \? FOR UPDATE`).
			WithArgs(uint64(99)).
			WillReturnError(sql.ErrNoRows)

		sale, err := repo.FindByIDForUpdate(context.Background(), 99)
		assert.NoError(t, err)
		assert.Nil(t, sale)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSaleRepository_UpdateState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSaleRepository(db)

	mock.ExpectExec(`UPDATE sales SET`).
		WithArgs(entity.SaleStateProcessing, sqlmock.AnyArg(), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), &entity.Sale{ID: 5, State: entity.SaleStateProcessing})
	assert.ErrorIs(t, err, ErrSaleNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_Create(t *testing.T) {
	newPayment := func() *entity.SalePayment {
		return &entity.SalePayment{
			SaleID:   1,
			Sequence: entity.DefaultPaymentSequence,
			Gateway:  &entity.Gateway{ID: 4},
			Amount:   decimal.NewFromInt(50),
		}
	}

	t.Run("assigns the inserted id", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectExec(`INSERT INTO sale_payments`).
			WithArgs(uint64(1), int32(10), uint64(4), nil, sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(42, 1))

		payment := newPayment()
		require.NoError(t, repo.Create(context.Background(), payment))
		assert.Equal(t, uint64(42), payment.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps duplicate entry errors", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPaymentRepository(db)

		mock.ExpectExec(`INSERT INTO sale_payments`).
			WillReturnError(&mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"})

		err := repo.Create(context.Background(), newPayment())
		assert.ErrorIs(t, err, ErrPaymentAlreadyExists)
	})
}

func TestPaymentRepository_ListBySale(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows(paymentRowColumns).
		AddRow(1, 9, 10, nil, "50.00", "CASH-1", now, now, 1, "Cash", entity.ProviderSelf, entity.MethodManual, true).
		AddRow(2, 9, 20, 3, "50.00", nil, now, now, 2, "Stripe", entity.ProviderStripe, entity.MethodCreditCard, true)

	mock.ExpectQuery(`FROM sale_payments p INNER JOIN gateways g ON g.id = p.gateway_id WHERE p.sale_id = \? ORDER BY p.sequence ASC, p.id ASC`).
		WithArgs(uint64(9)).
		WillReturnRows(rows)

	payments, err := repo.ListBySale(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, entity.MethodManual, payments[0].Method())
	require.NotNil(t, payments[0].Reference)
	assert.Equal(t, "CASH-1", *payments[0].Reference)
	assert.Nil(t, payments[0].PaymentProfileID)
	assert.Equal(t, entity.ProviderStripe, payments[1].Provider())
	require.NotNil(t, payments[1].PaymentProfileID)
	assert.Equal(t, uint64(3), *payments[1].PaymentProfileID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_DeleteByIDs(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectExec(`DELETE FROM sale_payments WHERE id IN \(\?, \?\)`).
		WithArgs(uint64(3), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	affected, err := repo.DeleteByIDs(context.Background(), []uint64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Update(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	reference := "pi_1"

	mock.ExpectExec(`UPDATE gateway_transactions SET`).
		WithArgs(sqlmock.AnyArg(), entity.TransactionStateCompleted, reference, sqlmock.AnyArg(), uint64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &entity.Transaction{
		ID:                8,
		Amount:            decimal.NewFromInt(10),
		State:             entity.TransactionStateCompleted,
		ProviderReference: &reference,
	})
	assert.ErrorIs(t, err, ErrTransactionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_ListForReconcile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)
	now := time.Now().UTC()
	before := now.Add(-time.Hour)

	rows := sqlmock.NewRows(transactionRowColumns).
		AddRow(5, "uuid-5", 9, 2, 3, 4, nil, "Auto charge from payment", now, "25.00", "USD", 2,
			entity.TransactionStateAuthorized, "pi_5", now, now, 2, "Stripe", entity.ProviderStripe, entity.MethodCreditCard, true)

	mock.ExpectQuery(`WHERE t.state = \? AND g.provider <> \? AND t.provider_reference IS NOT NULL`).
		WithArgs(entity.TransactionStateAuthorized, entity.ProviderSelf, before, int32(50)).
		WillReturnRows(rows)

	txns, err := repo.ListForReconcile(context.Background(), before, 50)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "uuid-5", txns[0].UUID)
	assert.True(t, txns[0].Amount.Equal(decimal.NewFromInt(25)))
	require.NotNil(t, txns[0].PaymentID)
	assert.Equal(t, uint64(2), *txns[0].PaymentID)
	assert.Nil(t, txns[0].AddressID)
	assert.Equal(t, entity.MethodCreditCard, txns[0].Method())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_ListByPaymentIDsEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTransactionRepository(db)

	txns, err := repo.ListByPaymentIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, txns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_CreatePayment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)

	mock.ExpectExec(`INSERT INTO invoice_payments`).
		WithArgs(uint64(2), uint64(6), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(13, 1))

	line := &entity.InvoicePayment{InvoiceID: 2, TransactionID: 6, Amount: decimal.NewFromInt(30), CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.CreatePayment(context.Background(), line))
	assert.Equal(t, uint64(13), line.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvoiceRepository_ListDueForAutoPay(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewInvoiceRepository(db)
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "number", "sale_id", "type", "state", "currency_code", "currency_digits",
		"total_amount", "amount_paid", "created_at", "updated_at",
	}).AddRow(1, "INV-1", 9, entity.InvoiceTypeOut, entity.InvoiceStateOpen, "USD", 2, "80.00", "20.00", now, now)

	mock.ExpectQuery(`FROM invoices WHERE type = \? AND state = \? AND total_amount > amount_paid`).
		WithArgs(entity.InvoiceTypeOut, entity.InvoiceStateOpen, int32(10)).
		WillReturnRows(rows)

	invoices, err := repo.ListDueForAutoPay(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].AmountToPayToday().Equal(decimal.NewFromInt(60)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
