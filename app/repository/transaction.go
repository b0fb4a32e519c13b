package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

var (
	ErrTransactionNotFound      = errors.New("transaction not found")
	ErrTransactionAlreadyExists = errors.New("transaction already exists")
)

const transactionColumns = `
		t.id, t.uuid, t.sale_id, t.payment_id, t.payment_profile_id, t.party_id, t.address_id,
		t.description, t.transaction_date, t.amount, t.currency_code, t.currency_digits, t.state,
		t.provider_reference, t.created_at, t.updated_at,
		g.id, g.name, g.provider, g.method, g.active
	FROM gateway_transactions t
	INNER JOIN gateways g ON g.id = t.gateway_id
`

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *entity.Transaction) error {
	query := `
		INSERT INTO gateway_transactions (
			uuid, sale_id, payment_id, gateway_id, payment_profile_id, party_id, address_id,
			description, transaction_date, amount, currency_code, currency_digits, state,
			provider_reference, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		txn.UUID,
		txn.SaleID,
		nullableUint64Value(txn.PaymentID),
		txn.Gateway.ID,
		nullableUint64Value(txn.PaymentProfileID),
		txn.PartyID,
		nullableUint64Value(txn.AddressID),
		txn.Description,
		txn.Date,
		txn.Amount,
		txn.Currency.Code,
		txn.Currency.Digits,
		txn.State,
		nullableStringValue(txn.ProviderReference),
		txn.CreatedAt,
		txn.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrTransactionAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	txn.ID = uint64(id)
	return nil
}

// Update persists the mutable part of a transaction: amount before settlement,
// state, and the provider reference.
func (r *TransactionRepository) Update(ctx context.Context, txn *entity.Transaction) error {
	query := `
		UPDATE gateway_transactions SET
			amount = ?,
			state = ?,
			provider_reference = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		txn.Amount,
		txn.State,
		nullableStringValue(txn.ProviderReference),
		txn.UpdatedAt,
		txn.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}

	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uint64) (*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + `WHERE t.id = ?`
	return r.findOne(ctx, query, id)
}

func (r *TransactionRepository) FindByProviderReference(ctx context.Context, provider, reference string) (*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + `WHERE g.provider = ? AND t.provider_reference = ? ORDER BY t.id DESC LIMIT 1`
	return r.findOne(ctx, query, provider, reference)
}

func (r *TransactionRepository) ListBySale(ctx context.Context, saleID uint64) ([]*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + `WHERE t.sale_id = ? ORDER BY t.id ASC`
	return r.list(ctx, query, saleID)
}

func (r *TransactionRepository) ListByPaymentIDs(ctx context.Context, paymentIDs []uint64) ([]*entity.Transaction, error) {
	if len(paymentIDs) == 0 {
		return []*entity.Transaction{}, nil
	}

	in, args := inClause(paymentIDs)
	query := `SELECT` + transactionColumns + `WHERE t.payment_id IN ` + in + ` ORDER BY t.id ASC`
	return r.list(ctx, query, args...)
}

// ListForReconcile returns provider-backed holds that have not changed since
// before.
func (r *TransactionRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		WHERE t.state = ?
		  AND g.provider <> ?
		  AND t.provider_reference IS NOT NULL
		  AND t.updated_at <= ?
		ORDER BY t.updated_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.TransactionStateAuthorized, entity.ProviderSelf, before, limit)
}

func (r *TransactionRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error) {
	query := `SELECT` + transactionColumns + `
		WHERE t.state = ?
		  AND t.created_at <= ?
		ORDER BY t.created_at ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.TransactionStatePending, cutoff, limit)
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Transaction, error) {
	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := make([]*entity.Transaction, 0)
	for rows.Next() {
		item, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return txns, nil
}

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var (
		paymentID         sql.NullInt64
		profileID         sql.NullInt64
		addressID         sql.NullInt64
		providerReference sql.NullString
	)
	txn := &entity.Transaction{Gateway: &entity.Gateway{}}
	err := row.Scan(
		&txn.ID,
		&txn.UUID,
		&txn.SaleID,
		&paymentID,
		&profileID,
		&txn.PartyID,
		&addressID,
		&txn.Description,
		&txn.Date,
		&txn.Amount,
		&txn.Currency.Code,
		&txn.Currency.Digits,
		&txn.State,
		&providerReference,
		&txn.CreatedAt,
		&txn.UpdatedAt,
		&txn.Gateway.ID,
		&txn.Gateway.Name,
		&txn.Gateway.Provider,
		&txn.Gateway.Method,
		&txn.Gateway.Active,
	)
	if err != nil {
		return nil, err
	}

	txn.PaymentID = uint64PtrFromNull(paymentID)
	txn.PaymentProfileID = uint64PtrFromNull(profileID)
	txn.AddressID = uint64PtrFromNull(addressID)
	txn.ProviderReference = stringPtrFromNull(providerReference)
	return txn, nil
}
