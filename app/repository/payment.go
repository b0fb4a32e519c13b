package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

const paymentColumns = `
		p.id, p.sale_id, p.sequence, p.payment_profile_id, p.amount, p.reference,
		p.created_at, p.updated_at,
		g.id, g.name, g.provider, g.method, g.active
	FROM sale_payments p
	INNER JOIN gateways g ON g.id = p.gateway_id
`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.SalePayment) error {
	query := `
		INSERT INTO sale_payments (
			sale_id, sequence, gateway_id, payment_profile_id, amount, reference, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.SaleID,
		payment.Sequence,
		payment.Gateway.ID,
		nullableUint64Value(payment.PaymentProfileID),
		payment.Amount,
		nullableStringValue(payment.Reference),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id uint64) (*entity.SalePayment, error) {
	query := `SELECT` + paymentColumns + `WHERE p.id = ?`

	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListBySale returns the payments of a sale in sale order.
func (r *PaymentRepository) ListBySale(ctx context.Context, saleID uint64) ([]*entity.SalePayment, error) {
	query := `SELECT` + paymentColumns + `WHERE p.sale_id = ? ORDER BY p.sequence ASC, p.id ASC`
	return r.list(ctx, query, saleID)
}

func (r *PaymentRepository) ListByIDs(ctx context.Context, ids []uint64) ([]*entity.SalePayment, error) {
	if len(ids) == 0 {
		return []*entity.SalePayment{}, nil
	}

	in, args := inClause(ids)
	query := `SELECT` + paymentColumns + `WHERE p.id IN ` + in + ` ORDER BY p.sale_id ASC, p.sequence ASC, p.id ASC`
	return r.list(ctx, query, args...)
}

func (r *PaymentRepository) DeleteByIDs(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	in, args := inClause(ids)
	result, err := r.db.ExecContext(ctx, `DELETE FROM sale_payments WHERE id IN `+in, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.SalePayment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.SalePayment, 0)
	for rows.Next() {
		item, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func scanPayment(row rowScanner) (*entity.SalePayment, error) {
	var (
		profileID sql.NullInt64
		reference sql.NullString
	)
	payment := &entity.SalePayment{Gateway: &entity.Gateway{}}
	err := row.Scan(
		&payment.ID,
		&payment.SaleID,
		&payment.Sequence,
		&profileID,
		&payment.Amount,
		&reference,
		&payment.CreatedAt,
		&payment.UpdatedAt,
		&payment.Gateway.ID,
		&payment.Gateway.Name,
		&payment.Gateway.Provider,
		&payment.Gateway.Method,
		&payment.Gateway.Active,
	)
	if err != nil {
		return nil, err
	}

	payment.PaymentProfileID = uint64PtrFromNull(profileID)
	payment.Reference = stringPtrFromNull(reference)
	return payment, nil
}
