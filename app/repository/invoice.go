package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

var ErrInvoiceNotFound = errors.New("invoice not found")

const invoiceColumns = `
		id, number, sale_id, type, state, currency_code, currency_digits,
		total_amount, amount_paid, created_at, updated_at
	FROM invoices
`

type InvoiceRepository struct {
	db DBTX
}

func NewInvoiceRepository(db DBTX) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		INSERT INTO invoices (
			number, sale_id, type, state, currency_code, currency_digits,
			total_amount, amount_paid, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		invoice.Number,
		invoice.SaleID,
		invoice.Type,
		invoice.State,
		invoice.Currency.Code,
		invoice.Currency.Digits,
		invoice.TotalAmount,
		invoice.AmountPaid,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	invoice.ID = uint64(id)
	return nil
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *entity.Invoice) error {
	query := `
		UPDATE invoices SET
			number = ?,
			state = ?,
			amount_paid = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		invoice.Number,
		invoice.State,
		invoice.AmountPaid,
		invoice.UpdatedAt,
		invoice.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInvoiceNotFound
	}

	return nil
}

func (r *InvoiceRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `WHERE id = ? FOR UPDATE`

	invoice, err := scanInvoice(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *InvoiceRepository) ListBySale(ctx context.Context, saleID uint64) ([]*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `WHERE sale_id = ? ORDER BY id ASC`
	return r.list(ctx, query, saleID)
}

// ListDueForAutoPay returns open customer invoices with an outstanding amount.
func (r *InvoiceRepository) ListDueForAutoPay(ctx context.Context, limit int32) ([]*entity.Invoice, error) {
	query := `SELECT` + invoiceColumns + `
		WHERE type = ?
		  AND state = ?
		  AND total_amount > amount_paid
		ORDER BY id ASC
		LIMIT ?
	`
	return r.list(ctx, query, entity.InvoiceTypeOut, entity.InvoiceStateOpen, limit)
}

func (r *InvoiceRepository) CreatePayment(ctx context.Context, line *entity.InvoicePayment) error {
	query := `
		INSERT INTO invoice_payments (invoice_id, transaction_id, amount, created_at)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		line.InvoiceID,
		line.TransactionID,
		line.Amount,
		line.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	line.ID = uint64(id)
	return nil
}

func (r *InvoiceRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]*entity.Invoice, 0)
	for rows.Next() {
		item, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return invoices, nil
}

func scanInvoice(row rowScanner) (*entity.Invoice, error) {
	invoice := &entity.Invoice{}
	err := row.Scan(
		&invoice.ID,
		&invoice.Number,
		&invoice.SaleID,
		&invoice.Type,
		&invoice.State,
		&invoice.Currency.Code,
		&invoice.Currency.Digits,
		&invoice.TotalAmount,
		&invoice.AmountPaid,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
