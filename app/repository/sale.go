package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

var ErrSaleNotFound = errors.New("sale not found")

const saleColumns = `
		id, reference, party_id, party_name, invoice_address_id,
		currency_code, currency_digits, total_amount, state, created_at, updated_at
`

type SaleRepository struct {
	db DBTX
}

func NewSaleRepository(db DBTX) *SaleRepository {
	return &SaleRepository{db: db}
}

func (r *SaleRepository) FindByID(ctx context.Context, id uint64) (*entity.Sale, error) {
	return r.findOne(ctx, `SELECT`+saleColumns+`FROM sales WHERE id = ?`, id)
}

// FindByIDForUpdate locks the sale row until the surrounding transaction ends,
// so allocations against the same sale run one at a time.
func (r *SaleRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Sale, error) {
	return r.findOne(ctx, `SELECT`+saleColumns+`FROM sales WHERE id = ? FOR UPDATE`, id)
}

func (r *SaleRepository) UpdateState(ctx context.Context, sale *entity.Sale) error {
	query := `
		UPDATE sales SET
			state = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, sale.State, sale.UpdatedAt, sale.ID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrSaleNotFound
	}

	return nil
}

func (r *SaleRepository) findOne(ctx context.Context, query string, id uint64) (*entity.Sale, error) {
	var invoiceAddressID sql.NullInt64
	sale := &entity.Sale{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sale.ID,
		&sale.Reference,
		&sale.PartyID,
		&sale.PartyName,
		&invoiceAddressID,
		&sale.Currency.Code,
		&sale.Currency.Digits,
		&sale.TotalAmount,
		&sale.State,
		&sale.CreatedAt,
		&sale.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	sale.InvoiceAddressID = uint64PtrFromNull(invoiceAddressID)
	return sale, nil
}
