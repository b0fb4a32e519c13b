package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

type GatewayRepository struct {
	db DBTX
}

func NewGatewayRepository(db DBTX) *GatewayRepository {
	return &GatewayRepository{db: db}
}

func (r *GatewayRepository) FindByID(ctx context.Context, id uint64) (*entity.Gateway, error) {
	query := `
		SELECT id, name, provider, method, active
		FROM gateways
		WHERE id = ?
	`

	gateway := &entity.Gateway{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&gateway.ID,
		&gateway.Name,
		&gateway.Provider,
		&gateway.Method,
		&gateway.Active,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return gateway, nil
}
