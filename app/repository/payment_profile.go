package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

type PaymentProfileRepository struct {
	db DBTX
}

func NewPaymentProfileRepository(db DBTX) *PaymentProfileRepository {
	return &PaymentProfileRepository{db: db}
}

func (r *PaymentProfileRepository) Create(ctx context.Context, profile *entity.PaymentProfile) error {
	query := `
		INSERT INTO payment_profiles (
			party_id, gateway_id, address_id, name, last_four, expiry_month, expiry_year,
			provider_customer_id, provider_reference, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.PartyID,
		profile.GatewayID,
		nullableUint64Value(profile.AddressID),
		profile.Name,
		profile.LastFour,
		profile.ExpiryMonth,
		profile.ExpiryYear,
		nullableStringValue(profile.ProviderCustomerID),
		nullableStringValue(profile.ProviderReference),
		profile.CreatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	profile.ID = uint64(id)
	return nil
}

func (r *PaymentProfileRepository) FindByID(ctx context.Context, id uint64) (*entity.PaymentProfile, error) {
	query := `
		SELECT id, party_id, gateway_id, address_id, name, last_four, expiry_month, expiry_year,
			provider_customer_id, provider_reference, created_at
		FROM payment_profiles
		WHERE id = ?
	`

	var (
		addressID          sql.NullInt64
		providerCustomerID sql.NullString
		providerReference  sql.NullString
	)
	profile := &entity.PaymentProfile{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.PartyID,
		&profile.GatewayID,
		&addressID,
		&profile.Name,
		&profile.LastFour,
		&profile.ExpiryMonth,
		&profile.ExpiryYear,
		&providerCustomerID,
		&providerReference,
		&profile.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	profile.AddressID = uint64PtrFromNull(addressID)
	profile.ProviderCustomerID = stringPtrFromNull(providerCustomerID)
	profile.ProviderReference = stringPtrFromNull(providerReference)
	return profile, nil
}
