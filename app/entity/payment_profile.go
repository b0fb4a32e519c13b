package entity

import "time"

type PaymentProfile struct {
	ID uint64

	PartyID   uint64
	GatewayID uint64
	AddressID *uint64

	Name        string
	LastFour    string
	ExpiryMonth int32
	ExpiryYear  int32

	ProviderCustomerID *string
	ProviderReference  *string

	CreatedAt time.Time
}
