package provider

import "context"

type AuthorizeInput struct {
	TransactionUUID string
	Description     string
	AmountMinor     int64
	Currency        string

	ProviderCustomerID      *string
	ProviderPaymentMethodID *string
}

type AuthorizeOutput struct {
	State             string
	ProviderReference *string
}

type CaptureInput struct {
	TransactionUUID   string
	ProviderReference *string
	AmountMinor       int64
	Currency          string
}

type CancelInput struct {
	TransactionUUID   string
	ProviderReference *string
}

type ProfileInput struct {
	PartyID     uint64
	PartyName   string
	OwnerName   string
	Number      string
	ExpiryMonth int32
	ExpiryYear  int32
	CSC         string
}

type ProfileOutput struct {
	ProviderCustomerID *string
	ProviderReference  *string
	LastFour           string
}

type CallbackEvent struct {
	ProviderEventID   *string
	ProviderReference *string
	EventType         string
	NewState          string
}

// Provider is a payment gateway backend. Returned states are transaction
// states; an empty state means the provider reported nothing new.
type Provider interface {
	Name() string
	Authorize(ctx context.Context, input *AuthorizeInput) (*AuthorizeOutput, error)
	Capture(ctx context.Context, input *CaptureInput) (string, error)
	Cancel(ctx context.Context, input *CancelInput) (string, error)
	GetState(ctx context.Context, providerReference string) (string, error)
	CreateProfile(ctx context.Context, input *ProfileInput) (*ProfileOutput, error)
	VerifyAndParseCallback(ctx context.Context, payload []byte, signature string) (*CallbackEvent, error)
}
