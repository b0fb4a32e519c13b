package provider

import (
	"context"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
)

// SelfProvider backs manual gateways (cash, store credit, prepaid funds).
// Every operation succeeds immediately without leaving the process.
type SelfProvider struct{}

func NewSelfProvider() *SelfProvider {
	return &SelfProvider{}
}

func (p *SelfProvider) Name() string {
	return entity.ProviderSelf
}

func (p *SelfProvider) Authorize(_ context.Context, _ *AuthorizeInput) (*AuthorizeOutput, error) {
	return &AuthorizeOutput{State: entity.TransactionStateAuthorized}, nil
}

func (p *SelfProvider) Capture(_ context.Context, _ *CaptureInput) (string, error) {
	return entity.TransactionStateCompleted, nil
}

func (p *SelfProvider) Cancel(_ context.Context, _ *CancelInput) (string, error) {
	return entity.TransactionStateCancelled, nil
}

func (p *SelfProvider) GetState(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (p *SelfProvider) CreateProfile(_ context.Context, _ *ProfileInput) (*ProfileOutput, error) {
	return nil, ErrOperationNotSupported
}

func (p *SelfProvider) VerifyAndParseCallback(_ context.Context, _ []byte, _ string) (*CallbackEvent, error) {
	return nil, ErrOperationNotSupported
}
