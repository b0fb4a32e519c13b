package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/provider"
)

type handleGatewayCallbackRequest interface {
	GetProvider() string
	GetSignature() string
	GetPayload() string
}

// HandleGatewayCallback applies a provider webhook to the matching
// transaction. Every callback is logged, rejected ones included; a nil
// transaction means the event carried nothing to apply.
func (s *TransactionService) HandleGatewayCallback(ctx context.Context, uow *UnitOfWork, req handleGatewayCallbackRequest) (*entity.Transaction, error) {
	providerName := strings.ToLower(strings.TrimSpace(req.GetProvider()))
	p, err := s.providerReg.Get(providerName)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, ErrProviderUnsupported
		}
		return nil, err
	}

	payload := []byte(req.GetPayload())
	signature := strings.TrimSpace(req.GetSignature())
	event, err := p.VerifyAndParseCallback(ctx, payload, signature)
	if err != nil {
		s.persistRejectedCallback(ctx, uow, nil, req, fmt.Sprintf("provider callback validation failed: %v", err))
		return nil, ErrCallbackRejected
	}
	if event == nil {
		s.persistRejectedCallback(ctx, uow, nil, req, "provider callback payload could not be parsed")
		return nil, ErrCallbackRejected
	}

	if event.NewState == "" || event.ProviderReference == nil {
		return nil, s.persistCallback(ctx, uow, nil, req)
	}

	txn, err := uow.Transactions.FindByProviderReference(ctx, providerName, *event.ProviderReference)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		s.persistRejectedCallback(ctx, uow, nil, req, "transaction not found for provider reference")
		return nil, ErrTransactionNotFound
	}

	eventType := strings.TrimSpace(event.EventType)
	if eventType == "" {
		eventType = "provider_callback"
	}
	payloadJSON := string(payload)
	if _, err := s.ApplyProviderState(ctx, uow, txn, event.NewState, eventType, event.ProviderEventID, &payloadJSON); err != nil {
		return nil, err
	}

	if err := s.persistCallback(ctx, uow, &txn.ID, req); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *TransactionService) persistCallback(ctx context.Context, uow *UnitOfWork, transactionID *uint64, req handleGatewayCallbackRequest) error {
	return uow.Callbacks.Create(ctx, &entity.GatewayCallback{
		TransactionID: transactionID,
		Provider:      strings.ToLower(strings.TrimSpace(req.GetProvider())),
		Signature:     strings.TrimSpace(req.GetSignature()),
		PayloadJSON:   req.GetPayload(),
		Status:        entity.GatewayCallbackProcessed,
		CreatedAt:     s.now(),
	})
}

func (s *TransactionService) persistRejectedCallback(
	ctx context.Context,
	uow *UnitOfWork,
	transactionID *uint64,
	req handleGatewayCallbackRequest,
	reason string,
) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "callback rejected"
	}
	trimmedErr := truncate(reason, 1024)
	_ = uow.Callbacks.Create(ctx, &entity.GatewayCallback{
		TransactionID: transactionID,
		Provider:      strings.ToLower(strings.TrimSpace(req.GetProvider())),
		Signature:     strings.TrimSpace(req.GetSignature()),
		PayloadJSON:   req.GetPayload(),
		Status:        entity.GatewayCallbackRejected,
		Error:         &trimmedErr,
		CreatedAt:     s.now(),
	})
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max]
}

// IsCallbackRejection reports whether a callback error still leaves a log row
// that the caller should commit.
func IsCallbackRejection(err error) bool {
	return errors.Is(err, ErrCallbackRejected) || errors.Is(err, ErrTransactionNotFound)
}
