package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/events"
	"github.com/vibast-solutions/ms-go-sale-payments/app/provider"
	"github.com/vibast-solutions/ms-go-sale-payments/app/repository"
)

type eventPublisher interface {
	Publish(ctx context.Context, topic, key string, payload interface{}) error
}

// TransactionService drives gateway transactions through their providers and
// persists every state change through the caller's unit of work.
type TransactionService struct {
	providerReg *provider.Registry
	publisher   eventPublisher
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewTransactionService(providerReg *provider.Registry, publisher eventPublisher, logger logrus.FieldLogger) *TransactionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &TransactionService{
		providerReg: providerReg,
		publisher:   publisher,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new pending transaction.
func (s *TransactionService) Create(ctx context.Context, uow *UnitOfWork, txn *entity.Transaction) error {
	if txn.Gateway == nil {
		return fmt.Errorf("%w: transaction gateway is required", ErrInvalidRequest)
	}
	if !txn.Amount.IsPositive() {
		return fmt.Errorf("%w: transaction amount must be positive", ErrInvalidRequest)
	}

	now := s.now()
	txn.UUID = uuid.NewString()
	txn.State = entity.TransactionStatePending
	if txn.Date.IsZero() {
		txn.Date = now
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now

	if err := uow.Transactions.Create(ctx, txn); err != nil {
		if errors.Is(err, repository.ErrTransactionAlreadyExists) {
			return fmt.Errorf("%w: duplicate transaction uuid", ErrInvalidRequest)
		}
		return err
	}

	_ = uow.Events.Create(ctx, &entity.TransactionEvent{
		TransactionID: txn.ID,
		EventType:     "transaction_created",
		NewState:      txn.State,
		CreatedAt:     now,
	})
	return nil
}

// Authorize asks the provider to hold funds for each pending transaction. A
// declined authorization leaves the transaction failed; a provider error
// aborts the whole batch.
func (s *TransactionService) Authorize(ctx context.Context, uow *UnitOfWork, txns []*entity.Transaction) error {
	for _, txn := range txns {
		if txn.State != entity.TransactionStatePending {
			continue
		}

		p, err := s.providerFor(txn)
		if err != nil {
			return err
		}

		input := &provider.AuthorizeInput{
			TransactionUUID: txn.UUID,
			Description:     txn.Description,
			AmountMinor:     txn.Currency.MinorUnits(txn.Amount),
			Currency:        txn.Currency.Code,
		}
		if txn.PaymentProfileID != nil {
			profile, err := uow.Profiles.FindByID(ctx, *txn.PaymentProfileID)
			if err != nil {
				return err
			}
			if profile != nil {
				input.ProviderCustomerID = profile.ProviderCustomerID
				input.ProviderPaymentMethodID = profile.ProviderReference
			}
		}

		output, err := p.Authorize(ctx, input)
		if err != nil {
			s.logger.WithError(err).WithField("transaction_uuid", txn.UUID).Error("transaction_authorize_failed")
			return fmt.Errorf("authorize transaction %s: %w", txn.UUID, err)
		}
		if output.ProviderReference != nil {
			txn.ProviderReference = output.ProviderReference
		}
		if err := s.transition(ctx, uow, txn, output.State, "transaction_authorized"); err != nil {
			return err
		}
		if txn.State == entity.TransactionStateFailed {
			s.logger.WithField("transaction_uuid", txn.UUID).Info("transaction_declined")
		}
	}
	return nil
}

// Settle captures authorized transactions for their current amount.
func (s *TransactionService) Settle(ctx context.Context, uow *UnitOfWork, txns []*entity.Transaction) (err error) {
	captured := make([]*entity.Transaction, 0, len(txns))
	defer func() {
		if err == nil {
			return
		}
		// Captures already made cannot be undone by the rollback that follows.
		for _, txn := range captured {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"transaction_uuid":   txn.UUID,
				"provider_reference": stringValue(txn.ProviderReference),
				"amount":             txn.Amount.String(),
			}).Error("transaction_capture_unrecorded")
		}
	}()

	for _, txn := range txns {
		switch txn.State {
		case entity.TransactionStateCompleted, entity.TransactionStatePosted:
			continue
		case entity.TransactionStateAuthorized:
		default:
			return fmt.Errorf("%w: transaction %s is %s and cannot be settled", ErrInvalidState, txn.UUID, txn.State)
		}

		p, err := s.providerFor(txn)
		if err != nil {
			return err
		}

		state, err := p.Capture(ctx, &provider.CaptureInput{
			TransactionUUID:   txn.UUID,
			ProviderReference: txn.ProviderReference,
			AmountMinor:       txn.Currency.MinorUnits(txn.Amount),
			Currency:          txn.Currency.Code,
		})
		if err != nil {
			return fmt.Errorf("settle transaction %s: %w", txn.UUID, err)
		}
		captured = append(captured, txn)
		if err := s.transition(ctx, uow, txn, state, "transaction_settled"); err != nil {
			return err
		}
	}
	return nil
}

// Cancel releases pending and authorized transactions. Transactions in any
// other state are left alone.
func (s *TransactionService) Cancel(ctx context.Context, uow *UnitOfWork, txns []*entity.Transaction) error {
	for _, txn := range txns {
		if txn.State != entity.TransactionStatePending && txn.State != entity.TransactionStateAuthorized {
			continue
		}

		p, err := s.providerFor(txn)
		if err != nil {
			return err
		}

		state, err := p.Cancel(ctx, &provider.CancelInput{
			TransactionUUID:   txn.UUID,
			ProviderReference: txn.ProviderReference,
		})
		if err != nil {
			return fmt.Errorf("cancel transaction %s: %w", txn.UUID, err)
		}
		if err := s.transition(ctx, uow, txn, state, "transaction_cancelled"); err != nil {
			return err
		}
	}
	return nil
}

// Post marks a captured transaction as applied to an invoice.
func (s *TransactionService) Post(ctx context.Context, uow *UnitOfWork, txn *entity.Transaction) error {
	if txn.State != entity.TransactionStateCompleted {
		return fmt.Errorf("%w: transaction %s is %s and cannot be posted", ErrInvalidState, txn.UUID, txn.State)
	}
	return s.transition(ctx, uow, txn, entity.TransactionStatePosted, "transaction_posted")
}

// UpdateAmount shrinks an authorized transaction before it is settled.
func (s *TransactionService) UpdateAmount(ctx context.Context, uow *UnitOfWork, txn *entity.Transaction) error {
	if txn.State != entity.TransactionStateAuthorized && txn.State != entity.TransactionStatePending {
		return fmt.Errorf("%w: transaction %s amount is final", ErrInvalidState, txn.UUID)
	}
	txn.UpdatedAt = s.now()
	return uow.Transactions.Update(ctx, txn)
}

// ApplyProviderState records a state reported by the provider outside of a
// direct call, such as a webhook or a reconcile read.
func (s *TransactionService) ApplyProviderState(
	ctx context.Context,
	uow *UnitOfWork,
	txn *entity.Transaction,
	state string,
	eventType string,
	providerEventID *string,
	payloadJSON *string,
) (bool, error) {
	if state == "" || state == txn.State {
		return false, nil
	}
	if !txn.CanTransitionTo(state) {
		s.logger.WithFields(logrus.Fields{
			"transaction_uuid": txn.UUID,
			"from":             txn.State,
			"to":               state,
		}).Warn("provider_state_ignored")
		return false, nil
	}
	return true, s.record(ctx, uow, txn, state, eventType, providerEventID, payloadJSON)
}

func (s *TransactionService) transition(ctx context.Context, uow *UnitOfWork, txn *entity.Transaction, state, eventType string) error {
	if state == "" || state == txn.State {
		txn.UpdatedAt = s.now()
		return uow.Transactions.Update(ctx, txn)
	}
	if !txn.CanTransitionTo(state) {
		return fmt.Errorf("%w: transaction %s cannot move from %s to %s", ErrInvalidState, txn.UUID, txn.State, state)
	}
	return s.record(ctx, uow, txn, state, eventType, nil, nil)
}

func (s *TransactionService) record(
	ctx context.Context,
	uow *UnitOfWork,
	txn *entity.Transaction,
	state string,
	eventType string,
	providerEventID *string,
	payloadJSON *string,
) error {
	now := s.now()
	oldState := txn.State
	txn.State = state
	txn.UpdatedAt = now

	if err := uow.Transactions.Update(ctx, txn); err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}

	_ = uow.Events.Create(ctx, &entity.TransactionEvent{
		TransactionID:   txn.ID,
		EventType:       eventType,
		OldState:        &oldState,
		NewState:        state,
		ProviderEventID: providerEventID,
		PayloadJSON:     payloadJSON,
		CreatedAt:       now,
	})

	switch state {
	case entity.TransactionStateCompleted:
		s.publishAfterCommit(uow, events.TopicTransactionSettled, txn, now)
	case entity.TransactionStateCancelled:
		s.publishAfterCommit(uow, events.TopicTransactionCancelled, txn, now)
	}
	return nil
}

func (s *TransactionService) publishAfterCommit(uow *UnitOfWork, topic string, txn *entity.Transaction, at time.Time) {
	payload := events.NewTransactionPayload(txn, at)
	uow.AfterCommit(func() {
		if err := s.publisher.Publish(context.Background(), topic, payload.UUID, payload); err != nil {
			s.logger.WithError(err).WithField("topic", topic).Error("event_publish_failed")
		}
	})
}

func (s *TransactionService) providerFor(txn *entity.Transaction) (provider.Provider, error) {
	p, err := s.providerReg.Get(txn.Provider())
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnsupported, txn.Provider())
		}
		return nil, err
	}
	return p, nil
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
