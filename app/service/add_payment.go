package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/provider"
	"github.com/vibast-solutions/ms-go-sale-payments/app/repository"
)

type addPaymentRequest interface {
	GetSaleId() uint64
	GetGatewayId() uint64
	GetAmount() decimal.Decimal
	GetSequence() int32
	GetReference() string
	GetUseExistingCard() bool
	GetPaymentProfileId() uint64
	GetOwner() string
	GetCardNumber() string
	GetExpiryMonth() int32
	GetExpiryYear() int32
	GetCsc() string
}

type PaymentDefaults struct {
	Sale           *entity.Sale
	PartyID        uint64
	Owner          string
	CurrencyDigits int32
	Amount         decimal.Decimal
}

// PaymentDefaults returns the values a new payment on the sale starts from.
func (s *SaleService) PaymentDefaults(ctx context.Context, uow *UnitOfWork, saleID uint64) (*PaymentDefaults, error) {
	sale, err := s.GetSale(ctx, uow, saleID)
	if err != nil {
		return nil, err
	}

	return &PaymentDefaults{
		Sale:           sale,
		PartyID:        sale.PartyID,
		Owner:          sale.PartyName,
		CurrencyDigits: sale.Currency.Digits,
		Amount:         suggestedPaymentAmount(sale),
	}, nil
}

// AddPayment attaches a new funding intent to a sale. Card payments either
// reuse a stored profile of the sale party or register the given card with
// the gateway first.
func (s *SaleService) AddPayment(ctx context.Context, uow *UnitOfWork, req addPaymentRequest) (*entity.SalePayment, error) {
	sale, err := s.LoadSale(ctx, uow, req.GetSaleId())
	if err != nil {
		return nil, err
	}
	if !sale.AcceptsPayments() {
		return nil, fmt.Errorf("%w: sale %d is %s", ErrInvalidState, sale.ID, sale.State)
	}

	gateway, err := uow.Gateways.FindByID(ctx, req.GetGatewayId())
	if err != nil {
		return nil, err
	}
	if gateway == nil {
		return nil, ErrGatewayNotFound
	}
	if !gateway.Active {
		return nil, fmt.Errorf("%w: gateway %d is inactive", ErrInvalidRequest, gateway.ID)
	}

	amount := req.GetAmount()
	if amount.IsZero() {
		amount = suggestedPaymentAmount(sale)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	sequence := req.GetSequence()
	if sequence <= 0 {
		sequence = entity.DefaultPaymentSequence
	}

	now := s.now()
	payment := &entity.SalePayment{
		SaleID:    sale.ID,
		Sequence:  sequence,
		Gateway:   gateway,
		Amount:    sale.Currency.Round(amount),
		CreatedAt: now,
		UpdatedAt: now,
	}

	switch gateway.Method {
	case entity.MethodManual:
		payment.Reference = normalizeOptionalString(req.GetReference())
	case entity.MethodCreditCard:
		profile, err := s.resolveProfile(ctx, uow, sale, gateway, req)
		if err != nil {
			return nil, err
		}
		payment.PaymentProfileID = &profile.ID
	default:
		return nil, fmt.Errorf("%w: unsupported payment method %q", ErrInvalidRequest, gateway.Method)
	}

	if err := uow.Payments.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			return nil, fmt.Errorf("%w: duplicate payment", ErrInvalidRequest)
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"sale_id":    sale.ID,
		"payment_id": payment.ID,
		"method":     gateway.Method,
	}).Info("sale_payment_added")
	return payment, nil
}

func (s *SaleService) resolveProfile(
	ctx context.Context,
	uow *UnitOfWork,
	sale *entity.Sale,
	gateway *entity.Gateway,
	req addPaymentRequest,
) (*entity.PaymentProfile, error) {
	if req.GetUseExistingCard() {
		if req.GetPaymentProfileId() == 0 {
			return nil, fmt.Errorf("%w: payment_profile_id is required", ErrInvalidRequest)
		}
		profile, err := uow.Profiles.FindByID(ctx, req.GetPaymentProfileId())
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, ErrProfileNotFound
		}
		if profile.PartyID != sale.PartyID || profile.GatewayID != gateway.ID {
			return nil, fmt.Errorf("%w: payment profile does not belong to the sale party and gateway", ErrInvalidRequest)
		}
		return profile, nil
	}

	number := strings.ReplaceAll(strings.TrimSpace(req.GetCardNumber()), " ", "")
	if number == "" || strings.TrimSpace(req.GetCsc()) == "" {
		return nil, fmt.Errorf("%w: card number and csc are required", ErrInvalidRequest)
	}
	if req.GetExpiryMonth() < 1 || req.GetExpiryMonth() > 12 || req.GetExpiryYear() <= 0 {
		return nil, fmt.Errorf("%w: invalid card expiry", ErrInvalidRequest)
	}

	owner := strings.TrimSpace(req.GetOwner())
	if owner == "" {
		owner = sale.PartyName
	}

	p, err := s.providerReg.Get(gateway.Provider)
	if err != nil {
		if errors.Is(err, provider.ErrProviderNotSupported) {
			return nil, fmt.Errorf("%w: %s", ErrProviderUnsupported, gateway.Provider)
		}
		return nil, err
	}

	output, err := p.CreateProfile(ctx, &provider.ProfileInput{
		PartyID:     sale.PartyID,
		PartyName:   sale.PartyName,
		OwnerName:   owner,
		Number:      number,
		ExpiryMonth: req.GetExpiryMonth(),
		ExpiryYear:  req.GetExpiryYear(),
		CSC:         strings.TrimSpace(req.GetCsc()),
	})
	if err != nil {
		if errors.Is(err, provider.ErrOperationNotSupported) {
			return nil, fmt.Errorf("%w: %s cannot store cards", ErrProviderUnsupported, gateway.Provider)
		}
		return nil, err
	}

	lastFour := output.LastFour
	if lastFour == "" && len(number) >= 4 {
		lastFour = number[len(number)-4:]
	}

	profile := &entity.PaymentProfile{
		PartyID:            sale.PartyID,
		GatewayID:          gateway.ID,
		AddressID:          sale.InvoiceAddressID,
		Name:               owner,
		LastFour:           lastFour,
		ExpiryMonth:        req.GetExpiryMonth(),
		ExpiryYear:         req.GetExpiryYear(),
		ProviderCustomerID: output.ProviderCustomerID,
		ProviderReference:  output.ProviderReference,
		CreatedAt:          s.now(),
	}
	if err := uow.Profiles.Create(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func suggestedPaymentAmount(sale *entity.Sale) decimal.Decimal {
	amount := sale.AmountToReceive().Sub(sale.PaymentTotal())
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
