package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/provider"
)

const (
	defaultAuthorizeDescription = "Auto charge from payment"
	proceedDescription          = "Processing Sale"
)

type SaleService struct {
	transactions *TransactionService
	providerReg  *provider.Registry
	logger       logrus.FieldLogger
	now          func() time.Time
}

func NewSaleService(transactions *TransactionService, providerReg *provider.Registry, logger logrus.FieldLogger) *SaleService {
	return &SaleService{
		transactions: transactions,
		providerReg:  providerReg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// LoadSale reads the sale aggregate and locks the sale row for the rest of
// the unit of work.
func (s *SaleService) LoadSale(ctx context.Context, uow *UnitOfWork, saleID uint64) (*entity.Sale, error) {
	return s.loadSale(ctx, uow, saleID, true)
}

func (s *SaleService) GetSale(ctx context.Context, uow *UnitOfWork, saleID uint64) (*entity.Sale, error) {
	return s.loadSale(ctx, uow, saleID, false)
}

func (s *SaleService) loadSale(ctx context.Context, uow *UnitOfWork, saleID uint64, forUpdate bool) (*entity.Sale, error) {
	var (
		sale *entity.Sale
		err  error
	)
	if forUpdate {
		sale, err = uow.Sales.FindByIDForUpdate(ctx, saleID)
	} else {
		sale, err = uow.Sales.FindByID(ctx, saleID)
	}
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, ErrSaleNotFound
	}

	if sale.Payments, err = uow.Payments.ListBySale(ctx, sale.ID); err != nil {
		return nil, err
	}
	txns, err := uow.Transactions.ListBySale(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	if sale.Invoices, err = uow.Invoices.ListBySale(ctx, sale.ID); err != nil {
		return nil, err
	}

	sale.Transactions = make([]*entity.Transaction, 0, len(txns))
	for _, txn := range txns {
		sale.AttachTransaction(txn)
	}
	return sale, nil
}

// AuthorizePayment authorizes amount from a single sale payment.
func (s *SaleService) AuthorizePayment(ctx context.Context, uow *UnitOfWork, paymentID uint64, amount decimal.Decimal, description string) (*entity.Transaction, error) {
	payment, err := uow.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	sale, err := s.LoadSale(ctx, uow, payment.SaleID)
	if err != nil {
		return nil, err
	}
	payment = sale.Payment(paymentID)
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	return s.authorizePayment(ctx, uow, sale, payment, amount, description)
}

func (s *SaleService) authorizePayment(
	ctx context.Context,
	uow *UnitOfWork,
	sale *entity.Sale,
	payment *entity.SalePayment,
	amount decimal.Decimal,
	description string,
) (*entity.Transaction, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}

	remaining := payment.AmountRemaining()
	if amount.GreaterThan(remaining) {
		return nil, &InsufficientFundsError{
			Scope:     FundsScopePayment,
			ID:        payment.ID,
			Requested: amount,
			Ceiling:   payment.Amount,
			Remaining: remaining,
			Count:     len(payment.Transactions),
		}
	}

	// Holds on a superseded card never exceed what is left on it. The funds
	// check above already enforces this for every payment.
	if payment.Method() == entity.MethodCreditCard {
		if last := sale.LastCardPayment(); last != nil && last.ID != payment.ID {
			amount = decimal.Min(amount, remaining)
		}
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = defaultAuthorizeDescription
	}

	addressID := sale.InvoiceAddressID
	if payment.PaymentProfileID != nil {
		profile, err := uow.Profiles.FindByID(ctx, *payment.PaymentProfileID)
		if err != nil {
			return nil, err
		}
		if profile != nil && profile.AddressID != nil {
			addressID = profile.AddressID
		}
	}

	paymentID := payment.ID
	txn := &entity.Transaction{
		SaleID:            sale.ID,
		PaymentID:         &paymentID,
		Gateway:           payment.Gateway,
		PaymentProfileID:  payment.PaymentProfileID,
		PartyID:           sale.PartyID,
		AddressID:         addressID,
		Description:       description,
		Date:              s.now(),
		Amount:            sale.Currency.Round(amount),
		Currency:          sale.Currency,
		ProviderReference: payment.Reference,
	}
	if err := s.transactions.Create(ctx, uow, txn); err != nil {
		return nil, err
	}
	sale.AttachTransaction(txn)

	if err := s.transactions.Authorize(ctx, uow, []*entity.Transaction{txn}); err != nil {
		return nil, err
	}
	return txn, nil
}

func (s *SaleService) AuthorizeFromSalePayments(ctx context.Context, uow *UnitOfWork, saleID uint64, amount decimal.Decimal, description string) ([]*entity.Transaction, error) {
	sale, err := s.LoadSale(ctx, uow, saleID)
	if err != nil {
		return nil, err
	}
	return s.AuthorizeFromSale(ctx, uow, sale, amount, description)
}

// AuthorizeFromSale spreads amount over the sale payments, drawing manual
// funds before card holds. Nothing is created when the sale cannot cover the
// full amount.
func (s *SaleService) AuthorizeFromSale(ctx context.Context, uow *UnitOfWork, sale *entity.Sale, amount decimal.Decimal, description string) ([]*entity.Transaction, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidRequest)
	}
	if amount.IsZero() {
		return []*entity.Transaction{}, nil
	}

	remaining := sale.PaymentRemaining()
	if amount.GreaterThan(remaining) {
		return nil, &InsufficientFundsError{
			Scope:     FundsScopeSale,
			ID:        sale.ID,
			Requested: amount,
			Ceiling:   sale.PaymentTotal(),
			Remaining: remaining,
			Count:     len(sale.Payments),
		}
	}

	needed := amount
	txns := make([]*entity.Transaction, 0)
	for _, payment := range sortPaymentsByMethod(sale.Payments) {
		if !needed.IsPositive() {
			break
		}
		available := payment.AmountRemaining()
		if !available.IsPositive() {
			continue
		}

		take := decimal.Min(needed, available)
		txn, err := s.authorizePayment(ctx, uow, sale, payment, take, description)
		if err != nil {
			s.releaseHolds(ctx, uow, txns)
			return nil, err
		}
		txns = append(txns, txn)
		needed = needed.Sub(take)
	}

	return txns, nil
}

// releaseHolds voids the holds of a batch that is being abandoned. The unit of
// work rolls back afterwards, so a hold that cannot be voided is logged with
// its provider reference for manual repair.
func (s *SaleService) releaseHolds(ctx context.Context, uow *UnitOfWork, txns []*entity.Transaction) {
	if len(txns) == 0 {
		return
	}
	err := s.transactions.Cancel(ctx, uow, txns)
	if err == nil {
		return
	}
	for _, txn := range txns {
		if txn.State != entity.TransactionStatePending && txn.State != entity.TransactionStateAuthorized {
			continue
		}
		s.logger.WithError(err).WithFields(logrus.Fields{
			"transaction_uuid":   txn.UUID,
			"provider":           txn.Provider(),
			"provider_reference": stringValue(txn.ProviderReference),
		}).Error("transaction_hold_orphaned")
	}
}

// CancelPayments cancels every live transaction of the given payments in a
// single batch.
func (s *SaleService) CancelPayments(ctx context.Context, uow *UnitOfWork, paymentIDs []uint64) ([]*entity.Transaction, error) {
	payments, err := s.lockPayments(ctx, uow, paymentIDs)
	if err != nil {
		return nil, err
	}

	txns, err := uow.Transactions.ListByPaymentIDs(ctx, paymentIDsOf(payments))
	if err != nil {
		return nil, err
	}
	if err := s.transactions.Cancel(ctx, uow, txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// DeletePayments removes payments that never had funds drawn from them. A
// single consumed payment blocks the whole batch.
func (s *SaleService) DeletePayments(ctx context.Context, uow *UnitOfWork, paymentIDs []uint64) error {
	payments, err := s.lockPayments(ctx, uow, paymentIDs)
	if err != nil {
		return err
	}

	ids := paymentIDsOf(payments)
	txns, err := uow.Transactions.ListByPaymentIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uint64]*entity.SalePayment, len(payments))
	for _, payment := range payments {
		byID[payment.ID] = payment
	}
	for _, txn := range txns {
		if txn.PaymentID == nil {
			continue
		}
		if payment, ok := byID[*txn.PaymentID]; ok {
			payment.Transactions = append(payment.Transactions, txn)
		}
	}

	for _, payment := range payments {
		if consumed := payment.AmountConsumed(); !consumed.IsZero() {
			return fmt.Errorf("%w: payment %d has consumed %s", ErrDeletionConflict, payment.ID, consumed)
		}
	}

	_, err = uow.Payments.DeleteByIDs(ctx, ids)
	return err
}

// Proceed moves a confirmed sale to processing and authorizes its total from
// the sale payments.
func (s *SaleService) Proceed(ctx context.Context, uow *UnitOfWork, saleID uint64) (*entity.Sale, []*entity.Transaction, error) {
	sale, err := s.LoadSale(ctx, uow, saleID)
	if err != nil {
		return nil, nil, err
	}
	if sale.State != entity.SaleStateConfirmed {
		return nil, nil, fmt.Errorf("%w: sale %d is %s", ErrInvalidState, sale.ID, sale.State)
	}

	sale.State = entity.SaleStateProcessing
	sale.UpdatedAt = s.now()
	if err := uow.Sales.UpdateState(ctx, sale); err != nil {
		return nil, nil, err
	}

	txns, err := s.AuthorizeFromSale(ctx, uow, sale, sale.TotalAmount, proceedDescription)
	if err != nil {
		return nil, nil, err
	}
	return sale, txns, nil
}

func (s *SaleService) lockPayments(ctx context.Context, uow *UnitOfWork, paymentIDs []uint64) ([]*entity.SalePayment, error) {
	ids := uniqueIDs(paymentIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: payment_ids is required", ErrInvalidRequest)
	}

	payments, err := uow.Payments.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(payments) != len(ids) {
		return nil, ErrPaymentNotFound
	}

	locked := make(map[uint64]bool)
	for _, payment := range payments {
		if locked[payment.SaleID] {
			continue
		}
		sale, err := uow.Sales.FindByIDForUpdate(ctx, payment.SaleID)
		if err != nil {
			return nil, err
		}
		if sale == nil {
			return nil, ErrSaleNotFound
		}
		locked[payment.SaleID] = true
	}
	return payments, nil
}

// sortPaymentsByMethod returns a copy ordered manual first; ties keep sale
// order.
func sortPaymentsByMethod(payments []*entity.SalePayment) []*entity.SalePayment {
	sorted := make([]*entity.SalePayment, len(payments))
	copy(sorted, payments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return entity.MethodPriority(sorted[i].Method()) < entity.MethodPriority(sorted[j].Method())
	})
	return sorted
}

func sortTransactionsByMethod(txns []*entity.Transaction) []*entity.Transaction {
	sorted := make([]*entity.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return entity.MethodPriority(sorted[i].Method()) < entity.MethodPriority(sorted[j].Method())
	})
	return sorted
}

func paymentIDsOf(payments []*entity.SalePayment) []uint64 {
	ids := make([]uint64, 0, len(payments))
	for _, payment := range payments {
		ids = append(ids, payment.ID)
	}
	return ids
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
