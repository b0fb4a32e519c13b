package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/provider"
	"github.com/vibast-solutions/ms-go-sale-payments/app/repository"
)

var usd = entity.Currency{Code: "USD", Digits: 2}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// memStore backs every repository of a unit of work with maps. It is not
// transactional; fakeTx only records how the unit of work was finished.
type memStore struct {
	nextID uint64

	sales           map[uint64]*entity.Sale
	payments        map[uint64]*entity.SalePayment
	transactions    map[uint64]*entity.Transaction
	gateways        map[uint64]*entity.Gateway
	profiles        map[uint64]*entity.PaymentProfile
	invoices        map[uint64]*entity.Invoice
	invoicePayments []*entity.InvoicePayment
	events          []*entity.TransactionEvent
	callbacks       []*entity.GatewayCallback

	txs []*fakeTx
}

func newMemStore() *memStore {
	return &memStore{
		nextID:       1,
		sales:        map[uint64]*entity.Sale{},
		payments:     map[uint64]*entity.SalePayment{},
		transactions: map[uint64]*entity.Transaction{},
		gateways:     map[uint64]*entity.Gateway{},
		profiles:     map[uint64]*entity.PaymentProfile{},
		invoices:     map[uint64]*entity.Invoice{},
	}
}

func (s *memStore) id() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *memStore) repositories() Repositories {
	return Repositories{
		Sales:        memSaleRepo{s},
		Payments:     memPaymentRepo{s},
		Transactions: memTransactionRepo{s},
		Gateways:     memGatewayRepo{s},
		Profiles:     memProfileRepo{s},
		Invoices:     memInvoiceRepo{s},
		Events:       memEventRepo{s},
		Callbacks:    memCallbackRepo{s},
	}
}

func (s *memStore) uow() *UnitOfWork {
	tx := &fakeTx{}
	s.txs = append(s.txs, tx)
	return NewUnitOfWork(tx, s.repositories())
}

func (s *memStore) factory() UnitOfWorkFactory {
	return func(context.Context) (*UnitOfWork, error) {
		return s.uow(), nil
	}
}

func (s *memStore) lastTx() *fakeTx {
	if len(s.txs) == 0 {
		return nil
	}
	return s.txs[len(s.txs)-1]
}

func (s *memStore) addGateway(method, providerName string) *entity.Gateway {
	gw := &entity.Gateway{
		ID:       s.id(),
		Name:     method + " via " + providerName,
		Provider: providerName,
		Method:   method,
		Active:   true,
	}
	s.gateways[gw.ID] = gw
	return gw
}

func (s *memStore) addSale(total string, state string) *entity.Sale {
	address := uint64(500)
	sale := &entity.Sale{
		ID:               s.id(),
		PartyID:          77,
		PartyName:        "Jane Buyer",
		InvoiceAddressID: &address,
		Currency:         usd,
		TotalAmount:      dec(total),
		State:            state,
	}
	sale.Reference = fmt.Sprintf("SO%d", sale.ID)
	s.sales[sale.ID] = sale
	return sale
}

func (s *memStore) addPayment(sale *entity.Sale, gw *entity.Gateway, amount string, sequence int32) *entity.SalePayment {
	payment := &entity.SalePayment{
		ID:       s.id(),
		SaleID:   sale.ID,
		Sequence: sequence,
		Gateway:  gw,
		Amount:   dec(amount),
	}
	s.payments[payment.ID] = payment
	return payment
}

func (s *memStore) addTransaction(payment *entity.SalePayment, amount, state string) *entity.Transaction {
	paymentID := payment.ID
	ref := fmt.Sprintf("ref_%d", s.nextID)
	txn := &entity.Transaction{
		ID:                s.id(),
		SaleID:            payment.SaleID,
		PaymentID:         &paymentID,
		Gateway:           payment.Gateway,
		Amount:            dec(amount),
		Currency:          usd,
		State:             state,
		ProviderReference: &ref,
	}
	txn.UUID = fmt.Sprintf("uuid-%d", txn.ID)
	s.transactions[txn.ID] = txn
	return txn
}

func (s *memStore) addInvoice(sale *entity.Sale, invoiceType, total string) *entity.Invoice {
	invoice := &entity.Invoice{
		ID:          s.id(),
		SaleID:      sale.ID,
		Type:        invoiceType,
		State:       entity.InvoiceStateOpen,
		Currency:    usd,
		TotalAmount: dec(total),
		AmountPaid:  decimal.Zero,
	}
	invoice.Number = fmt.Sprintf("%s/%d", sale.Reference, invoice.ID)
	s.invoices[invoice.ID] = invoice
	return invoice
}

func (s *memStore) eventTypes() []string {
	out := make([]string, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *fakeTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback() error {
	t.rolledBack = true
	return nil
}

type memSaleRepo struct{ s *memStore }

func (r memSaleRepo) FindByID(_ context.Context, id uint64) (*entity.Sale, error) {
	item, ok := r.s.sales[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	copyItem.Payments = nil
	copyItem.Transactions = nil
	copyItem.Invoices = nil
	return &copyItem, nil
}

func (r memSaleRepo) FindByIDForUpdate(ctx context.Context, id uint64) (*entity.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r memSaleRepo) UpdateState(_ context.Context, sale *entity.Sale) error {
	item, ok := r.s.sales[sale.ID]
	if !ok {
		return repository.ErrSaleNotFound
	}
	item.State = sale.State
	item.UpdatedAt = sale.UpdatedAt
	return nil
}

type memPaymentRepo struct{ s *memStore }

func (r memPaymentRepo) Create(_ context.Context, payment *entity.SalePayment) error {
	payment.ID = r.s.id()
	copyItem := *payment
	copyItem.Transactions = nil
	r.s.payments[payment.ID] = &copyItem
	return nil
}

func (r memPaymentRepo) FindByID(_ context.Context, id uint64) (*entity.SalePayment, error) {
	item, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	copyItem.Transactions = nil
	return &copyItem, nil
}

func (r memPaymentRepo) ListBySale(_ context.Context, saleID uint64) ([]*entity.SalePayment, error) {
	items := make([]*entity.SalePayment, 0)
	for _, item := range r.s.payments {
		if item.SaleID == saleID {
			copyItem := *item
			copyItem.Transactions = nil
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Sequence != items[j].Sequence {
			return items[i].Sequence < items[j].Sequence
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (r memPaymentRepo) ListByIDs(_ context.Context, ids []uint64) ([]*entity.SalePayment, error) {
	items := make([]*entity.SalePayment, 0, len(ids))
	for _, id := range ids {
		if item, ok := r.s.payments[id]; ok {
			copyItem := *item
			copyItem.Transactions = nil
			items = append(items, &copyItem)
		}
	}
	return items, nil
}

func (r memPaymentRepo) DeleteByIDs(_ context.Context, ids []uint64) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if _, ok := r.s.payments[id]; ok {
			delete(r.s.payments, id)
			deleted++
		}
	}
	return deleted, nil
}

type memTransactionRepo struct{ s *memStore }

func (r memTransactionRepo) Create(_ context.Context, txn *entity.Transaction) error {
	for _, item := range r.s.transactions {
		if item.UUID == txn.UUID {
			return repository.ErrTransactionAlreadyExists
		}
	}
	txn.ID = r.s.id()
	copyItem := *txn
	r.s.transactions[txn.ID] = &copyItem
	return nil
}

func (r memTransactionRepo) Update(_ context.Context, txn *entity.Transaction) error {
	if _, ok := r.s.transactions[txn.ID]; !ok {
		return repository.ErrTransactionNotFound
	}
	copyItem := *txn
	r.s.transactions[txn.ID] = &copyItem
	return nil
}

func (r memTransactionRepo) FindByID(_ context.Context, id uint64) (*entity.Transaction, error) {
	item, ok := r.s.transactions[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r memTransactionRepo) FindByProviderReference(_ context.Context, providerName, reference string) (*entity.Transaction, error) {
	for _, item := range r.s.transactions {
		if item.Provider() == providerName && item.ProviderReference != nil && *item.ProviderReference == reference {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r memTransactionRepo) list(include func(*entity.Transaction) bool, limit int32) []*entity.Transaction {
	items := make([]*entity.Transaction, 0)
	for _, item := range r.s.transactions {
		if include(item) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

func (r memTransactionRepo) ListBySale(_ context.Context, saleID uint64) ([]*entity.Transaction, error) {
	return r.list(func(t *entity.Transaction) bool { return t.SaleID == saleID }, 0), nil
}

func (r memTransactionRepo) ListByPaymentIDs(_ context.Context, paymentIDs []uint64) ([]*entity.Transaction, error) {
	wanted := make(map[uint64]bool, len(paymentIDs))
	for _, id := range paymentIDs {
		wanted[id] = true
	}
	return r.list(func(t *entity.Transaction) bool {
		return t.PaymentID != nil && wanted[*t.PaymentID]
	}, 0), nil
}

func (r memTransactionRepo) ListForReconcile(_ context.Context, before time.Time, limit int32) ([]*entity.Transaction, error) {
	return r.list(func(t *entity.Transaction) bool {
		return t.State == entity.TransactionStateAuthorized &&
			t.Provider() != entity.ProviderSelf &&
			t.ProviderReference != nil &&
			!t.UpdatedAt.After(before)
	}, limit), nil
}

func (r memTransactionRepo) ListExpiredPending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error) {
	return r.list(func(t *entity.Transaction) bool {
		return t.State == entity.TransactionStatePending && !t.CreatedAt.After(cutoff)
	}, limit), nil
}

type memGatewayRepo struct{ s *memStore }

func (r memGatewayRepo) FindByID(_ context.Context, id uint64) (*entity.Gateway, error) {
	item, ok := r.s.gateways[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type memProfileRepo struct{ s *memStore }

func (r memProfileRepo) Create(_ context.Context, profile *entity.PaymentProfile) error {
	profile.ID = r.s.id()
	copyItem := *profile
	r.s.profiles[profile.ID] = &copyItem
	return nil
}

func (r memProfileRepo) FindByID(_ context.Context, id uint64) (*entity.PaymentProfile, error) {
	item, ok := r.s.profiles[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

type memInvoiceRepo struct{ s *memStore }

func (r memInvoiceRepo) Create(_ context.Context, invoice *entity.Invoice) error {
	invoice.ID = r.s.id()
	copyItem := *invoice
	r.s.invoices[invoice.ID] = &copyItem
	return nil
}

func (r memInvoiceRepo) Update(_ context.Context, invoice *entity.Invoice) error {
	if _, ok := r.s.invoices[invoice.ID]; !ok {
		return repository.ErrInvoiceNotFound
	}
	copyItem := *invoice
	r.s.invoices[invoice.ID] = &copyItem
	return nil
}

func (r memInvoiceRepo) FindByIDForUpdate(_ context.Context, id uint64) (*entity.Invoice, error) {
	item, ok := r.s.invoices[id]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r memInvoiceRepo) ListBySale(_ context.Context, saleID uint64) ([]*entity.Invoice, error) {
	items := make([]*entity.Invoice, 0)
	for _, item := range r.s.invoices {
		if item.SaleID == saleID {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r memInvoiceRepo) ListDueForAutoPay(_ context.Context, limit int32) ([]*entity.Invoice, error) {
	items := make([]*entity.Invoice, 0)
	for _, item := range r.s.invoices {
		if item.Type == entity.InvoiceTypeOut && item.State == entity.InvoiceStateOpen && item.TotalAmount.GreaterThan(item.AmountPaid) {
			copyItem := *item
			items = append(items, &copyItem)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (r memInvoiceRepo) CreatePayment(_ context.Context, line *entity.InvoicePayment) error {
	line.ID = r.s.id()
	copyItem := *line
	r.s.invoicePayments = append(r.s.invoicePayments, &copyItem)
	return nil
}

type memEventRepo struct{ s *memStore }

func (r memEventRepo) Create(_ context.Context, event *entity.TransactionEvent) error {
	event.ID = r.s.id()
	copyItem := *event
	r.s.events = append(r.s.events, &copyItem)
	return nil
}

type memCallbackRepo struct{ s *memStore }

func (r memCallbackRepo) Create(_ context.Context, callback *entity.GatewayCallback) error {
	callback.ID = r.s.id()
	copyItem := *callback
	r.s.callbacks = append(r.s.callbacks, &copyItem)
	return nil
}

// fakeCardProvider answers as the stripe provider. authorizeStates is
// consumed one per authorization; once empty every hold is authorized.
// authorizeErr and captureErr are returned by every call, or only by the call
// numbered by authorizeErrAt or captureErrAt when that is set.
type fakeCardProvider struct {
	authorizeStates []string
	authorizeErr    error
	authorizeErrAt  int
	captureErr      error
	captureErrAt    int
	remoteState     string
	callbackEvent   *provider.CallbackEvent
	callbackErr     error

	authorized []*provider.AuthorizeInput
	captured   []*provider.CaptureInput
	cancelled  []*provider.CancelInput
	profiles   []*provider.ProfileInput
}

func (p *fakeCardProvider) Name() string {
	return entity.ProviderStripe
}

func (p *fakeCardProvider) Authorize(_ context.Context, input *provider.AuthorizeInput) (*provider.AuthorizeOutput, error) {
	p.authorized = append(p.authorized, input)
	if p.authorizeErr != nil && (p.authorizeErrAt == 0 || p.authorizeErrAt == len(p.authorized)) {
		return nil, p.authorizeErr
	}
	state := entity.TransactionStateAuthorized
	if len(p.authorizeStates) > 0 {
		state = p.authorizeStates[0]
		p.authorizeStates = p.authorizeStates[1:]
	}
	ref := fmt.Sprintf("pi_%d", len(p.authorized))
	return &provider.AuthorizeOutput{State: state, ProviderReference: &ref}, nil
}

func (p *fakeCardProvider) Capture(_ context.Context, input *provider.CaptureInput) (string, error) {
	if p.captureErr != nil && (p.captureErrAt == 0 || p.captureErrAt == len(p.captured)+1) {
		return "", p.captureErr
	}
	p.captured = append(p.captured, input)
	return entity.TransactionStateCompleted, nil
}

func (p *fakeCardProvider) Cancel(_ context.Context, input *provider.CancelInput) (string, error) {
	p.cancelled = append(p.cancelled, input)
	return entity.TransactionStateCancelled, nil
}

func (p *fakeCardProvider) GetState(_ context.Context, _ string) (string, error) {
	return p.remoteState, nil
}

func (p *fakeCardProvider) CreateProfile(_ context.Context, input *provider.ProfileInput) (*provider.ProfileOutput, error) {
	p.profiles = append(p.profiles, input)
	customer := "cus_1"
	method := "pm_1"
	return &provider.ProfileOutput{ProviderCustomerID: &customer, ProviderReference: &method}, nil
}

func (p *fakeCardProvider) VerifyAndParseCallback(_ context.Context, _ []byte, _ string) (*provider.CallbackEvent, error) {
	return p.callbackEvent, p.callbackErr
}

type publishedEvent struct {
	topic string
	key   string
}

type recordingPublisher struct {
	published []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, _ interface{}) error {
	p.published = append(p.published, publishedEvent{topic: topic, key: key})
	return nil
}

func (p *recordingPublisher) topics() []string {
	out := make([]string, 0, len(p.published))
	for _, item := range p.published {
		out = append(out, item.topic)
	}
	return out
}

type testServices struct {
	store        *memStore
	card         *fakeCardProvider
	publisher    *recordingPublisher
	transactions *TransactionService
	sales        *SaleService
	invoices     *InvoiceService
}

func newTestServices() *testServices {
	store := newMemStore()
	card := &fakeCardProvider{}
	publisher := &recordingPublisher{}
	logger := testLogger()
	registry := provider.NewRegistry(provider.NewSelfProvider(), card)

	transactions := NewTransactionService(registry, publisher, logger)
	sales := NewSaleService(transactions, registry, logger)
	invoices := NewInvoiceService(transactions, sales, publisher, logger)
	return &testServices{
		store:        store,
		card:         card,
		publisher:    publisher,
		transactions: transactions,
		sales:        sales,
		invoices:     invoices,
	}
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
