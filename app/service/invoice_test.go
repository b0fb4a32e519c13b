package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/events"
)

func TestCreateInvoiceSettlesExistingHoldsManualFirst(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	card := ts.store.addGateway(entity.MethodCreditCard, entity.ProviderStripe)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	cardPayment := ts.store.addPayment(sale, card, "150", 10)
	manualPayment := ts.store.addPayment(sale, manual, "30", 20)
	cardHold := ts.store.addTransaction(cardPayment, "150", entity.TransactionStateAuthorized)
	manualHold := ts.store.addTransaction(manualPayment, "30", entity.TransactionStateAuthorized)

	var invoice *entity.Invoice
	err := ts.store.factory().Run(context.Background(), func(uow *UnitOfWork) error {
		var err error
		invoice, err = ts.invoices.CreateInvoice(context.Background(), uow, sale.ID, entity.InvoiceTypeOut)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice == nil || !invoice.TotalAmount.Equal(dec("100")) {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
	if invoice.State != entity.InvoiceStatePaid || !invoice.AmountPaid.Equal(dec("100")) {
		t.Fatalf("expected paid invoice, got state=%s paid=%s", invoice.State, invoice.AmountPaid)
	}
	if invoice.Number != sale.Reference+"/1" {
		t.Fatalf("unexpected number %q", invoice.Number)
	}

	if got := ts.store.transactions[manualHold.ID]; got.State != entity.TransactionStatePosted || !got.Amount.Equal(dec("30")) {
		t.Fatalf("unexpected manual hold: state=%s amount=%s", got.State, got.Amount)
	}
	if got := ts.store.transactions[cardHold.ID]; got.State != entity.TransactionStatePosted || !got.Amount.Equal(dec("70")) {
		t.Fatalf("expected card hold shrunk to 70 and posted, got state=%s amount=%s", got.State, got.Amount)
	}
	if len(ts.card.captured) != 1 || ts.card.captured[0].AmountMinor != 7000 {
		t.Fatalf("unexpected captures: %+v", ts.card.captured)
	}
	if len(ts.store.invoicePayments) != 2 {
		t.Fatalf("expected two invoice payment lines, got %d", len(ts.store.invoicePayments))
	}
	if len(ts.card.authorized) != 0 {
		t.Fatal("expected no new authorizations")
	}

	topics := ts.publisher.topics()
	if !containsString(topics, events.TopicTransactionSettled) || !containsString(topics, events.TopicInvoicePaid) {
		t.Fatalf("unexpected published topics: %v", topics)
	}
}

func TestCreateInvoiceAuthorizesShortfallFromPayments(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	ts.store.addPayment(sale, manual, "100", 10)

	invoice, err := ts.invoices.CreateInvoice(context.Background(), ts.store.uow(), sale.ID, entity.InvoiceTypeOut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice.State != entity.InvoiceStatePaid {
		t.Fatalf("expected paid, got %s", invoice.State)
	}
	if len(ts.store.transactions) != 1 {
		t.Fatalf("expected one new transaction, got %d", len(ts.store.transactions))
	}
	for _, txn := range ts.store.transactions {
		if txn.Description != "Invoice: "+invoice.Number {
			t.Fatalf("unexpected description %q", txn.Description)
		}
		if txn.State != entity.TransactionStatePosted {
			t.Fatalf("expected posted, got %s", txn.State)
		}
	}
	if len(ts.publisher.published) != 0 {
		t.Fatal("expected no events before commit")
	}
}

func TestAutoPayFailureCancelsOnlyNewHolds(t *testing.T) {
	ts := newTestServices()
	ts.card.authorizeStates = []string{entity.TransactionStateAuthorized, entity.TransactionStateFailed}
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	card := ts.store.addGateway(entity.MethodCreditCard, entity.ProviderStripe)
	manualPayment := ts.store.addPayment(sale, manual, "40", 10)
	ts.store.addPayment(sale, card, "30", 20)
	ts.store.addPayment(sale, card, "30", 30)
	existing := ts.store.addTransaction(manualPayment, "40", entity.TransactionStateAuthorized)
	invoice := ts.store.addInvoice(sale, entity.InvoiceTypeOut, "100")

	_, err := ts.invoices.AutoPayInvoice(context.Background(), ts.store.uow(), invoice.ID)
	if !errors.Is(err, ErrSettlementFailure) {
		t.Fatalf("expected ErrSettlementFailure, got %v", err)
	}

	if got := ts.store.transactions[existing.ID]; got.State != entity.TransactionStateAuthorized {
		t.Fatalf("expected existing hold untouched, got %s", got.State)
	}
	if len(ts.card.authorized) != 2 {
		t.Fatalf("expected two new card authorizations, got %d", len(ts.card.authorized))
	}
	if len(ts.card.cancelled) != 1 || ts.card.cancelled[0].TransactionUUID != ts.card.authorized[0].TransactionUUID {
		t.Fatalf("expected only the new authorized hold to be cancelled, got %+v", ts.card.cancelled)
	}
	if len(ts.card.captured) != 0 {
		t.Fatal("expected nothing to be captured")
	}

	states := map[string]int{}
	for _, txn := range ts.store.transactions {
		states[txn.State]++
	}
	if states[entity.TransactionStateCancelled] != 1 || states[entity.TransactionStateFailed] != 1 || states[entity.TransactionStateAuthorized] != 1 {
		t.Fatalf("unexpected transaction states: %v", states)
	}
	if ts.store.invoices[invoice.ID].State != entity.InvoiceStateOpen {
		t.Fatal("expected invoice to stay open")
	}
}

func TestAutoPayInsufficientPaymentsFails(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	ts.store.addPayment(sale, manual, "40", 10)

	_, err := ts.invoices.CreateInvoice(context.Background(), ts.store.uow(), sale.ID, entity.InvoiceTypeOut)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestCreateCreditNoteForOverInvoicedSale(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateDone)
	first := ts.store.addInvoice(sale, entity.InvoiceTypeOut, "150")
	first.State = entity.InvoiceStatePaid

	invoice, err := ts.invoices.CreateInvoice(context.Background(), ts.store.uow(), sale.ID, entity.InvoiceTypeOutCreditNote)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if invoice == nil || !invoice.TotalAmount.Equal(dec("50")) || invoice.State != entity.InvoiceStateOpen {
		t.Fatalf("unexpected credit note: %+v", invoice)
	}
	if len(ts.store.transactions) != 0 {
		t.Fatal("credit notes are not auto-paid")
	}

	again, err := ts.invoices.CreateInvoice(context.Background(), ts.store.uow(), sale.ID, entity.InvoiceTypeOut)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nothing left to invoice, got %+v", again)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	ts := newTestServices()
	confirmed := ts.store.addSale("100", entity.SaleStateConfirmed)

	if _, err := ts.invoices.CreateInvoice(context.Background(), ts.store.uow(), confirmed.ID, "in_invoice"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := ts.invoices.CreateInvoice(context.Background(), ts.store.uow(), confirmed.ID, entity.InvoiceTypeOut); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAutoPayInvoiceRequiresOpenCustomerInvoice(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	paid := ts.store.addInvoice(sale, entity.InvoiceTypeOut, "10")
	paid.State = entity.InvoiceStatePaid
	credit := ts.store.addInvoice(sale, entity.InvoiceTypeOutCreditNote, "10")

	if _, err := ts.invoices.AutoPayInvoice(context.Background(), ts.store.uow(), paid.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for paid invoice, got %v", err)
	}
	if _, err := ts.invoices.AutoPayInvoice(context.Background(), ts.store.uow(), credit.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for credit note, got %v", err)
	}
	if _, err := ts.invoices.AutoPayInvoice(context.Background(), ts.store.uow(), 9999); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
}

func TestPayUsingTransactionRequiresCapturedTransaction(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	payment := ts.store.addPayment(sale, manual, "100", 10)
	hold := ts.store.addTransaction(payment, "10", entity.TransactionStateAuthorized)
	invoice := ts.store.addInvoice(sale, entity.InvoiceTypeOut, "10")

	if err := ts.invoices.PayUsingTransaction(context.Background(), ts.store.uow(), invoice, hold); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestAutoPayPendingNewHoldCapturesNothing(t *testing.T) {
	ts := newTestServices()
	ts.card.authorizeStates = []string{entity.TransactionStateAuthorized, entity.TransactionStatePending}
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	card := ts.store.addGateway(entity.MethodCreditCard, entity.ProviderStripe)
	manualPayment := ts.store.addPayment(sale, manual, "40", 10)
	ts.store.addPayment(sale, card, "30", 20)
	ts.store.addPayment(sale, card, "30", 30)
	existing := ts.store.addTransaction(manualPayment, "40", entity.TransactionStateAuthorized)
	invoice := ts.store.addInvoice(sale, entity.InvoiceTypeOut, "100")

	_, err := ts.invoices.AutoPayInvoice(context.Background(), ts.store.uow(), invoice.ID)
	if !errors.Is(err, ErrSettlementFailure) {
		t.Fatalf("expected ErrSettlementFailure, got %v", err)
	}
	if len(ts.card.captured) != 0 {
		t.Fatalf("expected nothing to be captured, got %+v", ts.card.captured)
	}
	if len(ts.card.cancelled) != 1 || ts.card.cancelled[0].TransactionUUID != ts.card.authorized[0].TransactionUUID {
		t.Fatalf("expected only the authorized new hold to be cancelled, got %+v", ts.card.cancelled)
	}
	if got := ts.store.transactions[existing.ID]; got.State != entity.TransactionStateAuthorized || !got.Amount.Equal(dec("40")) {
		t.Fatalf("expected existing hold untouched, got state=%s amount=%s", got.State, got.Amount)
	}
	if len(ts.store.invoicePayments) != 0 {
		t.Fatal("expected no invoice payment lines")
	}
}
