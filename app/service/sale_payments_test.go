package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-sale-payments/app/entity"
	"github.com/vibast-solutions/ms-go-sale-payments/app/types"
)

func newTestSalePaymentsService(ts *testServices) *SalePaymentsService {
	return NewSalePaymentsService(ts.store.factory(), ts.transactions, ts.sales, ts.invoices, testLogger())
}

func TestSalePaymentsServiceCommitsRejectedCallbackLog(t *testing.T) {
	ts := newTestServices()
	ts.card.callbackErr = errors.New("bad signature")

	_, err := newTestSalePaymentsService(ts).HandleGatewayCallback(context.Background(), &types.HandleGatewayCallbackRequest{Provider: "stripe", Payload: "{}"})
	if !errors.Is(err, ErrCallbackRejected) {
		t.Fatalf("expected ErrCallbackRejected, got %v", err)
	}
	if !ts.store.lastTx().committed {
		t.Fatal("expected the rejected callback log to be committed")
	}
}

func TestSalePaymentsServiceRollsBackUnsupportedProviderCallback(t *testing.T) {
	ts := newTestServices()

	_, err := newTestSalePaymentsService(ts).HandleGatewayCallback(context.Background(), &types.HandleGatewayCallbackRequest{Provider: "paypal"})
	if !errors.Is(err, ErrProviderUnsupported) {
		t.Fatalf("expected ErrProviderUnsupported, got %v", err)
	}
	if tx := ts.store.lastTx(); tx.committed || !tx.rolledBack {
		t.Fatal("expected rollback")
	}
}

func TestSalePaymentsServiceDeleteConflictRollsBack(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)
	manual := ts.store.addGateway(entity.MethodManual, entity.ProviderSelf)
	payment := ts.store.addPayment(sale, manual, "50", 10)
	ts.store.addTransaction(payment, "10", entity.TransactionStateAuthorized)

	err := newTestSalePaymentsService(ts).DeletePayments(context.Background(), []uint64{payment.ID})
	if !errors.Is(err, ErrDeletionConflict) {
		t.Fatalf("expected ErrDeletionConflict, got %v", err)
	}
	if !ts.store.lastTx().rolledBack {
		t.Fatal("expected rollback")
	}
	if _, ok := ts.store.payments[payment.ID]; !ok {
		t.Fatal("expected payment to still exist")
	}
}

func TestSalePaymentsServiceGetSaleCommits(t *testing.T) {
	ts := newTestServices()
	sale := ts.store.addSale("100", entity.SaleStateProcessing)

	got, err := newTestSalePaymentsService(ts).GetSale(context.Background(), sale.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != sale.ID || !ts.store.lastTx().committed {
		t.Fatalf("unexpected sale %+v", got)
	}
}
