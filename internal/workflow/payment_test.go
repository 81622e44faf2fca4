package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
)

type fakeTransactionLedger struct {
	created   []*models.Transaction
	completed map[string]int
}

func newFakeTransactionLedger() *fakeTransactionLedger {
	return &fakeTransactionLedger{completed: make(map[string]int)}
}

func (f *fakeTransactionLedger) CreateTransaction(ctx context.Context, userID, planID string, amount, credits int) (*models.Transaction, error) {
	txn := &models.Transaction{
		ID:      "txn-1",
		UserID:  userID,
		PlanID:  planID,
		Amount:  amount,
		Credits: credits,
		Status:  models.TransactionPending,
	}
	f.created = append(f.created, txn)
	return txn, nil
}

func (f *fakeTransactionLedger) CompleteTransaction(ctx context.Context, transactionID string) error {
	f.completed[transactionID]++
	if f.completed[transactionID] > 1 {
		return services.ErrAlreadyCompleted
	}
	return nil
}

type fakeCheckout struct {
	sessions map[string]*models.CheckoutSession
	link     string
}

func (f *fakeCheckout) CreateSession(ctx context.Context, txn *models.Transaction, origin string) (string, error) {
	return f.link, nil
}

func (f *fakeCheckout) RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, errors.New("no such session")
	}
	return sess, nil
}

func TestCreateCheckoutUnknownPlan(t *testing.T) {
	p := &Payment{Ledger: newFakeTransactionLedger(), Checkout: &fakeCheckout{}}

	_, err := p.CreateCheckout(context.Background(), "u1", "platinum", "https://example.com")
	if !errors.Is(err, ErrUnknownPlan) {
		t.Fatalf("expected ErrUnknownPlan, got %v", err)
	}
}

func TestCreateCheckoutRecordsPendingTransaction(t *testing.T) {
	ledger := newFakeTransactionLedger()
	p := &Payment{Ledger: ledger, Checkout: &fakeCheckout{link: "https://pay.example/cs_123"}}

	link, err := p.CreateCheckout(context.Background(), "u1", "pro", "https://example.com")
	if err != nil {
		t.Fatalf("CreateCheckout failed: %v", err)
	}
	if link != "https://pay.example/cs_123" {
		t.Errorf("link = %q", link)
	}

	if len(ledger.created) != 1 {
		t.Fatalf("expected one transaction, got %d", len(ledger.created))
	}
	txn := ledger.created[0]
	if txn.PlanID != "pro" || txn.Credits != 400 || txn.Amount != 19 {
		t.Errorf("transaction does not match the pro plan: %+v", txn)
	}
	if txn.Status != models.TransactionPending {
		t.Errorf("transaction status = %q, want %q", txn.Status, models.TransactionPending)
	}
}

func TestVerifyUnpaidSession(t *testing.T) {
	checkout := &fakeCheckout{sessions: map[string]*models.CheckoutSession{
		"cs_1": {ID: "cs_1", Paid: false, TransactionID: "txn-1"},
	}}
	p := &Payment{Ledger: newFakeTransactionLedger(), Checkout: checkout}

	_, err := p.Verify(context.Background(), "cs_1")
	if !errors.Is(err, ErrPaymentIncomplete) {
		t.Fatalf("expected ErrPaymentIncomplete, got %v", err)
	}
}

func TestVerifyCreditsExactlyOnce(t *testing.T) {
	ledger := newFakeTransactionLedger()
	checkout := &fakeCheckout{sessions: map[string]*models.CheckoutSession{
		"cs_1": {ID: "cs_1", Paid: true, TransactionID: "txn-1"},
	}}
	p := &Payment{Ledger: ledger, Checkout: checkout}

	alreadyAdded, err := p.Verify(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}
	if alreadyAdded {
		t.Error("first Verify should report a fresh credit")
	}

	alreadyAdded, err = p.Verify(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("second Verify failed: %v", err)
	}
	if !alreadyAdded {
		t.Error("second Verify should report the credit as already added")
	}

	if got := ledger.completed["txn-1"]; got != 2 {
		// Two attempts reached the ledger; only the first one credits.
		t.Errorf("CompleteTransaction attempts = %d, want 2", got)
	}
}

func TestVerifySessionWithoutTransaction(t *testing.T) {
	checkout := &fakeCheckout{sessions: map[string]*models.CheckoutSession{
		"cs_1": {ID: "cs_1", Paid: true},
	}}
	p := &Payment{Ledger: newFakeTransactionLedger(), Checkout: checkout}

	if _, err := p.Verify(context.Background(), "cs_1"); err == nil {
		t.Fatal("expected an error for a session without a transaction id")
	}
}
