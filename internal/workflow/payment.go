package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
)

// Plan is a purchasable credit bundle
type Plan struct {
	ID      string `json:"id"`
	Credits int    `json:"credits"`
	Amount  int    `json:"amount"` // USD
}

// Plans are fixed; plan ids are validated at the request layer too
var Plans = map[string]Plan{
	"basic":      {ID: "basic", Credits: 100, Amount: 5},
	"pro":        {ID: "pro", Credits: 400, Amount: 19},
	"enterprise": {ID: "enterprise", Credits: 1000, Amount: 49},
}

// ErrUnknownPlan is returned for a plan id outside the fixed set
var ErrUnknownPlan = errors.New("plan not found")

// ErrPaymentIncomplete is returned when the checkout session is not paid yet
var ErrPaymentIncomplete = errors.New("payment not successful")

// TransactionLedger is the credit-ledger side of a purchase
type TransactionLedger interface {
	CreateTransaction(ctx context.Context, userID, planID string, amount, credits int) (*models.Transaction, error)
	CompleteTransaction(ctx context.Context, transactionID string) error
}

// CheckoutClient is the payment provider
type CheckoutClient interface {
	CreateSession(ctx context.Context, txn *models.Transaction, origin string) (string, error)
	RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
}

// Payment orchestrates checkout initiation and idempotent verification
type Payment struct {
	Ledger   TransactionLedger
	Checkout CheckoutClient
}

// CreateCheckout records a PENDING transaction and returns the provider's
// hosted payment link.
func (p *Payment) CreateCheckout(ctx context.Context, userID, planID, origin string) (string, error) {
	plan, ok := Plans[planID]
	if !ok {
		return "", ErrUnknownPlan
	}

	txn, err := p.Ledger.CreateTransaction(ctx, userID, plan.ID, plan.Amount, plan.Credits)
	if err != nil {
		return "", err
	}

	link, err := p.Checkout.CreateSession(ctx, txn, origin)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return link, nil
}

// Verify confirms a checkout session and credits the purchase exactly once.
// It is safe under at-least-once delivery: a repeated call for an already
// completed transaction reports alreadyAdded=true and changes nothing.
func (p *Payment) Verify(ctx context.Context, sessionID string) (alreadyAdded bool, err error) {
	sess, err := p.Checkout.RetrieveSession(ctx, sessionID)
	if err != nil {
		return false, fmt.Errorf("failed to verify session: %w", err)
	}

	if !sess.Paid {
		return false, ErrPaymentIncomplete
	}
	if sess.TransactionID == "" {
		return false, fmt.Errorf("checkout session has no transaction id")
	}

	switch err := p.Ledger.CompleteTransaction(ctx, sess.TransactionID); {
	case err == nil:
		return false, nil
	case errors.Is(err, services.ErrAlreadyCompleted):
		return true, nil
	default:
		return false, err
	}
}
