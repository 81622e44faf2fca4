package services

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/aisitebuildapp/aisitebuild/config"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// PaymentService wraps Stripe checkout. Session metadata carries the ledger
// transaction id so verification can find the row to complete.
type PaymentService struct {
	Config *config.Config
}

func NewPaymentService(cfg *config.Config) *PaymentService {
	stripe.Key = cfg.StripeKey
	return &PaymentService{Config: cfg}
}

// CreateSession creates a Stripe checkout session for a pending transaction
// and returns the hosted payment link.
func (s *PaymentService) CreateSession(ctx context.Context, txn *models.Transaction, origin string) (string, error) {
	if origin == "" {
		origin = s.Config.FrontendURL
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(origin + "/loading?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(origin + "/pricing"),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String("usd"),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("AiSiteBuild - %d credits", txn.Credits)),
					},
					UnitAmount: stripe.Int64(int64(txn.Amount) * 100),
				},
				Quantity: stripe.Int64(1),
			},
		},
		ExpiresAt: stripe.Int64(time.Now().Add(30 * time.Minute).Unix()),
	}
	params.Context = ctx
	params.AddMetadata("transactionId", txn.ID)
	params.AddMetadata("userId", txn.UserID)

	result, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create checkout session: %w", err)
	}

	return result.URL, nil
}

// RetrieveSession fetches a checkout session's payment state
func (s *PaymentService) RetrieveSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	result, err := session.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve checkout session: %w", err)
	}

	return &models.CheckoutSession{
		ID:            result.ID,
		Paid:          result.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		TransactionID: result.Metadata["transactionId"],
	}, nil
}
