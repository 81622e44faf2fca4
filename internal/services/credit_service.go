package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aisitebuildapp/aisitebuild/internal/db"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// CreditService is the ledger for prepaid generation credits. Debits are
// conditional single-statement updates so the balance can never go negative,
// and purchase crediting is guarded by the transaction status so retried
// verifications credit at most once.
type CreditService struct {
	DB *db.PostgresClient
}

func NewCreditService(dbClient *db.PostgresClient) *CreditService {
	return &CreditService{DB: dbClient}
}

// Balance returns the user's current credit balance
func (s *CreditService) Balance(ctx context.Context, userID string) (int, error) {
	var credits int
	err := s.DB.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		return 0, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return credits, nil
}

// Debit deducts amount from the user's balance. The decrement is conditional
// on the balance covering the amount; otherwise ErrInsufficientCredits is
// returned and nothing changes.
func (s *CreditService) Debit(ctx context.Context, userID string, amount int) error {
	query := `
		UPDATE users
		SET credits = credits - $2, updated_at = $3
		WHERE id = $1 AND credits >= $2
	`
	rowsAffected, err := s.DB.Exec(ctx, query, userID, amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to debit credits: %w", err)
	}
	if rowsAffected == 0 {
		return ErrInsufficientCredits
	}
	return nil
}

// Credit adds amount to the user's balance (refund or purchase)
func (s *CreditService) Credit(ctx context.Context, userID string, amount int) error {
	query := `UPDATE users SET credits = credits + $2, updated_at = $3 WHERE id = $1`
	rowsAffected, err := s.DB.Exec(ctx, query, userID, amount, time.Now())
	if err != nil {
		return fmt.Errorf("failed to credit credits: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return nil
}

// CreateTransaction records a PENDING purchase before checkout redirects
func (s *CreditService) CreateTransaction(ctx context.Context, userID, planID string, amount, credits int) (*models.Transaction, error) {
	txn := &models.Transaction{
		ID:        uuid.New().String(),
		UserID:    userID,
		PlanID:    planID,
		Amount:    amount,
		Credits:   credits,
		Status:    models.TransactionPending,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO transactions (id, user_id, plan_id, amount, credits, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.DB.Exec(ctx, query,
		txn.ID, txn.UserID, txn.PlanID, txn.Amount, txn.Credits, txn.Status, txn.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return txn, nil
}

// CompleteTransaction flips the transaction to COMPLETED and credits the
// purchased amount in one database transaction. The status flip is
// conditional on the row still being PENDING, so a second verification of
// the same session returns ErrAlreadyCompleted without touching the balance.
func (s *CreditService) CompleteTransaction(ctx context.Context, transactionID string) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID string
	var credits int
	var status string
	err = tx.QueryRow(ctx,
		`SELECT user_id, credits, status FROM transactions WHERE id = $1`,
		transactionID,
	).Scan(&userID, &credits, &status)
	if err != nil {
		return fmt.Errorf("transaction not found: %w", ErrNotFound)
	}

	if status == models.TransactionCompleted {
		return ErrAlreadyCompleted
	}

	rowsAffected, err := tx.Exec(ctx,
		`UPDATE transactions SET status = $2 WHERE id = $1 AND status = $3`,
		transactionID, models.TransactionCompleted, models.TransactionPending,
	)
	if err != nil {
		return fmt.Errorf("failed to complete transaction: %w", err)
	}
	if rowsAffected == 0 {
		// Lost the race to a concurrent verification
		return ErrAlreadyCompleted
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET credits = credits + $2, updated_at = $3 WHERE id = $1`,
		userID, credits, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to add purchased credits: %w", err)
	}

	return tx.Commit(ctx)
}
