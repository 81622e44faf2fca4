package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Project status values
const (
	ProjectStatusDraft      = "draft"
	ProjectStatusGenerating = "generating"
	ProjectStatusReady      = "ready"
	ProjectStatusFailed     = "failed"
)

// Conversation roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Transaction status values
const (
	TransactionPending   = "PENDING"
	TransactionCompleted = "COMPLETED"
)

// User represents a platform user
type User struct {
	ID             string    `json:"id" db:"id"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   *string   `json:"-" db:"password_hash"` // Never expose password hash
	FullName       string    `json:"full_name" db:"full_name"`
	Credits        int       `json:"credits" db:"credits"`
	TotalCreations int       `json:"total_creations" db:"total_creations"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Project represents a generated website project
type Project struct {
	ID               string    `json:"id" db:"id"`
	UserID           string    `json:"user_id" db:"user_id"`
	Name             string    `json:"name" db:"name"`
	InitialPrompt    string    `json:"initial_prompt" db:"initial_prompt"`
	CurrentCode      string    `json:"current_code" db:"current_code"`
	CurrentVersionID *string   `json:"current_version_id" db:"current_version_id"` // nil after a manual save
	Status           string    `json:"status" db:"status"`                         // draft, generating, ready, failed
	IsPublished      bool      `json:"is_published" db:"is_published"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Version is an immutable full-document snapshot of a project's code.
// Versions are append-only: never updated, never deleted individually.
type Version struct {
	ID          string    `json:"id" db:"id"`
	ProjectID   string    `json:"project_id" db:"project_id"`
	Code        string    `json:"code" db:"code"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Message is one entry of a project's chat-style conversation log
type Message struct {
	ID        string    `json:"id" db:"id"`
	ProjectID string    `json:"project_id" db:"project_id"`
	Role      string    `json:"role" db:"role"` // user, assistant
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Transaction records a credit purchase attempt
type Transaction struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	PlanID    string    `json:"plan_id" db:"plan_id"`
	Amount    int       `json:"amount" db:"amount"` // USD
	Credits   int       `json:"credits" db:"credits"`
	Status    string    `json:"status" db:"status"` // PENDING, COMPLETED
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PublishedProject is the public-safe projection of a published project
type PublishedProject struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	InitialPrompt string    `json:"initial_prompt"`
	CurrentCode   string    `json:"current_code"`
	AuthorName    string    `json:"author_name"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CheckoutSession is the payment-provider view of a checkout attempt
type CheckoutSession struct {
	ID            string `json:"id"`
	Paid          bool   `json:"paid"`
	TransactionID string `json:"transaction_id"`
}

// ProgressEvent is a generation progress update streamed to the client
type ProgressEvent struct {
	ProjectID string    `json:"project_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SignupRequest represents request to create an account
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 100)),
	)
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// CreateProjectRequest represents request to create a project from a prompt
type CreateProjectRequest struct {
	Prompt string `json:"prompt"`
}

func (r CreateProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Prompt, validation.Required, validation.Length(1, 5000)),
	)
}

// RevisionRequest represents a follow-up change request
type RevisionRequest struct {
	Message string `json:"message"`
}

func (r RevisionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Message, validation.Required, validation.Length(1, 5000)),
	)
}

// SaveProjectRequest carries manually edited code
type SaveProjectRequest struct {
	Code string `json:"code"`
}

func (r SaveProjectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required),
	)
}

// CheckoutRequest selects a credit plan
type CheckoutRequest struct {
	PlanID string `json:"plan_id"`
}

func (r CheckoutRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.PlanID, validation.Required, validation.In("basic", "pro", "enterprise")),
	)
}

// VerifyPaymentRequest confirms a checkout session after redirect
type VerifyPaymentRequest struct {
	SessionID string `json:"session_id"`
}

func (r VerifyPaymentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SessionID, validation.Required),
	)
}
