package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aisitebuildapp/aisitebuild/config"
	"github.com/aisitebuildapp/aisitebuild/internal/db"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

const bcryptCost = 12

type AuthService struct {
	DB     *db.PostgresClient
	Config *config.Config
}

func NewAuthService(dbClient *db.PostgresClient, cfg *config.Config) *AuthService {
	return &AuthService{DB: dbClient, Config: cfg}
}

// Signup creates a new user account with the starter credit balance
func (s *AuthService) Signup(ctx context.Context, email, password, fullName string) (*models.User, error) {
	var existingID string
	err := s.DB.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&existingID)
	if err == nil {
		return nil, errors.New("user with this email already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hashedPasswordStr := string(hashedPassword)

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: &hashedPasswordStr,
		FullName:     fullName,
		Credits:      s.Config.SignupCredits,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
		INSERT INTO users (id, email, password_hash, full_name, credits, total_creations, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`
	_, err = s.DB.Exec(ctx, query, user.ID, user.Email, user.PasswordHash, user.FullName, user.Credits, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user and returns access and refresh tokens
func (s *AuthService) Login(ctx context.Context, email, password string) (string, string, *models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, full_name, credits, total_creations, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	err := s.DB.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Credits, &user.TotalCreations, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return "", "", nil, errors.New("invalid email or password")
	}

	if user.PasswordHash == nil || *user.PasswordHash == "" {
		return "", "", nil, errors.New("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, errors.New("invalid email or password")
	}

	accessToken, err := s.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// GenerateAccessToken creates a JWT access token
func (s *AuthService) GenerateAccessToken(userID, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"exp":   time.Now().Add(s.Config.JWTExpiry).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Config.JWTSecret))
}

// GenerateRefreshToken creates a refresh token
func (s *AuthService) GenerateRefreshToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"type": "refresh",
		"exp":  time.Now().Add(s.Config.RefreshTokenExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.Config.JWTSecret))
}

// RefreshAccessToken generates a new access token from a refresh token
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	token, err := jwt.Parse(refreshToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(s.Config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid refresh token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	if tokenType, ok := claims["type"].(string); !ok || tokenType != "refresh" {
		return "", errors.New("not a refresh token")
	}

	userID, _ := claims["sub"].(string)

	var email string
	err = s.DB.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		return "", errors.New("user not found")
	}

	return s.GenerateAccessToken(userID, email)
}

// GetUserByID retrieves a user by ID
func (s *AuthService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, email, password_hash, full_name, credits, total_creations, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	err := s.DB.QueryRow(ctx, query, userID).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName,
		&user.Credits, &user.TotalCreations, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}

	return user, nil
}
