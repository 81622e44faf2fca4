package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aisitebuildapp/aisitebuild/internal/db"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// ConversationService is the append-only chat log interleaved with versions
// for display. Entries are never updated or deleted individually.
type ConversationService struct {
	DB *db.PostgresClient
}

func NewConversationService(dbClient *db.PostgresClient) *ConversationService {
	return &ConversationService{DB: dbClient}
}

// Append records one message
func (s *ConversationService) Append(ctx context.Context, projectID, role, content string) error {
	query := `
		INSERT INTO conversations (id, project_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.DB.Exec(ctx, query, uuid.New().String(), projectID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// List retrieves a project's conversation in chronological order
func (s *ConversationService) List(ctx context.Context, projectID string) ([]models.Message, error) {
	query := `
		SELECT id, project_id, role, content, created_at
		FROM conversations
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.DB.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation: %w", err)
	}

	return messages, nil
}
