package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aisitebuildapp/aisitebuild/internal/db"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// VersionService maintains the append-only snapshot history of a project.
// Snapshots store the complete document, so retrieval and rollback are a
// single row read at the cost of storage growth.
type VersionService struct {
	DB *db.PostgresClient
}

func NewVersionService(dbClient *db.PostgresClient) *VersionService {
	return &VersionService{DB: dbClient}
}

// Create appends an immutable snapshot
func (s *VersionService) Create(ctx context.Context, projectID, code, description string) (*models.Version, error) {
	version := &models.Version{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Code:        code,
		Description: description,
		CreatedAt:   time.Now(),
	}

	query := `
		INSERT INTO versions (id, project_id, code, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.DB.Exec(ctx, query,
		version.ID, version.ProjectID, version.Code, version.Description, version.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	return version, nil
}

// List retrieves a project's versions in creation order, oldest first, so
// the client can merge them chronologically with the conversation log.
func (s *VersionService) List(ctx context.Context, projectID string) ([]models.Version, error) {
	query := `
		SELECT id, project_id, code, description, created_at
		FROM versions
		WHERE project_id = $1
		ORDER BY created_at ASC
	`

	rows, err := s.DB.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.Version
	for rows.Next() {
		var v models.Version
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.Code, &v.Description, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating versions: %w", err)
	}

	return versions, nil
}

// Find returns a snapshot scoped to its project. A version id belonging to
// another project is reported as not found.
func (s *VersionService) Find(ctx context.Context, projectID, versionID string) (*models.Version, error) {
	version := &models.Version{}
	query := `
		SELECT id, project_id, code, description, created_at
		FROM versions
		WHERE id = $1 AND project_id = $2
	`

	err := s.DB.QueryRow(ctx, query, versionID, projectID).Scan(
		&version.ID, &version.ProjectID, &version.Code, &version.Description, &version.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("version not found: %w", ErrNotFound)
	}

	return version, nil
}

// CommitRevision finalizes a successful generation in one database
// transaction: append the snapshot, point the project at it, mark the
// project ready and record the assistant acknowledgment.
func (s *VersionService) CommitRevision(ctx context.Context, projectID, code, description, ackMessage string) (*models.Version, error) {
	now := time.Now()
	version := &models.Version{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Code:        code,
		Description: description,
		CreatedAt:   now,
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO versions (id, project_id, code, description, created_at) VALUES ($1, $2, $3, $4, $5)`,
		version.ID, version.ProjectID, version.Code, version.Description, version.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create version: %w", err)
	}

	rowsAffected, err := tx.Exec(ctx,
		`UPDATE projects SET current_code = $2, current_version_id = $3, status = $4, updated_at = $5 WHERE id = $1`,
		projectID, code, version.ID, models.ProjectStatusReady, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("project not found: %w", ErrNotFound)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, project_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), projectID, models.RoleAssistant, ackMessage, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record acknowledgment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit revision: %w", err)
	}

	return version, nil
}

// Rollback points the project back at an existing snapshot. It never creates
// a new version; it only moves current_code and current_version_id, and it
// appends one acknowledgment message.
func (s *VersionService) Rollback(ctx context.Context, projectID, userID, versionID, ackMessage string) error {
	version, err := s.Find(ctx, projectID, versionID)
	if err != nil {
		return err
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rowsAffected, err := tx.Exec(ctx,
		`UPDATE projects SET current_code = $3, current_version_id = $4, updated_at = $5 WHERE id = $1 AND user_id = $2`,
		projectID, userID, version.Code, version.ID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to roll back project: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %w", ErrNotFound)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, project_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), projectID, models.RoleAssistant, ackMessage, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record acknowledgment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rollback: %w", err)
	}

	return nil
}
