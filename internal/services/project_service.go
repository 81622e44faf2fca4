package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aisitebuildapp/aisitebuild/internal/db"
	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

const projectColumns = `id, user_id, name, initial_prompt, current_code, current_version_id, status, is_published, created_at, updated_at`

type ProjectService struct {
	DB *db.PostgresClient
}

func NewProjectService(dbClient *db.PostgresClient) *ProjectService {
	return &ProjectService{DB: dbClient}
}

// projectName derives the display name from the prompt, truncated to 50 runes
func projectName(prompt string) string {
	runes := []rune(prompt)
	if len(runes) > 50 {
		return string(runes[:47]) + "..."
	}
	return prompt
}

// Create inserts the project, bumps the owner's creation counter and records
// the initial prompt as the first conversation entry, all in one transaction.
func (s *ProjectService) Create(ctx context.Context, userID, prompt string) (*models.Project, error) {
	now := time.Now()
	project := &models.Project{
		ID:            uuid.New().String(),
		UserID:        userID,
		Name:          projectName(prompt),
		InitialPrompt: prompt,
		Status:        models.ProjectStatusGenerating,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO projects (id, user_id, name, initial_prompt, current_code, status, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, false, $6, $7)
	`
	_, err = tx.Exec(ctx, query,
		project.ID, project.UserID, project.Name, project.InitialPrompt, project.Status,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE users SET total_creations = total_creations + 1, updated_at = $2 WHERE id = $1`,
		userID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update creation counter: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO conversations (id, project_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), project.ID, models.RoleUser, prompt, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record prompt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit project creation: %w", err)
	}

	return project, nil
}

// Get retrieves a project owned by the given user
func (s *ProjectService) Get(ctx context.Context, projectID, userID string) (*models.Project, error) {
	project := &models.Project{}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`

	err := s.DB.QueryRow(ctx, query, projectID, userID).Scan(
		&project.ID, &project.UserID, &project.Name, &project.InitialPrompt,
		&project.CurrentCode, &project.CurrentVersionID, &project.Status,
		&project.IsPublished, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", ErrNotFound)
	}

	return project, nil
}

// List retrieves all projects of a user, most recently updated first
func (s *ProjectService) List(ctx context.Context, userID string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY updated_at DESC`

	rows, err := s.DB.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.InitialPrompt, &p.CurrentCode,
			&p.CurrentVersionID, &p.Status, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// Delete removes a project; versions and conversation entries cascade
func (s *ProjectService) Delete(ctx context.Context, projectID, userID string) error {
	rowsAffected, err := s.DB.Exec(ctx, `DELETE FROM projects WHERE id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %w", ErrNotFound)
	}
	return nil
}

// Save overwrites the live document with caller-supplied code and clears the
// version pointer. Manual edits are not versioned; the next successful
// revision snapshots over them.
func (s *ProjectService) Save(ctx context.Context, projectID, userID, code string) error {
	query := `
		UPDATE projects
		SET current_code = $3, current_version_id = NULL, updated_at = $4
		WHERE id = $1 AND user_id = $2
	`
	rowsAffected, err := s.DB.Exec(ctx, query, projectID, userID, code, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save project: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %w", ErrNotFound)
	}
	return nil
}

// SetStatus moves a project between generation states
func (s *ProjectService) SetStatus(ctx context.Context, projectID, status string) error {
	rowsAffected, err := s.DB.Exec(ctx,
		`UPDATE projects SET status = $2, updated_at = $3 WHERE id = $1`,
		projectID, status, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project not found: %w", ErrNotFound)
	}
	return nil
}

// Status returns the project's generation status for polling clients
func (s *ProjectService) Status(ctx context.Context, projectID, userID string) (string, error) {
	var status string
	err := s.DB.QueryRow(ctx,
		`SELECT status FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("project not found: %w", ErrNotFound)
	}
	return status, nil
}

// TogglePublish flips the gallery visibility flag; owner only
func (s *ProjectService) TogglePublish(ctx context.Context, projectID, userID string) (*models.Project, error) {
	project := &models.Project{}
	query := `
		UPDATE projects
		SET is_published = NOT is_published, updated_at = $3
		WHERE id = $1 AND user_id = $2
		RETURNING ` + projectColumns

	err := s.DB.QueryRow(ctx, query, projectID, userID, time.Now()).Scan(
		&project.ID, &project.UserID, &project.Name, &project.InitialPrompt,
		&project.CurrentCode, &project.CurrentVersionID, &project.Status,
		&project.IsPublished, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("project not found: %w", ErrNotFound)
	}

	return project, nil
}

// ListPublished returns the public gallery projection, newest first
func (s *ProjectService) ListPublished(ctx context.Context) ([]models.PublishedProject, error) {
	query := `
		SELECT p.id, p.name, p.initial_prompt, p.current_code, u.full_name, p.updated_at
		FROM projects p
		JOIN users u ON p.user_id = u.id
		WHERE p.is_published = true
		ORDER BY p.updated_at DESC
	`

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list published projects: %w", err)
	}
	defer rows.Close()

	var projects []models.PublishedProject
	for rows.Next() {
		var p models.PublishedProject
		err := rows.Scan(&p.ID, &p.Name, &p.InitialPrompt, &p.CurrentCode, &p.AuthorName, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan published project: %w", err)
		}
		projects = append(projects, p)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating published projects: %w", err)
	}

	return projects, nil
}

// PublishedCode returns a published project's code only. Unpublished or
// empty projects are reported as not found.
func (s *ProjectService) PublishedCode(ctx context.Context, projectID string) (string, error) {
	var code string
	var isPublished bool
	err := s.DB.QueryRow(ctx,
		`SELECT current_code, is_published FROM projects WHERE id = $1`,
		projectID,
	).Scan(&code, &isPublished)
	if err != nil {
		return "", fmt.Errorf("project not found: %w", ErrNotFound)
	}
	if !isPublished || code == "" {
		return "", fmt.Errorf("project not found: %w", ErrNotFound)
	}
	return code, nil
}
