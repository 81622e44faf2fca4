package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// ProjectCreator creates the project row together with the creation counter
// bump and the initial prompt message, atomically.
type ProjectCreator interface {
	ProjectStore
	Create(ctx context.Context, userID, prompt string) (*models.Project, error)
}

// Creation turns a first prompt into a project with an initial version. The
// caller gets the project id immediately; enhancement and generation finish
// in the background and the client follows along via status or SSE.
type Creation struct {
	Ledger        Ledger
	Projects      ProjectCreator
	Versions      VersionCommitter
	Conversations ConversationStore
	LLM           Generator
	Progress      Broker
	Timeout       time.Duration
}

func (c *Creation) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultGenerationTimeout
}

// Start debits the flat generation cost, creates the project and spawns the
// initial generation. Insufficient credits reject the request before any
// row is written.
func (c *Creation) Start(ctx context.Context, userID, prompt string) (*models.Project, error) {
	if err := c.Ledger.Debit(ctx, userID, GenerationCost); err != nil {
		return nil, err
	}

	project, err := c.Projects.Create(ctx, userID, prompt)
	if err != nil {
		c.refund(ctx, userID)
		return nil, err
	}

	go func() {
		genCtx, cancel := context.WithTimeout(context.Background(), c.timeout())
		defer cancel()
		c.generate(genCtx, project, prompt)
	}()

	return project, nil
}

func (c *Creation) generate(ctx context.Context, project *models.Project, prompt string) {
	c.Progress.Publish(ctx, Event(project.ID, StageEnhancing, "Enhancing your prompt"))

	enhanced, err := c.LLM.Enhance(ctx, prompt)
	if err != nil {
		c.fail(ctx, project, fmt.Errorf("prompt enhancement failed: %w", err))
		return
	}

	if err := c.Conversations.Append(ctx, project.ID, models.RoleAssistant,
		fmt.Sprintf("I've enhanced your prompt to: %q", enhanced)); err != nil {
		c.fail(ctx, project, err)
		return
	}

	c.Progress.Publish(ctx, Event(project.ID, StageGenerating, "Generating your website"))

	code, err := c.LLM.GenerateWebsite(ctx, enhanced, "")
	if err != nil {
		c.fail(ctx, project, fmt.Errorf("code generation failed: %w", err))
		return
	}

	// Unlike a revision, there is no prior document to fall back to, so an
	// empty generation is a failure here.
	if code == "" {
		c.fail(ctx, project, fmt.Errorf("code generation returned no content"))
		return
	}

	if _, err := c.Versions.CommitRevision(ctx, project.ID, code, "Initial Generation", msgCreationAck); err != nil {
		c.fail(ctx, project, fmt.Errorf("failed to commit initial version: %w", err))
		return
	}

	c.Progress.Publish(ctx, Event(project.ID, StageCompleted, ""))
}

func (c *Creation) fail(ctx context.Context, project *models.Project, cause error) {
	log.Printf("[creation] project %s failed: %v", project.ID, cause)
	c.refund(ctx, project.UserID)
	if err := c.Projects.SetStatus(ctx, project.ID, models.ProjectStatusFailed); err != nil {
		log.Printf("[creation] failed to mark project %s failed: %v", project.ID, err)
	}
	c.Progress.Publish(ctx, Event(project.ID, StageFailed, cause.Error()))
}

func (c *Creation) refund(ctx context.Context, userID string) {
	if err := c.Ledger.Credit(ctx, userID, GenerationCost); err != nil {
		log.Printf("[creation] REFUND FAILED for user %s (%d credits): %v", userID, GenerationCost, err)
	}
}
