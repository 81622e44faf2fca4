package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// Assistant messages recorded by the workflows
const (
	msgWorking     = "Now making changes to your website..."
	msgRevisionAck = "I've made the changes to your website! You can now preview it."
	msgCreationAck = "Your website is ready! You can now preview it."
)

// defaultGenerationTimeout bounds the detached generation context
const defaultGenerationTimeout = 10 * time.Minute

// Revision runs the debit-protected revision saga:
//
//	lock -> debit -> record prompt -> enhance -> generate -> commit
//
// Any failure after the debit is compensated with a credit of the same
// amount. Generation runs detached from the request context so a client
// disconnect cannot orphan the debit.
type Revision struct {
	Ledger        Ledger
	Projects      ProjectStore
	Versions      VersionCommitter
	Conversations ConversationStore
	LLM           Generator
	Locks         Locker
	Progress      Broker
	Timeout       time.Duration
}

func (r *Revision) timeout() time.Duration {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return defaultGenerationTimeout
}

// Start performs the synchronous, debit-protected prefix of the saga and
// spawns generation in the background. It returns ErrRevisionInFlight when
// the project is locked and ErrInsufficientCredits (from the ledger) before
// anything is recorded.
func (r *Revision) Start(ctx context.Context, project *models.Project, message string) error {
	release, err := r.Locks.Acquire(ctx, project.ID)
	if err != nil {
		return err
	}

	if err := r.Ledger.Debit(ctx, project.UserID, GenerationCost); err != nil {
		release()
		return err
	}

	// The user message always precedes the enhancement and completion
	// records for this revision.
	if err := r.Conversations.Append(ctx, project.ID, models.RoleUser, message); err != nil {
		r.refund(ctx, project.UserID)
		release()
		return fmt.Errorf("failed to record revision request: %w", err)
	}

	if err := r.Projects.SetStatus(ctx, project.ID, models.ProjectStatusGenerating); err != nil {
		r.refund(ctx, project.UserID)
		release()
		return err
	}

	go func() {
		defer release()
		genCtx, cancel := context.WithTimeout(context.Background(), r.timeout())
		defer cancel()
		r.generate(genCtx, project, message)
	}()

	return nil
}

// generate runs the latency-bound half of the saga on a detached context
func (r *Revision) generate(ctx context.Context, project *models.Project, message string) {
	r.Progress.Publish(ctx, Event(project.ID, StageEnhancing, "Enhancing your prompt"))

	enhanced, err := r.LLM.Enhance(ctx, message)
	if err != nil {
		r.fail(ctx, project, fmt.Errorf("prompt enhancement failed: %w", err))
		return
	}

	if err := r.Conversations.Append(ctx, project.ID, models.RoleAssistant,
		fmt.Sprintf("I've enhanced your prompt to: %q", enhanced)); err != nil {
		r.fail(ctx, project, err)
		return
	}
	if err := r.Conversations.Append(ctx, project.ID, models.RoleAssistant, msgWorking); err != nil {
		r.fail(ctx, project, err)
		return
	}

	r.Progress.Publish(ctx, Event(project.ID, StageGenerating, "Generating your website"))

	code, err := r.LLM.GenerateWebsite(ctx, enhanced, project.CurrentCode)
	if err != nil {
		r.fail(ctx, project, fmt.Errorf("code generation failed: %w", err))
		return
	}

	if code == "" {
		// No-op generation: acknowledge and refund, keep the displayed
		// code and version pointer unchanged.
		if err := r.Conversations.Append(ctx, project.ID, models.RoleAssistant, msgRevisionAck); err != nil {
			log.Printf("[revision] failed to record acknowledgment for project %s: %v", project.ID, err)
		}
		r.refund(ctx, project.UserID)
		if err := r.Projects.SetStatus(ctx, project.ID, models.ProjectStatusReady); err != nil {
			log.Printf("[revision] failed to reset status for project %s: %v", project.ID, err)
		}
		r.Progress.Publish(ctx, Event(project.ID, StageCompleted, "No changes were generated"))
		return
	}

	if _, err := r.Versions.CommitRevision(ctx, project.ID, code, "changes made", msgRevisionAck); err != nil {
		r.fail(ctx, project, fmt.Errorf("failed to commit revision: %w", err))
		return
	}

	r.Progress.Publish(ctx, Event(project.ID, StageCompleted, ""))
}

// fail compensates the debit, marks the project failed and surfaces the
// error to progress subscribers.
func (r *Revision) fail(ctx context.Context, project *models.Project, cause error) {
	log.Printf("[revision] project %s failed: %v", project.ID, cause)
	r.refund(ctx, project.UserID)
	if err := r.Projects.SetStatus(ctx, project.ID, models.ProjectStatusFailed); err != nil {
		log.Printf("[revision] failed to mark project %s failed: %v", project.ID, err)
	}
	r.Progress.Publish(ctx, Event(project.ID, StageFailed, cause.Error()))
}

func (r *Revision) refund(ctx context.Context, userID string) {
	if err := r.Ledger.Credit(ctx, userID, GenerationCost); err != nil {
		// The refund itself failed; this is the one place balance drift
		// can still happen, so make it loud.
		log.Printf("[revision] REFUND FAILED for user %s (%d credits): %v", userID, GenerationCost, err)
	}
}
