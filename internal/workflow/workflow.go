package workflow

import (
	"context"
	"errors"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

// GenerationCost is the flat credit price of one generation or revision
const GenerationCost = 5

// Progress stages published while a generation is in flight
const (
	StageConnected  = "connected"
	StageEnhancing  = "enhancing"
	StageGenerating = "generating"
	StageCompleted  = "completed"
	StageFailed     = "failed"
)

// ErrRevisionInFlight is returned when a revision is already running for the
// project; callers should retry after the current one finishes.
var ErrRevisionInFlight = errors.New("a revision is already in progress for this project")

// Ledger debits and credits the user's prepaid balance. Debit must be
// atomic and conditional; a failed downstream step is compensated with a
// Credit of the same amount.
type Ledger interface {
	Debit(ctx context.Context, userID string, amount int) error
	Credit(ctx context.Context, userID string, amount int) error
}

// ProjectStore is the subset of project state the workflows touch
type ProjectStore interface {
	SetStatus(ctx context.Context, projectID, status string) error
}

// VersionCommitter finalizes a successful generation atomically: snapshot,
// pointer move, ready status and acknowledgment in one unit.
type VersionCommitter interface {
	CommitRevision(ctx context.Context, projectID, code, description, ackMessage string) (*models.Version, error)
}

// ConversationStore appends to the project's chat log
type ConversationStore interface {
	Append(ctx context.Context, projectID, role, content string) error
}

// Generator is the external chat-completion service
type Generator interface {
	Enhance(ctx context.Context, message string) (string, error)
	GenerateWebsite(ctx context.Context, instruction, currentCode string) (string, error)
}

// ReleaseFunc releases an acquired lock
type ReleaseFunc func()

// Locker serializes revisions per project
type Locker interface {
	Acquire(ctx context.Context, projectID string) (ReleaseFunc, error)
}

// Broker publishes generation progress and lets the SSE handler subscribe
type Broker interface {
	Publish(ctx context.Context, ev models.ProgressEvent)
	Subscribe(ctx context.Context, projectID string) (<-chan models.ProgressEvent, func())
}
