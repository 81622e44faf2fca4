package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
	"github.com/aisitebuildapp/aisitebuild/internal/services"
)

// --- fakes ---

type fakeLedger struct {
	mu      sync.Mutex
	balance int
	debits  int
	refunds int
}

func (f *fakeLedger) Debit(ctx context.Context, userID string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balance < amount {
		return services.ErrInsufficientCredits
	}
	f.balance -= amount
	f.debits++
	return nil
}

func (f *fakeLedger) Credit(ctx context.Context, userID string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance += amount
	f.refunds++
	return nil
}

func (f *fakeLedger) Balance() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance
}

type fakeConversations struct {
	mu      sync.Mutex
	entries []models.Message
}

func (f *fakeConversations) Append(ctx context.Context, projectID, role, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, models.Message{ProjectID: projectID, Role: role, Content: content})
	return nil
}

func (f *fakeConversations) Entries() []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Message, len(f.entries))
	copy(out, f.entries)
	return out
}

type fakeProjects struct {
	mu       sync.Mutex
	statuses map[string]string
	created  []string
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{statuses: make(map[string]string)}
}

func (f *fakeProjects) SetStatus(ctx context.Context, projectID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[projectID] = status
	return nil
}

func (f *fakeProjects) Create(ctx context.Context, userID, prompt string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, prompt)
	return &models.Project{
		ID:     "p1",
		UserID: userID,
		Status: models.ProjectStatusGenerating,
	}, nil
}

func (f *fakeProjects) Status(projectID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[projectID]
}

type committed struct {
	projectID   string
	code        string
	description string
	ack         string
}

type fakeCommitter struct {
	mu      sync.Mutex
	commits []committed
	err     error
}

func (f *fakeCommitter) CommitRevision(ctx context.Context, projectID, code, description, ackMessage string) (*models.Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.commits = append(f.commits, committed{projectID, code, description, ackMessage})
	return &models.Version{ID: fmt.Sprintf("v%d", len(f.commits)), ProjectID: projectID, Code: code}, nil
}

func (f *fakeCommitter) Commits() []committed {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]committed, len(f.commits))
	copy(out, f.commits)
	return out
}

type fakeLLM struct {
	enhanceOut  string
	enhanceErr  error
	generateOut string
	generateErr error
}

func (f *fakeLLM) Enhance(ctx context.Context, message string) (string, error) {
	return f.enhanceOut, f.enhanceErr
}

func (f *fakeLLM) GenerateWebsite(ctx context.Context, instruction, currentCode string) (string, error) {
	return f.generateOut, f.generateErr
}

// waitBroker records events and signals when a terminal stage arrives
type waitBroker struct {
	mu     sync.Mutex
	events []models.ProgressEvent
	done   chan struct{}
	once   sync.Once
}

func newWaitBroker() *waitBroker {
	return &waitBroker{done: make(chan struct{})}
}

func (b *waitBroker) Publish(ctx context.Context, ev models.ProgressEvent) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
	if ev.Stage == StageCompleted || ev.Stage == StageFailed {
		b.once.Do(func() { close(b.done) })
	}
}

func (b *waitBroker) Subscribe(ctx context.Context, projectID string) (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent)
	return ch, func() {}
}

func (b *waitBroker) wait(t *testing.T) {
	t.Helper()
	select {
	case <-b.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for terminal progress event")
	}
}

func (b *waitBroker) terminal(t *testing.T) models.ProgressEvent {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		t.Fatal("no progress events recorded")
	}
	return b.events[len(b.events)-1]
}

// --- helpers ---

type revisionEnv struct {
	ledger        *fakeLedger
	projects      *fakeProjects
	committer     *fakeCommitter
	conversations *fakeConversations
	llm           *fakeLLM
	broker        *waitBroker
	rev           *Revision
}

func newRevisionEnv(balance int, llmFake *fakeLLM) *revisionEnv {
	env := &revisionEnv{
		ledger:        &fakeLedger{balance: balance},
		projects:      newFakeProjects(),
		committer:     &fakeCommitter{},
		conversations: &fakeConversations{},
		llm:           llmFake,
		broker:        newWaitBroker(),
	}
	env.rev = &Revision{
		Ledger:        env.ledger,
		Projects:      env.projects,
		Versions:      env.committer,
		Conversations: env.conversations,
		LLM:           env.llm,
		Locks:         NewLocalLocker(),
		Progress:      env.broker,
	}
	return env
}

func testProject() *models.Project {
	return &models.Project{
		ID:          "p1",
		UserID:      "u1",
		CurrentCode: "<html>old</html>",
		Status:      models.ProjectStatusReady,
	}
}

// --- tests ---

func TestRevisionInsufficientCredits(t *testing.T) {
	env := newRevisionEnv(4, &fakeLLM{})

	err := env.rev.Start(context.Background(), testProject(), "make it blue")
	if !errors.Is(err, services.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if got := env.ledger.Balance(); got != 4 {
		t.Errorf("balance changed: got %d, want 4", got)
	}
	if entries := env.conversations.Entries(); len(entries) != 0 {
		t.Errorf("expected no conversation entries, got %d", len(entries))
	}
}

func TestRevisionLockConflict(t *testing.T) {
	env := newRevisionEnv(100, &fakeLLM{})

	// Hold the project lock as if another revision were running
	release, err := env.rev.Locks.Acquire(context.Background(), "p1")
	if err != nil {
		t.Fatalf("failed to pre-acquire lock: %v", err)
	}
	defer release()

	err = env.rev.Start(context.Background(), testProject(), "make it blue")
	if !errors.Is(err, ErrRevisionInFlight) {
		t.Fatalf("expected ErrRevisionInFlight, got %v", err)
	}
	if got := env.ledger.Balance(); got != 100 {
		t.Errorf("balance changed: got %d, want 100", got)
	}
}

func TestRevisionSuccess(t *testing.T) {
	env := newRevisionEnv(10, &fakeLLM{
		enhanceOut:  "change the header background to blue",
		generateOut: "<html>new</html>",
	})

	if err := env.rev.Start(context.Background(), testProject(), "make it blue"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	env.broker.wait(t)

	commits := env.committer.Commits()
	if len(commits) != 1 {
		t.Fatalf("expected exactly one committed version, got %d", len(commits))
	}
	if commits[0].code != "<html>new</html>" {
		t.Errorf("committed code = %q", commits[0].code)
	}
	if commits[0].description != "changes made" {
		t.Errorf("committed description = %q", commits[0].description)
	}

	if got := env.ledger.Balance(); got != 5 {
		t.Errorf("balance = %d, want 5 (single debit, no refund)", got)
	}

	entries := env.conversations.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 conversation entries (user, enhanced, working), got %d", len(entries))
	}
	if entries[0].Role != models.RoleUser || entries[0].Content != "make it blue" {
		t.Errorf("first entry should be the user message, got %+v", entries[0])
	}
	for _, e := range entries[1:] {
		if e.Role != models.RoleAssistant {
			t.Errorf("expected assistant entry, got %+v", e)
		}
	}

	if ev := env.broker.terminal(t); ev.Stage != StageCompleted {
		t.Errorf("terminal stage = %q, want %q", ev.Stage, StageCompleted)
	}
}

func TestRevisionGenerationFailureRefunds(t *testing.T) {
	env := newRevisionEnv(10, &fakeLLM{
		enhanceOut:  "change the header",
		generateErr: errors.New("upstream exploded"),
	})

	if err := env.rev.Start(context.Background(), testProject(), "make it blue"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	env.broker.wait(t)

	if got := env.ledger.Balance(); got != 10 {
		t.Errorf("balance = %d, want 10 (debit and refund cancel exactly)", got)
	}
	if len(env.committer.Commits()) != 0 {
		t.Error("no version should be committed on failure")
	}
	if got := env.projects.Status("p1"); got != models.ProjectStatusFailed {
		t.Errorf("project status = %q, want %q", got, models.ProjectStatusFailed)
	}
	if ev := env.broker.terminal(t); ev.Stage != StageFailed {
		t.Errorf("terminal stage = %q, want %q", ev.Stage, StageFailed)
	}
}

func TestRevisionEnhanceFailureRefunds(t *testing.T) {
	env := newRevisionEnv(7, &fakeLLM{enhanceErr: errors.New("no capacity")})

	if err := env.rev.Start(context.Background(), testProject(), "make it blue"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	env.broker.wait(t)

	if got := env.ledger.Balance(); got != 7 {
		t.Errorf("balance = %d, want 7", got)
	}
	if len(env.committer.Commits()) != 0 {
		t.Error("no version should be committed when enhancement fails")
	}
}

func TestRevisionEmptyGenerationIsSoftSuccess(t *testing.T) {
	env := newRevisionEnv(10, &fakeLLM{
		enhanceOut:  "change the header",
		generateOut: "",
	})

	if err := env.rev.Start(context.Background(), testProject(), "make it blue"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	env.broker.wait(t)

	if len(env.committer.Commits()) != 0 {
		t.Error("empty generation must not create a version")
	}
	if got := env.ledger.Balance(); got != 10 {
		t.Errorf("balance = %d, want 10 (debit refunded)", got)
	}

	entries := env.conversations.Entries()
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries (user, enhanced, working, ack), got %d", len(entries))
	}
	last := entries[len(entries)-1]
	if last.Role != models.RoleAssistant || last.Content != msgRevisionAck {
		t.Errorf("expected trailing acknowledgment, got %+v", last)
	}

	if got := env.projects.Status("p1"); got != models.ProjectStatusReady {
		t.Errorf("project status = %q, want %q", got, models.ProjectStatusReady)
	}
	if ev := env.broker.terminal(t); ev.Stage != StageCompleted {
		t.Errorf("terminal stage = %q, want %q", ev.Stage, StageCompleted)
	}
}

func TestRevisionReleasesLockAfterCompletion(t *testing.T) {
	env := newRevisionEnv(100, &fakeLLM{
		enhanceOut:  "x",
		generateOut: "<html>v2</html>",
	})

	if err := env.rev.Start(context.Background(), testProject(), "first"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	env.broker.wait(t)

	// The lock must be free again once the saga finishes
	release, err := env.rev.Locks.Acquire(context.Background(), "p1")
	if err != nil {
		t.Fatalf("lock still held after completion: %v", err)
	}
	release()
}
