package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

func TestLocalLockerSerializesPerProject(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "p1")
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, "p1"); !errors.Is(err, ErrRevisionInFlight) {
		t.Fatalf("expected ErrRevisionInFlight for held lock, got %v", err)
	}

	// A different project is unaffected
	otherRelease, err := locker.Acquire(ctx, "p2")
	if err != nil {
		t.Fatalf("Acquire for a different project failed: %v", err)
	}
	otherRelease()

	release()
	release2, err := locker.Acquire(ctx, "p1")
	if err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
	release2()
}

func TestLocalBrokerDeliversToSubscribers(t *testing.T) {
	broker := NewLocalBroker()
	ctx := context.Background()

	events, cancel := broker.Subscribe(ctx, "p1")
	defer cancel()

	broker.Publish(ctx, Event("p1", StageGenerating, "working"))
	broker.Publish(ctx, Event("p2", StageGenerating, "other project"))

	select {
	case ev := <-events:
		if ev.ProjectID != "p1" || ev.Stage != StageGenerating {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("expected an event for the subscribed project")
	}

	select {
	case ev := <-events:
		t.Fatalf("received event for a different project: %+v", ev)
	default:
	}
}

func TestLocalBrokerCancelClosesChannel(t *testing.T) {
	broker := NewLocalBroker()
	ctx := context.Background()

	events, cancel := broker.Subscribe(ctx, "p1")
	cancel()

	if _, ok := <-events; ok {
		t.Fatal("channel should be closed after cancel")
	}

	// Publishing after cancel must not panic
	broker.Publish(ctx, models.ProgressEvent{ProjectID: "p1", Stage: StageCompleted})
}
