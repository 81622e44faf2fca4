package workflow

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aisitebuildapp/aisitebuild/internal/models"
)

func progressChannel(projectID string) string {
	return "project:progress:" + projectID
}

// Event builds a ProgressEvent with the current timestamp
func Event(projectID, stage, message string) models.ProgressEvent {
	return models.ProgressEvent{
		ProjectID: projectID,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// RedisBroker fans generation progress out over Redis pub/sub so SSE
// subscribers on any instance see events from the instance doing the work.
type RedisBroker struct {
	Client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{Client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, ev models.ProgressEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[progress] failed to marshal event: %v", err)
		return
	}
	if err := b.Client.Publish(ctx, progressChannel(ev.ProjectID), data).Err(); err != nil {
		log.Printf("[progress] failed to publish event: %v", err)
	}
}

func (b *RedisBroker) Subscribe(ctx context.Context, projectID string) (<-chan models.ProgressEvent, func()) {
	sub := b.Client.Subscribe(ctx, progressChannel(projectID))
	out := make(chan models.ProgressEvent, 16)

	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			var ev models.ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("[progress] failed to decode event: %v", err)
				continue
			}
			select {
			case out <- ev:
			default:
				// Slow subscriber; drop rather than block the pump
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return out, cancel
}

// LocalBroker is the in-process fallback used when Redis is not configured
type LocalBroker struct {
	mu   sync.Mutex
	subs map[string]map[chan models.ProgressEvent]struct{}
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[chan models.ProgressEvent]struct{})}
}

func (b *LocalBroker) Publish(ctx context.Context, ev models.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[ev.ProjectID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *LocalBroker) Subscribe(ctx context.Context, projectID string) (<-chan models.ProgressEvent, func()) {
	ch := make(chan models.ProgressEvent, 16)

	b.mu.Lock()
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[chan models.ProgressEvent]struct{})
	}
	b.subs[projectID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[projectID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, projectID)
			}
		}
	}
	return ch, cancel
}
