package activity

import (
	"context"
	"time"

	"github.com/goliatone/go-blocks/pkg/interfaces/logger"
)

// Verbs emitted when a block render reaches a terminal state.
const (
	VerbRendered = "block.rendered"
	VerbSkipped  = "block.skipped"
	VerbFailed   = "block.failed"
)

// ObjectTypeBlock is the object type attached to block events.
const ObjectTypeBlock = "block_instance"

// Event captures the common fields consumers need to record activity/audit events.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	TenantID   string
	OrgID      string
	ObjectType string
	ObjectID   string
	BlockType  string
	State      string
	Cached     bool
	Duration   time.Duration
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook observers receive activity events.
type Hook interface {
	Notify(ctx context.Context, evt Event)
}

// Hooks provides a convenient fan-out collection.
type Hooks []Hook

// Notify delivers the event to every hook, skipping nil entries.
func (h Hooks) Notify(ctx context.Context, evt Event) {
	if len(h) == 0 {
		return
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	for _, hook := range h {
		if hook == nil {
			continue
		}
		hook.Notify(ctx, evt)
	}
}

// Nop is a no-op hook useful for defaults.
type Nop struct{}

func (Nop) Notify(_ context.Context, _ Event) {}

// LogHook writes each event as a structured log line.
type LogHook struct {
	Logger logger.Logger
}

func (h LogHook) Notify(_ context.Context, evt Event) {
	if h.Logger == nil {
		return
	}
	fields := []logger.Field{
		logger.F("type", evt.BlockType),
		logger.F("instance", evt.ObjectID),
		logger.F("state", evt.State),
		logger.F("duration", evt.Duration),
	}
	if evt.Cached {
		fields = append(fields, logger.F("cached", true))
	}
	if evt.Err != nil {
		h.Logger.Warn(evt.Verb, append(fields, logger.F("error", evt.Err))...)
		return
	}
	h.Logger.Debug(evt.Verb, fields...)
}

// CloneMetadata makes a shallow copy so hooks can mutate without affecting callers.
func CloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
