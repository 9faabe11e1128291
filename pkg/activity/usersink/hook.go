package usersink

import (
	"context"
	"time"

	"github.com/goliatone/go-blocks/pkg/activity"
	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Channel tags every record forwarded by the hook.
const Channel = "blocks"

// Hook adapts activity events into go-users ActivitySink records.
type Hook struct {
	Sink types.ActivitySink
}

// Notify maps the activity event into a types.ActivityRecord and forwards it.
func (h Hook) Notify(ctx context.Context, evt activity.Event) {
	if h.Sink == nil {
		return
	}
	objectType := evt.ObjectType
	if objectType == "" {
		objectType = activity.ObjectTypeBlock
	}
	record := types.ActivityRecord{
		ID:         uuid.New(),
		UserID:     parseUUID(evt.UserID),
		ActorID:    parseUUID(evt.ActorID),
		Verb:       evt.Verb,
		ObjectType: objectType,
		ObjectID:   evt.ObjectID,
		Channel:    Channel,
		TenantID:   parseUUID(evt.TenantID),
		OrgID:      parseUUID(evt.OrgID),
		Data:       buildData(evt),
		OccurredAt: evt.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now().UTC()
	}
	_ = h.Sink.Log(ctx, record)
}

func buildData(evt activity.Event) map[string]any {
	data := activity.CloneMetadata(evt.Metadata)
	if data == nil {
		data = make(map[string]any)
	}
	if evt.BlockType != "" {
		data["block_type"] = evt.BlockType
	}
	if evt.State != "" {
		data["state"] = evt.State
	}
	if evt.Cached {
		data["cached"] = true
	}
	if evt.Duration > 0 {
		data["duration_ms"] = evt.Duration.Milliseconds()
	}
	if evt.Err != nil {
		data["error"] = evt.Err.Error()
	}
	return data
}

func parseUUID(raw string) uuid.UUID {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil
	}
	return id
}
