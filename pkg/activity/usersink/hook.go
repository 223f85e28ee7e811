// Package usersink forwards attribute activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-attributes/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// valueKeys hold attribute values; they leave the process only with IncludeValues.
var valueKeys = map[string]bool{"old_values": true, "new_values": true}

// Hook is an activity.ActivityHook writing one ActivityRecord per event.
// The changed attribute names are always recorded.
type Hook struct {
	Sink          usertypes.ActivitySink
	IncludeValues bool
}

var _ activity.ActivityHook = Hook{}

// Notify drops events without a verb or object and passes sink errors through.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if !event.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(event))
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return usertypes.ActivityRecord{
		ActorID:    toUUID(event.ActorID),
		UserID:     toUUID(event.UserID),
		TenantID:   toUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       h.data(event),
		OccurredAt: occurred,
	}
}

func (h Hook) data(event activity.Event) map[string]any {
	data := make(map[string]any, len(event.Metadata)+2)
	for key, value := range event.Metadata {
		if valueKeys[key] && !h.IncludeValues {
			continue
		}
		data[key] = value
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = append([]string(nil), event.Recipients...)
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// toUUID maps blank or malformed ids to uuid.Nil.
func toUUID(raw string) uuid.UUID {
	if id, err := uuid.Parse(strings.TrimSpace(raw)); err == nil {
		return id
	}
	return uuid.Nil
}
