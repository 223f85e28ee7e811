package activity

import (
	"strings"
	"time"
)

const (
	VerbInserted = "attributes.inserted"
	VerbUpdated  = "attributes.updated"
	VerbDeleted  = "attributes.deleted"
	VerbReloaded = "attributes.reloaded"
)

// AttributeEventInput describes the common fields of persistence events
// emitted for an attribute registry.
type AttributeEventInput struct {
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	Changed        []string
	OldValues      map[string]any
	NewValues      map[string]any
	OccurredAt     time.Time
}

// BuildInsertedEvent constructs the event for a first persistence.
func BuildInsertedEvent(input AttributeEventInput) Event {
	return buildAttributeEvent(VerbInserted, input)
}

// BuildUpdatedEvent constructs the event for a persistence of changes.
func BuildUpdatedEvent(input AttributeEventInput) Event {
	return buildAttributeEvent(VerbUpdated, input)
}

// BuildDeletedEvent constructs the event for an unpersist.
func BuildDeletedEvent(input AttributeEventInput) Event {
	return buildAttributeEvent(VerbDeleted, input)
}

// BuildReloadedEvent constructs the event for a reload from the store.
func BuildReloadedEvent(input AttributeEventInput) Event {
	return buildAttributeEvent(VerbReloaded, input)
}

func buildAttributeEvent(verb string, input AttributeEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if len(input.Changed) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["changed"] = append([]string{}, input.Changed...)
	}
	if len(input.OldValues) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["old_values"] = cloneMap(input.OldValues)
	}
	if len(input.NewValues) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["new_values"] = cloneMap(input.NewValues)
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectType := strings.TrimSpace(input.ObjectType)
	if objectType == "" {
		objectType = "attributes"
	}

	return Event{
		Verb:           verb,
		ActorID:        strings.TrimSpace(input.ActorID),
		UserID:         strings.TrimSpace(input.UserID),
		TenantID:       strings.TrimSpace(input.TenantID),
		ObjectType:     objectType,
		ObjectID:       strings.TrimSpace(input.ObjectID),
		Channel:        strings.TrimSpace(input.Channel),
		DefinitionCode: strings.TrimSpace(input.DefinitionCode),
		Recipients:     recipients,
		Metadata:       metadata,
		OccurredAt:     input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
