package activity

import (
	"context"
	"testing"
)

func TestBuildUpdatedEventIncludesChangeMetadata(t *testing.T) {
	meta := map[string]any{"custom": "value"}
	input := AttributeEventInput{
		ActorID:        " actor ",
		UserID:         " user ",
		TenantID:       " tenant ",
		ObjectType:     " account ",
		ObjectID:       " 42 ",
		Metadata:       meta,
		Changed:        []string{"name"},
		OldValues:      map[string]any{"name": "Alice"},
		NewValues:      map[string]any{"name": "Bob"},
		DefinitionCode: "attributes:update",
		Recipients:     []string{"user@example.com"},
	}

	event := BuildUpdatedEvent(input)

	if event.Verb != VerbUpdated {
		t.Fatalf("expected verb %s got %s", VerbUpdated, event.Verb)
	}
	if event.ObjectType != "account" || event.ObjectID != "42" {
		t.Fatalf("unexpected object fields: %+v", event)
	}
	if event.ActorID != "actor" || event.UserID != "user" || event.TenantID != "tenant" {
		t.Fatalf("unexpected identity fields: %+v", event)
	}
	changed, ok := event.Metadata["changed"].([]string)
	if !ok || len(changed) != 1 || changed[0] != "name" {
		t.Fatalf("expected changed metadata, got %v", event.Metadata["changed"])
	}
	oldValues, _ := event.Metadata["old_values"].(map[string]any)
	newValues, _ := event.Metadata["new_values"].(map[string]any)
	if oldValues["name"] != "Alice" || newValues["name"] != "Bob" {
		t.Fatalf("expected old/new values, got %v %v", oldValues, newValues)
	}
	if event.Metadata["custom"] != "value" {
		t.Fatalf("expected custom metadata preserved, got %+v", event.Metadata)
	}
	event.Metadata["custom"] = "changed"
	if meta["custom"] != "value" {
		t.Fatalf("expected input metadata untouched")
	}
	if len(event.Recipients) != 1 || event.Recipients[0] != "user@example.com" {
		t.Fatalf("expected recipients preserved, got %v", event.Recipients)
	}
}

func TestBuildEventsDefaultObjectType(t *testing.T) {
	builders := map[string]func(AttributeEventInput) Event{
		VerbInserted: BuildInsertedEvent,
		VerbUpdated:  BuildUpdatedEvent,
		VerbDeleted:  BuildDeletedEvent,
		VerbReloaded: BuildReloadedEvent,
	}
	for verb, build := range builders {
		event := build(AttributeEventInput{ObjectID: "7"})
		if event.Verb != verb {
			t.Fatalf("expected verb %s got %s", verb, event.Verb)
		}
		if event.ObjectType != "attributes" {
			t.Fatalf("expected default object type, got %q", event.ObjectType)
		}
		if event.Metadata != nil {
			t.Fatalf("expected no metadata without changes, got %+v", event.Metadata)
		}
	}
}

func TestActorContextRoundTrip(t *testing.T) {
	if _, ok := ActorFromContext(context.Background()); ok {
		t.Fatalf("expected no actor on a bare context")
	}
	ctx := WithActor(context.Background(), Actor{ActorID: "a", TenantID: "t"})
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.ActorID != "a" || actor.TenantID != "t" {
		t.Fatalf("unexpected actor %+v (ok=%v)", actor, ok)
	}
}
