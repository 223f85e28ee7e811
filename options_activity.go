package attrs

import (
	"context"
	"fmt"

	"github.com/goliatone/go-attributes/pkg/activity"
)

type activityConfig struct {
	emitter    *activity.Emitter
	objectType string
}

// WithActivity announces persistence operations through emitter. Events are
// only emitted for owners implementing Identifiable, using objectType and the
// owner UID as the event object.
func WithActivity(emitter *activity.Emitter, objectType string) Option {
	return func(cfg *registryConfig) {
		cfg.activity = activityConfig{emitter: emitter, objectType: objectType}
	}
}

// WithActivityHooks is WithActivity with an always-enabled emitter over hooks.
// Nil hooks are dropped.
func WithActivityHooks(hooks activity.Hooks, objectType string) Option {
	normalized := cloneActivityHooks(hooks)
	return WithActivity(activity.NewEmitter(normalized, activity.Config{Enabled: true}), objectType)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func (r *Registry) emit(ctx context.Context, build func(activity.AttributeEventInput) activity.Event, input activity.AttributeEventInput) error {
	cfg := r.cfg.activity
	if !cfg.emitter.Enabled() {
		return nil
	}
	owner, ok := r.owner.(Identifiable)
	if !ok {
		return nil
	}
	input.ObjectType = cfg.objectType
	input.ObjectID = fmt.Sprint(owner.UID())
	if actor, ok := activity.ActorFromContext(ctx); ok {
		input.ActorID = actor.ActorID
		input.UserID = actor.UserID
		input.TenantID = actor.TenantID
	}
	return cfg.emitter.Emit(ctx, build(input))
}
