package activity

import "context"

type actorKey struct{}

// Actor identifies who triggered an operation.
type Actor struct {
	ActorID  string
	UserID   string
	TenantID string
}

// WithActor attaches actor to ctx so emitters deep in a call chain can
// attribute events without extra parameters.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached with WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
