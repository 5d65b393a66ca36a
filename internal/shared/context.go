package shared

import "context"

// Actor identifies the acting user for a mutating call. The identity provider
// is external; the engine trusts the supplied role and only compares it
// against workflow rule roles.
type Actor struct {
	ID   int64
	Role string
}

type contextKey string

const actorKey contextKey = "actor"

// ContextWithActor stores the actor in the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the actor stored in the context, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
