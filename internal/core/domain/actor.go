package domain

import (
	"context"

	"github.com/google/uuid"
)

// Actor is the authenticated caller behind a request.
type Actor struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.UserID == uuid.Nil {
		return Actor{}, false
	}
	return actor, true
}
