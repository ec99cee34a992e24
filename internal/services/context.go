package services

import (
	"context"

	"instoo/internal/domain"
	"instoo/pkg/logger"
)

type actorKey struct{}

// WithActor stores the authenticated actor on ctx and tags log lines with its id.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, actor)
	return context.WithValue(ctx, logger.ActorIdKey, actor.ID.String())
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}
