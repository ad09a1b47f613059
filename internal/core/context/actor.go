// Package context carries request-scoped values used for logging and
// attribution. Domain operations never read the tenant from here; it is
// passed to them explicitly.
package context

import (
	"context"
)

// Actor is the authenticated caller, attributed as creator or poster.
type Actor struct {
	ID       string
	TenantID string
}

type actorKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// GetActor returns Actor from context.
func GetActor(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// GetActorID returns the actor id from context or empty string.
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil {
		return a.ID
	}
	return ""
}
