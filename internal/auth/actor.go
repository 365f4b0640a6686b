package auth

import (
	"context"
	"strings"

	"connectrpc.com/authn"
	"github.com/google/uuid"
	"github.com/wolfeidau/orgkeeper/internal/apperr"
)

// Actor is the authenticated caller supplied by the identity provider.
// It is stored in the request context by the authn middleware.
type Actor struct {
	ActorID       uuid.UUID
	Email         string
	EmailVerified bool
}

// VerifiedEmail returns the lowercased email of the actor, or "" when the
// identity provider has not verified it.
func (a *Actor) VerifiedEmail() string {
	if a == nil || !a.EmailVerified {
		return ""
	}
	return strings.ToLower(a.Email)
}

// ActorFromContext extracts the authenticated actor from the request context.
// Returns nil if the request is unauthenticated.
func ActorFromContext(ctx context.Context) *Actor {
	actor, _ := authn.GetInfo(ctx).(*Actor)
	return actor
}

// WithActor returns a context carrying actor, for use outside the authn middleware.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return authn.SetInfo(ctx, actor)
}

// RequireActor returns the authenticated actor or an Unauthorized error.
func RequireActor(ctx context.Context) (*Actor, error) {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil, apperr.E(apperr.KindUnauthorized, "auth.RequireActor", "not authenticated")
	}
	return actor, nil
}
