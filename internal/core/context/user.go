// Package context carries request-scoped values: the trace and the
// authenticated actor.
package context

import (
	"context"
	"errors"
	"slices"

	"cashpoint/internal/core/id"
)

// UserContext is the identity decoded from an access token.
type UserContext struct {
	UserID   string
	TenantID string
	UserName string
	Email    string
	Roles    []string
}

// Actor is the pre-validated caller of every core operation.
// All reads and writes are scoped by TenantID.
type Actor struct {
	TenantID id.ID
	UserID   id.ID
	UserName string
	Role     string
}

// HasRole reports whether the actor's role is one of roles.
func (a Actor) HasRole(roles ...string) bool {
	return slices.Contains(roles, a.Role)
}

var (
	ErrNoUser        = errors.New("user not found in context")
	ErrInvalidTenant = errors.New("invalid tenant id")
	ErrInvalidUser   = errors.New("invalid user id")
)

// ActorFromUser validates token identity. The first role is the effective one.
func ActorFromUser(u *UserContext) (Actor, error) {
	if u == nil {
		return Actor{}, ErrNoUser
	}
	tenantID, err := id.Parse(u.TenantID)
	if err != nil || id.IsNil(tenantID) {
		return Actor{}, ErrInvalidTenant
	}
	userID, err := id.Parse(u.UserID)
	if err != nil {
		return Actor{}, ErrInvalidUser
	}
	a := Actor{TenantID: tenantID, UserID: userID, UserName: u.UserName}
	if len(u.Roles) > 0 {
		a.Role = u.Roles[0]
	}
	return a, nil
}

type actorKey struct{}

// WithActor stores a validated actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// GetActor returns the actor stored by WithActor.
func GetActor(ctx context.Context) (Actor, error) {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a, nil
	}
	return Actor{}, ErrNoUser
}
