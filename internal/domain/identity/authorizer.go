package identity

import "context"

// Authorizer answers privilege questions about an actor. Services call it before any
// domain logic runs.
type Authorizer interface {
	// IsPrivileged reports whether the actor may approve timecards at the dealership.
	IsPrivileged(ctx context.Context, actorID, dealershipID string) (bool, error)

	// Authorize returns ErrNotPrivileged unless the actor holds permission at the dealership.
	// An empty dealershipID checks the permission globally.
	Authorize(ctx context.Context, actorID, dealershipID string, permission Permission) error
}
