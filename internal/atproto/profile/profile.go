// Package profile looks up public actor profiles (display name, avatar)
// via the AppView's app.bsky.actor.getProfile endpoint. Writes use the
// result to fill the derived author fields of a blog post record.
package profile

import (
	"context"
	"fmt"
)

// Profile is the subset of an actor profile this project needs.
type Profile struct {
	DID         string
	Handle      string
	DisplayName string
}

// Lookup resolves a handle or DID to a public profile.
type Lookup interface {
	// GetProfile fetches the actor's public profile. A missing actor is
	// reported as *ErrProfileNotFound.
	GetProfile(ctx context.Context, actor string) (*Profile, error)
}

// ErrProfileNotFound is returned when the AppView has no profile for the actor
type ErrProfileNotFound struct {
	Actor string
}

func (e *ErrProfileNotFound) Error() string {
	return fmt.Sprintf("profile not found: %s", e.Actor)
}
