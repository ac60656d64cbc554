package blogs

import (
	"context"
	"errors"
	"strings"

	"github.com/romiojoseph/at-protocol/internal/atproto/profile"
)

// HandleState tracks author-handle validation through the edit flow.
type HandleState int

const (
	HandleUnvalidated HandleState = iota
	HandleValidating
	HandleValid
	HandleInvalid
)

// HandleValidator is a small state machine for validating the author
// handle of a post form: Unvalidated → Validating → Valid(profile) |
// Invalid(reason), re-entered whenever the handle is edited.
type HandleValidator struct {
	lookup  profile.Lookup
	state   HandleState
	handle  string
	profile *profile.Profile
	reason  string
}

// NewHandleValidator creates a validator over the given profile lookup.
func NewHandleValidator(lookup profile.Lookup) *HandleValidator {
	return &HandleValidator{lookup: lookup}
}

// SetHandle records an edit of the source field, dropping any previous
// validation outcome.
func (v *HandleValidator) SetHandle(handle string) {
	v.handle = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
	v.state = HandleUnvalidated
	v.profile = nil
	v.reason = ""
}

// Validate resolves the current handle. On success the profile is
// retained and the state becomes HandleValid; a missing account or
// empty handle yields HandleInvalid with a reason; infrastructure
// failures leave the state Unvalidated and return the error so the
// caller can retry.
func (v *HandleValidator) Validate(ctx context.Context) (*profile.Profile, error) {
	if v.handle == "" {
		v.state = HandleInvalid
		v.reason = "handle is empty"
		return nil, NewValidationError("authorHandle", v.reason)
	}

	v.state = HandleValidating

	prof, err := v.lookup.GetProfile(ctx, v.handle)
	if err != nil {
		var notFound *profile.ErrProfileNotFound
		if errors.As(err, &notFound) {
			v.state = HandleInvalid
			v.reason = "no account found for " + v.handle
			return nil, NewValidationError("authorHandle", v.reason)
		}
		// Indeterminate: the handle may be fine, the lookup wasn't
		v.state = HandleUnvalidated
		return nil, err
	}

	v.state = HandleValid
	v.profile = prof
	return prof, nil
}

// State returns the current validation state.
func (v *HandleValidator) State() HandleState {
	return v.state
}

// Profile returns the resolved profile when State is HandleValid.
func (v *HandleValidator) Profile() *profile.Profile {
	return v.profile
}

// Reason explains an Invalid state.
func (v *HandleValidator) Reason() string {
	return v.reason
}
