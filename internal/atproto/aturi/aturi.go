// Package aturi parses and composes AT-URIs and canonicalizes the
// human-facing bsky.app post URLs users paste into forms. The canonical
// form of a record reference is at://{did}/{collection}/{rkey}.
package aturi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"

	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
)

// BskyPostCollection is the collection bsky.app post URLs refer to.
const BskyPostCollection = "app.bsky.feed.post"

// ErrUnrecognizedFormat is returned when the input is neither an AT-URI
// nor a recognized web URL.
var ErrUnrecognizedFormat = errors.New("unrecognized post reference format")

// ErrResolutionFailed is returned when the owning identity of a reference
// cannot be resolved to a DID.
var ErrResolutionFailed = errors.New("identity resolution failed")

// Compose builds an AT-URI from its parts.
func Compose(authority, collection, rkey string) string {
	return fmt.Sprintf("at://%s/%s/%s", authority, collection, rkey)
}

// Authority extracts the repo authority (DID or handle) from an AT-URI.
// Returns empty for malformed input.
func Authority(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) < 1 {
		return ""
	}
	return parts[0]
}

// Collection extracts the collection NSID from an AT-URI.
// Format: at://did/collection/rkey -> collection. Empty for malformed input.
func Collection(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}

// RKey extracts the record key from an AT-URI.
// Format: at://did/collection/rkey -> rkey. Empty for malformed input.
func RKey(uri string) string {
	rest, ok := strings.CutPrefix(uri, "at://")
	if !ok {
		return ""
	}
	parts := strings.Split(rest, "/")
	if len(parts) >= 3 && parts[2] != "" {
		return parts[len(parts)-1]
	}
	return ""
}

// Canonicalize turns a post reference into its canonical AT-URI.
//
// Accepted shapes:
//   - at://{did-or-handle}/{collection}/{rkey}: validated; a handle
//     authority is resolved to its DID
//   - https://bsky.app/profile/{actor}/post/{rkey}: rewritten to
//     at://{did}/app.bsky.feed.post/{rkey}
//
// Anything else fails with ErrUnrecognizedFormat; failed identity
// resolution wraps ErrResolutionFailed.
func Canonicalize(ctx context.Context, input string, resolver identity.Resolver) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrUnrecognizedFormat
	}

	if strings.HasPrefix(input, "at://") {
		return canonicalizeATURI(ctx, input, resolver)
	}
	if strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "http://") {
		return canonicalizeWebURL(ctx, input, resolver)
	}

	return "", fmt.Errorf("%w: %q", ErrUnrecognizedFormat, input)
}

func canonicalizeATURI(ctx context.Context, input string, resolver identity.Resolver) (string, error) {
	parsed, err := syntax.ParseATURI(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	authority := parsed.Authority().String()
	collection := parsed.Collection().String()
	rkey := parsed.RecordKey().String()
	if collection == "" || rkey == "" {
		return "", fmt.Errorf("%w: %q is not a record reference", ErrUnrecognizedFormat, input)
	}

	// Already canonical
	if strings.HasPrefix(authority, "did:") {
		return Compose(authority, collection, rkey), nil
	}

	did, err := resolveActor(ctx, authority, resolver)
	if err != nil {
		return "", err
	}

	return Compose(did, collection, rkey), nil
}

func canonicalizeWebURL(ctx context.Context, input string, resolver identity.Resolver) (string, error) {
	parsed, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrecognizedFormat, err)
	}

	// Expect /profile/{actor}/post/{rkey}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "profile" || parts[2] != "post" || parts[1] == "" || parts[3] == "" {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedFormat, input)
	}

	actor, rkey := parts[1], parts[3]
	if !strings.HasPrefix(actor, "did:") {
		actor, err = resolveActor(ctx, actor, resolver)
		if err != nil {
			return "", err
		}
	}

	return Compose(actor, BskyPostCollection, rkey), nil
}

func resolveActor(ctx context.Context, actor string, resolver identity.Resolver) (string, error) {
	if resolver == nil {
		return "", fmt.Errorf("%w: no resolver available for handle %q", ErrResolutionFailed, actor)
	}

	did, _, err := resolver.ResolveHandle(ctx, actor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	if did == "" {
		return "", fmt.Errorf("%w: empty DID for handle %q", ErrResolutionFailed, actor)
	}

	return did, nil
}
