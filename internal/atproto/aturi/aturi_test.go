package aturi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romiojoseph/at-protocol/internal/atproto/identity"
)

// stubResolver resolves a fixed handle to a fixed DID
type stubResolver struct {
	handle string
	did    string
	err    error
}

func (s *stubResolver) Resolve(ctx context.Context, identifier string) (*identity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if identifier != s.handle {
		return nil, &identity.ErrNotFound{Identifier: identifier}
	}
	return &identity.Identity{DID: s.did, Handle: s.handle}, nil
}

func (s *stubResolver) ResolveHandle(ctx context.Context, handle string) (string, string, error) {
	ident, err := s.Resolve(ctx, handle)
	if err != nil {
		return "", "", err
	}
	return ident.DID, ident.PDSURL, nil
}

func (s *stubResolver) Purge(ctx context.Context, identifier string) error { return nil }

func TestURIParts(t *testing.T) {
	uri := "at://did:plc:abc123/com.example.blog.post/3kabc"

	assert.Equal(t, "did:plc:abc123", Authority(uri))
	assert.Equal(t, "com.example.blog.post", Collection(uri))
	assert.Equal(t, "3kabc", RKey(uri))

	assert.Equal(t, "", Authority("not-a-uri"))
	assert.Equal(t, "", Collection("at://did:plc:abc123"))
	assert.Equal(t, "", RKey("at://did:plc:abc123/com.example.blog.post"))
}

func TestCompose(t *testing.T) {
	assert.Equal(t,
		"at://did:plc:abc123/app.bsky.feed.post/3kabc",
		Compose("did:plc:abc123", "app.bsky.feed.post", "3kabc"))
}

func TestCanonicalize(t *testing.T) {
	resolver := &stubResolver{handle: "alice.bsky.social", did: "did:plc:abc123"}

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "canonical AT-URI passes through",
			input: "at://did:plc:abc123/app.bsky.feed.post/3kabc",
			want:  "at://did:plc:abc123/app.bsky.feed.post/3kabc",
		},
		{
			name:  "AT-URI with handle authority resolves",
			input: "at://alice.bsky.social/app.bsky.feed.post/3kabc",
			want:  "at://did:plc:abc123/app.bsky.feed.post/3kabc",
		},
		{
			name:  "bsky.app URL with handle",
			input: "https://bsky.app/profile/alice.bsky.social/post/3kabc",
			want:  "at://did:plc:abc123/app.bsky.feed.post/3kabc",
		},
		{
			name:  "bsky.app URL with DID",
			input: "https://bsky.app/profile/did:plc:abc123/post/3kabc",
			want:  "at://did:plc:abc123/app.bsky.feed.post/3kabc",
		},
		{
			name:    "garbage input",
			input:   "not a post reference",
			wantErr: ErrUnrecognizedFormat,
		},
		{
			name:    "web URL with wrong path shape",
			input:   "https://bsky.app/settings",
			wantErr: ErrUnrecognizedFormat,
		},
		{
			name:    "AT-URI without rkey",
			input:   "at://did:plc:abc123/app.bsky.feed.post",
			wantErr: ErrUnrecognizedFormat,
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: ErrUnrecognizedFormat,
		},
		{
			name:    "unknown handle",
			input:   "https://bsky.app/profile/ghost.bsky.social/post/3kabc",
			wantErr: ErrResolutionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(context.Background(), tt.input, resolver)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
