package pds

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bluesky-social/indigo/atproto/atclient"
	"github.com/bluesky-social/indigo/atproto/syntax"
)

// NewFromPasswordAuth creates an authenticated PDS client using an app
// password. This performs com.atproto.server.createSession and keeps the
// resulting Bearer token on the client.
func NewFromPasswordAuth(ctx context.Context, host, handle, password string) (Client, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if handle == "" {
		return nil, fmt.Errorf("handle is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	// LoginWithPasswordHost handles the createSession call and Bearer
	// token setup
	apiClient, err := atclient.LoginWithPasswordHost(ctx, host, handle, password, "", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to login with password: %w", err)
	}

	did := ""
	if apiClient.AccountDID != nil {
		did = apiClient.AccountDID.String()
	}

	return &client{
		apiClient: apiClient,
		did:       did,
		host:      host,
	}, nil
}

// NewFromAccessToken creates an authenticated PDS client from an existing
// Bearer access token, e.g. a session resumed from local storage.
func NewFromAccessToken(host, did, accessToken string) (Client, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if did == "" {
		return nil, fmt.Errorf("did is required")
	}
	if accessToken == "" {
		return nil, fmt.Errorf("accessToken is required")
	}

	apiClient := atclient.NewAPIClient(host)
	apiClient.Auth = &bearerAuth{token: accessToken}

	return &client{
		apiClient: apiClient,
		did:       did,
		host:      host,
	}, nil
}

// AuthSession holds the tokens from a password login, suitable for
// persisting and later resuming with NewFromAccessToken.
type AuthSession struct {
	DID        string
	Handle     string
	AccessJWT  string
	RefreshJWT string
}

// CreateSession performs com.atproto.server.createSession and returns the
// session tokens. Use this instead of NewFromPasswordAuth when the login
// must be persisted across process runs.
func CreateSession(ctx context.Context, host, identifier, password string) (*AuthSession, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if identifier == "" {
		return nil, fmt.Errorf("identifier is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	apiClient := atclient.NewAPIClient(host)

	payload := map[string]any{
		"identifier": identifier,
		"password":   password,
	}

	var result struct {
		DID        string `json:"did"`
		Handle     string `json:"handle"`
		AccessJwt  string `json:"accessJwt"`
		RefreshJwt string `json:"refreshJwt"`
	}

	if err := apiClient.Post(ctx, syntax.NSID("com.atproto.server.createSession"), payload, &result); err != nil {
		return nil, wrapAPIError(err, "createSession")
	}

	return &AuthSession{
		DID:        result.DID,
		Handle:     result.Handle,
		AccessJWT:  result.AccessJwt,
		RefreshJWT: result.RefreshJwt,
	}, nil
}

// NewReadOnly creates an unauthenticated client for public reads
// (listRecords/getRecord on any repo hosted by the PDS). Write operations
// on this client fail with ErrUnauthorized before touching the network.
func NewReadOnly(host string) (Client, error) {
	if host == "" {
		return nil, fmt.Errorf("host is required")
	}

	return &client{
		apiClient: atclient.NewAPIClient(host),
		host:      host,
	}, nil
}

// bearerAuth implements atclient.AuthMethod for simple Bearer token auth.
type bearerAuth struct {
	token string
}

var _ atclient.AuthMethod = (*bearerAuth)(nil)

// DoWithAuth adds the Bearer token to the request and executes it.
func (b *bearerAuth) DoWithAuth(c *http.Client, req *http.Request, _ syntax.NSID) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+b.token)
	return c.Do(req)
}
