package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAppView = "https://public.api.bsky.app"

// Client fetches profiles from a public AppView. No authentication is
// required for getProfile.
type Client struct {
	appView    string
	httpClient *http.Client
}

// NewClient creates a profile client. If appView is empty it defaults to
// the public Bluesky AppView.
func NewClient(appView string) *Client {
	if appView == "" {
		appView = defaultAppView
	}
	return &Client{
		appView: strings.TrimRight(appView, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

var _ Lookup = (*Client)(nil)

// GetProfile fetches the actor's public profile.
func (c *Client) GetProfile(ctx context.Context, actor string) (*Profile, error) {
	actor = strings.TrimSpace(strings.TrimPrefix(actor, "@"))
	if actor == "" {
		return nil, fmt.Errorf("actor is required")
	}

	endpoint := c.appView + "/xrpc/app.bsky.actor.getProfile?actor=" + url.QueryEscape(actor)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build getProfile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getProfile: %w", err)
	}
	defer resp.Body.Close()

	// The AppView answers 400 with InvalidRequest for unknown actors
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return nil, &ErrProfileNotFound{Actor: actor}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("getProfile: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		DID         string `json:"did"`
		Handle      string `json:"handle"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode getProfile response: %w", err)
	}

	return &Profile{
		DID:         result.DID,
		Handle:      result.Handle,
		DisplayName: result.DisplayName,
	}, nil
}
