package pds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientImplementsInterface(t *testing.T) {
	var _ Client = (*client)(nil)
}

func TestListRecords(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.listRecords" {
			http.NotFound(w, r)
			return
		}
		gotQuery = map[string]string{
			"repo":       r.URL.Query().Get("repo"),
			"collection": r.URL.Query().Get("collection"),
			"limit":      r.URL.Query().Get("limit"),
			"cursor":     r.URL.Query().Get("cursor"),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"cursor": "next-page",
			"records": []map[string]any{
				{
					"uri":   "at://did:plc:abc/com.example.blog.post/3k1",
					"cid":   "bafy1",
					"value": map[string]any{"title": "First"},
				},
				{
					"uri":   "at://did:plc:abc/com.example.blog.post/3k2",
					"cid":   "bafy2",
					"value": map[string]any{"title": "Second"},
				},
			},
		})
	}))
	defer server.Close()

	c, err := NewReadOnly(server.URL)
	require.NoError(t, err)

	resp, err := c.ListRecords(context.Background(), "did:plc:abc", "com.example.blog.post", 50, "page-two")
	require.NoError(t, err)

	assert.Equal(t, "did:plc:abc", gotQuery["repo"])
	assert.Equal(t, "com.example.blog.post", gotQuery["collection"])
	assert.Equal(t, "50", gotQuery["limit"])
	assert.Equal(t, "page-two", gotQuery["cursor"])

	assert.Equal(t, "next-page", resp.Cursor)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "at://did:plc:abc/com.example.blog.post/3k1", resp.Records[0].URI)
	assert.Equal(t, "bafy1", resp.Records[0].CID)
	assert.Equal(t, "First", resp.Records[0].Value["title"])
}

func TestListRecords_NoRepoOnReadOnlyClient(t *testing.T) {
	c, err := NewReadOnly("http://localhost:9999")
	require.NoError(t, err)

	_, err = c.ListRecords(context.Background(), "", "com.example.blog.post", 50, "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestListRecords_BadRequestMapsToTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "InvalidRequest",
			"message": "Could not locate repo",
		})
	}))
	defer server.Close()

	c, err := NewReadOnly(server.URL)
	require.NoError(t, err)

	_, err = c.ListRecords(context.Background(), "did:plc:missing", "com.example.blog.post", 50, "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestCreateRecord(t *testing.T) {
	var gotBody map[string]any
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.createRecord" {
			http.NotFound(w, r)
			return
		}
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"uri": "at://did:plc:abc/com.example.blog.post/3k9",
			"cid": "bafynew",
		})
	}))
	defer server.Close()

	c, err := NewFromAccessToken(server.URL, "did:plc:abc", "token-123")
	require.NoError(t, err)

	uri, cid, err := c.CreateRecord(context.Background(), "com.example.blog.post", "", map[string]any{"title": "Hello"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-123", gotAuth)
	assert.Equal(t, "at://did:plc:abc/com.example.blog.post/3k9", uri)
	assert.Equal(t, "bafynew", cid)
	assert.Equal(t, "did:plc:abc", gotBody["repo"])
	assert.Equal(t, "com.example.blog.post", gotBody["collection"])
	// rkey omitted so the PDS generates a TID
	_, hasRKey := gotBody["rkey"]
	assert.False(t, hasRKey)
}

func TestCreateRecord_ConflictMapsToTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "InvalidSwap",
			"message": "Record already exists",
		})
	}))
	defer server.Close()

	c, err := NewFromAccessToken(server.URL, "did:plc:abc", "token-123")
	require.NoError(t, err)

	_, _, err = c.CreateRecord(context.Background(), "com.example.blog.post", "dup", map[string]any{})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestWritesRequireAuth(t *testing.T) {
	c, err := NewReadOnly("http://localhost:9999")
	require.NoError(t, err)

	ctx := context.Background()

	_, _, err = c.CreateRecord(ctx, "com.example.blog.post", "", map[string]any{})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, _, err = c.PutRecord(ctx, "com.example.blog.post", "rk", map[string]any{}, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = c.DeleteRecord(ctx, "com.example.blog.post", "rk")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeleteRecord(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.repo.deleteRecord" {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
	}))
	defer server.Close()

	c, err := NewFromAccessToken(server.URL, "did:plc:abc", "token-123")
	require.NoError(t, err)

	err = c.DeleteRecord(context.Background(), "com.example.blog.post", "3k1")
	require.NoError(t, err)

	assert.Equal(t, "did:plc:abc", gotBody["repo"])
	assert.Equal(t, "3k1", gotBody["rkey"])
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, IsAuthError(ErrUnauthorized))
	assert.True(t, IsAuthError(ErrForbidden))
	assert.False(t, IsAuthError(ErrNotFound))
	assert.False(t, IsAuthError(nil))
}

func TestCreateSession(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/xrpc/com.atproto.server.createSession" {
			http.NotFound(w, r)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"did":        "did:plc:abc",
			"handle":     "alice.test",
			"accessJwt":  "access-token",
			"refreshJwt": "refresh-token",
		})
	}))
	defer server.Close()

	sess, err := CreateSession(context.Background(), server.URL, "alice.test", "app-password")
	require.NoError(t, err)

	assert.Equal(t, "alice.test", gotBody["identifier"])
	assert.Equal(t, "app-password", gotBody["password"])
	assert.Equal(t, "did:plc:abc", sess.DID)
	assert.Equal(t, "alice.test", sess.Handle)
	assert.Equal(t, "access-token", sess.AccessJWT)
	assert.Equal(t, "refresh-token", sess.RefreshJWT)
}

func TestCreateSession_BadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"AuthenticationRequired","message":"Invalid identifier or password"}`))
	}))
	defer server.Close()

	_, err := CreateSession(context.Background(), server.URL, "alice.test", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
}
