package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/centavo-app/centavo/internal/remote"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func testServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(JWTConfig{HS256Secret: testSecret}, zerolog.Nop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func authedRequest(t *testing.T, method, url, userID string, body []byte) *http.Request {
	t.Helper()
	token, err := IssueToken(testSecret, userID, time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth_MissingToken(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/v1/users/alice/categories")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_BadSignature(t *testing.T) {
	_, ts := testServer(t)

	token, err := IssueToken("wrong-secret", "alice", time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/users/alice/categories", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ExpiredToken(t *testing.T) {
	_, ts := testServer(t)

	token, err := IssueToken(testSecret, "alice", -time.Hour)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/v1/users/alice/categories", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ForeignUserForbidden(t *testing.T) {
	_, ts := testServer(t)

	// Valid token for bob, addressing alice's collection.
	req := authedRequest(t, http.MethodGet, ts.URL+"/v1/users/alice/categories", "bob", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMerge_UnknownTable(t *testing.T) {
	_, ts := testServer(t)

	req := authedRequest(t, http.MethodPatch, ts.URL+"/v1/users/alice/widgets/doc-1", "alice",
		[]byte(`{"name":"x"}`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMerge_InvalidBody(t *testing.T) {
	_, ts := testServer(t)

	req := authedRequest(t, http.MethodPatch, ts.URL+"/v1/users/alice/categories/doc-1", "alice",
		[]byte(`{not json`))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMerge_CreatesAndPatches(t *testing.T) {
	srv, ts := testServer(t)
	now := time.Now().UTC()

	body, _ := json.Marshal(map[string]any{
		"name":       "Groceries",
		"icon":       "cart",
		"updated_at": budget.FormatTime(now),
	})
	req := authedRequest(t, http.MethodPatch, ts.URL+"/v1/users/alice/categories/cat-1", "alice", body)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// A second patch with a subset of fields leaves the rest untouched.
	body, _ = json.Marshal(map[string]any{"name": "Food"})
	req = authedRequest(t, http.MethodPatch, ts.URL+"/v1/users/alice/categories/cat-1", "alice", body)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	doc := srv.Collections().Get("alice", budget.Categories, "cat-1")
	require.NotNil(t, doc)
	assert.Equal(t, "Food", doc["name"])
	assert.Equal(t, "cart", doc["icon"], "partial merge must not drop untouched fields")
}

func TestQuery_UpdatedAfter(t *testing.T) {
	srv, ts := testServer(t)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	srv.Collections().Merge("alice", budget.Categories, "old", map[string]any{
		"name":       "Old",
		"updated_at": budget.FormatTime(base.Add(-time.Hour)),
	})
	srv.Collections().Merge("alice", budget.Categories, "new", map[string]any{
		"name":       "New",
		"updated_at": budget.FormatTime(base.Add(time.Hour)),
	})

	url := ts.URL + "/v1/users/alice/categories?updatedAfter=" + budget.FormatTime(base)
	req := authedRequest(t, http.MethodGet, url, "alice", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Documents []remote.Document `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Len(t, payload.Documents, 1)
	assert.Equal(t, "new", payload.Documents[0].ID)
}

func TestQuery_EmptyCollection(t *testing.T) {
	_, ts := testServer(t)

	req := authedRequest(t, http.MethodGet, ts.URL+"/v1/users/alice/categories", "alice", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Documents []remote.Document `json:"documents"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotNil(t, payload.Documents, "empty collection must encode as [], not null")
	assert.Empty(t, payload.Documents)
}

func TestQuery_InvalidTimestamp(t *testing.T) {
	_, ts := testServer(t)

	req := authedRequest(t, http.MethodGet,
		ts.URL+"/v1/users/alice/categories?updatedAfter=yesterday", "alice", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCollections_UserIsolation(t *testing.T) {
	c := NewCollections()
	now := time.Now().UTC()

	c.Merge("alice", budget.Categories, "cat-1", map[string]any{
		"name":       "Alice's",
		"updated_at": budget.FormatTime(now),
	})

	assert.Nil(t, c.Get("bob", budget.Categories, "cat-1"))
	assert.Empty(t, c.ChangedAfter("bob", budget.Categories, time.Unix(0, 0).UTC()))
}

func TestCollections_TombstoneChangedAt(t *testing.T) {
	c := NewCollections()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	c.Merge("alice", budget.Categories, "cat-1", map[string]any{
		"name":       "Doomed",
		"updated_at": budget.FormatTime(base.Add(-time.Hour)),
	})

	// Nothing changed after base yet.
	require.Empty(t, c.ChangedAfter("alice", budget.Categories, base))

	// A delete merge writes only the marker; the document must still
	// surface in delta queries at its deleted_at.
	c.Merge("alice", budget.Categories, "cat-1", map[string]any{
		"deleted_at": budget.FormatTime(base.Add(time.Hour)),
	})

	docs := c.ChangedAfter("alice", budget.Categories, base)
	require.Len(t, docs, 1)
	assert.True(t, docs[0].Deleted())
	assert.Equal(t, "Doomed", docs[0].Fields["name"])
}
