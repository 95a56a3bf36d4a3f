package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/centavo-app/centavo/internal/budget"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Client talks to a centavo sync backend over HTTP.
//
// Documents live under /v1/users/{uid}/{table}/{id}. PATCH merge-writes a
// field map; GET on the collection with ?updatedAfter= returns the delta.
// The user identity is the `sub` claim of the bearer token - the client
// does not verify the signature (the backend does), it only reads the
// claim to scope document paths.
type Client struct {
	baseURL string
	token   string
	userID  string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient creates a client for the backend at baseURL. token may be
// empty, in which case UserID returns "" and sync no-ops.
func NewClient(baseURL, token string, logger zerolog.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("remote base URL is required")
	}

	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "remote").Logger(),
	}

	if token != "" {
		sub, err := subjectOf(token)
		if err != nil {
			return nil, fmt.Errorf("invalid auth token: %w", err)
		}
		c.userID = sub
	}

	return c, nil
}

// subjectOf extracts the sub claim without verifying the signature.
func subjectOf(token string) (string, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject claim")
	}
	return sub, nil
}

// UserID implements Store.
func (c *Client) UserID() string {
	return c.userID
}

func (c *Client) documentURL(userID string, table budget.Table, docID string) string {
	return fmt.Sprintf("%s/v1/users/%s/%s/%s",
		c.baseURL, url.PathEscape(userID), table.Name, url.PathEscape(docID))
}

// MergeDocument implements Store.
func (c *Client) MergeDocument(ctx context.Context, userID string, table budget.Table, docID string, fields map[string]any) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal document fields: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		c.documentURL(userID, table, docID), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build merge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("merge %s/%s failed: %w", table.Name, docID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("merge %s/%s failed: %s", table.Name, docID, responseError(resp))
	}

	c.logger.Debug().Str("table", table.Name).Str("doc", docID).Msg("merged document")
	return nil
}

// DocumentsUpdatedSince implements Store.
func (c *Client) DocumentsUpdatedSince(ctx context.Context, userID string, table budget.Table, since time.Time) ([]Document, error) {
	u := fmt.Sprintf("%s/v1/users/%s/%s?updatedAfter=%s",
		c.baseURL, url.PathEscape(userID), table.Name,
		url.QueryEscape(budget.FormatTime(since)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", table.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query %s failed: %s", table.Name, responseError(resp))
	}

	var payload struct {
		Documents []Document `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s query response: %w", table.Name, err)
	}

	c.logger.Debug().Str("table", table.Name).Int("count", len(payload.Documents)).
		Time("since", since).Msg("queried documents")
	return payload.Documents, nil
}

// responseError summarizes a non-2xx response for error wrapping.
func responseError(resp *http.Response) string {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if len(snippet) == 0 {
		return resp.Status
	}
	return fmt.Sprintf("%s: %s", resp.Status, bytes.TrimSpace(snippet))
}
