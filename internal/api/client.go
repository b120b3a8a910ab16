package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TokenSource supplies the current bearer token for authenticated
// requests. An empty string means no session is active and the request
// is sent without an Authorization header.
type TokenSource func() (string, error)

// ResponseCache stores successful GET bodies per user so that list and
// detail screens keep working when the network is unreachable. Entries
// for a user are purged on logout.
type ResponseCache interface {
	Put(ctx context.Context, userID int, endpoint string, body []byte) error
	Get(ctx context.Context, userID int, endpoint string) ([]byte, error)
}

// Client is a thin HTTP client for the lost-and-found backend. It
// handles Bearer token authentication, JSON marshaling, multipart
// uploads, and optional read-through response caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	cache      ResponseCache
	userID     func() int
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where the client reads the current bearer token.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithCache enables read-through caching of GET responses. The userID
// func supplies the cache partition for the current identity; requests
// made while it returns zero bypass the cache.
func WithCache(rc ResponseCache, userID func() int) Option {
	return func(c *Client) {
		c.cache = rc
		c.userID = userID
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewClient creates a client for the backend rooted at baseURL
// (including the /api prefix).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs an authenticated GET and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, result, true)
	return err
}

// GetPublic performs a GET without attaching the bearer token.
func (c *Client) GetPublic(ctx context.Context, path string, result any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, result, false)
	return err
}

// GetCached performs an authenticated GET with read-through caching:
// a successful body is stored for the current user, and a transport
// failure is answered from the stored copy when one exists.
func (c *Client) GetCached(ctx context.Context, path string, result any) error {
	body, err := c.do(ctx, http.MethodGet, path, nil, result, true)

	uid := 0
	if c.userID != nil {
		uid = c.userID()
	}
	if c.cache == nil || uid == 0 {
		return err
	}

	if err == nil {
		if putErr := c.cache.Put(ctx, uid, path, body); putErr != nil {
			c.log.Warn("cache.put.fail",
				slog.String("endpoint", path),
				slog.String("err", putErr.Error()))
		}
		return nil
	}

	if !IsNetworkError(err) {
		return err
	}

	stale, cacheErr := c.cache.Get(ctx, uid, path)
	if cacheErr != nil || stale == nil {
		return err
	}
	if uErr := json.Unmarshal(stale, result); uErr != nil {
		return err
	}

	c.log.Info("cache.serve.stale", slog.String("endpoint", path))
	return nil
}

// Post performs an authenticated POST with a JSON body and unmarshals
// the JSON response.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	_, err := c.do(ctx, http.MethodPost, path, body, result, true)
	return err
}

// PostPublic performs a POST without attaching the bearer token. Used
// for login and registration, which establish credentials rather than
// require them.
func (c *Client) PostPublic(ctx context.Context, path string, body, result any) error {
	_, err := c.do(ctx, http.MethodPost, path, body, result, false)
	return err
}

// do is the core HTTP method that builds the request, handles auth,
// and JSON (de)serialization. It returns the raw response body so
// callers can cache it.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body any,
	result any,
	authenticated bool,
) ([]byte, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		c.attachToken(req)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("api.request.fail",
			slog.String("method", method),
			slog.String("endpoint", path),
			slog.String("err", err.Error()))
		return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("reading response body: %w", readErr)
	}

	c.log.Debug("api.request.done",
		slog.String("method", method),
		slog.String("endpoint", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("dur", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return respBody, nil
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return nil, fmt.Errorf(
			"unmarshaling response from %s %s: %w: %w",
			method, path, ErrMalformedResponse, err,
		)
	}

	return respBody, nil
}

// attachToken adds the Authorization header when a token is available.
// A storage read failure is treated as "no token": the request goes out
// unauthenticated and the server decides its fate.
func (c *Client) attachToken(req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens()
	if err != nil || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}
