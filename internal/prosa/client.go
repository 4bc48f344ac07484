// Package prosa is the HTTP client for the Prosa content service, the system of
// record behind the device API. Every call is authenticated with the linked
// device's API key in the api-key header.
package prosa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultTimeout     = 30 * time.Second
	defaultMaxAttempts = 3
	initialRetryDelay  = 500 * time.Millisecond
	maxRetryDelay      = 10 * time.Second
	retryBackoffFactor = 2

	apiKeyHeader = "api-key"
)

var errRequestTimeout = errors.New("request timed out")

// Client interfaces with the Prosa REST API.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
}

// NewClient creates a Prosa client. maxAttempts bounds how many times a GET is
// tried; mutating requests are always sent once.
//
// JSON calls must complete within timeout. Streamed content only has to
// start within it: the body is read for as long as the caller's context lives.
func NewClient(baseURL string, timeout time.Duration, maxAttempts int) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = timeout

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Transport: transport},
		timeout:     timeout,
		maxAttempts: maxAttempts,
		retryDelay:  initialRetryDelay,
	}
}

// Content is a streamed binary payload (book file or cover image).
// The caller must close Body.
type Content struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// --- Sync ---

// Sync returns the ids changed since the given opaque point. An empty since
// asks for the full history.
func (c *Client) Sync(ctx context.Context, apiKey, since string) (*SyncResponse, error) {
	query := url.Values{}
	if since != "" {
		query.Set("since", since)
	}
	var resp SyncResponse
	if err := c.getJSON(ctx, apiKey, "/sync", query, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Books ---

func (c *Client) DownloadBook(ctx context.Context, apiKey, bookID string) (*Content, error) {
	return c.getContent(ctx, apiKey, bookPath(bookID))
}

func (c *Client) DeleteBook(ctx context.Context, apiKey, bookID string) error {
	return c.send(ctx, http.MethodDelete, apiKey, bookPath(bookID), nil, nil)
}

func (c *Client) GetFileMetadata(ctx context.Context, apiKey, bookID string) (*FileMetadata, error) {
	var resp FileMetadata
	if err := c.getJSON(ctx, apiKey, bookPath(bookID)+"/file-metadata", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetMetadata(ctx context.Context, apiKey, bookID string) (*Metadata, error) {
	var resp Metadata
	if err := c.getJSON(ctx, apiKey, bookPath(bookID)+"/metadata", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DownloadCover(ctx context.Context, apiKey, bookID string) (*Content, error) {
	return c.getContent(ctx, apiKey, bookPath(bookID)+"/cover")
}

// --- Reading state ---

func (c *Client) GetState(ctx context.Context, apiKey, bookID string) (*State, error) {
	var resp State
	if err := c.getJSON(ctx, apiKey, bookPath(bookID)+"/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateState writes location and status in one request.
func (c *Client) UpdateState(ctx context.Context, apiKey, bookID string, state State) error {
	return c.send(ctx, http.MethodPatch, apiKey, bookPath(bookID)+"/state", state, nil)
}

func (c *Client) UpdateRating(ctx context.Context, apiKey, bookID string, rating float64) error {
	body := map[string]float64{"rating": rating}
	return c.send(ctx, http.MethodPost, apiKey, bookPath(bookID)+"/rating", body, nil)
}

// --- Annotations ---

func (c *Client) ListAnnotations(ctx context.Context, apiKey, bookID string) ([]string, error) {
	ids := []string{}
	if err := c.getJSON(ctx, apiKey, bookPath(bookID)+"/annotations", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) GetAnnotation(ctx context.Context, apiKey, bookID, annotationID string) (*Annotation, error) {
	var resp Annotation
	if err := c.getJSON(ctx, apiKey, annotationPath(bookID, annotationID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddAnnotation creates an annotation and returns its id.
// ErrConflict means an annotation already covers the same span.
func (c *Client) AddAnnotation(ctx context.Context, apiKey, bookID string, annotation NewAnnotation) (string, error) {
	var id string
	if err := c.send(ctx, http.MethodPost, apiKey, bookPath(bookID)+"/annotations", annotation, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) PatchAnnotationNote(ctx context.Context, apiKey, bookID, annotationID, note string) error {
	body := map[string]string{"note": note}
	return c.send(ctx, http.MethodPatch, apiKey, annotationPath(bookID, annotationID), body, nil)
}

func (c *Client) DeleteAnnotation(ctx context.Context, apiKey, bookID, annotationID string) error {
	return c.send(ctx, http.MethodDelete, apiKey, annotationPath(bookID, annotationID), nil, nil)
}

// --- Shelves ---

// CreateShelf creates a shelf and returns its id. A nil ownerID lets the
// backend assign the key's owner.
func (c *Client) CreateShelf(ctx context.Context, apiKey, name string, ownerID *string) (string, error) {
	body := struct {
		Name    string  `json:"name"`
		OwnerID *string `json:"owner_id,omitempty"`
	}{Name: name, OwnerID: ownerID}

	var id string
	if err := c.send(ctx, http.MethodPost, apiKey, "/shelves", body, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (c *Client) GetShelf(ctx context.Context, apiKey, shelfID string) (*ShelfMetadata, error) {
	var resp ShelfMetadata
	if err := c.getJSON(ctx, apiKey, shelfPath(shelfID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) RenameShelf(ctx context.Context, apiKey, shelfID, name string) error {
	body := map[string]string{"name": name}
	return c.send(ctx, http.MethodPut, apiKey, shelfPath(shelfID), body, nil)
}

func (c *Client) DeleteShelf(ctx context.Context, apiKey, shelfID string) error {
	return c.send(ctx, http.MethodDelete, apiKey, shelfPath(shelfID), nil, nil)
}

func (c *Client) AddBookToShelf(ctx context.Context, apiKey, shelfID, bookID string) error {
	body := map[string]string{"book_id": bookID}
	return c.send(ctx, http.MethodPost, apiKey, shelfPath(shelfID)+"/books", body, nil)
}

func (c *Client) ListShelfBooks(ctx context.Context, apiKey, shelfID string) ([]string, error) {
	ids := []string{}
	if err := c.getJSON(ctx, apiKey, shelfPath(shelfID)+"/books", nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) RemoveBookFromShelf(ctx context.Context, apiKey, shelfID, bookID string) error {
	return c.send(ctx, http.MethodDelete, apiKey, shelfPath(shelfID)+"/books/"+url.PathEscape(bookID), nil, nil)
}

// --- Transport ---

func (c *Client) getJSON(ctx context.Context, apiKey, path string, query url.Values, out any) error {
	return c.withRetry(ctx, func() error {
		reqCtx, cancel := c.bounded(ctx)
		defer cancel()

		resp, err := c.do(reqCtx, http.MethodGet, apiKey, path, query, nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			if timedOut(reqCtx) {
				return &UpstreamError{Err: errRequestTimeout}
			}
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
}

func (c *Client) getContent(ctx context.Context, apiKey, path string) (*Content, error) {
	var content *Content
	err := c.withRetry(ctx, func() error {
		resp, err := c.do(ctx, http.MethodGet, apiKey, path, nil, nil)
		if err != nil {
			return err
		}
		content = &Content{
			Body:          resp.Body,
			ContentType:   resp.Header.Get("Content-Type"),
			ContentLength: resp.ContentLength,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// send performs a single mutating request. A non-nil out receives either the
// decoded JSON body or, for *string, the body text.
func (c *Client) send(ctx context.Context, method, apiKey, path string, body, out any) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	resp, err := c.do(ctx, method, apiKey, path, nil, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if text, ok := out.(*string); ok {
		*text = parseText(data)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do sends one request and maps non-2xx statuses to errors. On success the
// caller owns the response body.
func (c *Client) do(ctx context.Context, method, apiKey, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(apiKeyHeader, apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if timedOut(ctx) {
			return nil, &UpstreamError{Err: errRequestTimeout}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &UpstreamError{Err: fmt.Errorf("request failed: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, statusError(resp.StatusCode)
	}

	return resp, nil
}

// bounded limits a whole exchange, body included, to the client timeout.
func (c *Client) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeoutCause(ctx, c.timeout, errRequestTimeout)
}

func timedOut(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), errRequestTimeout)
}

func (c *Client) withRetry(ctx context.Context, attempt func() error) error {
	var lastErr error
	for i := 0; i < c.maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.calculateRetryDelay(i)):
			}
		}

		lastErr = attempt()
		if lastErr == nil {
			return nil
		}

		// Only retry server errors and transport failures
		if !isRetryableError(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (c *Client) calculateRetryDelay(attempt int) time.Duration {
	delay := c.retryDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func isRetryableError(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

func parseText(data []byte) string {
	text := strings.TrimSpace(string(data))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			return s
		}
	}
	return text
}

func bookPath(bookID string) string {
	return "/books/" + url.PathEscape(bookID)
}

func annotationPath(bookID, annotationID string) string {
	return bookPath(bookID) + "/annotations/" + url.PathEscape(annotationID)
}

func shelfPath(shelfID string) string {
	return "/shelves/" + url.PathEscape(shelfID)
}
