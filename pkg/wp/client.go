// Package wp is a thin client for the WordPress REST API. Each operation
// issues exactly one authenticated request; failures are surfaced, never
// retried, because the remote side's idempotency semantics are unknown here.
package wp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ErrEmptyUpdate is returned by Update when the patch contains no fields.
// The check happens before any request is made.
var ErrEmptyUpdate = errors.New("wp: update patch is empty")

// RemoteError wraps a non-2xx answer from the WordPress API, keeping the
// remote status and message intact so callers can report them verbatim.
type RemoteError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("wordpress api: %s (status %d)", msg, e.StatusCode)
}

// Entity is the normalized shape of a WordPress post or page. WordPress
// returns title and content as {rendered, raw} objects; they are flattened
// to plain strings here.
type Entity struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content,omitempty"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	Link    string `json:"link"`
	Date    string `json:"date"`
}

// Fields is the request body for create and update calls, marshaled as-is.
type Fields map[string]any

// ListQuery bounds a collection listing.
type ListQuery struct {
	Page    int
	PerPage int
	Search  string
	Status  string
}

// Client talks to one WordPress site using an application password over
// basic auth. It is stateless between calls and safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	password string
	httpc    *http.Client
}

// NewClient builds a Client for the site at baseURL (scheme + host, without
// the /wp-json suffix).
func NewClient(baseURL, username, appPassword string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: appPassword,
		httpc:    &http.Client{Timeout: 30 * time.Second},
	}
}

// SetHTTPClient overrides the underlying HTTP client. Mainly for tests.
func (c *Client) SetHTTPClient(httpc *http.Client) {
	c.httpc = httpc
}

func kindPath(kind string) (string, error) {
	switch kind {
	case "post":
		return "posts", nil
	case "page":
		return "pages", nil
	default:
		return "", fmt.Errorf("wp: unsupported content type %q", kind)
	}
}

// List fetches one page of a collection and the total match count reported
// by the X-WP-Total header.
func (c *Client) List(ctx context.Context, kind string, q ListQuery) ([]Entity, int, error) {
	seg, err := kindPath(kind)
	if err != nil {
		return nil, 0, err
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(q.Page))
	query.Set("per_page", strconv.Itoa(q.PerPage))
	if q.Search != "" {
		query.Set("search", q.Search)
	}
	if q.Status != "" {
		query.Set("status", q.Status)
	}
	resp, err := c.do(ctx, http.MethodGet, seg, "", query, nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var raw []wireEntity
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, 0, fmt.Errorf("wp: decoding list response: %w", err)
	}
	items := make([]Entity, 0, len(raw))
	for _, w := range raw {
		items = append(items, w.normalize())
	}
	total := len(items)
	if v := resp.Header.Get("X-WP-Total"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			total = n
		}
	}
	return items, total, nil
}

// Get fetches a single entity by id.
func (c *Client) Get(ctx context.Context, kind string, id int) (*Entity, error) {
	seg, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	return c.entityCall(ctx, http.MethodGet, seg, strconv.Itoa(id), nil, nil)
}

// Create makes a new entity from the given fields.
func (c *Client) Create(ctx context.Context, kind string, fields Fields) (*Entity, error) {
	seg, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	return c.entityCall(ctx, http.MethodPost, seg, "", nil, fields)
}

// Update applies a partial patch to an existing entity. An empty patch fails
// with ErrEmptyUpdate without touching the remote API.
func (c *Client) Update(ctx context.Context, kind string, id int, patch Fields) (*Entity, error) {
	if len(patch) == 0 {
		return nil, ErrEmptyUpdate
	}
	seg, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	return c.entityCall(ctx, http.MethodPost, seg, strconv.Itoa(id), nil, patch)
}

// Delete removes an entity. With force set, WordPress skips the trash and
// answers {"deleted": true, "previous": {...}}; without it the trashed
// entity comes back. Either shape is returned to the caller undigested.
func (c *Client) Delete(ctx context.Context, kind string, id int, force bool) (map[string]any, error) {
	seg, err := kindPath(kind)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("force", strconv.FormatBool(force))
	resp, err := c.do(ctx, http.MethodDelete, seg, strconv.Itoa(id), query, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("wp: decoding delete response: %w", err)
	}
	return result, nil
}

func (c *Client) entityCall(ctx context.Context, method, seg, id string, query url.Values, body any) (*Entity, error) {
	resp, err := c.do(ctx, method, seg, id, query, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw wireEntity
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("wp: decoding entity response: %w", err)
	}
	entity := raw.normalize()
	return &entity, nil
}

func (c *Client) do(ctx context.Context, method, seg, id string, query url.Values, body any) (*http.Response, error) {
	endpoint := c.baseURL + "/wp-json/wp/v2/" + seg
	if id != "" {
		endpoint += "/" + id
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("wp: encoding request body: %w", err)
		}
		payload = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, fmt.Errorf("wp: building request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wp: calling %s %s: %w", method, endpoint, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, remoteError(resp)
	}
	return resp, nil
}

func remoteError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	re := &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	var wire struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		re.Code = wire.Code
		re.Message = wire.Message
	}
	return re
}

type wireEntity struct {
	ID      int          `json:"id"`
	Title   renderedText `json:"title"`
	Content renderedText `json:"content"`
	Slug    string       `json:"slug"`
	Status  string       `json:"status"`
	Link    string       `json:"link"`
	Date    string       `json:"date"`
}

func (w wireEntity) normalize() Entity {
	return Entity{
		ID:      w.ID,
		Title:   w.Title.value(),
		Content: w.Content.value(),
		Slug:    w.Slug,
		Status:  w.Status,
		Link:    w.Link,
		Date:    w.Date,
	}
}

// renderedText accepts both the object form {"rendered": "..."} and a bare
// string, which some WordPress setups emit depending on context.
type renderedText struct {
	Rendered string
	Raw      string
}

func (r *renderedText) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Rendered)
	}
	var obj struct {
		Rendered string `json:"rendered"`
		Raw      string `json:"raw"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.Rendered = obj.Rendered
	r.Raw = obj.Raw
	return nil
}

func (r renderedText) value() string {
	if r.Raw != "" {
		return r.Raw
	}
	return r.Rendered
}
