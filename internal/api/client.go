// Package api is the single point of outbound HTTP traffic to the
// short-link service. Every request is annotated with the bearer token
// when one is held, and every response is inspected for authentication
// failure before it reaches the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"linkdeck/internal/models"
)

const defaultTimeout = 10 * time.Second

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client talks to the short-link API. It holds the in-memory bearer
// token; the token is written only by the session store's operations
// and by the 401 path below.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger

	mu        sync.Mutex
	token     string
	onExpired func()
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// SetToken installs the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// ClearToken removes the bearer token; subsequent requests go out
// unauthenticated.
func (c *Client) ClearToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// Token returns the currently held bearer token, if any.
func (c *Client) Token() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.token, c.token != ""
}

// OnAuthExpired registers the hook invoked when an authenticated
// request is rejected with 401. The hook runs synchronously in the
// failing request's path, after the token has been cleared, and fires
// at most once per held token: already-queued responses carrying the
// same rejected token do not re-trigger it.
func (c *Client) OnAuthExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// expire clears the session token as a side effect of a 401 response.
// The token the failing request was sent with is compared against the
// current one, so a stale response cannot tear down a session that was
// re-established in the meantime.
func (c *Client) expire(sentToken string) {
	c.mu.Lock()
	if c.token == "" || c.token != sentToken {
		c.mu.Unlock()
		return
	}
	c.token = ""
	fn := c.onExpired
	c.mu.Unlock()

	c.logger.Debug().Msg("bearer token rejected, session cleared")

	if fn != nil {
		fn()
	}
}

// send performs one HTTP request. There is no retry at this layer: a
// failed call on a mutating endpoint must not be reissued blindly.
func (c *Client) send(ctx context.Context, method, path string, params url.Values, contentType string, body io.Reader, out any) error {
	const op = "api.Client.send"

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	sentToken, _ := c.Token()
	if sentToken != "" {
		req.Header.Set("Authorization", "Bearer "+sentToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, &NetworkError{Err: err})
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Msg("request completed")

	if resp.StatusCode == http.StatusUnauthorized && sentToken != "" {
		c.expire(sentToken)
		return fmt.Errorf("%s: %w", op, ErrAuthExpired)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", op, &Error{
			Status: resp.StatusCode,
			Detail: readDetail(resp.Body),
		})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s: failed to decode response body: %w", op, err)
		}
	}

	return nil
}

// do sends a JSON request body and decodes a JSON response.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	const op = "api.Client.do"

	var reader io.Reader
	contentType := ""

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request body: %w", op, err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	return c.send(ctx, method, path, params, contentType, reader, out)
}

// readDetail extracts the server-provided error message from a
// `{"detail": "..."}` body. Bodies without a string detail (or without
// a body at all) produce an empty message and the caller falls back to
// a generic one.
func readDetail(r io.Reader) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}

	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}

	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}

	return detail
}

// Login exchanges credentials for a bearer token. The token endpoint
// expects a form-encoded body. The token is returned to the caller and
// not installed on the client; that decision belongs to the session
// store.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	const op = "api.Client.Login"

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}

	err := c.send(ctx, http.MethodPost, "/auth/token", nil,
		"application/x-www-form-urlencoded", strings.NewReader(form.Encode()), &payload)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return payload.AccessToken, nil
}

// RegisterUser creates a new account.
func (c *Client) RegisterUser(ctx context.Context, username, email, password string) (*models.User, error) {
	const op = "api.Client.RegisterUser"

	body := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}

	user := new(models.User)
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, user); err != nil {
		return nil, fmt.Errorf("%s: failed to register user: %w", op, err)
	}

	return user, nil
}

// CurrentUser resolves the account the held token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	const op = "api.Client.CurrentUser"

	user := new(models.User)
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, user); err != nil {
		return nil, fmt.Errorf("%s: failed to resolve current user: %w", op, err)
	}

	return user, nil
}

// ListLinks fetches one page of the link collection.
func (c *Client) ListLinks(ctx context.Context, skip, limit int, search string) (*models.LinkPage, error) {
	const op = "api.Client.ListLinks"

	params := url.Values{}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))
	if search != "" {
		params.Set("search", search)
	}

	page := new(models.LinkPage)
	if err := c.do(ctx, http.MethodGet, "/links", params, nil, page); err != nil {
		return nil, fmt.Errorf("%s: failed to list links: %w", op, err)
	}

	return page, nil
}

// GetLink fetches a single link by its numeric id.
func (c *Client) GetLink(ctx context.Context, id int64) (*models.Link, error) {
	const op = "api.Client.GetLink"

	link := new(models.Link)
	path := fmt.Sprintf("/links/id/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, link); err != nil {
		return nil, fmt.Errorf("%s: failed to get link: %w", op, err)
	}

	return link, nil
}

// CreateLink is the request body for creating a link.
type CreateLink struct {
	ShortCode   string `json:"short_code" validate:"required,alphanum,min=3,max=20"`
	TargetURL   string `json:"target_url" validate:"required,httpurl,url"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description,omitempty"`
}

// UpdateLink is the partial request body for updating a link. Nil
// fields are left untouched by the server.
type UpdateLink struct {
	TargetURL   *string `json:"target_url,omitempty" validate:"omitempty,httpurl,url"`
	Title       *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// CreateLinkRecord creates a new short link.
func (c *Client) CreateLinkRecord(ctx context.Context, in CreateLink) (*models.Link, error) {
	const op = "api.Client.CreateLinkRecord"

	link := new(models.Link)
	if err := c.do(ctx, http.MethodPost, "/links", nil, in, link); err != nil {
		return nil, fmt.Errorf("%s: failed to create link: %w", op, err)
	}

	return link, nil
}

// UpdateLinkRecord applies a partial update to a link by id.
func (c *Client) UpdateLinkRecord(ctx context.Context, id int64, in UpdateLink) (*models.Link, error) {
	const op = "api.Client.UpdateLinkRecord"

	link := new(models.Link)
	path := fmt.Sprintf("/links/%d", id)
	if err := c.do(ctx, http.MethodPut, path, nil, in, link); err != nil {
		return nil, fmt.Errorf("%s: failed to update link: %w", op, err)
	}

	return link, nil
}

// DeleteLinkRecord deletes a link by id.
func (c *Client) DeleteLinkRecord(ctx context.Context, id int64) error {
	const op = "api.Client.DeleteLinkRecord"

	path := fmt.Sprintf("/links/%d", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("%s: failed to delete link: %w", op, err)
	}

	return nil
}

// LinkStats fetches the access statistics of a link. The stats
// endpoint is keyed by short code rather than id; the quirk is wrapped
// here so callers link views by the canonical numeric id.
func (c *Client) LinkStats(ctx context.Context, shortCode string) (*models.LinkStats, error) {
	const op = "api.Client.LinkStats"

	stats := new(models.LinkStats)
	path := "/links/stats/" + url.PathEscape(shortCode)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, stats); err != nil {
		return nil, fmt.Errorf("%s: failed to get link stats: %w", op, err)
	}

	return stats, nil
}

// Health checks service liveness.
func (c *Client) Health(ctx context.Context) error {
	const op = "api.Client.Health"

	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, nil); err != nil {
		return fmt.Errorf("%s: health check failed: %w", op, err)
	}

	return nil
}

// Info fetches service metadata.
func (c *Client) Info(ctx context.Context) (map[string]any, error) {
	const op = "api.Client.Info"

	info := make(map[string]any)
	if err := c.do(ctx, http.MethodGet, "/info", nil, nil, &info); err != nil {
		return nil, fmt.Errorf("%s: failed to get service info: %w", op, err)
	}

	return info, nil
}
