// Package monitor implements service.Service against the task-monitoring
// backend's HTTP API.
//
// Every call goes through Client.Do, which attaches the bearer token, unwraps
// the {"data": ...} envelope and turns failures into one user notification
// plus an error matching service.ErrUnauthorized, service.ErrRequestFailed or
// service.ErrNetwork. An unauthorized response also clears the stored token
// and redirects to login. Nothing is retried.
package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/googleapi"

	"taskmon/internal/config"
	"taskmon/internal/logger"
	"taskmon/internal/service"
	"taskmon/internal/session"
	"taskmon/internal/ui"
)

const (
	// GenericFailure is shown when the backend gives no reason.
	GenericFailure = "request failed"

	// RequestIDHeader carries a per-call id for backend log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Request describes one backend call.
type Request struct {
	Method string // defaults to GET
	Path   string // joined to the server URL
	Body   any    // JSON-encoded when non-nil
	Form   url.Values
	Header http.Header
}

// Hooks are the UI collaborators of the client. Nil fields are no-ops.
type Hooks struct {
	Notifier  ui.Notifier
	Navigator ui.Navigator
	Logger    *slog.Logger
}

// Client implements service.Service over HTTP.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	timeout time.Duration
	tokens  session.Store
	notify  ui.Notifier
	nav     ui.Navigator
	log     *slog.Logger
	status  singleflight.Group
}

// New creates a backend client for cfg.ServerURL.
func New(cfg *config.Config, tokens session.Store, hooks Hooks) (*Client, error) {
	return NewWithHTTPClient(cfg, tokens, hooks, &http.Client{})
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(cfg *config.Config, tokens session.Store, hooks Hooks, httpClient *http.Client) (*Client, error) {
	base, err := url.Parse(cfg.ServerURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server url: %q", cfg.ServerURL)
	}
	if tokens == nil {
		tokens = session.NewMemoryStore()
	}

	c := &Client{
		http:    httpClient,
		baseURL: base,
		timeout: cfg.Timeout,
		tokens:  tokens,
		notify:  hooks.Notifier,
		nav:     hooks.Navigator,
		log:     hooks.Logger,
	}
	if c.timeout <= 0 {
		c.timeout = config.DefaultTimeout
	}
	if c.notify == nil {
		c.notify = nopUI{}
	}
	if c.nav == nil {
		c.nav = nopUI{}
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	return c, nil
}

// envelope is the uniform response body.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Detail json.RawMessage `json:"detail"`
}

// Do performs req and decodes the envelope's data into out (nil discards it).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return c.fail(service.NewRequestError(service.ErrRequestFailed, 0, err.Error(), err))
	}

	reqID := uuid.NewString()
	httpReq.Header.Set(RequestIDHeader, reqID)
	if tok, ok := c.tokens.Get(); ok {
		tok.SetAuthHeader(httpReq)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("backend request failed",
			"method", httpReq.Method,
			"path", req.Path,
			"request_id", reqID,
			"error", err)
		return c.fail(service.NewRequestError(service.ErrNetwork, 0, networkDetail(err), err))
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		"method", httpReq.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start))

	if err := googleapi.CheckResponse(resp); err != nil {
		detail := GenericFailure
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			if d := detailFromBody([]byte(apiErr.Body)); d != "" {
				detail = d
			}
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return c.unauthorized(detail, err)
		}
		return c.fail(service.NewRequestError(service.ErrRequestFailed, resp.StatusCode, detail, err))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(service.NewRequestError(service.ErrNetwork, 0, networkDetail(err), err))
	}

	var env envelope
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &env); err != nil {
			return c.fail(service.NewRequestError(service.ErrRequestFailed, resp.StatusCode, "invalid response from server", err))
		}
	}
	if d := detailText(env.Detail); d != "" {
		return c.fail(service.NewRequestError(service.ErrRequestFailed, resp.StatusCode, d, nil))
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return c.fail(service.NewRequestError(service.ErrRequestFailed, resp.StatusCode, "invalid response from server", err))
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ref, err := url.Parse(req.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid path %q: %w", req.Path, err)
	}
	target := c.baseURL.JoinPath(ref.Path)
	target.RawQuery = ref.RawQuery

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}

// unauthorized drops the session and sends the user to login.
func (c *Client) unauthorized(detail string, cause error) error {
	if err := c.tokens.Clear(); err != nil {
		c.log.Warn("failed to clear token", "error", err)
	}
	c.nav.RedirectToLogin()
	return c.fail(service.NewRequestError(service.ErrUnauthorized, http.StatusUnauthorized, detail, cause))
}

func (c *Client) fail(err *service.RequestError) error {
	c.notify.Notify(err.Detail)
	return err
}

// detailFromBody extracts the detail field of an error body.
func detailFromBody(body []byte) string {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	return detailText(env.Detail)
}

// detailText renders a detail value. Strings are used verbatim; validation
// error lists ([{"msg": ...}, ...]) are joined.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return string(raw)
}

// networkDetail maps transport errors to user-friendly messages.
func networkDetail(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Sprintf("cannot reach server: %v", urlErr.Err)
	}
	return fmt.Sprintf("cannot reach server: %v", err)
}

type nopUI struct{}

func (nopUI) Notify(string)    {}
func (nopUI) RedirectToLogin() {}
