// Package wmsapi is the HTTP client for the remote warehouse management API.
package wmsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// maxMessageBytes caps how much of an error body is surfaced to users.
const maxMessageBytes = 512

// Observer receives one callback per completed call.
type Observer interface {
	ObserveAPICall(op string, outcome string, elapsed time.Duration)
}

// Client talks to the WMS API. The zero token means anonymous calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	observer   Observer
	token      string
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver installs a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// New constructs a Client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a copy of the client that sends the bearer token on every call.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

type request struct {
	op     string
	method string
	path   string
	query  url.Values
	body   any
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if s, ok := out.(*string); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &Error{Op: req.op, Kind: KindServer, Status: resp.StatusCode, Err: err}
		}
		*s = strings.TrimSpace(string(data))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: req.op, Kind: KindServer, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// send performs the call and returns the response only for 2xx statuses.
func (c *Client) send(ctx context.Context, req request) (resp *http.Response, err error) {
	start := time.Now()
	defer func() {
		if c.observer == nil {
			return
		}
		outcome := "ok"
		if err != nil {
			outcome = KindOf(err).String()
		}
		c.observer.ObserveAPICall(req.op, outcome, time.Since(start))
	}()

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, &Error{Op: req.op, Kind: KindServer, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, &Error{Op: req.op, Kind: KindServer, Err: err}
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err = c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Op: req.op, Kind: KindServer, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxMessageBytes))
		_ = resp.Body.Close()
		return nil, &Error{
			Op:      req.op,
			Kind:    classify(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		}
	}
	return resp, nil
}

// errorMessage extracts a human readable message from plain text or JSON error bodies.
func errorMessage(data []byte) string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return ""
	}
	if strings.HasPrefix(text, "{") {
		var payload struct {
			Message string `json:"message"`
			Error   string `json:"error"`
			Detail  string `json:"detail"`
		}
		if err := json.Unmarshal(data, &payload); err == nil {
			for _, candidate := range []string{payload.Message, payload.Detail, payload.Error} {
				if candidate != "" {
					return candidate
				}
			}
		}
		return ""
	}
	if strings.HasPrefix(text, "<") {
		// HTML error pages from proxies are not shown to users.
		return ""
	}
	return text
}

func pathID(prefix string, id int64, suffix string) string {
	return fmt.Sprintf("%s/%d%s", prefix, id, suffix)
}
