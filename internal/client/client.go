// Package client provides the HTTP transport shared by the hosted backend's
// REST table API and its auth API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultTimeout bounds every request made through a Client.
const DefaultTimeout = 30 * time.Second

// Client sends authenticated requests to the hosted service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// New creates a client for the service at baseURL using the project's
// public API key. A zero timeout means DefaultTimeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetAccessToken sets the signed-in user's token sent as the bearer.
// An empty token falls back to the API key.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

// AccessToken returns the current user token, if any.
func (c *Client) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// BaseURL returns the service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request describes one call to the service.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
	// Token overrides the client's bearer token for this request.
	Token string
}

// Error is a non-2xx response from the service.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error: %s", http.StatusText(e.Status))
	}
	return e.Message
}

// Get performs a GET request and decodes the response into result.
func (c *Client) Get(ctx context.Context, path string, query url.Values, result any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, result)
	return err
}

// Post performs a POST request with a JSON body and decodes the response.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, result)
	return err
}

// Do executes r with the auth headers set and returns the response headers.
func (c *Client) Do(ctx context.Context, r Request, result any) (http.Header, error) {
	u := c.baseURL + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	token := r.Token
	if token == "" {
		token = c.AccessToken()
	}
	if token == "" {
		token = c.apiKey
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("closing response body", "error", cerr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.Header, decodeError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.Header, fmt.Errorf("decoding response: %w", err)
		}
	}
	return resp.Header, nil
}

// decodeError reads the service's error envelope. The table API uses
// {"code","message"}, the auth API {"error","error_description"} or {"msg"}.
func decodeError(status int, body []byte) error {
	var env struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		Code             any    `json:"code"`
	}
	e := &Error{Status: status}
	if json.Unmarshal(body, &env) == nil {
		for _, m := range []string{env.ErrorDescription, env.Message, env.Msg, env.Error} {
			if m != "" {
				e.Message = m
				break
			}
		}
		if env.Code != nil {
			e.Code = fmt.Sprint(env.Code)
		}
	}
	return e
}
