// Package client provides support to access an OpenAI-compatible API service
// and other JSON or binary HTTP APIs the pipelines depend on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ardanlabs/ai-agents/foundation/logger"
)

const version = "v1.0.0"

var ErrUnauthorized = errors.New("api understands the request but refuses to authorize it")

var defaultClient = http.Client{
	Transport: &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	},
}

// =============================================================================

// StatusError is returned when the service responds with a status code the
// client does not treat as success.
type StatusError struct {
	StatusCode int
	Message    string
}

func (se *StatusError) Error() string {
	return fmt.Sprintf("error: status: %d response: %s", se.StatusCode, se.Message)
}

// Temporary reports if the request is worth retrying.
func (se *StatusError) Temporary() bool {
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= http.StatusInternalServerError
}

// =============================================================================

type Client struct {
	log     logger.Logger
	http    *http.Client
	headers map[string]string
}

func New(log logger.Logger, options ...func(cln *Client)) *Client {
	if log == nil {
		log = logger.Noop
	}

	cln := Client{
		log:     log,
		http:    &defaultClient,
		headers: make(map[string]string),
	}

	for _, option := range options {
		option(&cln)
	}

	return &cln
}

func WithClient(http *http.Client) func(cln *Client) {
	return func(cln *Client) {
		cln.http = http
	}
}

// With returns a copy of the client with the options applied on top of the
// existing settings.
func (cln *Client) With(options ...func(cln *Client)) *Client {
	c := Client{
		log:     cln.log,
		http:    cln.http,
		headers: make(map[string]string, len(cln.headers)),
	}

	for k, v := range cln.headers {
		c.headers[k] = v
	}

	for _, option := range options {
		option(&c)
	}

	return &c
}

// WithHeader adds a header that is sent with every request.
func WithHeader(key string, value string) func(cln *Client) {
	return func(cln *Client) {
		cln.headers[key] = value
	}
}

// WithBearer sets the authorization header used by OpenAI-compatible APIs.
func WithBearer(token string) func(cln *Client) {
	return func(cln *Client) {
		if token != "" {
			cln.headers["Authorization"] = "Bearer " + token
		}
	}
}

// Do executes the request and decodes the response into v. A *string or
// *[]byte receives the raw body, anything else is decoded as JSON.
func (cln *Client) Do(ctx context.Context, method string, endpoint string, body D, v any) error {
	start := time.Now()

	resp, err := do(ctx, cln, method, endpoint, body)
	if err != nil {
		cln.log(ctx, "client: do", "method", method, "endpoint", endpoint, "ERROR", err, "duration", time.Since(start))
		return err
	}
	defer resp.Body.Close()

	cln.log(ctx, "client: do", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: copy error: %w", err)
	}

	switch d := v.(type) {
	case *string:
		*d = string(data)

	case *[]byte:
		*d = data

	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("client: response: %s, decoding error: %w ", string(data), err)
		}
	}

	return nil
}

// =============================================================================

func do(ctx context.Context, cln *Client, method string, endpoint string, body D) (*http.Response, error) {
	var b bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&b).Encode(body); err != nil {
			return nil, fmt.Errorf("encoding: error: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, &b)
	if err != nil {
		return nil, fmt.Errorf("create request error: %w", err)
	}

	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("Ardan Labs AI Agents Go Client: %s", version))

	for k, v := range cln.headers {
		req.Header.Set(k, v)
	}

	resp, err := cln.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do: error: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return resp, nil

	default:
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("readall: error: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, ErrUnauthorized

		default:
			return nil, &StatusError{
				StatusCode: resp.StatusCode,
				Message:    errorMessage(data),
			}
		}
	}
}

// errorMessage extracts the OpenAI style error message from the body and
// falls back to the raw body for services with other error shapes.
func errorMessage(data []byte) string {
	var err Error
	if json.Unmarshal(data, &err) == nil && err.Err.Message != "" {
		return err.Err.Message
	}

	return strings.TrimSpace(string(data))
}
