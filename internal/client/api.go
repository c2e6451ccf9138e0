package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/pterm/pterm"

	"github.com/fr4nk3nst1ner/jobluu/internal/apperror"
)

// API is a thin JSON client for the job-board backend
type API struct {
	BaseURL string
	HTTP    *http.Client
	Log     *pterm.Logger
	// UserAgent is sent on every request when set
	UserAgent string
}

// Response is a fully read backend response
type Response struct {
	Status     int
	StatusText string
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// NewAPI returns an API for baseURL using httpClient, or a default client
func NewAPI(baseURL string, httpClient *http.Client, log *pterm.Logger) *API {
	if httpClient == nil {
		httpClient = CreateHTTPClient("", 0)
	}
	return &API{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Log:     log,
	}
}

// Do sends a request and reads the whole response. body, when non-nil, is
// encoded as JSON. A non-empty token is sent as a bearer credential.
// Only failures to complete the round trip are returned as errors, and
// they are always apperror Transport errors; HTTP error statuses come back
// as a Response for the caller to interpret.
func (a *API) Do(ctx context.Context, method, path, token string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, apperror.NewTransport(fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return nil, apperror.NewTransport(err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	a.logger().Trace("backend request", a.logger().Args("method", method, "path", path, "request_id", requestID))

	resp, err := a.HTTP.Do(req)
	if err != nil {
		a.logger().Warn("backend request failed", a.logger().Args("method", method, "path", path, "request_id", requestID, "error", err))
		return nil, apperror.NewTransport(err)
	}
	defer resp.Body.Close()

	data, err := ReadResponseBody(resp)
	if err != nil {
		return nil, apperror.NewTransport(fmt.Errorf("read response: %w", err))
	}

	a.logger().Debug("backend response", a.logger().Args("method", method, "path", path, "status", resp.StatusCode, "request_id", requestID))

	return &Response{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Body:       data,
	}, nil
}

func (a *API) logger() *pterm.Logger {
	if a.Log == nil {
		return discard
	}
	return a.Log
}

var discard = pterm.DefaultLogger.WithWriter(io.Discard)

// DecodeJSON unmarshals a successful response body into v. A body that
// does not parse is a Transport error.
func DecodeJSON(resp *Response, v any) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return apperror.NewTransport(fmt.Errorf("decode %d response: %w", resp.Status, err))
	}
	return nil
}

// ErrorMessage extracts the user-facing message from an error response.
// It prefers the JSON fields error, message and errorMessage in that
// order, then a plain-text body, then fallback, then the HTTP status line.
func ErrorMessage(resp *Response, fallback string) string {
	body := bytes.TrimSpace(resp.Body)
	if len(body) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil {
			for _, key := range []string{"error", "message", "errorMessage"} {
				if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		} else if body[0] != '{' && body[0] != '[' && !bytes.HasPrefix(bytes.ToLower(body), []byte("<!doctype")) && !bytes.HasPrefix(bytes.ToLower(body), []byte("<html")) {
			return string(body)
		}
	}
	if fallback != "" {
		return fallback
	}
	return fmt.Sprintf("HTTP %d: %s", resp.Status, resp.StatusText)
}

// RequestError converts a non-2xx response into an apperror Request error
func RequestError(resp *Response, fallback string) error {
	return apperror.NewRequest(resp.Status, ErrorMessage(resp, fallback))
}
