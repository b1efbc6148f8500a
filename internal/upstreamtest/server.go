// Package upstreamtest provides a mock upstream for exercising the auth
// handshake, the API dispatcher, and the media relay against scripted
// responses.
package upstreamtest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Token endpoint paths recognized by the mock.
const (
	MobileTokenPath   = "/auth/v2/oauth/access-token/loid"
	FallbackTokenPath = "/api/v1/access_token"
)

// Server is a mock upstream for testing. It simulates the token
// endpoints, the JSON API with rate limit headers, and media origins
// with range semantics.
type Server struct {
	server *httptest.Server

	mu           sync.Mutex
	responses    map[string]Response
	handlers     map[string]http.HandlerFunc
	scripts      map[string][]Response
	tokenScript  []Response
	requests     []RecordedRequest
	requestCount int
}

// Response defines a mock response configuration.
type Response struct {
	StatusCode int
	Body       interface{}
	Delay      time.Duration
	Headers    map[string]string
}

// RecordedRequest captures a request received by the mock.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   []byte
}

// NewServer creates a new mock upstream server.
func NewServer() *Server {
	s := &Server{
		responses: make(map[string]Response),
		handlers:  make(map[string]http.HandlerFunc),
		scripts:   make(map[string][]Response),
	}

	s.server = httptest.NewServer(http.HandlerFunc(s.handler))

	return s
}

// URL returns the mock server's base URL.
func (s *Server) URL() string {
	return s.server.URL
}

// Close closes the mock server.
func (s *Server) Close() {
	s.server.Close()
}

// SetResponse sets a mock response for a specific path.
func (s *Server) SetResponse(path string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responses[path] = response
}

// SetHandler installs a raw handler for a specific path. Handlers take
// precedence over responses set with SetResponse.
func (s *Server) SetHandler(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handlers[path] = h
}

// ServeMedia serves a byte payload at path with full range-request
// semantics, plus the origin headers a relay is expected to strip.
func (s *Server) ServeMedia(path string, data []byte, contentType string) {
	modTime := time.Now()
	s.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		// Origin headers the relay must not forward to clients.
		w.Header().Set("Server", "snooserv")
		w.Header().Set("X-Cdn", "fastly")
		w.Header().Set("X-Cdn-Server-Region", "us-east-1")
		w.Header().Set("Etag", `"media-v1"`)
		w.Header().Set("Nel", `{"report_to":"w3-reporting"}`)
		w.Header().Set("Report-To", `{"group":"w3-reporting"}`)
		w.Header().Set("Access-Control-Expose-Headers", "X-Served-By")
		http.ServeContent(w, r, "", modTime, bytes.NewReader(data))
	})
}

// QueueTokenResponse appends a scripted response for the token
// endpoints. Responses are served in FIFO order; when the script is
// empty, TokenSuccess defaults are served.
func (s *Server) QueueTokenResponse(response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokenScript = append(s.tokenScript, response)
}

// QueueResponse appends a scripted response for a specific path.
// Scripted responses are served in FIFO order and win over SetResponse;
// once the script drains, the SetResponse value (if any) is served
// again.
func (s *Server) QueueResponse(path string, response Response) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scripts[path] = append(s.scripts[path], response)
}

// Requests returns a copy of all recorded requests.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent recorded request, or nil.
func (s *Server) LastRequest() *RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return nil
	}
	last := s.requests[len(s.requests)-1]
	return &last
}

// RequestCount returns the number of requests received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requestCount
}

// ResetRequests clears the recorded requests and the counter.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = nil
	s.requestCount = 0
}

// handler handles incoming HTTP requests.
func (s *Server) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))

	s.mu.Lock()
	s.requestCount++
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Header: r.Header.Clone(),
		Body:   body,
	})
	rawHandler, hasHandler := s.handlers[r.URL.Path]
	response, hasResponse := s.responses[r.URL.Path]
	if script := s.scripts[r.URL.Path]; len(script) > 0 && !hasHandler {
		response = script[0]
		s.scripts[r.URL.Path] = script[1:]
		hasResponse = true
	}
	isToken := r.URL.Path == MobileTokenPath || r.URL.Path == FallbackTokenPath
	if isToken && !hasResponse && !hasHandler {
		if len(s.tokenScript) > 0 {
			response = s.tokenScript[0]
			s.tokenScript = s.tokenScript[1:]
		} else {
			response = TokenSuccess("mock-token", 86400)
		}
		hasResponse = true
	}
	s.mu.Unlock()

	if hasHandler {
		rawHandler(w, r)
		return
	}

	if !hasResponse {
		http.NotFound(w, r)
		return
	}

	s.write(w, response)
}

// write emits a configured response.
func (s *Server) write(w http.ResponseWriter, response Response) {
	if response.Delay > 0 {
		time.Sleep(response.Delay)
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}

	status := response.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if response.Body != nil {
		switch v := response.Body.(type) {
		case string:
			_, _ = w.Write([]byte(v))
		case []byte:
			_, _ = w.Write(v)
		default:
			_ = json.NewEncoder(w).Encode(response.Body)
		}
	}
}

// TokenSuccess creates a successful token handshake response carrying
// the session headers the mobile endpoint returns.
func TokenSuccess(token string, expiresIn int) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body: map[string]interface{}{
			"access_token": token,
			"token_type":   "bearer",
			"expires_in":   expiresIn,
			"scope":        "*",
		},
		Headers: map[string]string{
			"x-reddit-loid":    "00000000abcdefghij.2.1700000000000.Z0FBQUFBQmxh",
			"x-reddit-session": "abcdefghijklmnop.0.1700000000000.Z0FBQUFBQmxh",
		},
	}
}

// TokenFailure creates a failed token handshake response.
func TokenFailure(statusCode int) Response {
	return Response{
		StatusCode: statusCode,
		Body: map[string]interface{}{
			"message": http.StatusText(statusCode),
			"error":   statusCode,
		},
	}
}

// APIResponse creates a JSON API response with rate limit headers.
func APIResponse(body interface{}, remaining float64, used, reset int) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers:    RateLimitHeaders(remaining, used, reset),
	}
}

// RateLimitHeaders builds the rate limit header set the API attaches to
// every authenticated response.
func RateLimitHeaders(remaining float64, used, reset int) map[string]string {
	return map[string]string{
		"x-ratelimit-remaining": fmt.Sprintf("%g", remaining),
		"x-ratelimit-used":      fmt.Sprintf("%d", used),
		"x-ratelimit-reset":     fmt.Sprintf("%d", reset),
	}
}

// ListingBody builds a minimal listing payload with the given post titles.
func ListingBody(titles ...string) map[string]interface{} {
	children := make([]interface{}, 0, len(titles))
	for i, title := range titles {
		children = append(children, map[string]interface{}{
			"kind": "t3",
			"data": map[string]interface{}{
				"id":        fmt.Sprintf("post%d", i),
				"title":     title,
				"subreddit": "golang",
			},
		})
	}
	return map[string]interface{}{
		"kind": "Listing",
		"data": map[string]interface{}{
			"after":    "",
			"children": children,
		},
	}
}

// AccessDenied creates an error envelope for a subreddit access state
// ("private", "banned", "gated", "quarantined").
func AccessDenied(reason string) Response {
	return Response{
		StatusCode: http.StatusForbidden,
		Body: map[string]interface{}{
			"reason":  reason,
			"message": "Forbidden",
			"error":   403,
		},
	}
}

// SuspendedUser creates the profile payload of a suspended account.
func SuspendedUser(name string) Response {
	return Response{
		StatusCode: http.StatusOK,
		Body: map[string]interface{}{
			"kind": "t2",
			"data": map[string]interface{}{
				"name":         name,
				"is_suspended": true,
			},
		},
	}
}

// TokenRejected creates the envelope the API returns when the bearer
// token has been invalidated mid-flight.
func TokenRejected() Response {
	return Response{
		StatusCode: http.StatusUnauthorized,
		Body: map[string]interface{}{
			"message": "Unauthorized",
			"error":   401,
		},
	}
}

// StealthRateLimit creates the silent rate limit response: HTTP 200
// with an empty body and no rate limit headers.
func StealthRateLimit() Response {
	return Response{
		StatusCode: http.StatusOK,
		Body:       "",
	}
}

// ServerError creates a 500 response.
func ServerError() Response {
	return Response{
		StatusCode: http.StatusInternalServerError,
		Body: map[string]interface{}{
			"message": "Internal Server Error",
			"error":   500,
		},
	}
}

// Redirect creates a redirect response to the given location.
func Redirect(statusCode int, location string) Response {
	return Response{
		StatusCode: statusCode,
		Headers: map[string]string{
			"Location": location,
		},
	}
}

// Helper functions for testing

// ExpectHeader checks if a recorded request carries a header containing
// the given value.
func ExpectHeader(rr *RecordedRequest, key, value string) error {
	actual := rr.Header.Get(key)
	if !strings.Contains(actual, value) {
		return fmt.Errorf("header %q mismatch: expected %q, got %q", key, value, actual)
	}
	return nil
}

// ExpectBasicAuth checks that a recorded request used HTTP basic auth
// with the given client id and an empty secret.
func ExpectBasicAuth(rr *RecordedRequest, clientID string) error {
	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"))
	got := rr.Header.Get("Authorization")
	if got != want {
		return fmt.Errorf("authorization mismatch: expected %q, got %q", want, got)
	}
	return nil
}

// ExpectJSONBody checks that a recorded request body decodes to the
// expected value.
func ExpectJSONBody(rr *RecordedRequest, expected interface{}) error {
	var actual interface{}
	if err := json.Unmarshal(rr.Body, &actual); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}

	expectedJSON, _ := json.Marshal(expected)
	actualJSON, _ := json.Marshal(actual)

	if string(expectedJSON) != string(actualJSON) {
		return fmt.Errorf("request mismatch:\nexpected: %s\nactual: %s",
			string(expectedJSON), string(actualJSON))
	}

	return nil
}
