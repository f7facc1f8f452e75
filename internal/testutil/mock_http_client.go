package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/facto/facto/internal/httpclient"
)

// MockHTTPClient implements a mock HTTP client for testing
type MockHTTPClient struct {
	mu       sync.RWMutex
	routes   map[string]MockResponse
	requests []*httpclient.Request
	err      error
	holds    map[string]<-chan struct{}
}

// MockResponse represents a mock HTTP response
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string]string
}

// NewMockHTTPClient creates a new mock HTTP client
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		routes: make(map[string]MockResponse),
		holds:  make(map[string]<-chan struct{}),
	}
}

// RegisterResponse registers a mock response for a method and URL suffix
func (m *MockHTTPClient) RegisterResponse(method, url string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[method+" "+url] = resp
}

// RegisterJSONResponse is a helper to register a JSON response
func (m *MockHTTPClient) RegisterJSONResponse(method, url string, status int, body interface{}) {
	b, _ := json.Marshal(body)
	m.RegisterResponse(method, url, MockResponse{
		StatusCode: status,
		Body:       b,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	})
}

// FailWith makes every following Send return err
func (m *MockHTTPClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Hold keeps requests whose path ends with suffix waiting until release is closed.
// The request is recorded before it starts waiting.
func (m *MockHTTPClient) Hold(suffix string, release <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[suffix] = release
}

// Send implements the httpclient.Client interface
func (m *MockHTTPClient) Send(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	// Match routes ignoring the query string
	path := req.URL
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	var release <-chan struct{}
	for suffix, ch := range m.holds {
		if strings.HasSuffix(path, suffix) {
			release = ch
			break
		}
	}
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	var matchedResponse MockResponse
	var found bool
	for route, resp := range m.routes {
		method, suffix, _ := strings.Cut(route, " ")
		if method == req.Method && strings.HasSuffix(path, suffix) {
			matchedResponse = resp
			found = true
			break
		}
	}

	if !found {
		return nil, httpclient.NewError(http.StatusNotFound, []byte("Not Found"))
	}

	if matchedResponse.StatusCode >= 300 {
		return nil, httpclient.NewError(matchedResponse.StatusCode, matchedResponse.Body)
	}

	return &httpclient.Response{
		StatusCode: matchedResponse.StatusCode,
		Body:       matchedResponse.Body,
		Headers:    matchedResponse.Headers,
	}, nil
}

// Requests returns every request sent so far
func (m *MockHTTPClient) Requests() []*httpclient.Request {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*httpclient.Request(nil), m.requests...)
}

// Clear removes all registered responses and recorded requests
func (m *MockHTTPClient) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes = make(map[string]MockResponse)
	m.holds = make(map[string]<-chan struct{})
	m.requests = nil
	m.err = nil
}
