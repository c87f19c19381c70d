package testutil

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ndewijer/portfolio-client/internal/gateway"
)

// APIPrefix is the path prefix the fake backend serves under, matching the real service.
const APIPrefix = "/api"

// RecordedRequest is a request received by FakeBackend.
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

// FakeBackend is an httptest server with a chi router standing in for the portfolio
// service. Routes are registered per test with Handle or HandleFunc.
//
// Example:
//
//	backend := testutil.NewFakeBackend(t)
//	backend.Handle(http.MethodGet, "/portfolio", http.StatusOK, `{"holdings":[],"metrics":{}}`)
//	client := backend.Client()
type FakeBackend struct {
	Server *httptest.Server
	router chi.Router

	mu       sync.Mutex
	requests []RecordedRequest
}

// NewFakeBackend starts a fake backend that is shut down when the test ends.
// Unregistered routes answer 404 with a JSON error body.
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	f := &FakeBackend{}

	r := chi.NewRouter()
	r.Use(f.record)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":"Endpoint not found"}`)
	})
	f.router = r

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)

	return f
}

// URL returns the base URL of the fake API, including APIPrefix.
func (f *FakeBackend) URL() string {
	return f.Server.URL + APIPrefix
}

// Client returns a gateway client for the fake backend with rate limiting disabled.
func (f *FakeBackend) Client(opts ...gateway.ClientOption) *gateway.Client {
	opts = append([]gateway.ClientOption{
		gateway.WithHTTPClient(f.Server.Client()),
		gateway.WithRateLimit(0),
	}, opts...)
	return gateway.NewClient(f.URL(), opts...)
}

// Handle answers method requests to pattern (relative to APIPrefix) with a fixed
// status and raw JSON body.
func (f *FakeBackend) Handle(method, pattern string, status int, body string) {
	f.HandleFunc(method, pattern, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	})
}

// HandleFunc registers h for method requests to pattern (relative to APIPrefix).
func (f *FakeBackend) HandleFunc(method, pattern string, h http.HandlerFunc) {
	f.router.MethodFunc(method, APIPrefix+pattern, h)
}

// Requests returns the requests received so far.
func (f *FakeBackend) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest{}, f.requests...)
}

// LastRequest returns the most recent request, or the zero value when none arrived.
func (f *FakeBackend) LastRequest() RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}
	}
	return f.requests[len(f.requests)-1]
}

func (f *FakeBackend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		f.mu.Lock()
		f.requests = append(f.requests, RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Body:   body,
		})
		f.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
