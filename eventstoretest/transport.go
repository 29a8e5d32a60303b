package eventstoretest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tahoelimited/eventstore-client-go/internal/wire"
)

// MockTransport is an http.RoundTripper that records requests and returns
// queued responses in order. When the queue is empty it fails the request.
type MockTransport struct {
	mu        sync.Mutex
	requests  []*http.Request
	bodies    [][]byte
	responses []*http.Response
	errors    []error
	index     int
}

// NewMockTransport creates a new MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// AddResponse queues a response, or a transport error when err is non-nil.
func (mt *MockTransport) AddResponse(resp *http.Response, err error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.responses = append(mt.responses, resp)
	mt.errors = append(mt.errors, err)
}

// AddError queues a transport failure.
func (mt *MockTransport) AddError(err error) {
	mt.AddResponse(nil, err)
}

// AddStatus queues an empty response with the given status.
func (mt *MockTransport) AddStatus(status int) {
	mt.AddResponse(&http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil)
}

// AddJSONResponse is a helper to add a JSON response.
func (mt *MockTransport) AddJSONResponse(status int, body any, headers map[string]string) {
	data, _ := json.Marshal(body)
	resp := &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(data)),
	}
	resp.Header.Set(wire.HeaderContentType, wire.ContentTypeJSON)
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	mt.AddResponse(resp, nil)
}

// Requests returns all recorded requests.
func (mt *MockTransport) Requests() []*http.Request {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	out := make([]*http.Request, len(mt.requests))
	copy(out, mt.requests)
	return out
}

// RequestBody returns the body of the i-th recorded request.
func (mt *MockTransport) RequestBody(i int) []byte {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if i < 0 || i >= len(mt.bodies) {
		return nil
	}
	return mt.bodies[i]
}

// RoundTrip implements http.RoundTripper.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.requests = append(mt.requests, req)
	mt.bodies = append(mt.bodies, body)

	if mt.index >= len(mt.responses) {
		return nil, fmt.Errorf("no more mock responses configured")
	}

	resp := mt.responses[mt.index]
	err := mt.errors[mt.index]
	mt.index++

	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

// Reset clears all recorded requests and queued responses.
func (mt *MockTransport) Reset() {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	mt.requests = nil
	mt.bodies = nil
	mt.responses = nil
	mt.errors = nil
	mt.index = 0
}
