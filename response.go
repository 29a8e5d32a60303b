package eventstore

import (
	"net/http"
)

// Response is the outcome of one request to the store. Every client operation
// returns the Response it produced; HTTP error statuses are reported here and
// not as Go errors.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the HTTP status line text, e.g. "404 Not Found".
	Status string

	// Header holds the response headers.
	Header http.Header

	// Body is the full response body.
	Body []byte

	// Cached is true when a feed page was served from the feed cache
	// without a network request.
	Cached bool

	op  string
	url string
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Err converts a non-2xx response into an error. It returns nil for 2xx.
//
// Example:
//
//	resp, err := client.DeleteStream(ctx, "orders-1", eventstore.HardDelete)
//	if err != nil {
//	    return err // transport failure
//	}
//	if err := resp.Err(); errors.Is(err, eventstore.ErrStreamNotFound) {
//	    // nothing to delete
//	}
func (r *Response) Err() error {
	if r == nil {
		return nil
	}
	if r.OK() {
		return nil
	}
	return newStreamError(r.op, r.url, r.StatusCode, errorFromStatus(r.StatusCode))
}

func newResponse(op, url string, resp *http.Response, body []byte) *Response {
	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header.Clone(),
		Body:       body,
		op:         op,
		url:        url,
	}
}
