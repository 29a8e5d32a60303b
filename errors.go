package eventstore

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common conditions.
var (
	// ErrConnectionFailed indicates the store could not be reached when the
	// client was constructed.
	ErrConnectionFailed = errors.New("eventstore: connection failed")

	// ErrLinkRelationNotFound indicates a feed page does not carry the
	// requested link relation. Terminal pages have no next link, so this is
	// the normal end of a walk.
	ErrLinkRelationNotFound = errors.New("eventstore: link relation not found")

	// ErrStreamNotFound indicates the stream does not exist (404).
	ErrStreamNotFound = errors.New("eventstore: stream not found")

	// ErrStreamDeleted indicates the stream was hard deleted (410).
	ErrStreamDeleted = errors.New("eventstore: stream deleted")

	// ErrBadRequest indicates the server rejected the request (400).
	ErrBadRequest = errors.New("eventstore: bad request")

	// ErrInvalidFeed indicates a response body could not be parsed as a feed
	// page or event document.
	ErrInvalidFeed = errors.New("eventstore: invalid feed document")

	// ErrInvalidEvent indicates a nil event or event collection was passed
	// for writing.
	ErrInvalidEvent = errors.New("eventstore: invalid event")

	// ErrUnsupportedMode indicates an embed mode, deletion mode or link
	// relation outside the declared set.
	ErrUnsupportedMode = errors.New("eventstore: unsupported mode")
)

var errNilFeed = fmt.Errorf("%w: nil feed", ErrInvalidFeed)

// StreamError wraps errors with additional context about the failed operation.
type StreamError struct {
	// Op is the operation that failed: "write", "open", "navigate", "delete",
	// "read-event".
	Op string

	// URL is the request URL.
	URL string

	// StatusCode is the HTTP status code, if available.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("eventstore: %s %s failed with status %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("eventstore: %s %s failed: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StreamError) Unwrap() error {
	return e.Err
}

func newStreamError(op, url string, statusCode int, err error) *StreamError {
	return &StreamError{
		Op:         op,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// ConnectionError is returned by NewClient when the connectivity probe could
// not be dispatched. It matches ErrConnectionFailed.
type ConnectionError struct {
	URL string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("eventstore: connection to %s failed: %v", e.URL, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrConnectionFailed.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// LinkRelationError reports the relation missing from a feed page or entry.
// It matches ErrLinkRelationNotFound.
type LinkRelationError struct {
	Relation StreamFeedLinkRelation
}

func (e *LinkRelationError) Error() string {
	return fmt.Sprintf("eventstore: link relation %q not found", e.Relation.String())
}

// Is reports whether target is ErrLinkRelationNotFound.
func (e *LinkRelationError) Is(target error) bool {
	return target == ErrLinkRelationNotFound
}

// errorFromStatus maps HTTP status codes to sentinel errors.
func errorFromStatus(statusCode int) error {
	switch statusCode {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusNotFound:
		return ErrStreamNotFound
	case http.StatusGone:
		return ErrStreamDeleted
	default:
		return fmt.Errorf("unexpected status code: %d", statusCode)
	}
}
