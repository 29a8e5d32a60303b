// Package wire holds the JSON document shapes exchanged with the event store's
// HTTP API. The client decodes them and the test server encodes them.
package wire

import "encoding/json"

// Media types used by the event store's HTTP API.
const (
	ContentTypeJSON       = "application/json"
	ContentTypeEvents     = "application/vnd.eventstore.events+json"
	ContentTypeAtomJSON   = "application/vnd.eventstore.atom+json"
	HeaderHardDelete      = "ES-HardDelete"
	HeaderAccept          = "Accept"
	HeaderContentType     = "Content-Type"
	QueryEmbed            = "embed"
	StreamsPathComponent  = "streams"
	MetadataPathComponent = "metadata"
)

// Link is one entry of a page's or entry's link list.
// The event store names the target "uri"; "url" is accepted as well.
type Link struct {
	URI      string `json:"uri,omitempty"`
	URL      string `json:"url,omitempty"`
	Relation string `json:"relation"`
}

// Target returns the link target, preferring uri over url.
func (l Link) Target() string {
	if l.URI != "" {
		return l.URI
	}
	return l.URL
}

// Author is the atom author block.
type Author struct {
	Name string `json:"name"`
}

// Feed is one page of a stream feed.
type Feed struct {
	Title        string  `json:"title"`
	ID           string  `json:"id"`
	Updated      string  `json:"updated"`
	StreamID     string  `json:"streamId"`
	Author       Author  `json:"author"`
	HeadOfStream bool    `json:"headOfStream"`
	SelfURL      string  `json:"selfUrl,omitempty"`
	ETag         string  `json:"eTag,omitempty"`
	Links        []Link  `json:"links"`
	Entries      []Entry `json:"entries"`
}

// Entry is one feed entry. The event fields are only present when the page
// was requested with an embed mode.
type Entry struct {
	Title   string `json:"title"`
	ID      string `json:"id"`
	Updated string `json:"updated"`
	Author  Author `json:"author"`
	Summary string `json:"summary"`
	Links   []Link `json:"links"`

	EventID     string          `json:"eventId,omitempty"`
	EventType   string          `json:"eventType,omitempty"`
	EventNumber *int64          `json:"eventNumber,omitempty"`
	StreamID    string          `json:"streamId,omitempty"`
	IsJSON      bool            `json:"isJson,omitempty"`
	IsMetaData  bool            `json:"isMetaData,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	MetaData    json.RawMessage `json:"metaData,omitempty"`
}

// WriteEvent is one record of an append request body.
type WriteEvent struct {
	EventID   string `json:"eventId,omitempty"`
	EventType string `json:"eventType"`
	Data      any    `json:"data"`
	Metadata  any    `json:"metadata,omitempty"`
}

// IncomingEvent is the server-side view of a WriteEvent.
type IncomingEvent struct {
	EventID   string          `json:"eventId,omitempty"`
	EventType string          `json:"eventType"`
	Data      json.RawMessage `json:"data"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
}

// AtomEvent is a single event document, as returned for an entry's event URL.
type AtomEvent struct {
	Title   string       `json:"title"`
	ID      string       `json:"id"`
	Updated string       `json:"updated"`
	Author  Author       `json:"author"`
	Summary string       `json:"summary"`
	Content EventContent `json:"content"`
	Links   []Link       `json:"links"`
}

// EventContent is the content block of an AtomEvent.
type EventContent struct {
	EventStreamID string          `json:"eventStreamId"`
	EventNumber   int64           `json:"eventNumber"`
	EventType     string          `json:"eventType"`
	EventID       string          `json:"eventId"`
	Data          json.RawMessage `json:"data"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}
