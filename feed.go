package eventstore

import (
	"encoding/json"
	"fmt"

	"github.com/tahoelimited/eventstore-client-go/internal/wire"
)

// StreamFeed is one page of a stream's event feed.
// It is immutable; navigating to another page produces a new StreamFeed.
//
// Walk older events by following RelationNext until it is absent:
//
//	feed, _, err := client.OpenStreamFeed(ctx, "orders-1", eventstore.EmbedBody)
//	for err == nil && feed != nil {
//	    for _, ev := range feed.Events() {
//	        fmt.Println(ev.Number, ev.Type)
//	    }
//	    feed, _, err = client.NavigateStreamFeed(ctx, feed, eventstore.RelationNext)
//	}
//	if errors.Is(err, eventstore.ErrLinkRelationNotFound) {
//	    // reached the oldest page
//	}
type StreamFeed struct {
	title        string
	streamID     string
	updated      string
	etag         string
	headOfStream bool

	embedMode EventEmbedMode
	links     map[StreamFeedLinkRelation]string
	entries   []Entry
}

// Entry is one entry of a feed page.
type Entry struct {
	ID      string
	Title   string
	Summary string
	Updated string

	// Event is the embedded event. It is nil when the page was read with
	// EmbedNone or the entry carries no event fields.
	Event *Event

	links map[StreamFeedLinkRelation]string
}

// LinkURL returns the URL of the entry's link with the given relation.
// Entries usually carry RelationEdit and RelationAlternate, both pointing at
// the event document.
func (e Entry) LinkURL(rel StreamFeedLinkRelation) (string, error) {
	u, ok := e.links[rel]
	if !ok {
		return "", &LinkRelationError{Relation: rel}
	}
	return u, nil
}

// NewStreamFeed parses a feed page document read with the given embed mode.
func NewStreamFeed(data []byte, mode EventEmbedMode) (*StreamFeed, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}

	var doc wire.Feed
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFeed, err)
	}

	feed := &StreamFeed{
		title:        doc.Title,
		streamID:     doc.StreamID,
		updated:      doc.Updated,
		etag:         doc.ETag,
		headOfStream: doc.HeadOfStream,
		embedMode:    mode,
		links:        linkMap(doc.Links),
		entries:      make([]Entry, 0, len(doc.Entries)),
	}

	for _, e := range doc.Entries {
		entry := Entry{
			ID:      e.ID,
			Title:   e.Title,
			Summary: e.Summary,
			Updated: e.Updated,
			links:   linkMap(e.Links),
		}
		if mode != EmbedNone && e.EventType != "" {
			entry.Event = eventFromEntry(e)
		}
		feed.entries = append(feed.entries, entry)
	}

	return feed, nil
}

// linkMap indexes a link list by relation. Unknown relations are dropped and
// the first link wins for a repeated relation.
func linkMap(links []wire.Link) map[StreamFeedLinkRelation]string {
	m := make(map[StreamFeedLinkRelation]string, len(links))
	for _, l := range links {
		rel, err := ParseStreamFeedLinkRelation(l.Relation)
		if err != nil {
			continue
		}
		target := l.Target()
		if target == "" {
			continue
		}
		if _, seen := m[rel]; !seen {
			m[rel] = target
		}
	}
	return m
}

// LinkURL returns the URL registered for rel, or an error matching
// ErrLinkRelationNotFound when the page does not carry it.
func (f *StreamFeed) LinkURL(rel StreamFeedLinkRelation) (string, error) {
	u, ok := f.links[rel]
	if !ok {
		return "", &LinkRelationError{Relation: rel}
	}
	return u, nil
}

// HasLink reports whether the page carries rel.
func (f *StreamFeed) HasLink(rel StreamFeedLinkRelation) bool {
	_, ok := f.links[rel]
	return ok
}

// EventEmbedMode returns the embed mode the page was read with.
func (f *StreamFeed) EventEmbedMode() EventEmbedMode {
	return f.embedMode
}

// Entries returns the page entries in page order (newest first).
// The returned slice is a copy.
func (f *StreamFeed) Entries() []Entry {
	out := make([]Entry, len(f.entries))
	copy(out, f.entries)
	for i := range out {
		if out[i].Event != nil {
			ev := *out[i].Event
			out[i].Event = &ev
		}
	}
	return out
}

// Events returns the embedded events in page order (newest first).
// It is empty for pages read with EmbedNone.
func (f *StreamFeed) Events() []Event {
	var out []Event
	for _, e := range f.entries {
		if e.Event != nil {
			out = append(out, *e.Event)
		}
	}
	return out
}

// Len returns the number of entries on the page.
func (f *StreamFeed) Len() int {
	return len(f.entries)
}

// Title returns the feed title.
func (f *StreamFeed) Title() string {
	return f.title
}

// StreamID returns the name of the stream the page belongs to.
func (f *StreamFeed) StreamID() string {
	return f.streamID
}

// Updated returns the page's updated timestamp as sent by the server.
func (f *StreamFeed) Updated() string {
	return f.updated
}

// ETag returns the page's entity tag.
func (f *StreamFeed) ETag() string {
	return f.etag
}

// HeadOfStream reports whether the page contains the newest event of the
// stream. Pages that are not the head never change.
func (f *StreamFeed) HeadOfStream() bool {
	return f.headOfStream
}
