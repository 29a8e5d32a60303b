package eventstore

import (
	"fmt"
)

// StreamDeletion selects how a stream is deleted.
type StreamDeletion int

const (
	// SoftDelete leaves the stream recoverable on the server.
	// This is the default mode.
	SoftDelete StreamDeletion = iota

	// HardDelete removes the stream permanently. The stream name cannot be
	// reused afterwards.
	HardDelete
)

var streamDeletionNames = [...]string{
	SoftDelete: "soft",
	HardDelete: "hard",
}

// Valid reports whether d is one of the declared deletion modes.
func (d StreamDeletion) Valid() bool {
	return d >= 0 && int(d) < len(streamDeletionNames)
}

func (d StreamDeletion) String() string {
	if !d.Valid() {
		return fmt.Sprintf("StreamDeletion(%d)", int(d))
	}
	return streamDeletionNames[d]
}

// EventEmbedMode controls how much event content the server inlines into the
// entries of a feed page.
type EventEmbedMode int

const (
	// EmbedNone returns link-only entries. This is the default mode.
	EmbedNone EventEmbedMode = iota

	// EmbedContent inlines the atom content of each entry.
	EmbedContent

	// EmbedRich adds event type, number and stream to each entry.
	EmbedRich

	// EmbedBody adds the event data and metadata to each entry.
	EmbedBody

	// EmbedPrettyBody is EmbedBody with the data pretty printed by the server.
	EmbedPrettyBody

	// EmbedTryHarder is EmbedBody where the server also tries to parse
	// non-JSON event data.
	EmbedTryHarder
)

// Tokens accepted by the server's embed query parameter. Case sensitive.
var embedModeTokens = [...]string{
	EmbedNone:       "",
	EmbedContent:    "content",
	EmbedRich:       "rich",
	EmbedBody:       "body",
	EmbedPrettyBody: "pretty",
	EmbedTryHarder:  "tryharder",
}

// Valid reports whether m is one of the declared embed modes.
func (m EventEmbedMode) Valid() bool {
	return m >= 0 && int(m) < len(embedModeTokens)
}

// Native returns the token the server expects in the embed query parameter.
// EmbedNone maps to the empty string, meaning no parameter is sent.
func (m EventEmbedMode) Native() string {
	if !m.Valid() {
		return ""
	}
	return embedModeTokens[m]
}

// EmbedsEvents reports whether entries read with m carry event fields.
func (m EventEmbedMode) EmbedsEvents() bool {
	return m.Valid() && m != EmbedNone && m != EmbedContent
}

func (m EventEmbedMode) String() string {
	switch {
	case !m.Valid():
		return fmt.Sprintf("EventEmbedMode(%d)", int(m))
	case m == EmbedNone:
		return "none"
	default:
		return embedModeTokens[m]
	}
}

// ParseEventEmbedMode returns the embed mode for a wire token. Both "" and
// "none" map to EmbedNone.
func ParseEventEmbedMode(token string) (EventEmbedMode, error) {
	if token == "none" {
		return EmbedNone, nil
	}
	for m, t := range embedModeTokens {
		if t == token {
			return EventEmbedMode(m), nil
		}
	}
	return EmbedNone, fmt.Errorf("%w: embed mode %q", ErrUnsupportedMode, token)
}

// StreamFeedLinkRelation names a link a feed page or entry may carry.
type StreamFeedLinkRelation int

const (
	RelationSelf StreamFeedLinkRelation = iota
	RelationFirst
	RelationLast
	RelationNext
	RelationPrevious
	RelationMetadata
	RelationEdit
	RelationAlternate
)

var linkRelationTokens = [...]string{
	RelationSelf:      "self",
	RelationFirst:     "first",
	RelationLast:      "last",
	RelationNext:      "next",
	RelationPrevious:  "previous",
	RelationMetadata:  "metadata",
	RelationEdit:      "edit",
	RelationAlternate: "alternate",
}

// Valid reports whether r is one of the declared link relations.
func (r StreamFeedLinkRelation) Valid() bool {
	return r >= 0 && int(r) < len(linkRelationTokens)
}

// Native returns the atom relation token.
func (r StreamFeedLinkRelation) Native() string {
	if !r.Valid() {
		return ""
	}
	return linkRelationTokens[r]
}

func (r StreamFeedLinkRelation) String() string {
	if !r.Valid() {
		return fmt.Sprintf("StreamFeedLinkRelation(%d)", int(r))
	}
	return linkRelationTokens[r]
}

// ParseStreamFeedLinkRelation returns the relation for an atom relation token.
func ParseStreamFeedLinkRelation(token string) (StreamFeedLinkRelation, error) {
	for r, t := range linkRelationTokens {
		if t == token {
			return StreamFeedLinkRelation(r), nil
		}
	}
	return 0, fmt.Errorf("%w: link relation %q", ErrUnsupportedMode, token)
}
