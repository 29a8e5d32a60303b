package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	eventstore "github.com/tahoelimited/eventstore-client-go"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

var allRelations = []eventstore.StreamFeedLinkRelation{
	eventstore.RelationSelf,
	eventstore.RelationFirst,
	eventstore.RelationLast,
	eventstore.RelationNext,
	eventstore.RelationPrevious,
	eventstore.RelationMetadata,
}

type feedView struct {
	Stream       string            `json:"stream" yaml:"stream"`
	HeadOfStream bool              `json:"headOfStream" yaml:"headOfStream"`
	EmbedMode    string            `json:"embed" yaml:"embed"`
	Links        map[string]string `json:"links" yaml:"links"`
	Entries      []entryView       `json:"entries" yaml:"entries"`
}

type entryView struct {
	ID      string     `json:"id" yaml:"id"`
	Title   string     `json:"title" yaml:"title"`
	Summary string     `json:"summary,omitempty" yaml:"summary,omitempty"`
	Event   *eventView `json:"event,omitempty" yaml:"event,omitempty"`
}

type eventView struct {
	ID       string `json:"id" yaml:"id"`
	Type     string `json:"type" yaml:"type"`
	Number   int64  `json:"number" yaml:"number"`
	Stream   string `json:"stream,omitempty" yaml:"stream,omitempty"`
	Data     any    `json:"data,omitempty" yaml:"data,omitempty"`
	Metadata any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type statusView struct {
	Stream   string `json:"stream" yaml:"stream"`
	Status   int    `json:"status" yaml:"status"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
}

func newFeedView(feed *eventstore.StreamFeed) feedView {
	v := feedView{
		Stream:       feed.StreamID(),
		HeadOfStream: feed.HeadOfStream(),
		EmbedMode:    feed.EventEmbedMode().String(),
		Links:        make(map[string]string),
		Entries:      []entryView{},
	}
	for _, rel := range allRelations {
		if u, err := feed.LinkURL(rel); err == nil {
			v.Links[rel.String()] = u
		}
	}
	for _, e := range feed.Entries() {
		ev := entryView{
			ID:      e.ID,
			Title:   e.Title,
			Summary: e.Summary,
		}
		if e.Event != nil {
			view := newEventView(*e.Event)
			ev.Event = &view
		}
		v.Entries = append(v.Entries, ev)
	}
	return v
}

// newEventView decodes raw JSON bodies so YAML output shows structure
// instead of byte arrays. Non-JSON bodies are shown as strings.
func newEventView(ev eventstore.Event) eventView {
	return eventView{
		ID:       ev.ID,
		Type:     ev.Type,
		Number:   ev.Number,
		Stream:   ev.StreamID,
		Data:     decodeRaw(ev.Data),
		Metadata: decodeRaw(ev.Metadata),
	}
}

func decodeRaw(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func responseView(stream string, resp *eventstore.Response) statusView {
	return statusView{
		Stream:   stream,
		Status:   resp.StatusCode,
		Location: resp.Header.Get("Location"),
	}
}

func render(w io.Writer, format string, v any) error {
	switch format {
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
