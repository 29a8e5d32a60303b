package eventstoretest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tahoelimited/eventstore-client-go/internal/wire"
)

// DefaultPageSize is the number of entries per feed page unless WithPageSize
// is given.
const DefaultPageSize = 20

// Server is an in-memory event store.
type Server struct {
	server   *httptest.Server
	router   *mux.Router
	logger   *zap.Logger
	pageSize int

	mu       sync.RWMutex
	streams  map[string]*memStream
	requests []RecordedRequest
}

// RecordedEvent is an event as stored by the Server.
type RecordedEvent struct {
	ID       string
	Type     string
	Number   int64
	Data     json.RawMessage
	Metadata json.RawMessage
	Created  time.Time
}

// RecordedRequest is a request received by the Server.
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

type memStream struct {
	events []RecordedEvent

	// truncateBefore hides events below this number after a soft delete.
	truncateBefore int64
	softDeleted    bool
	hardDeleted    bool
}

func (s *memStream) visible() []RecordedEvent {
	return s.events[s.truncateBefore:]
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPageSize sets the number of entries per feed page.
func WithPageSize(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the server logger. The default discards everything.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer starts a new in-memory event store.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		logger:   zap.NewNop(),
		pageSize: DefaultPageSize,
		streams:  make(map[string]*memStream),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := mux.NewRouter()
	r.UseEncodedPath()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/streams/{name}", s.handleAppend).Methods(http.MethodPost)
	r.HandleFunc("/streams/{name}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/streams/{name}", s.handleHead).Methods(http.MethodGet)
	r.HandleFunc("/streams/{name}/head/backward/{count:[0-9]+}", s.handleHead).Methods(http.MethodGet)
	r.HandleFunc("/streams/{name}/{from:[0-9]+}/backward/{count:[0-9]+}", s.handleBackward).Methods(http.MethodGet)
	r.HandleFunc("/streams/{name}/{from:[0-9]+}/forward/{count:[0-9]+}", s.handleForward).Methods(http.MethodGet)
	r.HandleFunc("/streams/{name}/{number:[0-9]+}", s.handleEvent).Methods(http.MethodGet)
	s.router = r

	s.server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// URL returns the base URL of the server.
func (s *Server) URL() string {
	return s.server.URL
}

// HTTPClient returns an HTTP client configured to use the server.
func (s *Server) HTTPClient() *http.Client {
	return s.server.Client()
}

// Handler returns the server's router, for mounting in another server.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

// Close shuts down the server.
func (s *Server) Close() {
	s.server.Close()
}

// Reset clears all streams and recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = make(map[string]*memStream)
	s.requests = nil
}

// Events returns the visible events of a stream in commit order.
// Useful for assertions in tests.
func (s *Server) Events(streamName string) []RecordedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.streams[streamName]
	if !ok || st.hardDeleted || st.softDeleted {
		return nil
	}
	out := make([]RecordedEvent, len(st.visible()))
	copy(out, st.visible())
	return out
}

// Requests returns all requests received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.EscapedPath(),
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	s.mu.Unlock()

	s.logger.Debug("request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.EscapedPath()),
		zap.String("query", r.URL.RawQuery))

	s.router.ServeHTTP(w, r)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wire.ContentTypeJSON, map[string]string{"name": "eventstoretest"})
}

// handleAppend handles POST requests appending events.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	name, ok := streamName(w, r)
	if !ok {
		return
	}

	var incoming []wire.IncomingEvent
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		http.Error(w, "Invalid events body", http.StatusBadRequest)
		return
	}
	if len(incoming) == 0 {
		http.Error(w, "No events", http.StatusBadRequest)
		return
	}
	for _, ev := range incoming {
		if ev.EventType == "" {
			http.Error(w, "Missing eventType", http.StatusBadRequest)
			return
		}
		if ev.EventID != "" {
			if _, err := uuid.Parse(ev.EventID); err != nil {
				http.Error(w, "Invalid eventId", http.StatusBadRequest)
				return
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[name]
	if !ok {
		st = &memStream{}
		s.streams[name] = st
	}
	if st.hardDeleted {
		http.Error(w, "Stream deleted", http.StatusGone)
		return
	}
	if st.softDeleted {
		st.softDeleted = false
		st.truncateBefore = int64(len(st.events))
	}

	first := int64(len(st.events))
	now := time.Now().UTC()
	for _, ev := range incoming {
		id := ev.EventID
		if id == "" {
			id = uuid.NewString()
		}
		st.events = append(st.events, RecordedEvent{
			ID:       id,
			Type:     ev.EventType,
			Number:   int64(len(st.events)),
			Data:     ev.Data,
			Metadata: ev.Metadata,
			Created:  now,
		})
	}

	s.logger.Debug("appended events",
		zap.String("stream", name),
		zap.Int("count", len(incoming)),
		zap.Int64("first", first))

	w.Header().Set("Location", fmt.Sprintf("%s/%d", streamURL(r, name), first))
	w.WriteHeader(http.StatusCreated)
}

// handleDelete handles DELETE requests; ES-HardDelete: true deletes permanently.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := streamName(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.streams[name]
	if !ok || st.softDeleted {
		http.Error(w, "Stream not found", http.StatusNotFound)
		return
	}
	if st.hardDeleted {
		http.Error(w, "Stream deleted", http.StatusGone)
		return
	}

	if r.Header.Get(wire.HeaderHardDelete) == "true" {
		st.hardDeleted = true
	} else {
		st.softDeleted = true
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	count, ok := pageCount(w, r, s.pageSize)
	if !ok {
		return
	}
	s.servePage(w, r, func(st *memStream) (int64, int64) {
		last := int64(len(st.events)) - 1
		return backwardRange(st, last, count)
	}, count)
}

func (s *Server) handleBackward(w http.ResponseWriter, r *http.Request) {
	count, ok := pageCount(w, r, s.pageSize)
	if !ok {
		return
	}
	from, err := strconv.ParseInt(mux.Vars(r)["from"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid position", http.StatusBadRequest)
		return
	}
	s.servePage(w, r, func(st *memStream) (int64, int64) {
		return backwardRange(st, from, count)
	}, count)
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request) {
	count, ok := pageCount(w, r, s.pageSize)
	if !ok {
		return
	}
	from, err := strconv.ParseInt(mux.Vars(r)["from"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid position", http.StatusBadRequest)
		return
	}
	s.servePage(w, r, func(st *memStream) (int64, int64) {
		if from < st.truncateBefore {
			from = st.truncateBefore
		}
		high := from + count - 1
		if last := int64(len(st.events)) - 1; high > last {
			high = last
		}
		return from, high
	}, count)
}

// backwardRange returns the inclusive range of a page ending at from.
func backwardRange(st *memStream, from, count int64) (int64, int64) {
	if last := int64(len(st.events)) - 1; from > last {
		from = last
	}
	low := from - count + 1
	if low < st.truncateBefore {
		low = st.truncateBefore
	}
	return low, from
}

// servePage renders the events low..high (inclusive, empty when low > high)
// newest first, with EventStore-style paging links.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request, pageRange func(*memStream) (int64, int64), count int64) {
	name, ok := streamName(w, r)
	if !ok {
		return
	}

	mode := r.URL.Query().Get(wire.QueryEmbed)
	switch mode {
	case "", "content", "rich", "body", "pretty", "tryharder":
	default:
		http.Error(w, "Invalid embed mode", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.existing(w, name)
	if !ok {
		return
	}

	low, high := pageRange(st)
	last := int64(len(st.events)) - 1
	base := streamURL(r, name)

	feed := wire.Feed{
		Title:        fmt.Sprintf("Event stream '%s'", name),
		ID:           base,
		Updated:      time.Now().UTC().Format(time.RFC3339Nano),
		StreamID:     name,
		Author:       wire.Author{Name: "EventStore"},
		HeadOfStream: high >= last,
		SelfURL:      base,
		ETag:         fmt.Sprintf("%d;%s", last, mode),
		Links: []wire.Link{
			{URI: base, Relation: "self"},
			{URI: fmt.Sprintf("%s/head/backward/%d", base, count), Relation: "first"},
		},
		Entries: []wire.Entry{},
	}

	oldest := low
	if low > high {
		oldest = high + 1
	}
	if oldest > st.truncateBefore {
		feed.Links = append(feed.Links,
			wire.Link{URI: fmt.Sprintf("%s/%d/forward/%d", base, st.truncateBefore, count), Relation: "last"},
			wire.Link{URI: fmt.Sprintf("%s/%d/backward/%d", base, oldest-1, count), Relation: "next"},
		)
	}
	newest := high
	if low > high {
		newest = low - 1
	}
	feed.Links = append(feed.Links,
		wire.Link{URI: fmt.Sprintf("%s/%d/forward/%d", base, newest+1, count), Relation: "previous"},
		wire.Link{URI: fmt.Sprintf("%s/%s", base, wire.MetadataPathComponent), Relation: "metadata"},
	)

	for n := high; n >= low; n-- {
		feed.Entries = append(feed.Entries, renderEntry(base, name, st.events[n], mode))
	}

	w.Header().Set("ETag", feed.ETag)
	if !feed.HeadOfStream {
		w.Header().Set("Cache-Control", "max-age=31536000, public")
	}
	writeJSON(w, http.StatusOK, wire.ContentTypeJSON, feed)
}

func renderEntry(base, name string, ev RecordedEvent, mode string) wire.Entry {
	eventURL := fmt.Sprintf("%s/%d", base, ev.Number)
	entry := wire.Entry{
		Title:   fmt.Sprintf("%d@%s", ev.Number, name),
		ID:      eventURL,
		Updated: ev.Created.Format(time.RFC3339Nano),
		Author:  wire.Author{Name: "EventStore"},
		Summary: ev.Type,
		Links: []wire.Link{
			{URI: eventURL, Relation: "edit"},
			{URI: eventURL, Relation: "alternate"},
		},
	}

	switch mode {
	case "", "content":
		return entry
	}

	number := ev.Number
	entry.EventID = ev.ID
	entry.EventType = ev.Type
	entry.EventNumber = &number
	entry.StreamID = name

	switch mode {
	case "body", "tryharder":
		entry.Data = ev.Data
		entry.MetaData = ev.Metadata
	case "pretty":
		entry.Data = prettyString(ev.Data)
		entry.MetaData = prettyString(ev.Metadata)
	}
	if mode != "rich" {
		entry.IsJSON = json.Valid(ev.Data)
		entry.IsMetaData = len(ev.Metadata) > 0
	}
	return entry
}

// prettyString renders a JSON document as an indented JSON string value.
func prettyString(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return raw
	}
	quoted, err := json.Marshal(buf.String())
	if err != nil {
		return raw
	}
	return quoted
}

// handleEvent serves a single event document.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	name, ok := streamName(w, r)
	if !ok {
		return
	}
	number, err := strconv.ParseInt(mux.Vars(r)["number"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid event number", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.existing(w, name)
	if !ok {
		return
	}
	if number < st.truncateBefore || number >= int64(len(st.events)) {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}

	ev := st.events[number]
	base := streamURL(r, name)
	eventURL := fmt.Sprintf("%s/%d", base, ev.Number)
	doc := wire.AtomEvent{
		Title:   fmt.Sprintf("%d@%s", ev.Number, name),
		ID:      eventURL,
		Updated: ev.Created.Format(time.RFC3339Nano),
		Author:  wire.Author{Name: "EventStore"},
		Summary: ev.Type,
		Content: wire.EventContent{
			EventStreamID: name,
			EventNumber:   ev.Number,
			EventType:     ev.Type,
			EventID:       ev.ID,
			Data:          ev.Data,
			Metadata:      ev.Metadata,
		},
		Links: []wire.Link{
			{URI: eventURL, Relation: "edit"},
			{URI: eventURL, Relation: "alternate"},
		},
	}
	writeJSON(w, http.StatusOK, wire.ContentTypeAtomJSON, doc)
}

// existing returns the stream or writes 404/410. Callers hold s.mu.
func (s *Server) existing(w http.ResponseWriter, name string) (*memStream, bool) {
	st, ok := s.streams[name]
	switch {
	case !ok || st.softDeleted:
		http.Error(w, "Stream not found", http.StatusNotFound)
		return nil, false
	case st.hardDeleted:
		http.Error(w, "Stream deleted", http.StatusGone)
		return nil, false
	}
	return st, true
}

func streamName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil || name == "" {
		http.Error(w, "Invalid stream name", http.StatusBadRequest)
		return "", false
	}
	return name, true
}

func pageCount(w http.ResponseWriter, r *http.Request, def int) (int64, bool) {
	raw, ok := mux.Vars(r)["count"]
	if !ok {
		return int64(def), true
	}
	count, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || count <= 0 {
		http.Error(w, "Invalid page size", http.StatusBadRequest)
		return 0, false
	}
	return count, true
}

func streamURL(r *http.Request, name string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/streams/%s", scheme, r.Host, url.PathEscape(name))
}

func writeJSON(w http.ResponseWriter, status int, contentType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set(wire.HeaderContentType, contentType)
	w.WriteHeader(status)
	w.Write(data)
}
