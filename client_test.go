package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tahoelimited/eventstore-client-go/eventstoretest"
	"github.com/tahoelimited/eventstore-client-go/feedcache"
	"github.com/tahoelimited/eventstore-client-go/internal/wire"
)

func newTestClient(t testing.TB, server *eventstoretest.Server, opts ...ClientOption) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), server.URL(), opts...)
	require.NoError(t, err)
	return client
}

func newMockClient(t *testing.T, transport *eventstoretest.MockTransport) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), "http://es.local",
		WithHTTPClient(&http.Client{Transport: transport}))
	require.NoError(t, err)
	return client
}

func writeNumbered(t *testing.T, client *Client, stream string, n int) {
	t.Helper()
	coll := make(WritableEventCollection, 0, n)
	for i := 0; i < n; i++ {
		coll = append(coll, NewWritableEvent("Numbered", map[string]int{"n": i}))
	}
	resp, err := client.WriteToStream(context.Background(), stream, coll)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestNewClientProbesBaseURL(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()

	client := newTestClient(t, server)

	reqs := server.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Equal(t, "/", reqs[0].Path)
	assert.Equal(t, http.StatusOK, client.LastResponse().StatusCode)
}

func TestNewClientUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(context.Background(), url)
	require.Error(t, err)
	assert.Nil(t, client)
	assert.True(t, errors.Is(err, ErrConnectionFailed))

	var ce *ConnectionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, url, ce.URL)
}

func TestNewClientTransportErrorIsConnectionFailed(t *testing.T) {
	transport := eventstoretest.NewMockTransport()
	transport.AddError(errors.New("dial tcp: lookup es.local: no such host"))

	_, err := NewClient(context.Background(), "http://es.local",
		WithHTTPClient(&http.Client{Transport: transport}))
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestNewClientProbeErrorStatusIsNotAnError(t *testing.T) {
	transport := eventstoretest.NewMockTransport()
	transport.AddStatus(http.StatusNotFound)

	client := newMockClient(t, transport)

	require.NotNil(t, client.LastResponse())
	assert.Equal(t, http.StatusNotFound, client.LastResponse().StatusCode)
	assert.ErrorIs(t, client.LastResponse().Err(), ErrStreamNotFound)
}

func TestWriteToStreamRequest(t *testing.T) {
	transport := eventstoretest.NewMockTransport()
	transport.AddStatus(http.StatusOK)
	transport.AddStatus(http.StatusCreated)
	client := newMockClient(t, transport)

	resp, err := client.WriteToStream(context.Background(), "orders-1",
		NewWritableEvent("OrderCreated", map[string]any{"id": 1}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Same(t, resp, client.LastResponse())

	reqs := transport.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPost, reqs[1].Method)
	assert.Equal(t, "http://es.local/streams/orders-1", reqs[1].URL.String())
	assert.Equal(t, wire.ContentTypeEvents, reqs[1].Header.Get("Content-Type"))
	assert.Equal(t, `[{"eventType":"OrderCreated","data":{"id":1}}]`, string(transport.RequestBody(1)))
}

func TestWriteSingleEventAndCollectionSendSameBody(t *testing.T) {
	transport := eventstoretest.NewMockTransport()
	transport.AddStatus(http.StatusOK)
	transport.AddStatus(http.StatusCreated)
	transport.AddStatus(http.StatusCreated)
	client := newMockClient(t, transport)

	event := NewWritableEvent("OrderCreated", map[string]any{"id": 1}, WithRandomEventID())
	_, err := client.WriteToStream(context.Background(), "orders-1", event)
	require.NoError(t, err)
	_, err = client.WriteToStream(context.Background(), "orders-1", NewWritableEventCollection(event))
	require.NoError(t, err)

	assert.Equal(t, string(transport.RequestBody(1)), string(transport.RequestBody(2)))
}

func TestWriteToStreamTransportFailure(t *testing.T) {
	transport := eventstoretest.NewMockTransport()
	transport.AddStatus(http.StatusOK)
	transport.AddError(errors.New("connection reset by peer"))
	client := newMockClient(t, transport)

	resp, err := client.WriteToStream(context.Background(), "orders-1", NewWritableEvent("A", 1))
	require.Error(t, err)
	assert.Nil(t, resp)

	var se *StreamError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "write", se.Op)
	assert.Equal(t, 0, se.StatusCode)
	assert.False(t, errors.Is(err, ErrConnectionFailed))
}

func TestOpenStreamFeedAndMissingRelation(t *testing.T) {
	transport := eventstoretest.NewMockTransport()
	transport.AddStatus(http.StatusOK)
	transport.AddJSONResponse(http.StatusOK, wire.Feed{
		StreamID:     "orders-1",
		HeadOfStream: true,
		Links: []wire.Link{
			{URI: "http://es.local/streams/orders-1", Relation: "self"},
			{URI: "http://es.local/streams/orders-1/head/backward/20", Relation: "first"},
		},
		Entries: []wire.Entry{{
			ID:      "http://es.local/streams/orders-1/0",
			Title:   "0@orders-1",
			Summary: "OrderCreated",
		}},
	}, nil)
	client := newMockClient(t, transport)

	feed, resp, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedNone)
	require.NoError(t, err)
	require.NotNil(t, feed)
	assert.True(t, resp.OK())
	assert.Equal(t, 1, feed.Len())
	assert.True(t, feed.HasLink(RelationSelf))

	reqs := transport.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodGet, reqs[1].Method)
	assert.Equal(t, "http://es.local/streams/orders-1", reqs[1].URL.String())
	assert.Equal(t, "application/json", reqs[1].Header.Get("Accept"))
	assert.Empty(t, reqs[1].URL.Query().Get("embed"))

	next, resp, err := client.NavigateStreamFeed(context.Background(), feed, RelationPrevious)
	assert.ErrorIs(t, err, ErrLinkRelationNotFound)
	assert.Nil(t, next)
	assert.Nil(t, resp)
	assert.Len(t, transport.Requests(), 2, "no request for a missing relation")
}

func TestOpenStreamFeedSendsEmbedToken(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 1)

	for _, mode := range []EventEmbedMode{EmbedContent, EmbedRich, EmbedBody, EmbedPrettyBody, EmbedTryHarder} {
		t.Run(mode.String(), func(t *testing.T) {
			feed, _, err := client.OpenStreamFeed(context.Background(), "orders-1", mode)
			require.NoError(t, err)
			require.NotNil(t, feed)

			reqs := server.Requests()
			assert.Equal(t, mode.Native(), reqs[len(reqs)-1].Query.Get("embed"))
		})
	}
}

func TestOpenStreamFeedRejectsUnknownMode(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	_, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EventEmbedMode(17))
	assert.ErrorIs(t, err, ErrUnsupportedMode)
	assert.Len(t, server.Requests(), 1, "only the probe was sent")
}

func TestWriteThenOpenReturnsEventsInCommitOrder(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	var streamSeq atomic.Int64
	rapid.Check(t, func(t *rapid.T) {
		stream := fmt.Sprintf("prop-%d", streamSeq.Add(1))
		n := rapid.IntRange(1, 10).Draw(t, "n")

		coll := make(WritableEventCollection, 0, n)
		for i := 0; i < n; i++ {
			eventType := rapid.StringMatching(`[A-Z][A-Za-z]{0,12}`).Draw(t, "eventType")
			data := map[string]any{
				"seq":   i,
				"value": rapid.String().Draw(t, "value"),
			}
			coll = append(coll, NewWritableEvent(eventType, data))
		}

		resp, err := client.WriteToStream(context.Background(), stream, coll)
		require.NoError(t, err)
		require.True(t, resp.OK())

		feed, _, err := client.OpenStreamFeed(context.Background(), stream, EmbedBody)
		require.NoError(t, err)
		require.NotNil(t, feed)

		events := feed.Events()
		require.Len(t, events, n)
		for i, want := range coll {
			// Pages list the newest event first.
			got := events[n-1-i]
			assert.Equal(t, int64(i), got.Number)
			assert.Equal(t, want.Type, got.Type)

			wantData, err := json.Marshal(want.Data)
			require.NoError(t, err)
			assert.JSONEq(t, string(wantData), string(got.Data))
		}
	})
}

func TestNavigatePreservesEmbedMode(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(1))
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 3)

	for _, mode := range []EventEmbedMode{EmbedContent, EmbedRich, EmbedBody, EmbedPrettyBody, EmbedTryHarder} {
		t.Run(mode.String(), func(t *testing.T) {
			head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", mode)
			require.NoError(t, err)

			for _, rel := range []StreamFeedLinkRelation{RelationNext, RelationLast, RelationFirst} {
				page, resp, err := client.NavigateStreamFeed(context.Background(), head, rel)
				require.NoError(t, err)
				require.NotNil(t, page, "status %d", resp.StatusCode)
				assert.Equal(t, mode, page.EventEmbedMode())

				reqs := server.Requests()
				assert.Equal(t, mode.Native(), reqs[len(reqs)-1].Query.Get("embed"))
			}
		})
	}
}

func TestNavigatePrettyBodyDecodesData(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(1))
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 2)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedPrettyBody)
	require.NoError(t, err)
	older, _, err := client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)

	events := older.Events()
	require.Len(t, events, 1)
	var data struct {
		N int `json:"n"`
	}
	require.NoError(t, events[0].Decode(&data))
	assert.Equal(t, 0, data.N)
}

func TestDeleteStream(t *testing.T) {
	tests := []struct {
		name       string
		mode       StreamDeletion
		wantHeader string
		wantRead   int
	}{
		{"soft", SoftDelete, "", http.StatusNotFound},
		{"hard", HardDelete, "true", http.StatusGone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := eventstoretest.NewServer()
			defer server.Close()
			client := newTestClient(t, server)
			writeNumbered(t, client, "orders-1", 1)

			resp, err := client.DeleteStream(context.Background(), "orders-1", tt.mode)
			require.NoError(t, err)
			assert.True(t, resp.OK())

			reqs := server.Requests()
			last := reqs[len(reqs)-1]
			assert.Equal(t, http.MethodDelete, last.Method)
			assert.Equal(t, "/streams/orders-1", last.Path)
			assert.Equal(t, tt.wantHeader, last.Header.Get("ES-HardDelete"))
			if tt.wantHeader == "" {
				assert.NotContains(t, last.Header, "Es-Harddelete")
			}

			feed, resp, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedNone)
			require.NoError(t, err, "HTTP errors are not returned as errors")
			assert.Nil(t, feed)
			assert.Equal(t, tt.wantRead, resp.StatusCode)
			assert.Equal(t, tt.wantRead, client.LastResponse().StatusCode)
		})
	}
}

func TestDeleteMissingStreamReportsStatus(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	resp, err := client.DeleteStream(context.Background(), "missing", SoftDelete)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var se *StreamError
	require.True(t, errors.As(resp.Err(), &se))
	assert.Equal(t, "delete", se.Op)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.ErrorIs(t, resp.Err(), ErrStreamNotFound)
}

func TestSoftDeletedStreamCanBeWrittenAgain(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 2)

	_, err := client.DeleteStream(context.Background(), "orders-1", SoftDelete)
	require.NoError(t, err)
	writeNumbered(t, client, "orders-1", 1)

	feed, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedRich)
	require.NoError(t, err)
	require.NotNil(t, feed)
	events := feed.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].Number, "numbering continues after a soft delete")

	_, err = client.DeleteStream(context.Background(), "orders-1", HardDelete)
	require.NoError(t, err)
	resp, err := client.WriteToStream(context.Background(), "orders-1", NewWritableEvent("Late", 1))
	require.NoError(t, err)
	assert.ErrorIs(t, resp.Err(), ErrStreamDeleted)
}

func TestPagesWalksToOldestPage(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 5)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedRich)
	require.NoError(t, err)

	numbers := eventNumbers(head)
	pages := 1
	for page, err := range client.Pages(context.Background(), head, RelationNext) {
		require.NoError(t, err)
		numbers = append(numbers, eventNumbers(page)...)
		pages++
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []int64{4, 3, 2, 1, 0}, numbers)
}

func TestPagesStopsAtEmptyPage(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 2)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedNone)
	require.NoError(t, err)

	var seen []*StreamFeed
	for page, err := range client.Pages(context.Background(), head, RelationPrevious) {
		require.NoError(t, err)
		seen = append(seen, page)
	}
	require.Len(t, seen, 1, "previous from the head is an empty page")
	assert.Equal(t, 0, seen[0].Len())
}

func TestPagesYieldsStatusError(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(1))
	defer server.Close()
	client := newTestClient(t, server)
	writeNumbered(t, client, "orders-1", 3)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedNone)
	require.NoError(t, err)
	_, err = client.DeleteStream(context.Background(), "orders-1", HardDelete)
	require.NoError(t, err)

	var errs []error
	for _, err := range client.Pages(context.Background(), head, RelationNext) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrStreamDeleted)
}

func eventNumbers(feed *StreamFeed) []int64 {
	var out []int64
	for _, ev := range feed.Events() {
		out = append(out, ev.Number)
	}
	return out
}

func TestFeedCacheServesCompletePages(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
	defer server.Close()
	cache := feedcache.NewMemory()
	metrics := NewMetrics(prometheus.NewRegistry())
	client := newTestClient(t, server, WithFeedCache(cache), WithMetrics(metrics))
	writeNumbered(t, client, "orders-1", 4)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedBody)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len(), "head pages are not cached")

	first, resp, err := client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.False(t, first.HeadOfStream())
	assert.Equal(t, 1, cache.Len())

	requests := len(server.Requests())
	second, resp, err := client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, server.Requests(), requests, "cache hit sends no request")
	assert.Equal(t, eventNumbers(first), eventNumbers(second))
	assert.Equal(t, EmbedBody, second.EventEmbedMode())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))

	// Another embed mode is a different page.
	rich, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedRich)
	require.NoError(t, err)
	_, resp, err = client.NavigateStreamFeed(context.Background(), rich, RelationNext)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
}

func TestReadEvent(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	_, err := client.WriteToStream(context.Background(), "orders-1",
		NewWritableEvent("OrderCreated", map[string]any{"id": 1}, WithMetadata(map[string]string{"user": "bob"})))
	require.NoError(t, err)

	feed, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedNone)
	require.NoError(t, err)
	eventURL, err := feed.Entries()[0].LinkURL(RelationAlternate)
	require.NoError(t, err)

	ev, resp, err := client.ReadEvent(context.Background(), eventURL)
	require.NoError(t, err)
	require.NotNil(t, ev, "status %d", resp.StatusCode)
	assert.Equal(t, "OrderCreated", ev.Type)
	assert.Equal(t, "orders-1", ev.StreamID)
	assert.Equal(t, int64(0), ev.Number)
	assert.JSONEq(t, `{"id":1}`, string(ev.Data))
	assert.JSONEq(t, `{"user":"bob"}`, string(ev.Metadata))

	reqs := server.Requests()
	assert.Equal(t, wire.ContentTypeAtomJSON, reqs[len(reqs)-1].Header.Get("Accept"))

	missing, resp, err := client.ReadEvent(context.Background(), server.URL()+"/streams/orders-1/9")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsCountRequests(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	metrics := NewMetrics(prometheus.NewRegistry())
	client := newTestClient(t, server, WithMetrics(metrics))

	writeNumbered(t, client, "orders-1", 1)
	_, _, err := client.OpenStreamFeed(context.Background(), "missing", EmbedNone)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("probe", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("write", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.requests.WithLabelValues("open", "404")))
}

func TestWithHeaders(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server, WithHeaders(map[string]string{
		"X-Request-Source": "tests",
		"Accept":           "text/plain",
	}))

	_, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedNone)
	require.NoError(t, err)

	reqs := server.Requests()
	assert.Equal(t, "tests", reqs[0].Header.Get("X-Request-Source"), "probe carries static headers")
	last := reqs[len(reqs)-1]
	assert.Equal(t, "tests", last.Header.Get("X-Request-Source"))
	assert.Equal(t, "application/json", last.Header.Get("Accept"), "operation headers win")
}

func TestStreamNamesArePathEscaped(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	assert.Equal(t, server.URL()+"/streams/tenant%2Forders", client.StreamURL("tenant/orders"))

	writeNumbered(t, client, "tenant/orders", 1)
	assert.Len(t, server.Events("tenant/orders"), 1)

	feed, _, err := client.OpenStreamFeed(context.Background(), "tenant/orders", EmbedNone)
	require.NoError(t, err)
	require.NotNil(t, feed)
	assert.Equal(t, "tenant/orders", feed.StreamID())
}

func TestNewClientTrimsTrailingSlash(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()

	client, err := NewClient(context.Background(), server.URL()+"/")
	require.NoError(t, err)
	assert.Equal(t, server.URL(), client.BaseURL())
	assert.Equal(t, server.URL()+"/streams/a", client.StreamURL("a"))
}

func TestDeleteStreamDropsCachedPages(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
	defer server.Close()
	cache := feedcache.NewMemory()
	client := newTestClient(t, server, WithFeedCache(cache))
	writeNumbered(t, client, "orders-1", 4)
	writeNumbered(t, client, "orders-10", 4)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedBody)
	require.NoError(t, err)
	_, _, err = client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)

	other, _, err := client.OpenStreamFeed(context.Background(), "orders-10", EmbedBody)
	require.NoError(t, err)
	_, _, err = client.NavigateStreamFeed(context.Background(), other, RelationNext)
	require.NoError(t, err)
	require.Equal(t, 2, cache.Len())

	resp, err := client.DeleteStream(context.Background(), "orders-1", HardDelete)
	require.NoError(t, err)
	require.True(t, resp.OK())
	assert.Equal(t, 1, cache.Len(), "pages of other streams are kept")

	page, resp, err := client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)
	assert.Nil(t, page)
	assert.False(t, resp.Cached)
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	_, resp, err = client.NavigateStreamFeed(context.Background(), other, RelationNext)
	require.NoError(t, err)
	assert.True(t, resp.Cached)
}

func TestSoftDeleteDropsCachedPages(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
	defer server.Close()
	cache := feedcache.NewMemory()
	client := newTestClient(t, server, WithFeedCache(cache))
	writeNumbered(t, client, "orders-1", 4)

	head, _, err := client.OpenStreamFeed(context.Background(), "orders-1", EmbedBody)
	require.NoError(t, err)
	_, _, err = client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)

	_, err = client.DeleteStream(context.Background(), "orders-1", SoftDelete)
	require.NoError(t, err)
	writeNumbered(t, client, "orders-1", 2)

	page, resp, err := client.NavigateStreamFeed(context.Background(), head, RelationNext)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	require.NotNil(t, page)
	assert.Empty(t, page.Events(), "truncated events are not served")
}

func TestWriteToStreamRejectsNilEvents(t *testing.T) {
	tests := []struct {
		name   string
		events Writable
	}{
		{"nil writable", nil},
		{"nil event", (*WritableEvent)(nil)},
		{"collection of nil", NewWritableEventCollection(nil)},
		{"nil inside collection", NewWritableEventCollection(NewWritableEvent("A", 1), nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := eventstoretest.NewMockTransport()
			transport.AddStatus(http.StatusOK)
			client := newMockClient(t, transport)

			resp, err := client.WriteToStream(context.Background(), "orders-1", tt.events)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrInvalidEvent)

			var se *StreamError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "write", se.Op)
			assert.Len(t, transport.Requests(), 1, "nothing sent after the probe")
		})
	}
}

func TestNavigateNilFeed(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	client := newTestClient(t, server)

	feed, resp, err := client.OpenStreamFeed(context.Background(), "missing", EmbedNone)
	require.NoError(t, err)
	require.Nil(t, feed)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	next, resp, err := client.NavigateStreamFeed(context.Background(), feed, RelationNext)
	assert.ErrorIs(t, err, ErrInvalidFeed)
	assert.Nil(t, next)
	assert.Nil(t, resp)

	var errs []error
	for page, err := range client.Pages(context.Background(), feed, RelationNext) {
		assert.Nil(t, page)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrInvalidFeed)
}
