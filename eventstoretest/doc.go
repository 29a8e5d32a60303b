// Package eventstoretest provides testing utilities for event store clients.
//
// # Server
//
// Server is an in-memory event store speaking the HTTP feed protocol. Use it
// for unit testing without a real store:
//
//	func TestWrite(t *testing.T) {
//	    server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
//	    defer server.Close()
//
//	    ctx := context.Background()
//	    client, err := eventstore.NewClient(ctx, server.URL())
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//
//	    _, err = client.WriteToStream(ctx, "orders-1",
//	        eventstore.NewWritableEvent("OrderCreated", map[string]any{"id": 1}))
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//
//	    if got := server.Events("orders-1"); len(got) != 1 {
//	        t.Fatalf("expected 1 event, got %d", len(got))
//	    }
//	}
//
// # MockTransport
//
// MockTransport is an http.RoundTripper that records requests and replays
// queued responses, for testing client behavior with controlled responses
// and transport failures:
//
//	transport := eventstoretest.NewMockTransport()
//	transport.AddResponse(&http.Response{
//	    StatusCode: 404,
//	    Body:       io.NopCloser(strings.NewReader("")),
//	}, nil)
//
//	client, err := eventstore.NewClient(ctx, "http://es.local",
//	    eventstore.WithHTTPClient(&http.Client{Transport: transport}),
//	)
package eventstoretest
