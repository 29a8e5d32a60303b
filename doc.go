// Package eventstore provides a Go client for an HTTP event store that exposes
// streams as Atom-style JSON feeds.
//
// Events are appended to named streams, streams are read back one feed page at
// a time, and pages are walked with the link relations each page carries.
//
// # Basic Usage
//
// Create a client. Construction probes the store:
//
//	client, err := eventstore.NewClient(ctx, "http://127.0.0.1:2113")
//	if err != nil {
//	    return err // errors.Is(err, eventstore.ErrConnectionFailed)
//	}
//
// Append events:
//
//	resp, err := client.WriteToStream(ctx, "orders-1", eventstore.NewWritableEventCollection(
//	    eventstore.NewWritableEvent("OrderCreated", map[string]any{"id": 1}),
//	    eventstore.NewWritableEvent("OrderShipped", map[string]any{"id": 1}),
//	))
//
// Read the head page with event bodies embedded and walk to older pages:
//
//	feed, resp, err := client.OpenStreamFeed(ctx, "orders-1", eventstore.EmbedBody)
//	if err != nil {
//	    return err
//	}
//	if feed == nil {
//	    return resp.Err() // e.g. ErrStreamNotFound
//	}
//	for page, err := range client.Pages(ctx, feed, eventstore.RelationNext) {
//	    // ...
//	}
//
// Delete a stream permanently:
//
//	resp, err := client.DeleteStream(ctx, "orders-1", eventstore.HardDelete)
//
// # Error Handling
//
// HTTP error statuses are never returned as errors. Every operation returns
// the Response it produced; use Response.OK or Response.Err to interpret it:
//
//	if err := resp.Err(); errors.Is(err, eventstore.ErrStreamDeleted) {
//	    // Handle 410
//	}
//
// Errors are returned for transport failures (wrapped in *StreamError),
// undecodable pages (ErrInvalidFeed) and navigation to a relation the page does
// not carry (ErrLinkRelationNotFound, no request is made).
package eventstore
