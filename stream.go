package eventstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/tahoelimited/eventstore-client-go/internal/wire"
)

// StreamURL returns the URL of the named stream.
func (c *Client) StreamURL(streamName string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, wire.StreamsPathComponent, url.PathEscape(streamName))
}

// WriteToStream appends events to the stream. Pass a single *WritableEvent or
// a WritableEventCollection; both produce the same kind of payload.
//
// An HTTP error status is not an error: check the returned Response.
//
// Example:
//
//	resp, err := client.WriteToStream(ctx, "orders-1",
//	    eventstore.NewWritableEvent("OrderCreated", map[string]any{"id": 1}))
//	if err != nil {
//	    return err
//	}
//	if !resp.OK() {
//	    return resp.Err()
//	}
func (c *Client) WriteToStream(ctx context.Context, streamName string, events Writable) (*Response, error) {
	streamURL := c.StreamURL(streamName)

	if err := validateWritable(events); err != nil {
		return nil, newStreamError("write", streamURL, 0, err)
	}

	body, err := json.Marshal(events.ToStreamData())
	if err != nil {
		return nil, newStreamError("write", streamURL, 0, fmt.Errorf("json marshal: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, streamURL, bytes.NewReader(body))
	if err != nil {
		return nil, newStreamError("write", streamURL, 0, err)
	}
	req.Header.Set(wire.HeaderContentType, wire.ContentTypeEvents)

	resp, err := c.send("write", req)
	if err != nil {
		return nil, newStreamError("write", streamURL, 0, err)
	}
	return resp, nil
}

// OpenStreamFeed reads the head page of the stream.
//
// On an HTTP error status the returned feed is nil, err is nil and the status
// is on the Response. Err is only set for transport failures and undecodable
// pages.
func (c *Client) OpenStreamFeed(ctx context.Context, streamName string, mode EventEmbedMode) (*StreamFeed, *Response, error) {
	return c.readStreamFeed(ctx, "open", c.StreamURL(streamName), mode, false)
}

// NavigateStreamFeed reads the page feed links to with rel, keeping the
// feed's embed mode.
//
// If feed has no such link the error matches ErrLinkRelationNotFound and no
// request is made. A nil feed yields an error matching ErrInvalidFeed. RelationNext walks toward older events and
// RelationPrevious toward newer ones.
func (c *Client) NavigateStreamFeed(ctx context.Context, feed *StreamFeed, rel StreamFeedLinkRelation) (*StreamFeed, *Response, error) {
	if feed == nil {
		return nil, nil, newStreamError("navigate", "", 0, errNilFeed)
	}
	if !rel.Valid() {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, rel)
	}
	target, err := feed.LinkURL(rel)
	if err != nil {
		return nil, nil, err
	}
	return c.readStreamFeed(ctx, "navigate", target, feed.EventEmbedMode(), true)
}

// DeleteStream deletes the stream. HardDelete marks the deletion permanent
// with the ES-HardDelete header.
func (c *Client) DeleteStream(ctx context.Context, streamName string, mode StreamDeletion) (*Response, error) {
	streamURL := c.StreamURL(streamName)

	if !mode.Valid() {
		return nil, newStreamError("delete", streamURL, 0, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, streamURL, nil)
	if err != nil {
		return nil, newStreamError("delete", streamURL, 0, err)
	}

	switch mode {
	case HardDelete:
		req.Header.Set(wire.HeaderHardDelete, "true")
	case SoftDelete:
	}

	resp, err := c.send("delete", req)
	if err != nil {
		return nil, newStreamError("delete", streamURL, 0, err)
	}
	c.invalidateStream(streamURL)
	return resp, nil
}

// ReadEvent fetches a single event document, typically from an entry's
// RelationAlternate or RelationEdit link.
//
// As with feeds, an HTTP error status yields a nil event and a nil error.
func (c *Client) ReadEvent(ctx context.Context, eventURL string) (*Event, *Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eventURL, nil)
	if err != nil {
		return nil, nil, newStreamError("read-event", eventURL, 0, err)
	}
	req.Header.Set(wire.HeaderAccept, wire.ContentTypeAtomJSON)

	resp, err := c.send("read-event", req)
	if err != nil {
		return nil, nil, newStreamError("read-event", eventURL, 0, err)
	}
	if !resp.OK() {
		return nil, resp, nil
	}

	var doc wire.AtomEvent
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, resp, newStreamError("read-event", eventURL, resp.StatusCode, fmt.Errorf("%w: %v", ErrInvalidFeed, err))
	}
	return eventFromAtom(doc), resp, nil
}

func (c *Client) readStreamFeed(ctx context.Context, op, streamURL string, mode EventEmbedMode, useCache bool) (*StreamFeed, *Response, error) {
	if !mode.Valid() {
		return nil, nil, newStreamError(op, streamURL, 0, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode))
	}

	u, err := url.Parse(streamURL)
	if err != nil {
		return nil, nil, newStreamError(op, streamURL, 0, err)
	}
	if mode != EmbedNone {
		q := u.Query()
		q.Set(wire.QueryEmbed, mode.Native())
		u.RawQuery = q.Encode()
	}
	requestURL := u.String()

	if useCache && c.cache != nil {
		if feed, resp := c.cachedStreamFeed(op, requestURL, mode); feed != nil {
			return feed, resp, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, nil, newStreamError(op, requestURL, 0, err)
	}
	req.Header.Set(wire.HeaderAccept, wire.ContentTypeJSON)

	resp, err := c.send(op, req)
	if err != nil {
		return nil, nil, newStreamError(op, requestURL, 0, err)
	}
	if !resp.OK() {
		return nil, resp, nil
	}

	feed, err := NewStreamFeed(resp.Body, mode)
	if err != nil {
		return nil, resp, newStreamError(op, requestURL, resp.StatusCode, err)
	}

	if c.cache != nil && !feed.HeadOfStream() {
		if err := c.cache.Put(requestURL, resp.Body); err != nil {
			c.logger.Warn("failed to cache feed page", zap.String("url", requestURL), zap.Error(err))
		}
	}
	return feed, resp, nil
}

func (c *Client) cachedStreamFeed(op, requestURL string, mode EventEmbedMode) (*StreamFeed, *Response) {
	page, ok, err := c.cache.Get(requestURL)
	if err != nil {
		c.logger.Warn("feed cache lookup failed", zap.String("url", requestURL), zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	feed, err := NewStreamFeed(page, mode)
	if err != nil {
		c.logger.Warn("discarding undecodable cached feed page", zap.String("url", requestURL), zap.Error(err))
		return nil, nil
	}

	c.metrics.observeCacheHit()
	c.logger.Debug("feed page served from cache", zap.String("url", requestURL))

	resp := &Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{wire.HeaderContentType: []string{wire.ContentTypeJSON}},
		Body:       page,
		Cached:     true,
		op:         op,
		url:        requestURL,
	}
	c.setLastResponse(resp)
	return feed, resp
}

// invalidateStream drops every cached page of the stream. Pages below the head
// stop being immutable once the stream is deleted.
func (c *Client) invalidateStream(streamURL string) {
	if c.cache == nil {
		return
	}
	for _, prefix := range []string{streamURL + "/", streamURL + "?"} {
		if err := c.cache.DeletePrefix(prefix); err != nil {
			c.logger.Warn("failed to invalidate cached feed pages",
				zap.String("prefix", prefix), zap.Error(err))
		}
	}
}
