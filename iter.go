package eventstore

import (
	"context"
	"iter"
)

// Pages returns an iterator over the pages reached by repeatedly following
// rel from feed. feed itself is not yielded.
//
// Iteration stops when a page lacks rel or has no entries. A transport
// failure, an undecodable page or an HTTP error status is yielded once as
// the error and ends iteration.
//
//	head, _, err := client.OpenStreamFeed(ctx, "orders-1", eventstore.EmbedBody)
//	if err != nil {
//	    return err
//	}
//	for page, err := range client.Pages(ctx, head, eventstore.RelationNext) {
//	    if err != nil {
//	        return err
//	    }
//	    process(page.Events())
//	}
func (c *Client) Pages(ctx context.Context, feed *StreamFeed, rel StreamFeedLinkRelation) iter.Seq2[*StreamFeed, error] {
	return func(yield func(*StreamFeed, error) bool) {
		if feed == nil {
			yield(nil, newStreamError("navigate", "", 0, errNilFeed))
			return
		}
		current := feed
		for current.HasLink(rel) {
			next, resp, err := c.NavigateStreamFeed(ctx, current, rel)
			if err != nil {
				yield(nil, err)
				return
			}
			if next == nil {
				yield(nil, resp.Err())
				return
			}
			if !yield(next, nil) {
				return
			}
			if next.Len() == 0 {
				return
			}
			current = next
		}
	}
}
