// Package feedcache stores complete event store feed pages by URL.
//
// Feed pages that are not the head of their stream never change, so a client
// can serve navigation to them without asking the server again. Both caches
// here satisfy eventstore.FeedCache:
//
//	cache, err := feedcache.OpenBolt("/var/cache/esfeed")
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
//
//	client, err := eventstore.NewClient(ctx, baseURL, eventstore.WithFeedCache(cache))
package feedcache

import "errors"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("feedcache: cache is closed")
