package feedcache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt is a page cache persisted in a bbolt database.
type Bolt struct {
	db     *bbolt.DB
	mu     sync.RWMutex
	path   string
	closed bool
}

// boltPage is the serialized form of a cached page
type boltPage struct {
	URL      string          `json:"url"`
	StoredAt int64           `json:"stored_at"` // Unix timestamp
	Page     json.RawMessage `json:"page"`
}

var pagesBucket = []byte("pages")

// OpenBolt opens (or creates) the cache database in dataDir.
func OpenBolt(dataDir string) (*Bolt, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "feedcache.db")
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create pages bucket: %w", err)
	}

	return &Bolt{
		db:   db,
		path: dbPath,
	}, nil
}

// Get returns the page stored for url.
func (b *Bolt) Get(url string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, false, ErrClosed
	}

	var page []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(pagesBucket).Get([]byte(url))
		if data == nil {
			return nil
		}

		// data is only valid during the transaction; Unmarshal copies.
		var bp boltPage
		if err := json.Unmarshal(data, &bp); err != nil {
			return fmt.Errorf("failed to unmarshal cached page: %w", err)
		}
		page = bp.Page
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return page, page != nil, nil
}

// Put stores page under url. page must be a JSON document.
func (b *Bolt) Put(url string, page []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	if !json.Valid(page) {
		return fmt.Errorf("feedcache: page for %s is not valid JSON", url)
	}

	data, err := json.Marshal(boltPage{
		URL:      url,
		StoredAt: time.Now().Unix(),
		Page:     page,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal page: %w", err)
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pagesBucket).Put([]byte(url), data)
	})
}

// Delete removes the page stored for url.
func (b *Bolt) Delete(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(pagesBucket).Delete([]byte(url))
	})
}

// DeletePrefix removes every page whose URL starts with prefix.
func (b *Bolt) DeletePrefix(prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	p := []byte(prefix)
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(pagesBucket)
		var keys [][]byte
		c := bucket.Cursor()
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of stored pages.
func (b *Bolt) Len() (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, ErrClosed
	}

	n := 0
	err := b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(pagesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Prune removes pages stored before cutoff and returns how many were removed.
func (b *Bolt) Prune(cutoff time.Time) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	removed := 0
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(pagesBucket)
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var bp boltPage
			if err := json.Unmarshal(v, &bp); err != nil {
				return fmt.Errorf("failed to unmarshal cached page %s: %w", k, err)
			}
			if time.Unix(bp.StoredAt, 0).Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Close closes the bbolt database
func (b *Bolt) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// Path returns the path to the bbolt database file
func (b *Bolt) Path() string {
	return b.path
}
