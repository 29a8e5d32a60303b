package feedcache

import (
	"strings"
	"sync"
)

// Memory is an in-memory page cache. The zero value is not usable; call
// NewMemory.
type Memory struct {
	mu     sync.RWMutex
	pages  map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[string][]byte),
	}
}

// Get returns a copy of the page stored for url.
func (m *Memory) Get(url string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, ErrClosed
	}

	page, ok := m.pages[url]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(page))
	copy(out, page)
	return out, true, nil
}

// Put stores a copy of page under url, replacing any previous page.
func (m *Memory) Put(url string, page []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	stored := make([]byte, len(page))
	copy(stored, page)
	m.pages[url] = stored
	return nil
}

// Delete removes the page stored for url. Removing a missing page is not an
// error.
func (m *Memory) Delete(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.pages, url)
	return nil
}

// DeletePrefix removes every page whose URL starts with prefix.
func (m *Memory) DeletePrefix(prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for url := range m.pages {
		if strings.HasPrefix(url, prefix) {
			delete(m.pages, url)
		}
	}
	return nil
}

// Len returns the number of stored pages.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}

// Close drops all pages. Later calls return ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.pages = nil
	return nil
}
