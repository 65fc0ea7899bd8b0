package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/soxtools/adreview/pkg/review"
)

// Cache memoizes directory lookups in front of another review.Directory.
// Clean not-found results are cached alongside hits, since reviews repeat the
// same identifiers constantly; errors are never cached so transient failures
// do not poison a run. Safe for concurrent use.
type Cache struct {
	next review.Directory

	mu      sync.Mutex
	entries map[string]*review.Identity
}

// NewCache wraps next with memoization.
func NewCache(next review.Directory) *Cache {
	return &Cache{next: next, entries: make(map[string]*review.Identity)}
}

func (c *Cache) Lookup(ctx context.Context, attr review.Attribute, value string) (*review.Identity, error) {
	// Keys fold case: the directory match is case-insensitive, so "JDoe"
	// and "jdoe" are the same lookup.
	return c.lookup(ctx, string(attr)+"\x00"+strings.ToLower(value), func() (*review.Identity, error) {
		return c.next.Lookup(ctx, attr, value)
	})
}

func (c *Cache) LookupNameComponents(ctx context.Context, givenName, surname string) (*review.Identity, error) {
	key := "nc\x00" + strings.ToLower(givenName) + "\x00" + strings.ToLower(surname)
	return c.lookup(ctx, key, func() (*review.Identity, error) {
		return c.next.LookupNameComponents(ctx, givenName, surname)
	})
}

func (c *Cache) lookup(ctx context.Context, key string, fetch func() (*review.Identity, error)) (*review.Identity, error) {
	c.mu.Lock()
	if id, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	id, err := fetch()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = id
	c.mu.Unlock()
	return id, nil
}

// Len reports the number of memoized results.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
