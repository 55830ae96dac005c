package credential

import (
	"context"
	"fmt"
	"sync"
)

// Backend is the durable store of global keys as seen by a client.
type Backend interface {
	APIKeys(ctx context.Context) (Set, error)
	SaveAPIKeys(ctx context.Context, keys map[string]string) error
	DeleteAPIKey(ctx context.Context, provider string) error
}

// Cache is a read-through view of the global key set shared by every open
// editor. It fetches once, and after each successful write it refetches and
// pushes the new set to subscribers. Editors keep their own drafts; the
// cache never touches them.
type Cache struct {
	backend Backend

	writeMu sync.Mutex // one writer at a time

	mu     sync.Mutex
	set    Set
	loaded bool
	subs   map[int]func(Set)
	nextID int
}

func NewCache(b Backend) *Cache {
	return &Cache{backend: b, subs: make(map[int]func(Set))}
}

// Get returns the cached set, fetching it on first use.
func (c *Cache) Get(ctx context.Context) (Set, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.set.clone(), nil
	}
	set, err := c.backend.APIKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch api keys: %w", err)
	}
	c.set, c.loaded = set.clone(), true
	return set.clone(), nil
}

// Save writes keys. An empty value removes that provider's key.
func (c *Cache) Save(ctx context.Context, keys map[string]string) (Set, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.backend.SaveAPIKeys(ctx, keys); err != nil {
		return nil, fmt.Errorf("save api keys: %w", err)
	}
	return c.refresh(ctx)
}

// Delete removes the global key of provider.
func (c *Cache) Delete(ctx context.Context, provider string) (Set, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.backend.DeleteAPIKey(ctx, provider); err != nil {
		return nil, fmt.Errorf("delete api key: %w", err)
	}
	return c.refresh(ctx)
}

// Subscribe registers fn for every set published after a write. The returned
// func removes the subscription.
func (c *Cache) Subscribe(fn func(Set)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

func (c *Cache) refresh(ctx context.Context) (Set, error) {
	set, err := c.backend.APIKeys(ctx)
	if err != nil {
		c.mu.Lock()
		c.loaded = false
		c.mu.Unlock()
		return nil, fmt.Errorf("refetch api keys: %w", err)
	}
	c.mu.Lock()
	c.set, c.loaded = set.clone(), true
	subs := make([]func(Set), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(set.clone())
	}
	return set.clone(), nil
}
