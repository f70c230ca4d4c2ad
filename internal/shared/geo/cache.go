package geo

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoizes successful lookups of another Geocoder.
type Cached struct {
	next  Geocoder
	cache *lru.Cache[string, Point]
}

// NewCached wraps next with an LRU of the given size.
func NewCached(next Geocoder, size int) (*Cached, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, Point](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: cache}, nil
}

func (c *Cached) Geocode(ctx context.Context, address string) (Point, error) {
	key := normalizeAddress(address)
	if p, ok := c.cache.Get(key); ok {
		return p, nil
	}
	p, err := c.next.Geocode(ctx, address)
	if err != nil {
		return Point{}, err
	}
	c.cache.Add(key, p)
	return p, nil
}

var _ Geocoder = (*Cached)(nil)
