// Package cache keeps gateway product metadata in memory, keyed by the
// purchase context it was fetched for.
package cache

import (
	"fmt"
	"strings"
	"time"

	"payment-workers/internal/common/metrics"
	"payment-workers/internal/models"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCapacity = 100

// UnknownDimension stands in for a context dimension the caller does not know.
// It is an ordinary value: it only matches keys built with the same sentinel.
const UnknownDimension = "*"

// Key identifies a purchase context. Two keys address the same entry only
// when all five fields are equal.
type Key struct {
	AmountInMinorUnits int64
	CountryCode        string
	CurrencyCode       string
	IsRecurring        bool
	PaymentProductID   string
}

// Normalized returns k with country and currency upper-cased and blank
// dimensions replaced by UnknownDimension. The cache never normalizes on its
// own; callers decide when to.
func (k Key) Normalized() Key {
	k.CountryCode = normalizeDimension(k.CountryCode)
	k.CurrencyCode = normalizeDimension(k.CurrencyCode)
	if strings.TrimSpace(k.PaymentProductID) == "" {
		k.PaymentProductID = UnknownDimension
	}
	return k
}

func normalizeDimension(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if v == "" {
		return UnknownDimension
	}
	return v
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%d/recurring=%t",
		k.PaymentProductID, k.CountryCode, k.CurrencyCode, k.AmountInMinorUnits, k.IsRecurring)
}

// Entry is a read-only view of a cached product.
type Entry struct {
	Value      models.PaymentProduct
	InsertedAt time.Time
}

type Option func(*ProductMetadataCache)

// WithClock overrides the insertion timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *ProductMetadataCache) {
		c.now = now
	}
}

// ProductMetadataCache is a bounded LRU map from Key to product metadata. It
// performs no I/O and never expires entries on its own. Safe for concurrent use.
type ProductMetadataCache struct {
	entries  *lru.Cache[Key, Entry]
	capacity int
	now      func() time.Time
}

// New builds a cache holding at most capacity entries. A capacity of zero
// selects DefaultCapacity.
func New(capacity int, opts ...Option) (*ProductMetadataCache, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("cache capacity must not be negative, got %d", capacity)
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	entries, err := lru.New[Key, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create product metadata cache: %w", err)
	}

	c := &ProductMetadataCache{
		entries:  entries,
		capacity: capacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the entry for key and marks it most recently used.
func (c *ProductMetadataCache) Get(key Key) (Entry, bool) {
	entry, ok := c.entries.Get(key)
	if !ok {
		metrics.ProductCacheLookups.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	metrics.ProductCacheLookups.WithLabelValues("hit").Inc()
	entry.Value = entry.Value.Clone()
	return entry, true
}

// Put stores a copy of value under key, replacing any previous entry. When the
// cache is full the least recently used entry is evicted.
func (c *ProductMetadataCache) Put(key Key, value models.PaymentProduct) {
	evicted := c.entries.Add(key, Entry{
		Value:      value.Clone(),
		InsertedAt: c.now(),
	})
	if evicted {
		metrics.ProductCacheEvictions.Inc()
	}
	metrics.ProductCacheEntries.Set(float64(c.entries.Len()))
}

// InvalidateAll drops every entry, e.g. after a locale or currency change.
func (c *ProductMetadataCache) InvalidateAll() {
	c.entries.Purge()
	metrics.ProductCacheEntries.Set(0)
}

func (c *ProductMetadataCache) Len() int {
	return c.entries.Len()
}

func (c *ProductMetadataCache) Capacity() int {
	return c.capacity
}
