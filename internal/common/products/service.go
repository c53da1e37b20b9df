// Package products looks up gateway product metadata through the in-memory
// product cache, falling back to a Source on a miss.
package products

import (
	"context"

	"payment-workers/internal/common/cache"
	"payment-workers/internal/common/logger"
	"payment-workers/internal/common/validation"
	"payment-workers/internal/models"
)

type Lookup struct {
	Product  models.PaymentProduct
	CacheHit bool
}

type Service struct {
	cache  *cache.ProductMetadataCache
	source Source
	logger logger.Logger
}

func NewService(c *cache.ProductMetadataCache, source Source, log logger.Logger) *Service {
	return &Service{
		cache:  c,
		source: source,
		logger: log,
	}
}

// Get returns the product for key. Keys are used as given; callers normalize
// them first. Two concurrent misses on one key may both reach the source, in
// which case the later Put wins.
func (s *Service) Get(ctx context.Context, key cache.Key) (*Lookup, error) {
	if entry, ok := s.cache.Get(key); ok {
		s.logger.Debug("product metadata cache hit", map[string]interface{}{
			"key": key.String(),
		})
		return &Lookup{Product: entry.Value, CacheHit: true}, nil
	}

	product, err := s.source.Fetch(ctx, key)
	if err != nil {
		s.logger.WithError(err).Warn("product metadata lookup failed", map[string]interface{}{
			"key": key.String(),
		})
		return nil, err
	}

	s.cache.Put(key, product)
	s.logger.Debug("product metadata cached", map[string]interface{}{
		"key":       key.String(),
		"cacheSize": s.cache.Len(),
	})
	return &Lookup{Product: product, CacheHit: false}, nil
}

// RuleSet looks up the product for key and parses its field definitions.
func (s *Service) RuleSet(ctx context.Context, key cache.Key) (validation.RuleSet, *Lookup, error) {
	lookup, err := s.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	rules, err := validation.ParseRuleSet(lookup.Product.Fields)
	if err != nil {
		return nil, nil, err
	}
	return rules, lookup, nil
}

// Invalidate drops all cached products, e.g. after a locale or currency change.
func (s *Service) Invalidate() {
	s.cache.InvalidateAll()
	s.logger.Info("product metadata cache invalidated", nil)
}
