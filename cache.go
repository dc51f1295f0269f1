// Copyright 2025 Antfly, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package spanalign

import (
	"context"
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/antflydb/spanalign/lib/document"
	"github.com/cespare/xxhash/v2"
	"github.com/jellydator/ttlcache/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DocumentCacheTTL is the default TTL for cached documents
const DocumentCacheTTL = 10 * time.Minute

const documentCacheType = "document"

// DocumentCache wraps a tokenizer with caching support. Documents are
// immutable, so a cached document is shared by every caller that tokenizes the
// same text.
type DocumentCache struct {
	tok     document.Tokenizer
	name    string
	cache   *ttlcache.Cache[string, *document.Document]
	sfGroup *singleflight.Group
	logger  *zap.Logger
	cancel  context.CancelFunc

	// Metrics
	hits   atomic.Uint64
	misses atomic.Uint64
	sfHits atomic.Uint64
}

// NewDocumentCache wraps tok, identified by name in cache keys. A
// non-positive ttl selects DocumentCacheTTL and a nil logger disables logging.
func NewDocumentCache(tok document.Tokenizer, name string, ttl time.Duration, logger *zap.Logger) *DocumentCache {
	if ttl <= 0 {
		ttl = DocumentCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *document.Document](ttl),
	)
	go cache.Start()

	ctx, cancel := context.WithCancel(context.Background())
	c := &DocumentCache{
		tok:     tok,
		name:    name,
		cache:   cache,
		sfGroup: &singleflight.Group{},
		logger:  logger,
		cancel:  cancel,
	}

	// Log cache stats periodically
	go c.logStats(ctx)

	return c
}

// Tokenize returns the cached document for text, tokenizing it on a miss.
func (c *DocumentCache) Tokenize(text string) (*document.Document, error) {
	key := c.cacheKey(text)

	if item := c.cache.Get(key); item != nil && item.Value().Text() == text {
		c.hits.Add(1)
		RecordCacheHit(documentCacheType)
		return item.Value(), nil
	}

	// Use singleflight to deduplicate concurrent identical requests
	result, err, shared := c.sfGroup.Do(key, func() (any, error) {
		c.misses.Add(1)
		RecordCacheMiss(documentCacheType)

		doc, err := c.tok.Tokenize(text)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, doc, ttlcache.DefaultTTL)

		c.logger.Debug("Tokenized and cached document",
			zap.String("tokenizer", c.name),
			zap.Int("tokens", doc.Len()),
			zap.Int("sentences", len(doc.Sentences())))
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	doc := result.(*document.Document)

	if shared {
		c.sfHits.Add(1)
	}
	// A hash collision with a different text must not leak that document.
	if doc.Text() != text {
		return c.tok.Tokenize(text)
	}
	return doc, nil
}

// cacheKey generates a unique cache key from tokenizer name + text
func (c *DocumentCache) cacheKey(text string) string {
	h := xxhash.New()
	_, _ = h.WriteString(c.name)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(text)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h.Sum64())
	return string(buf[:])
}

// CacheStats holds cache statistics for a tokenizer
type CacheStats struct {
	Tokenizer        string `json:"tokenizer"`
	Hits             uint64 `json:"hits"`
	Misses           uint64 `json:"misses"`
	SingleflightHits uint64 `json:"singleflight_hits"`
	Items            int    `json:"items"`
}

// Stats returns cache statistics
func (c *DocumentCache) Stats() CacheStats {
	return CacheStats{
		Tokenizer:        c.name,
		Hits:             c.hits.Load(),
		Misses:           c.misses.Load(),
		SingleflightHits: c.sfHits.Load(),
		Items:            c.cache.Len(),
	}
}

// Close stops the cache
func (c *DocumentCache) Close() {
	c.cancel()
	c.cache.Stop()
}

// logStats logs cache statistics periodically
func (c *DocumentCache) logStats(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hits, misses := c.hits.Load(), c.misses.Load()
			if total := hits + misses; total > 0 {
				c.logger.Info("Document cache stats",
					zap.Uint64("hits", hits),
					zap.Uint64("misses", misses),
					zap.Float64("hit_rate_pct", float64(hits)/float64(total)*100),
					zap.Int("items", c.cache.Len()))
			}
		}
	}
}
