// Package cache implements the Query Cache: a two-tier lookup (exact
// hash, then token-Jaccard similarity) that deduplicates
// near-identical queries so the Workflow Engine can short-circuit a
// submission without running any agent task.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/models"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
)

const metaIndexKey = "cache:meta:index"

// Cache is the Query Cache.
type Cache struct {
	rdb                 *redisstore.Client
	ttl                 time.Duration
	similarityThreshold float64
	maxScanCandidates   int
}

// New creates a Query Cache.
func New(rdb *redisstore.Client, ttl time.Duration, similarityThreshold float64, maxScanCandidates int) *Cache {
	return &Cache{
		rdb:                 rdb,
		ttl:                 ttl,
		similarityThreshold: similarityThreshold,
		maxScanCandidates:   maxScanCandidates,
	}
}

// Hash returns the stable digest of a query's byte form used for the
// exact-match tier.
func Hash(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

func keyDocument(hash string) string { return fmt.Sprintf("cache:query:%s", hash) }
func keyMeta(hash string) string     { return fmt.Sprintf("cache:query:%s:meta", hash) }

// Lookup implements the two-tier lookup: exact hit strictly precedes
// similarity search, and similarity search examines at most
// maxScanCandidates entries.
func (c *Cache) Lookup(ctx context.Context, query string) (document json.RawMessage, hit bool, err error) {
	hash := Hash(query)

	// Tier 1: exact.
	doc, err := c.rdb.Get(ctx, keyDocument(hash)).Bytes()
	if err == nil {
		return doc, true, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, false, fmt.Errorf("exact cache lookup: %w", err)
	}

	// Tier 2: similarity. An empty token set disables similarity matching
	// (exact-only), per the invariant in §4.3.
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return nil, false, nil
	}

	candidateHashes, err := c.rdb.ZRevRange(ctx, metaIndexKey, 0, int64(c.maxScanCandidates-1)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("scan cache meta index: %w", err)
	}

	var (
		bestSimilarity float64
		bestEntry      *models.CacheEntry
	)
	for _, h := range candidateHashes {
		raw, err := c.rdb.Get(ctx, keyMeta(h)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // meta expired/evicted between index read and fetch
		}
		if err != nil {
			return nil, false, fmt.Errorf("read cache meta: %w", err)
		}
		var entry models.CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, false, fmt.Errorf("unmarshal cache meta: %w", err)
		}

		candidateTokens := make(map[string]struct{}, len(entry.Tokens))
		for _, t := range entry.Tokens {
			candidateTokens[t] = struct{}{}
		}
		similarity := Jaccard(queryTokens, candidateTokens)
		// Ties broken by more-recent created_at: candidateHashes is
		// already ordered most-recent-first (ZRevRange over the index),
		// so a strict `>` keeps the first (most recent) of any tie.
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			entryCopy := entry
			bestEntry = &entryCopy
		}
	}

	if bestEntry == nil || bestSimilarity < c.similarityThreshold {
		return nil, false, nil
	}

	// A meta entry whose result key is missing must be skipped, never
	// raised as an error.
	doc, err = c.rdb.Get(ctx, bestEntry.ResultKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read similarity-matched document: %w", err)
	}
	return doc, true, nil
}

// Write stores the rendered document under the query's exact hash, plus
// a sibling meta record for future similarity matching. Both entries
// share the cache TTL.
func (c *Cache) Write(ctx context.Context, query string, document json.RawMessage) error {
	hash := Hash(query)
	docKey := keyDocument(hash)
	metaKey := keyMeta(hash)

	entry := models.CacheEntry{
		OriginalQuery: query,
		Tokens:        TokenSlice(Tokenize(query)),
		ResultKey:     docKey,
		CreatedAt:     time.Now(),
	}
	metaData, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache meta: %w", err)
	}

	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, docKey, document, c.ttl)
	pipe.Set(ctx, metaKey, metaData, c.ttl)
	pipe.ZAdd(ctx, metaIndexKey, redis.Z{Score: float64(entry.CreatedAt.UnixNano()), Member: hash})
	pipe.Expire(ctx, metaIndexKey, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}
