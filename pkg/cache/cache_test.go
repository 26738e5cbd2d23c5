package cache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/tarsy-labs/analysis-orchestrator/pkg/cache"
	"github.com/tarsy-labs/analysis-orchestrator/pkg/redisstore"
)

func newTestCache(t *testing.T, threshold float64, maxScan int) (*cache.Cache, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return cache.New(redisstore.NewFromRedisClient(rdb), time.Hour, threshold, maxScan), rdb
}

func TestLookup_ExactHit(t *testing.T) {
	c, _ := newTestCache(t, 0.80, 100)
	ctx := context.Background()
	doc := json.RawMessage(`{"title":"EV market report"}`)

	require.NoError(t, c.Write(ctx, "analyze the EV market in 2025", doc))

	got, hit, err := c.Lookup(ctx, "analyze the EV market in 2025")
	require.NoError(t, err)
	require.True(t, hit)
	require.JSONEq(t, string(doc), string(got))
}

func TestLookup_SimilarityHitAboveThreshold(t *testing.T) {
	c, _ := newTestCache(t, 0.5, 100)
	ctx := context.Background()
	doc := json.RawMessage(`{"title":"battery supply chain"}`)

	require.NoError(t, c.Write(ctx, "battery supply chain risks for electric vehicles", doc))

	got, hit, err := c.Lookup(ctx, "battery supply chain risks electric vehicles market")
	require.NoError(t, err)
	require.True(t, hit)
	require.JSONEq(t, string(doc), string(got))
}

func TestLookup_BelowThresholdMisses(t *testing.T) {
	c, _ := newTestCache(t, 0.80, 100)
	ctx := context.Background()
	doc := json.RawMessage(`{"title":"battery supply chain"}`)

	require.NoError(t, c.Write(ctx, "battery supply chain risks for electric vehicles", doc))

	_, hit, err := c.Lookup(ctx, "quarterly earnings outlook for airline industry")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestLookup_EmptyTokenSetDisablesSimilarity(t *testing.T) {
	c, _ := newTestCache(t, 0.1, 100)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "a an the of", json.RawMessage(`{"title":"stopwords only"}`)))

	_, hit, err := c.Lookup(ctx, "to in on")
	require.NoError(t, err)
	require.False(t, hit)
}

func TestLookup_MissingResultKeySkippedNotErrored(t *testing.T) {
	c, rdb := newTestCache(t, 0.5, 100)
	ctx := context.Background()
	require.NoError(t, c.Write(ctx, "electric vehicle battery recycling economics", json.RawMessage(`{"title":"recycling"}`)))

	// Simulate the document expiring out from under its meta record: delete
	// the document key directly while leaving the meta + index entries in
	// place. The similarity tier must skip this candidate, not error.
	require.NoError(t, rdb.Del(ctx, "cache:query:"+cache.Hash("electric vehicle battery recycling economics")).Err())

	_, hit, err := c.Lookup(ctx, "electric vehicle battery recycling economics and costs")
	require.NoError(t, err)
	require.False(t, hit)
}
