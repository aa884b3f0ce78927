package policy

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

// ResultCache memoizes BatchResults keyed by (rule-set fingerprint, node id,
// desired-state version, derived-state version). It is
// strictly an optimization: every cache miss re-evaluates from scratch, and
// a wrong or expired entry never changes correctness, only latency.
type ResultCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// NewResultCache builds a cache sized for a few thousand in-flight batch
// results.
func NewResultCache(ttl time.Duration) (*ResultCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 100_000,
		MaxCost:     10_000_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "policy.cache.new", "failed to construct ristretto cache", err)
	}
	return &ResultCache{c: c, ttl: ttl}, nil
}

func cacheKey(fp RuleSetFingerprint, nodeID string, desiredVersion, derivedVersion int) string {
	return fmt.Sprintf("%s|%s|%d|%d", fp, nodeID, desiredVersion, derivedVersion)
}

// Get returns a cached BatchResult for these exact versions, if present and
// unexpired.
func (rc *ResultCache) Get(fp RuleSetFingerprint, nodeID string, desiredVersion, derivedVersion int) (*BatchResult, bool) {
	v, ok := rc.c.Get(cacheKey(fp, nodeID, desiredVersion, derivedVersion))
	if !ok {
		return nil, false
	}
	res, ok := v.(*BatchResult)
	return res, ok
}

// Put stores a BatchResult; it expires after the cache's TTL or implicitly
// the first time either version counter advances, since the key itself
// embeds both versions.
func (rc *ResultCache) Put(fp RuleSetFingerprint, nodeID string, desiredVersion, derivedVersion int, result *BatchResult) {
	rc.c.SetWithTTL(cacheKey(fp, nodeID, desiredVersion, derivedVersion), result, 1, rc.ttl)
}

// Wait blocks until buffered writes have been applied, so a Get immediately
// after a Put observes the entry. Only tests need this; production callers
// treat a racy miss as an ordinary cache miss.
func (rc *ResultCache) Wait() { rc.c.Wait() }

func (rc *ResultCache) Close() { rc.c.Close() }
