package scan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath/safescan/pkg/redis"
)

// verdictTTL bounds how long a cached verdict is trusted before the file is
// rescanned.
const verdictTTL = 24 * time.Hour

// CachedScanner layers an optional content-hash-keyed verdict cache over a
// Scanner. Caching is an external concern: the pipeline itself stays
// stateless and cache failures only cost a rescan.
type CachedScanner struct {
	inner *Scanner
	cache *redis.Cache
	log   *zap.Logger
}

// NewCachedScanner wraps scanner with the verdict cache.
func NewCachedScanner(scanner *Scanner, cache *redis.Cache, log *zap.Logger) *CachedScanner {
	return &CachedScanner{
		inner: scanner,
		cache: cache,
		log:   log.With(zap.String("module", "scan_cache")),
	}
}

// ScanFile returns a cached verdict for previously seen content, otherwise
// scans and caches the result. Only completed verdicts are cached; aborted
// or errored scans are always retried.
func (c *CachedScanner) ScanFile(ctx context.Context, req Request) Verdict {
	hash := ContentHash(req.Data)

	var cached Verdict
	err := c.cache.Get(ctx, "verdict", hash, &cached)
	if err == nil {
		c.log.Debug("verdict cache hit", zap.String("sha256", hash))
		return cached
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		c.log.Warn("verdict cache read failed", zap.Error(err))
	}

	verdict := c.inner.ScanFile(ctx, req)

	if cacheable(verdict) {
		if err := c.cache.Set(ctx, "verdict", hash, verdict, verdictTTL); err != nil {
			c.log.Warn("verdict cache write failed", zap.Error(err))
		}
	}
	return verdict
}

// cacheable reports whether a verdict is a completed determination. Aborted
// scans and transport failures are never cached; signature blocks are cheap
// to recompute and skipped too.
func cacheable(v Verdict) bool {
	if v.Safe {
		return v.Error == ""
	}
	return len(v.Details.ThreatNames) > 0 || v.Details.PDFJavaScript || v.Details.MaliciousCount > 0
}
