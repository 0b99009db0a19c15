package quality

import (
	"time"

	"github.com/KaramelBytes/csvscope-cli/internal/cache"
	"github.com/KaramelBytes/csvscope-cli/internal/dataset"
)

// CachedScorer memoizes Score by dataset content hash. Concurrent calls for
// the same content share one computation.
type CachedScorer struct {
	c *cache.Cache[*Report]
}

// NewCachedScorer returns a scorer whose results live for ttl, holding at most
// maxEntries reports.
func NewCachedScorer(ttl time.Duration, maxEntries int) *CachedScorer {
	return &CachedScorer{c: cache.New[*Report](ttl, maxEntries)}
}

// Score returns the cached report for ds's content or computes it.
func (s *CachedScorer) Score(ds *dataset.Dataset) (*Report, error) {
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return s.c.GetOrCompute(ds.Hash(), func() (*Report, error) {
		return Score(ds)
	})
}

// Stats exposes the underlying cache counters.
func (s *CachedScorer) Stats() cache.Stats { return s.c.Stats() }
