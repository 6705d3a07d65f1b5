package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/nomoreanxious/calibra/internal/domain"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPerProviderTimeout = 8 * time.Second
	defaultSearchTopK         = 10
	defaultMaxAttempts        = 2
	defaultCacheTTL           = 7 * 24 * time.Hour

	// outerBuffer pads the aggregate deadline past the per-provider timeout
	// so a provider that times out exactly at the limit still gets dropped
	// cleanly instead of racing the outer context.
	outerBuffer = 2 * time.Second

	backoffBase = 200 * time.Millisecond
)

type AggregatorConfig struct {
	PerProviderTimeout time.Duration
	TopK               int
	MaxAttempts        int
	Weights            HybridSearchWeights
	CacheTTL           time.Duration
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		PerProviderTimeout: defaultPerProviderTimeout,
		TopK:               defaultSearchTopK,
		MaxAttempts:        defaultMaxAttempts,
		Weights:            DefaultHybridWeights(),
		CacheTTL:           defaultCacheTTL,
	}
}

// EvidenceAggregator fans a query out to every configured literature provider
// concurrently and merges whatever subset succeeds. A provider failing,
// timing out, or returning garbage never fails the overall call; it is
// dropped and the partial result set is used. All providers failing yields an
// empty result set, which callers treat as "no evidence found", not an error.
type EvidenceAggregator struct {
	providers []domain.LiteratureProvider
	cfg       AggregatorConfig
	cache     *gocache.Cache
	logger    *zap.Logger
}

func NewEvidenceAggregator(providers []domain.LiteratureProvider, cfg AggregatorConfig, logger *zap.Logger) *EvidenceAggregator {
	if cfg.PerProviderTimeout <= 0 {
		cfg.PerProviderTimeout = defaultPerProviderTimeout
	}
	if cfg.TopK <= 0 {
		cfg.TopK = defaultSearchTopK
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Weights.Similarity == 0 && cfg.Weights.Authority == 0 {
		cfg.Weights = DefaultHybridWeights()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return &EvidenceAggregator{
		providers: providers,
		cfg:       cfg,
		cache:     gocache.New(cfg.CacheTTL, cfg.CacheTTL),
		logger:    logger,
	}
}

// Search queries all providers, scores the merged candidates, and returns the
// topK ranked results. Final ordering depends only on the hybrid score and
// the deterministic tie-break, never on provider arrival order.
func (a *EvidenceAggregator) Search(ctx context.Context, query string) []domain.LiteratureResult {
	key := normalizeQuery(query)
	if key == "" {
		return []domain.LiteratureResult{}
	}

	if cached, ok := a.cache.Get(key); ok {
		results := cached.([]domain.LiteratureResult)
		out := make([]domain.LiteratureResult, len(results))
		copy(out, results)
		return out
	}

	outerCtx, cancel := context.WithTimeout(ctx, a.cfg.PerProviderTimeout+outerBuffer)
	defer cancel()

	// Fetch more than topK per provider so merging has material to rank.
	fetchLimit := a.cfg.TopK * 2

	var mu sync.Mutex
	var collected []domain.LiteratureResult

	g, gctx := errgroup.WithContext(outerCtx)
	for _, provider := range a.providers {
		p := provider
		g.Go(func() error {
			results, err := a.searchOne(gctx, p, query, fetchLimit)
			if err != nil {
				a.logger.Warn("literature provider dropped",
					zap.String("provider", p.Name()),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			collected = append(collected, results...)
			mu.Unlock()
			return nil
		})
	}
	// Tasks never return errors; Wait blocks until every provider resolved
	// or timed out. No early exit on a partial "good enough" set.
	_ = g.Wait()

	scored := make([]domain.LiteratureResult, len(collected))
	copy(scored, collected)
	for i := range scored {
		scored[i].FinalScore = HybridScore(scored[i].SimilarityScore, scored[i].Consensus, a.cfg.Weights)
	}

	ranked := dedupeResults(OrderAndLimit(scored, len(scored)))
	if len(ranked) > a.cfg.TopK {
		ranked = ranked[:a.cfg.TopK]
	}

	// Never cache an empty set: it usually means every provider failed or
	// timed out, and caching it would suppress the query for the full TTL.
	if len(ranked) > 0 {
		a.cache.Set(key, ranked, a.cfg.CacheTTL)
	}

	// Hand the caller its own copy; the cached slice must stay immutable.
	out := make([]domain.LiteratureResult, len(ranked))
	copy(out, ranked)
	return out
}

// searchOne runs one provider with a per-call deadline and a small retry
// budget with jittered backoff.
func (a *EvidenceAggregator) searchOne(ctx context.Context, p domain.LiteratureProvider, query string, limit int) ([]domain.LiteratureResult, error) {
	var lastErr error
	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := backoffBase<<(attempt-1) + time.Duration(rand.Int63n(int64(backoffBase)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, a.cfg.PerProviderTimeout)
		results, err := p.Search(callCtx, query, limit)
		cancel()
		if err == nil {
			return results, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// dedupeResults drops duplicate papers surfaced by multiple providers,
// keeping the higher-ranked occurrence. Input must already be sorted.
func dedupeResults(results []domain.LiteratureResult) []domain.LiteratureResult {
	seen := make(map[string]bool, len(results))
	out := make([]domain.LiteratureResult, 0, len(results))
	for _, r := range results {
		key := normalizeTitle(r.Title)
		if key == "" {
			key = r.ID
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

func normalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
