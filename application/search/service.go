package search

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/molsearch/molsearch/domain/molecule"
	"github.com/molsearch/molsearch/infrastructure/cache"
	"github.com/molsearch/molsearch/pkg/apperrors"
	"github.com/molsearch/molsearch/pkg/observability"
)

// Cache keyspace. SnapshotKey holds the candidate pool; per-query
// results live under ResultKey(query).
const (
	SnapshotKey     = "SMILES"
	resultKeyPrefix = "search:"
)

// Result sources reported to clients
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
)

// ResultKey returns the cache key for a query's search result
func ResultKey(query string) string {
	return resultKeyPrefix + query
}

// SearchResult is the cached and returned payload of one query
type SearchResult struct {
	Query  string   `json:"query"`
	Result []string `json:"result"`
}

// Response tags a result with where it came from
type Response struct {
	Source string       `json:"source"`
	Data   SearchResult `json:"data"`
}

// Params are the knobs of a synchronous search
type Params struct {
	Query  string
	MaxNum int // cap on returned matches; non-positive means unbounded
	Limit  int // candidate pool pagination
	Offset int
	NoCache bool // drop snapshot and result entries before searching
}

// Service orchestrates store, matcher and cache to answer a
// substructure query. It owns no mutable state of its own; all shared
// state lives behind the store and the cache.
type Service struct {
	store       molecule.Repository
	cache       cache.Cache
	metrics     *observability.Collector
	logger      *zap.Logger
	snapshotTTL time.Duration
	resultTTL   time.Duration
}

// NewService creates a search service
func NewService(
	store molecule.Repository,
	c cache.Cache,
	metrics *observability.Collector,
	logger *zap.Logger,
	snapshotTTL time.Duration,
	resultTTL time.Duration,
) *Service {
	return &Service{
		store:       store,
		cache:       c,
		metrics:     metrics,
		logger:      logger,
		snapshotTTL: snapshotTTL,
		resultTTL:   resultTTL,
	}
}

// SearchMolecules answers a synchronous substructure query:
//
//  1. on cache bypass, drop the snapshot and the per-query entry
//  2. candidate pool from the snapshot entry, else from the store
//     (populating the snapshot)
//  3. empty pool or empty query is a bad request
//  4. a cached result for this exact query returns tagged "cache"
//  5. otherwise run the engine, cap at MaxNum, cache and tag "database"
func (s *Service) SearchMolecules(ctx context.Context, p Params) (*Response, error) {
	key := ResultKey(p.Query)
	if p.NoCache {
		_ = s.cache.Delete(ctx, SnapshotKey, key)
	}

	candidates, _, err := s.loadCandidates(ctx, p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 || p.Query == "" {
		return nil, apperrors.NewEmptyPoolError()
	}

	if raw, ok, _ := s.cache.Get(ctx, key); ok {
		var data SearchResult
		if err := json.Unmarshal(raw, &data); err == nil {
			s.metrics.Searches.WithLabelValues(SourceCache).Inc()
			return &Response{Source: SourceCache, Data: data}, nil
		}
		// undecodable entry: recompute and overwrite below
		s.logger.Warn("dropping undecodable search cache entry", zap.String("key", key))
	}

	matches := make([]string, 0)
	for smiles := range Substructure(candidates, p.Query) {
		matches = append(matches, smiles)
		if p.MaxNum > 0 && len(matches) >= p.MaxNum {
			break
		}
	}

	data := SearchResult{Query: p.Query, Result: matches}
	s.storeResult(ctx, key, data)
	s.metrics.Searches.WithLabelValues(SourceDatabase).Inc()
	return &Response{Source: SourceDatabase, Data: data}, nil
}

// SearchAll runs the unbounded engine pass the background workers
// execute: full candidate pool, no result cap, result published to
// the per-query cache entry. The reported source is where the
// candidate pool came from.
func (s *Service) SearchAll(ctx context.Context, query string) (*Response, error) {
	candidates, source, err := s.loadCandidates(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	matches := make([]string, 0)
	for smiles := range Substructure(candidates, query) {
		matches = append(matches, smiles)
	}

	data := SearchResult{Query: query, Result: matches}
	s.storeResult(ctx, ResultKey(query), data)
	s.metrics.Searches.WithLabelValues(source).Inc()
	return &Response{Source: source, Data: data}, nil
}

// CachedResult returns the per-query cache entry if one exists.
func (s *Service) CachedResult(ctx context.Context, query string) (*SearchResult, bool) {
	raw, ok, _ := s.cache.Get(ctx, ResultKey(query))
	if !ok {
		return nil, false
	}
	var data SearchResult
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, false
	}
	return &data, true
}

// loadCandidates returns the candidate pool and its source: the
// snapshot cache entry when present, otherwise the store, populating
// the snapshot for later calls.
func (s *Service) loadCandidates(ctx context.Context, limit, offset int) ([]string, string, error) {
	if raw, ok, _ := s.cache.Get(ctx, SnapshotKey); ok {
		candidates, err := DecodeCandidates(raw)
		if err != nil {
			return nil, "", err
		}
		s.metrics.CacheHits.Inc()
		s.logger.Debug("get_cached SMILES", zap.Int("count", len(candidates)))
		return candidates, SourceCache, nil
	}
	s.metrics.CacheMisses.Inc()

	candidates, err := s.store.AllSmiles(ctx, limit, offset)
	if err != nil {
		return nil, "", err
	}
	if raw, err := json.Marshal(candidates); err == nil {
		_ = s.cache.Set(ctx, SnapshotKey, raw, s.snapshotTTL)
		s.logger.Debug("set_cache SMILES", zap.Int("count", len(candidates)))
	}
	return candidates, SourceDatabase, nil
}

// storeResult publishes a search result under its query key.
func (s *Service) storeResult(ctx context.Context, key string, data SearchResult) {
	raw, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to encode search result", zap.Error(err))
		return
	}
	_ = s.cache.Set(ctx, key, raw, s.resultTTL)
}
