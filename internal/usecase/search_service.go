package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/arbovm/levenshtein"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pillscan/backend/internal/domain"
	"github.com/pillscan/backend/internal/logger"
)

// Confidence scoring weights. The base acknowledges that any record surviving
// the query filters already shares every set criterion; field weights reward
// the more discriminating signals.
const (
	confidenceBase         = 0.30
	weightShape            = 0.20
	weightColor            = 0.20
	weightFrontImprint     = 0.15
	weightBackImprint      = 0.10
	weightSize             = 0.05
	dampenManyResults      = 0.80 // more than 10 candidates
	dampenSeveralResults   = 0.90 // more than 3 candidates
	boostFewResults        = 1.10 // 3 or fewer candidates
	boostNameMatch         = 0.20
	boostManufacturerMatch = 0.15
	boostStrengthMatch     = 0.10
)

// querySentinels are values the confirmation UI may pass through that carry no
// search signal; they are stripped, never matched.
var querySentinels = map[string]bool{
	"any":     true,
	"unclear": true,
	"unknown": true,
	"n/a":     true,
}

// SearchConfig holds configuration for the search service.
type SearchConfig struct {
	CacheTTL           time.Duration
	EnableDebugLogging bool
}

// SearchService matches confirmed pill attributes against the reference store
// and ranks the candidates by match confidence. Results are cached per
// normalized query; analytics persistence is best-effort and never fails a
// search.
type SearchService struct {
	store              domain.PillRepository
	cache              domain.CacheRepository
	analytics          domain.AnalyticsSink
	cacheTTL           time.Duration
	enableDebugLogging bool
}

// NewSearchService creates a search service. Cache TTL defaults to 24h.
func NewSearchService(store domain.PillRepository, cache domain.CacheRepository, analytics domain.AnalyticsSink, config SearchConfig) *SearchService {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &SearchService{
		store:              store,
		cache:              cache,
		analytics:          analytics,
		cacheTTL:           ttl,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Search queries the reference store with the confirmed attributes and returns
// ranked matches, best first. An attribute set with no usable criteria is a
// validation error, not an empty result.
func (s *SearchService) Search(ctx context.Context, attrs *domain.ExtractedAttributes) ([]domain.RankedMatch, error) {
	if attrs == nil {
		return nil, fmt.Errorf("%w: missing attributes", domain.ErrValidation)
	}

	query, err := buildSearchQuery(attrs)
	if err != nil {
		return nil, err
	}

	cacheKey := s.generateCacheKey(query)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			if matches, ok := cached.([]domain.RankedMatch); ok {
				if s.enableDebugLogging {
					logger.WithField("cache_key", cacheKey).Debug("Search cache hit")
				}
				out := make([]domain.RankedMatch, len(matches))
				copy(out, matches)
				return out, nil
			}
		}
	}

	records, err := s.store.Query(ctx, query)
	if err != nil {
		return nil, err
	}

	matches := rankMatches(query, records)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, matches, s.cacheTTL); err != nil {
			logger.WithError(err).Warn("Failed to cache search results")
		}
	}

	s.recordEvent(ctx, attrs, matches)

	if s.enableDebugLogging {
		logger.WithFields(logrus.Fields{
			"cache_key": cacheKey,
			"results":   len(matches),
		}).Debug("Search complete")
	}

	return matches, nil
}

// Rerank applies secondary-hint boosts to an already ranked result set and
// re-sorts it. Hints only ever raise candidates; no candidate is removed.
func (s *SearchService) Rerank(matches []domain.RankedMatch, hints *domain.SecondaryHints) []domain.RankedMatch {
	out := make([]domain.RankedMatch, len(matches))
	copy(out, matches)

	if hints == nil || (hints.SuspectedName == "" && hints.Manufacturer == "" && hints.Strength == "") {
		return out
	}

	for i := range out {
		boost := 0.0
		record := out[i].Record

		if hints.SuspectedName != "" && nameMatches(record.Name, hints.SuspectedName) {
			boost += boostNameMatch
		}
		if hints.Manufacturer != "" && containsFold(record.Manufacturer, hints.Manufacturer) {
			boost += boostManufacturerMatch
		}
		if hints.Strength != "" && containsFold(record.Strength, hints.Strength) {
			boost += boostStrengthMatch
		}

		if boost > 0 {
			out[i].Confidence += boost
			if out[i].Confidence > 1.0 {
				out[i].Confidence = 1.0
			}
			out[i].BoostApplied = true
		}
	}

	sortMatches(out)
	return out
}

// buildSearchQuery projects confirmed attributes onto the store query,
// stripping sentinel values and validating against the closed vocabularies.
func buildSearchQuery(attrs *domain.ExtractedAttributes) (*domain.SearchQuery, error) {
	query := &domain.SearchQuery{}

	if shape := stripSentinel(attrs.Shape); shape != "" {
		normalized := NormalizeShape(shape)
		if normalized == "" {
			return nil, fmt.Errorf("%w: unrecognized shape %q", domain.ErrValidation, shape)
		}
		query.Shape = normalized
	}

	if color := stripSentinel(attrs.Color); color != "" {
		normalized := NormalizeColor(color)
		if normalized == "" {
			return nil, fmt.Errorf("%w: unrecognized color %q", domain.ErrValidation, color)
		}
		query.Color = normalized
	}

	if scoring := stripSentinel(attrs.Scoring); scoring != "" {
		query.Scoring = NormalizeScoring(scoring)
	}

	query.FrontImprint = stripSentinel(attrs.FrontImprint)
	query.BackImprint = stripSentinel(attrs.BackImprint)

	if attrs.SizeMm < 0 {
		return nil, fmt.Errorf("%w: negative size", domain.ErrValidation)
	}
	query.SizeMm = attrs.SizeMm

	if query.IsEmpty() {
		return nil, fmt.Errorf("%w: no usable search criteria", domain.ErrValidation)
	}

	return query, nil
}

// stripSentinel drops values that carry no search signal: the "any"/"unclear"
// family and UI group headers (leading dashes).
func stripSentinel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if querySentinels[strings.ToLower(s)] {
		return ""
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "—") {
		return ""
	}
	return s
}

// rankMatches scores each candidate and returns them sorted best first.
// The dampening factor depends on candidate count: broad result sets mean the
// query was weakly discriminating.
func rankMatches(query *domain.SearchQuery, records []domain.PillRecord) []domain.RankedMatch {
	n := len(records)

	factor := boostFewResults
	switch {
	case n > 10:
		factor = dampenManyResults
	case n > 3:
		factor = dampenSeveralResults
	}

	matches := make([]domain.RankedMatch, 0, n)
	for _, record := range records {
		confidence := confidenceBase
		if query.Shape != "" && containsFold(record.Shape, query.Shape) {
			confidence += weightShape
		}
		if query.Color != "" && containsFold(record.Color, query.Color) {
			confidence += weightColor
		}
		if query.FrontImprint != "" && containsFold(record.FrontImprint, query.FrontImprint) {
			confidence += weightFrontImprint
		}
		if query.BackImprint != "" && containsFold(record.BackImprint, query.BackImprint) {
			confidence += weightBackImprint
		}
		if query.SizeMm > 0 && record.SizeMm > 0 {
			confidence += weightSize
		}

		confidence *= factor
		if confidence > 1.0 {
			confidence = 1.0
		}
		if confidence < 0 {
			confidence = 0
		}

		matches = append(matches, domain.RankedMatch{
			Record:     record,
			Confidence: confidence,
			Similarity: similarity(query, &record),
		})
	}

	sortMatches(matches)
	return matches
}

// similarity is the secondary sort key: average closeness across the set
// query fields, with imprints compared by edit distance rather than equality.
func similarity(query *domain.SearchQuery, record *domain.PillRecord) float64 {
	var total, count float64

	if query.Shape != "" {
		count++
		if strings.EqualFold(record.Shape, query.Shape) {
			total++
		}
	}
	if query.Color != "" {
		count++
		if strings.EqualFold(record.Color, query.Color) {
			total++
		}
	}
	if query.FrontImprint != "" {
		count++
		total += imprintSimilarity(query.FrontImprint, record.FrontImprint)
	}
	if query.BackImprint != "" {
		count++
		total += imprintSimilarity(query.BackImprint, record.BackImprint)
	}
	if query.SizeMm > 0 && record.SizeMm > 0 {
		count++
		diff := query.SizeMm - record.SizeMm
		if diff < 0 {
			diff = -diff
		}
		closeness := 1 - diff/domainSizeTolerance
		if closeness > 0 {
			total += closeness
		}
	}

	if count == 0 {
		return 0
	}
	return total / count
}

// domainSizeTolerance mirrors the store's matching window.
const domainSizeTolerance = 2.0

// imprintSimilarity maps edit distance to [0,1]; 1 means identical ignoring
// case, 0 means nothing in common.
func imprintSimilarity(a, b string) float64 {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.Distance(a, b)
	sim := 1 - float64(dist)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}

// nameMatches accepts either containment or a close edit distance so minor
// transcription errors in a suspected name still earn the boost.
func nameMatches(recordName, suspected string) bool {
	if containsFold(recordName, suspected) {
		return true
	}
	a := strings.ToLower(strings.TrimSpace(recordName))
	b := strings.ToLower(strings.TrimSpace(suspected))
	if len(b) < 4 {
		return false
	}
	return levenshtein.Distance(a, b) <= 2
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// sortMatches orders by confidence descending, then similarity descending;
// stable so store order breaks remaining ties.
func sortMatches(matches []domain.RankedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		return matches[i].Similarity > matches[j].Similarity
	})
}

// generateCacheKey builds a normalized cache key from the query fields.
func (s *SearchService) generateCacheKey(query *domain.SearchQuery) string {
	parts := []string{
		strings.ToLower(query.Shape),
		strings.ToLower(query.Color),
		strings.ToLower(query.FrontImprint),
		strings.ToLower(query.BackImprint),
		strings.ToLower(query.Scoring),
		fmt.Sprintf("%.1f", query.SizeMm),
	}
	return "search:" + strings.Join(parts, ":")
}

// recordEvent hands the completed search to the analytics sink. Failures are
// logged and swallowed; analytics never affects the caller.
func (s *SearchService) recordEvent(ctx context.Context, attrs *domain.ExtractedAttributes, matches []domain.RankedMatch) {
	if s.analytics == nil {
		return
	}

	event := &domain.SearchEvent{
		SessionID:           uuid.NewString(),
		ConfirmedAttributes: attrs,
		MatchedIDs:          make([]string, 0, len(matches)),
	}
	for _, m := range matches {
		event.MatchedIDs = append(event.MatchedIDs, m.Record.ID)
	}
	if len(matches) > 0 {
		event.Confidence = matches[0].Confidence
	}

	if err := s.analytics.Record(ctx, event); err != nil {
		logger.WithError(err).Warn("Failed to record search event")
	}
}
