package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/infrastructure/observability"
	"github.com/pagewise/bookstore/backend/pkg/utils"
)

const classifierComponent = "query_classifier"

// QueryClassifier routes free-text queries to keyword or vector search and extracts
// structured filters. It never fails: every error path yields FallbackClassification.
type QueryClassifier struct {
	generator providers.TextGenerator
	cache     providers.CacheProvider
	cacheTTL  time.Duration
	metrics   *observability.Metrics
}

// NewQueryClassifier creates a classifier. cache may be nil.
func NewQueryClassifier(generator providers.TextGenerator, cache providers.CacheProvider, cacheTTL time.Duration, metrics *observability.Metrics) *QueryClassifier {
	return &QueryClassifier{
		generator: generator,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
	}
}

// FallbackClassification is the keyword search over the raw query with no filters.
func FallbackClassification(query string) entities.Classification {
	return entities.Classification{
		QueryType:    entities.QueryTypeKeyword,
		CleanedQuery: query,
		Filters:      entities.SearchFilters{},
		Fallback:     true,
	}
}

type classificationResponse struct {
	QueryType    string `json:"queryType"`
	CleanedQuery string `json:"cleanedQuery"`
	Filters      *struct {
		CategoryID any `json:"categoryId"`
		MinPrice   any `json:"minPrice"`
		MaxPrice   any `json:"maxPrice"`
	} `json:"filters"`
}

// Classify decides the retrieval strategy for query given the category vocabulary.
func (c *QueryClassifier) Classify(ctx context.Context, query string, categories []*entities.Category) entities.Classification {
	logger := observability.LoggerFromContext(ctx)
	query = strings.TrimSpace(query)
	if query == "" {
		return FallbackClassification(query)
	}

	key := classificationCacheKey(query, categories)
	if cached, ok := c.fromCache(ctx, key); ok {
		observability.RecordCacheHit(ctx, c.metrics, classifierComponent)
		return cached
	}
	observability.RecordCacheMiss(ctx, c.metrics, classifierComponent)

	raw, err := c.generator.GenerateText(ctx, buildClassificationPrompt(query, categories))
	if err != nil {
		logger.Warn().Err(err).Str("component", classifierComponent).Msg("classification call failed, using keyword fallback")
		observability.RecordFallback(ctx, c.metrics, classifierComponent, "model_error")
		return FallbackClassification(query)
	}

	result, ok := parseClassification(raw, query, categories)
	if !ok {
		logger.Warn().Str("component", classifierComponent).Str("response", truncate(raw, 200)).Msg("unusable classification, using keyword fallback")
		observability.RecordFallback(ctx, c.metrics, classifierComponent, "parse_error")
		return FallbackClassification(query)
	}

	c.toCache(ctx, key, result)
	return result
}

// parseClassification validates a model answer. Vector results never carry filters.
func parseClassification(raw, query string, categories []*entities.Category) (entities.Classification, bool) {
	var resp classificationResponse
	if err := utils.DecodeModelResponse(raw, &resp); err != nil {
		return entities.Classification{}, false
	}

	qt := entities.QueryType(strings.ToUpper(strings.TrimSpace(resp.QueryType)))
	if !qt.Valid() {
		return entities.Classification{}, false
	}

	result := entities.Classification{
		QueryType:    qt,
		CleanedQuery: strings.TrimSpace(resp.CleanedQuery),
	}
	if result.CleanedQuery == "" {
		result.CleanedQuery = query
	}

	if qt == entities.QueryTypeKeyword && resp.Filters != nil {
		result.Filters = entities.SearchFilters{
			CategoryID: knownCategory(resp.Filters.CategoryID, categories),
			MinPrice:   price(resp.Filters.MinPrice),
			MaxPrice:   price(resp.Filters.MaxPrice),
		}
		if result.Filters.MinPrice != nil && result.Filters.MaxPrice != nil && *result.Filters.MinPrice > *result.Filters.MaxPrice {
			result.Filters.MinPrice, result.Filters.MaxPrice = result.Filters.MaxPrice, result.Filters.MinPrice
		}
	}
	return result, true
}

// knownCategory keeps a category id only when it belongs to the vocabulary
func knownCategory(v any, categories []*entities.Category) *string {
	id, ok := v.(string)
	id = strings.TrimSpace(id)
	if !ok || id == "" {
		return nil
	}
	for _, c := range categories {
		if c.ID == id {
			return &id
		}
	}
	return nil
}

// price accepts JSON numbers and numeric strings; negatives and garbage are dropped
func price(v any) *int64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return nil
	}
	p := int64(math.Round(f))
	return &p
}

func classificationCacheKey(query string, categories []*entities.Category) string {
	ids := make([]string, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(query)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(ids, ",")))
	return "classify:" + hex.EncodeToString(h.Sum(nil))[:32]
}

func (c *QueryClassifier) fromCache(ctx context.Context, key string) (entities.Classification, bool) {
	if c.cache == nil {
		return entities.Classification{}, false
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		return entities.Classification{}, false
	}
	var result entities.Classification
	if err := json.Unmarshal(data, &result); err != nil || !result.QueryType.Valid() {
		return entities.Classification{}, false
	}
	return result, true
}

func (c *QueryClassifier) toCache(ctx context.Context, key string, result entities.Classification) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, int(c.cacheTTL/time.Second)); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Msg("failed to cache classification")
	}
}

// IsMeaningful asks the model whether query carries any search intent. Blank input is
// rejected without a call; any failure fails open.
func (c *QueryClassifier) IsMeaningful(ctx context.Context, query string) bool {
	if strings.TrimSpace(query) == "" {
		return false
	}

	raw, err := c.generator.GenerateText(ctx, buildMeaningfulPrompt(query))
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("component", classifierComponent).Msg("meaningfulness check failed, accepting query")
		observability.RecordFallback(ctx, c.metrics, classifierComponent, "meaningful_model_error")
		return true
	}

	var resp struct {
		Meaningful *bool `json:"meaningful"`
	}
	if err := utils.DecodeModelResponse(raw, &resp); err != nil || resp.Meaningful == nil {
		return true
	}
	return *resp.Meaningful
}
