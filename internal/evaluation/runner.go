package evaluation

import (
	"context"
	"time"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
)

const evalK = 10

// Searcher is the catalog search under evaluation
type Searcher interface {
	Search(ctx context.Context, query string, opts services.SearchOptions) (*entities.SearchResult, error)
}

// Runner runs evaluation across a set of golden queries.
type Runner struct {
	searcher Searcher
}

func NewRunner(searcher Searcher) *Runner {
	return &Runner{searcher: searcher}
}

// Run evaluates every query in order. A failing search counts as a miss on every metric.
func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalQueries: len(queries),
		ByQueryType:  make(map[entities.QueryType]*TypeSummary),
		Results:      make([]EvalResult, 0, len(queries)),
	}

	for _, gq := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := r.evaluate(ctx, gq)
		summary.Results = append(summary.Results, res)
		r.updateSummary(summary, res)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) evaluate(ctx context.Context, gq GoldenQuery) EvalResult {
	res := EvalResult{QueryID: gq.ID, Query: gq.Query, Expected: gq.ExpectedQueryType}

	start := time.Now()
	out, err := r.searcher.Search(ctx, gq.Query, services.SearchOptions{Limit: evalK})
	res.Latency = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	ids := make([]string, len(out.Books))
	for i, b := range out.Books {
		ids[i] = b.ID
	}

	res.Routed = out.Classification.QueryType
	res.Mode = out.Mode
	res.RoutingMatch = res.Routed == gq.ExpectedQueryType
	res.FilterMatch = FiltersMatch(gq.ExpectedFilters(), out.Classification.Filters)
	res.RecallAt10 = RecallAtK(gq.RelevantBookIDs, ids, evalK)
	res.MRRAt10 = MRRAtK(gq.RelevantBookIDs, ids, evalK)
	res.ResultCount = len(ids)
	return res
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	if res.Error != "" {
		s.Failed++
	}
	if res.RoutingMatch {
		s.RoutingAccuracy++
	}
	if res.FilterMatch {
		s.FilterAccuracy++
	}
	s.AvgRecallAt10 += res.RecallAt10
	s.AvgMRRAt10 += res.MRRAt10
	s.AvgLatency += res.Latency
	if res.ResultCount > 0 {
		s.QueriesWithHits++
	}

	ts, ok := s.ByQueryType[res.Expected]
	if !ok {
		ts = &TypeSummary{}
		s.ByQueryType[res.Expected] = ts
	}
	ts.Count++
	if res.RoutingMatch {
		ts.RoutingAccuracy++
	}
	ts.AvgRecallAt10 += res.RecallAt10
	ts.AvgMRRAt10 += res.MRRAt10
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.RoutingAccuracy /= n
		s.FilterAccuracy /= n
		s.AvgRecallAt10 /= n
		s.AvgMRRAt10 /= n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, ts := range s.ByQueryType {
		if ts.Count > 0 {
			n := float64(ts.Count)
			ts.RoutingAccuracy /= n
			ts.AvgRecallAt10 /= n
			ts.AvgMRRAt10 /= n
		}
	}
}
