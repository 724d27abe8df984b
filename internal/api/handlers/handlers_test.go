package handlers_test

import (
	"context"
	"sync"
	"time"

	"github.com/pagewise/bookstore/backend/internal/application/services"
	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

type stubReports struct {
	mu sync.Mutex

	handle   *entities.ReportHandle
	startErr error
	report   *entities.InsightReport
	getErr   error
	list     []*entities.InsightReport
	cleaned  int
	cleanErr error

	// progress is served in order; the last entry repeats
	progress      []*entities.ReportProgress
	progressCalls int

	startedWindow int
	cleanupAfter  time.Duration
}

func (s *stubReports) Start(ctx context.Context, ownerID string, windowDays int) (*entities.ReportHandle, error) {
	s.startedWindow = windowDays
	return s.handle, s.startErr
}

func (s *stubReports) GetReport(ctx context.Context, ownerID, reportID string) (*entities.InsightReport, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.report == nil || s.report.OwnerID != ownerID || s.report.ID != reportID {
		return nil, apperrors.NewNotFoundError("report not found")
	}
	return s.report, nil
}

func (s *stubReports) ListReports(ctx context.Context, ownerID string, limit, offset int) ([]*entities.InsightReport, error) {
	return s.list, nil
}

func (s *stubReports) ReportProgress(ctx context.Context, reportID string) (*entities.ReportProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.progressCalls
	if i >= len(s.progress) {
		i = len(s.progress) - 1
	}
	s.progressCalls++
	return s.progress[i], nil
}

func (s *stubReports) CleanupStuckReports(ctx context.Context, staleAfter time.Duration) (int, error) {
	s.cleanupAfter = staleAfter
	return s.cleaned, s.cleanErr
}

func (s *stubReports) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressCalls
}

type stubSearch struct {
	result  *entities.SearchResult
	err     error
	queries []string
}

func (s *stubSearch) Classify(ctx context.Context, query string) entities.Classification {
	return entities.Classification{QueryType: entities.QueryTypeVector, CleanedQuery: query}
}

func (s *stubSearch) Search(ctx context.Context, query string, opts services.SearchOptions) (*entities.SearchResult, error) {
	s.queries = append(s.queries, query)
	return s.result, s.err
}

type stubAgent struct {
	decision entities.SearchDecision
	persona  string
	prior    int
}

func (a *stubAgent) Advance(ctx context.Context, state *entities.ConversationState, message, persona string) entities.SearchDecision {
	a.persona = persona
	a.prior = len(state.Turns)
	state.Turns = append(state.Turns,
		entities.ConversationTurn{Role: entities.RoleUser, Content: message},
		entities.ConversationTurn{Role: entities.RoleAssistant, Content: a.decision.Question},
	)
	return a.decision
}

type stubPersonas struct {
	mu      sync.Mutex
	stored  string
	updates []string
}

func (p *stubPersonas) Persona(ctx context.Context, userID string) string { return p.stored }

func (p *stubPersonas) ScheduleUpdate(userID, interaction string) {
	p.mu.Lock()
	p.updates = append(p.updates, interaction)
	p.mu.Unlock()
}

type stubComparer struct {
	result *entities.ComparisonResult
	err    error
	got    entities.ComparisonRequest
}

func (c *stubComparer) Compare(ctx context.Context, req entities.ComparisonRequest) (*entities.ComparisonResult, error) {
	c.got = req
	return c.result, c.err
}
