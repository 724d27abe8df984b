package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/pagewise/bookstore/backend/internal/domain/entities"
	"github.com/pagewise/bookstore/backend/internal/domain/providers"
	"github.com/pagewise/bookstore/backend/internal/domain/repositories"
	apperrors "github.com/pagewise/bookstore/backend/pkg/errors"
)

var errNotFound = apperrors.NewNotFoundError("not found")

// prompt markers used to route mocked model calls
const (
	classifyPrompt   = "Classify a bookstore search query"
	meaningfulPrompt = "Decide whether this text is a real request"
	summaryPrompt    = "Summarize this bookstore conversation"
	decisionPrompt   = "Decide whether to search now"
	criteriaPrompt   = "Propose between 4 and 6"
	comparePrompt    = "Compare these books and recommend"
	personaPrompt    = "Maintain a short reading profile"
	reportPrompt     = "bookstore business analyst"
)

func promptWith(marker string) interface{} {
	return mock.MatchedBy(func(p string) bool { return strings.Contains(p, marker) })
}

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) EmbedWithRetry(ctx context.Context, text string) ([]float32, bool) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Bool(1)
}

type MockEmbeddingProvider struct {
	mock.Mock
}

func (m *MockEmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	v, _ := args.Get(0).([]float32)
	return v, args.Error(1)
}

type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) Search(ctx context.Context, collection string, vector []float32, filter providers.VectorFilter, k int) ([]providers.VectorHit, error) {
	args := m.Called(ctx, collection, vector, filter, k)
	hits, _ := args.Get(0).([]providers.VectorHit)
	return hits, args.Error(1)
}

type MockBookSearch struct {
	mock.Mock
}

func (m *MockBookSearch) Search(ctx context.Context, query providers.BookSearchQuery) ([]string, int, error) {
	args := m.Called(ctx, query)
	ids, _ := args.Get(0).([]string)
	return ids, args.Int(1), args.Error(2)
}

func (m *MockBookSearch) IndexBook(ctx context.Context, book *entities.Book, embedding []float32) error {
	return m.Called(ctx, book, embedding).Error(0)
}

func (m *MockBookSearch) IndexComment(ctx context.Context, comment *entities.Comment, embedding []float32) error {
	return m.Called(ctx, comment, embedding).Error(0)
}

// MockCache is an in-memory cache that records writes
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCache) DeletePattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

func (m *MockCache) Sets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) GetByID(ctx context.Context, id string) (*entities.Book, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*entities.Book)
	return b, args.Error(1)
}

func (m *MockBookRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Book, error) {
	args := m.Called(ctx, ids)
	b, _ := args.Get(0).([]*entities.Book)
	return b, args.Error(1)
}

func (m *MockBookRepository) Sample(ctx context.Context, n int) ([]*entities.Book, error) {
	args := m.Called(ctx, n)
	b, _ := args.Get(0).([]*entities.Book)
	return b, args.Error(1)
}

func (m *MockBookRepository) List(ctx context.Context, limit, offset int) ([]*entities.Book, error) {
	args := m.Called(ctx, limit, offset)
	b, _ := args.Get(0).([]*entities.Book)
	return b, args.Error(1)
}

func (m *MockBookRepository) ListCategories(ctx context.Context) ([]*entities.Category, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]*entities.Category)
	return c, args.Error(1)
}

type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) TopRated(ctx context.Context, bookID string, limit int) ([]*entities.Comment, error) {
	args := m.Called(ctx, bookID, limit)
	c, _ := args.Get(0).([]*entities.Comment)
	return c, args.Error(1)
}

func (m *MockCommentRepository) ListActive(ctx context.Context, limit, offset int) ([]*entities.Comment, error) {
	args := m.Called(ctx, limit, offset)
	c, _ := args.Get(0).([]*entities.Comment)
	return c, args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*entities.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetPersona(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) SetPersona(ctx context.Context, userID string, persona string) error {
	return m.Called(ctx, userID, persona).Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) AggregateSales(ctx context.Context, window repositories.SalesWindow, statuses []string, limit int) ([]entities.SalesFact, error) {
	args := m.Called(ctx, window, statuses, limit)
	f, _ := args.Get(0).([]entities.SalesFact)
	return f, args.Error(1)
}

// FakeReportStore is an in-memory InsightReportRepository
type FakeReportStore struct {
	mu      sync.Mutex
	reports map[string]*entities.InsightReport
	creates int
}

func NewFakeReportStore(reports ...*entities.InsightReport) *FakeReportStore {
	s := &FakeReportStore{reports: make(map[string]*entities.InsightReport)}
	for _, r := range reports {
		cp := *r
		s.reports[r.ID] = &cp
	}
	return s
}

func (s *FakeReportStore) Create(ctx context.Context, report *entities.InsightReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *report
	s.reports[report.ID] = &cp
	s.creates++
	return nil
}

func (s *FakeReportStore) UpdateIfGenerating(ctx context.Context, report *entities.InsightReport) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.reports[report.ID]
	if !ok || current.Status != entities.ReportStatusGenerating {
		return false, nil
	}
	cp := *report
	s.reports[report.ID] = &cp
	return true, nil
}

func (s *FakeReportStore) GetByID(ctx context.Context, id string) (*entities.InsightReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, errNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *FakeReportStore) FindGeneratingByOwner(ctx context.Context, ownerID string) (*entities.InsightReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var newest *entities.InsightReport
	for _, r := range s.reports {
		if r.OwnerID == ownerID && r.Status == entities.ReportStatusGenerating {
			if newest == nil || r.CreatedAt.After(newest.CreatedAt) {
				newest = r
			}
		}
	}
	if newest == nil {
		return nil, nil
	}
	cp := *newest
	return &cp, nil
}

func (s *FakeReportStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entities.InsightReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.InsightReport
	for _, r := range s.reports {
		if r.OwnerID == ownerID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *FakeReportStore) FailStaleGenerating(ctx context.Context, cutoff time.Time, reason string) ([]*entities.InsightReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.InsightReport
	for _, r := range s.reports {
		if r.Status == entities.ReportStatusGenerating && r.CreatedAt.Before(cutoff) {
			r.Status = entities.ReportStatusFailed
			r.FailureReason = reason
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *FakeReportStore) Get(id string) *entities.InsightReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.reports[id]
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

func (s *FakeReportStore) Creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// RecordingEventBus keeps every published event
type RecordingEventBus struct {
	mu     sync.Mutex
	events map[string][]*entities.ReportEvent
}

func NewRecordingEventBus() *RecordingEventBus {
	return &RecordingEventBus{events: make(map[string][]*entities.ReportEvent)}
}

func (b *RecordingEventBus) Publish(ctx context.Context, channel string, event *entities.ReportEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[channel] = append(b.events[channel], event)
	return nil
}

func (b *RecordingEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error) {
	return make(chan *entities.ReportEvent), nil
}

func (b *RecordingEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *RecordingEventBus) Close() error { return nil }

func (b *RecordingEventBus) Types(channel string) []entities.ReportEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []entities.ReportEventType
	for _, e := range b.events[channel] {
		out = append(out, e.EventType)
	}
	return out
}
