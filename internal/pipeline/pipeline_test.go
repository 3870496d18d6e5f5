package pipeline

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/readiness-agent/internal/types"
)

// memStore is an in-memory, thread-safe store used by the pipeline tests.
type memStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*types.Assessment

	emailSentWrites int
}

func newMemStore(records ...*types.Assessment) *memStore {
	s := &memStore{records: map[uuid.UUID]*types.Assessment{}}
	for _, r := range records {
		s.records[r.ID] = r
	}
	return s
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*types.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *memStore) sorted() []types.Assessment {
	var out []types.Assessment
	for _, r := range s.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *memStore) ListUnsent(_ context.Context, limit int) ([]types.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Assessment
	for _, r := range s.sorted() {
		if !r.EmailSent {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) ListPendingAnalysis(_ context.Context, limit int) ([]types.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Assessment
	for _, r := range s.sorted() {
		if !r.AnalysisCompleted {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memStore) Latest(_ context.Context) (*types.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.sorted()
	if len(all) == 0 {
		return nil, nil
	}
	cp := all[len(all)-1]
	return &cp, nil
}

func (s *memStore) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return errors.New("no rows updated")
	}
	for col, val := range fields {
		switch col {
		case "calculated_score":
			v := val.(int)
			r.CalculatedScore = &v
		case "score_level":
			r.ScoreLevel = types.Level(val.(string))
		case "chatgpt_analysis":
			r.Analysis = val.(*types.Report)
		case "analysis_completed":
			r.AnalysisCompleted = val.(bool)
		case "pdf_generated":
			r.PDFGenerated = val.(bool)
		case "report_data":
			r.ReportData = val.(*types.ReportData)
		case "email_sent":
			r.EmailSent = val.(bool)
			if r.EmailSent {
				s.emailSentWrites++
			}
		default:
			return errors.New("unknown column " + col)
		}
	}
	return nil
}

func (s *memStore) AcquireLease(_ context.Context, id uuid.UUID, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return false, nil
	}
	now := time.Now()
	if r.LeaseUntil != nil && r.LeaseUntil.After(now) {
		return false, nil
	}
	until := now.Add(ttl)
	r.LeaseUntil = &until
	r.ProcessingAttempts++
	return true, nil
}

func (s *memStore) ReleaseLease(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		r.LeaseUntil = nil
	}
	return nil
}

func (s *memStore) emailSentWriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emailSentWrites
}

// analyzeFunc adapts a function to the Analyzer interface.
type analyzeFunc func(ctx context.Context, a *types.Assessment) (*types.Report, error)

func (f analyzeFunc) Analyze(ctx context.Context, a *types.Assessment) (*types.Report, error) {
	return f(ctx, a)
}

// fakeAnalyzer counts invocations and optionally fails or blocks.
type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	err   error
	delay time.Duration
}

func (f *fakeAnalyzer) Analyze(_ context.Context, a *types.Assessment) (*types.Report, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &types.Report{
		Score:            a.Score(),
		ScoreLevel:       types.LevelFromScore(a.Score()),
		ExecutiveSummary: "Analyse abgeschlossen.",
		Strengths:        []string{"Testsignal"},
		Weaknesses:       []string{"Testsignal"},
	}, nil
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, a *types.Assessment) (*types.Document, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &types.Document{
		Filename:    "KI_Readiness_Test.pdf",
		Data:        []byte("%PDF-1.4 test"),
		GeneratedAt: time.Now(),
	}, nil
}

func (f *fakeRenderer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDeliverer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDeliverer) Deliver(_ context.Context, _ *types.Assessment, _ *types.Document) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.err
}

func (f *fakeDeliverer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// freshAssessment builds an unprocessed record with all flags false.
func freshAssessment() *types.Assessment {
	score := 61
	return &types.Assessment{
		ID:              uuid.New(),
		CreatedAt:       time.Now().Add(-time.Hour),
		Email:           "kontakt@example.de",
		CompanyName:     "Beispiel GmbH",
		CalculatedScore: &score,
	}
}

// testPipeline bundles a processor with its fakes.
type testPipeline struct {
	store     *memStore
	analyzer  *fakeAnalyzer
	renderer  *fakeRenderer
	deliverer *fakeDeliverer
	processor *Processor
}

func newTestPipeline(records ...*types.Assessment) *testPipeline {
	tp := &testPipeline{
		store:     newMemStore(records...),
		analyzer:  &fakeAnalyzer{},
		renderer:  &fakeRenderer{},
		deliverer: &fakeDeliverer{},
	}
	tp.processor = NewProcessor(tp.store, tp.analyzer, tp.renderer, tp.deliverer, time.Minute)
	return tp
}
