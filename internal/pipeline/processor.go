// Package pipeline orchestrates the per-record assessment processing state
// machine: analysis, report rendering, and email delivery.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/readiness-agent/internal/store"
	"github.com/jonathan/readiness-agent/internal/types"
)

// Outcome classifies the result of one processing run.
type Outcome string

const (
	// Succeeded means the run completed all reachable stages. Delivery may
	// still be pending, see Result.DeliveryPending.
	Succeeded Outcome = "succeeded"
	// Failed means a stage aborted the run. The record stays eligible for a
	// later retry.
	Failed Outcome = "failed"
	// NotFound means no record exists for the requested id.
	NotFound Outcome = "not_found"
	// AlreadyComplete means the record's email was already sent. Nothing
	// was invoked.
	AlreadyComplete Outcome = "already_complete"
)

// Stage names a pipeline stage for logging and results.
type Stage string

const (
	StageAnalysis Stage = "analysis"
	StageRender   Stage = "render"
	StageDelivery Stage = "delivery"
)

// ErrLeaseHeld is returned when another run holds the record's processing
// lease. The record can be retried once the lease expires or is released.
var ErrLeaseHeld = errors.New("processing lease held by another run")

// Result describes one ProcessOne run.
type Result struct {
	Outcome Outcome
	// Stage is the stage that aborted the run when Outcome is Failed.
	Stage Stage
	// DeliveryPending reports that delivery failed during an otherwise
	// successful run and the email stays queued for a later pass.
	DeliveryPending bool
	Err             error
}

// Analyzer produces the structured readiness report for an assessment.
type Analyzer interface {
	Analyze(ctx context.Context, a *types.Assessment) (*types.Report, error)
}

// Renderer turns an analyzed assessment into a PDF document.
type Renderer interface {
	Render(ctx context.Context, a *types.Assessment) (*types.Document, error)
}

// Deliverer emails the rendered document to the assessment's contact.
type Deliverer interface {
	Deliver(ctx context.Context, a *types.Assessment, doc *types.Document) error
}

// DefaultLeaseTTL bounds how long a single run may hold a record's
// processing lease before a crashed run's lease expires.
const DefaultLeaseTTL = 5 * time.Minute

// Processor drives the three-stage pipeline for individual records.
type Processor struct {
	store     store.Store
	analyzer  Analyzer
	renderer  Renderer
	deliverer Deliverer
	leaseTTL  time.Duration
}

// NewProcessor wires the pipeline's collaborators. A zero leaseTTL selects
// DefaultLeaseTTL.
func NewProcessor(st store.Store, analyzer Analyzer, renderer Renderer, deliverer Deliverer, leaseTTL time.Duration) *Processor {
	if leaseTTL <= 0 {
		leaseTTL = DefaultLeaseTTL
	}
	return &Processor{
		store:     st,
		analyzer:  analyzer,
		renderer:  renderer,
		deliverer: deliverer,
		leaseTTL:  leaseTTL,
	}
}

// ProcessOne runs the pipeline for a single record. Completed stages are
// skipped; a record whose email was already sent is never touched again.
func (p *Processor) ProcessOne(ctx context.Context, id uuid.UUID) Result {
	a, err := p.store.GetByID(ctx, id)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("failed to fetch assessment %s: %w", id, err)}
	}
	if a == nil {
		return Result{Outcome: NotFound}
	}

	// The email_sent gate comes before everything else. Once an email went
	// out, the record is terminal.
	if a.EmailSent {
		return Result{Outcome: AlreadyComplete}
	}

	acquired, err := p.store.AcquireLease(ctx, id, p.leaseTTL)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("failed to acquire lease for %s: %w", id, err)}
	}
	if !acquired {
		return Result{Outcome: Failed, Err: ErrLeaseHeld}
	}
	defer func() {
		if err := p.store.ReleaseLease(context.WithoutCancel(ctx), id); err != nil {
			log.Printf("[PIPELINE] Failed to release lease for %s: %v", id, err)
		}
	}()

	// Re-check the gate under the lease. A concurrent run may have sent
	// the email between the first fetch and the lease grant.
	a, err = p.store.GetByID(ctx, id)
	if err != nil {
		return Result{Outcome: Failed, Err: fmt.Errorf("failed to refetch assessment %s: %w", id, err)}
	}
	if a == nil {
		return Result{Outcome: NotFound}
	}
	if a.EmailSent {
		return Result{Outcome: AlreadyComplete}
	}

	if a, err = p.runAnalysis(ctx, a); err != nil {
		log.Printf("[PIPELINE] Analysis failed for %s (%s): %v", id, a.CompanyName, err)
		return Result{Outcome: Failed, Stage: StageAnalysis, Err: err}
	}

	doc, err := p.runRender(ctx, a)
	if err != nil {
		log.Printf("[PIPELINE] Rendering failed for %s (%s): %v", id, a.CompanyName, err)
		return Result{Outcome: Failed, Stage: StageRender, Err: err}
	}

	if err := p.runDelivery(ctx, a, doc); err != nil {
		// Delivery failure does not fail the run. The expensive work is
		// persisted and the record stays queued for the next pass.
		log.Printf("[PIPELINE] Delivery failed for %s (%s), email left pending: %v", id, a.CompanyName, err)
		return Result{Outcome: Succeeded, DeliveryPending: true, Err: err}
	}

	log.Printf("[PIPELINE] Completed assessment %s (%s, score %d)", id, a.CompanyName, a.Score())
	return Result{Outcome: Succeeded}
}

// runAnalysis executes stage 1 unless a previous run already completed it.
// On success the record is refetched so later stages see the persisted score.
func (p *Processor) runAnalysis(ctx context.Context, a *types.Assessment) (*types.Assessment, error) {
	if a.AnalysisCompleted {
		return a, nil
	}

	report, err := p.analyzer.Analyze(ctx, a)
	if err != nil {
		return a, err
	}

	fields := map[string]any{
		"calculated_score":   report.Score,
		"score_level":        string(report.ScoreLevel),
		"chatgpt_analysis":   report,
		"analysis_completed": true,
	}
	if err := p.store.UpdateFields(ctx, a.ID, fields); err != nil {
		return a, fmt.Errorf("failed to persist analysis for %s: %w", a.ID, err)
	}

	fresh, err := p.store.GetByID(ctx, a.ID)
	if err != nil {
		return a, fmt.Errorf("failed to reload assessment %s after analysis: %w", a.ID, err)
	}
	if fresh == nil {
		return a, fmt.Errorf("assessment %s disappeared after analysis", a.ID)
	}
	log.Printf("[PIPELINE] Analysis completed for %s (score %d, level %s)", a.ID, report.Score, report.ScoreLevel)
	return fresh, nil
}

// runRender executes stage 2. Rendering is repeated even when pdf_generated
// is already set: the document only lives in memory, so a retry after a
// failed delivery has to produce it again.
func (p *Processor) runRender(ctx context.Context, a *types.Assessment) (*types.Document, error) {
	doc, err := p.renderer.Render(ctx, a)
	if err != nil {
		return nil, err
	}

	fields := map[string]any{
		"pdf_generated": true,
		"report_data": &types.ReportData{
			GeneratedAt: doc.GeneratedAt,
			Score:       a.Score(),
			ScoreLevel:  a.ScoreLevel,
			PDFSizeKB:   doc.SizeKB(),
		},
	}
	if err := p.store.UpdateFields(ctx, a.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to persist render state for %s: %w", a.ID, err)
	}
	return doc, nil
}

// runDelivery executes stage 3. On failure email_sent is written back as an
// explicit false so the record stays eligible for retry.
func (p *Processor) runDelivery(ctx context.Context, a *types.Assessment, doc *types.Document) error {
	if err := p.deliverer.Deliver(ctx, a, doc); err != nil {
		if updateErr := p.store.UpdateFields(ctx, a.ID, map[string]any{"email_sent": false}); updateErr != nil {
			log.Printf("[PIPELINE] Failed to persist pending delivery state for %s: %v", a.ID, updateErr)
		}
		return err
	}

	if err := p.store.UpdateFields(ctx, a.ID, map[string]any{"email_sent": true}); err != nil {
		return fmt.Errorf("failed to persist email_sent for %s: %w", a.ID, err)
	}
	return nil
}
