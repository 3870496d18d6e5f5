package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/jonathan/readiness-agent/internal/types"
)

// DefaultPendingLimit caps one process-all-pending run.
const DefaultPendingLimit = 10

// RecordResult summarizes one record's run inside a batch.
type RecordResult struct {
	ID      uuid.UUID `json:"id"`
	Company string    `json:"company"`
	Email   string    `json:"email"`
	Status  string    `json:"status"`
}

// BatchSummary aggregates per-record outcomes of a batch run.
type BatchSummary struct {
	Processed  int            `json:"processed"`
	Successful int            `json:"successful"`
	Results    []RecordResult `json:"results"`
}

// statusLabel flattens a Result into the label reported per record.
func statusLabel(r Result) string {
	switch r.Outcome {
	case Succeeded:
		if r.DeliveryPending {
			return "email_pending"
		}
		return "success"
	case AlreadyComplete:
		return "already_complete"
	case NotFound:
		return "not_found"
	default:
		return "error"
	}
}

// ProcessPending runs the pipeline for every record still awaiting analysis.
// Individual failures never abort the batch.
func (p *Processor) ProcessPending(ctx context.Context) (*BatchSummary, error) {
	pending, err := p.store.ListPendingAnalysis(ctx, DefaultPendingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assessments: %w", err)
	}

	summary := &BatchSummary{Results: []RecordResult{}}
	for i := range pending {
		a := &pending[i]
		res := p.ProcessOne(ctx, a.ID)

		summary.Processed++
		if res.Outcome == Succeeded {
			summary.Successful++
		}
		summary.Results = append(summary.Results, RecordResult{
			ID:      a.ID,
			Company: a.CompanyName,
			Email:   a.Email,
			Status:  statusLabel(res),
		})
	}

	log.Printf("[PIPELINE] Batch done: %d processed, %d successful", summary.Processed, summary.Successful)
	return summary, nil
}

// ProcessLatest runs the pipeline for the most recently created assessment.
// The assessment is returned alongside the result so callers can report on it;
// it is nil when no records exist.
func (p *Processor) ProcessLatest(ctx context.Context) (Result, *types.Assessment, error) {
	latest, err := p.store.Latest(ctx)
	if err != nil {
		return Result{}, nil, fmt.Errorf("failed to fetch latest assessment: %w", err)
	}
	if latest == nil {
		return Result{Outcome: NotFound}, nil, nil
	}
	return p.ProcessOne(ctx, latest.ID), latest, nil
}
