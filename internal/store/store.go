// Package store provides access to the shared assessment record store.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/readiness-agent/internal/types"
)

// Store is the record store consumed by the processing pipeline. Fetch methods
// return (nil, nil) when no record matches.
type Store interface {
	// GetByID fetches a single assessment by id.
	GetByID(ctx context.Context, id uuid.UUID) (*types.Assessment, error)
	// ListUnsent returns up to limit assessments whose email_sent flag is
	// false or null, oldest first.
	ListUnsent(ctx context.Context, limit int) ([]types.Assessment, error)
	// ListPendingAnalysis returns up to limit assessments whose
	// analysis_completed flag is false, oldest first.
	ListPendingAnalysis(ctx context.Context, limit int) ([]types.Assessment, error)
	// Latest returns the most recently created assessment.
	Latest(ctx context.Context) (*types.Assessment, error)
	// UpdateFields applies a field map to one record. Only whitelisted
	// columns are accepted.
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	// AcquireLease claims the per-record processing lease for ttl. It
	// returns false when another run currently holds the lease.
	AcquireLease(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error)
	// ReleaseLease clears the processing lease.
	ReleaseLease(ctx context.Context, id uuid.UUID) error
}
