package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/readiness-agent/internal/types"
)

// tableName is the shared Supabase-managed submissions table. Records are
// created by the external submission flow; this service only reads and
// updates them.
const tableName = "ai_assessments"

// assessmentColumns is the select list shared by all fetch queries.
const assessmentColumns = `id, created_at, email, company_name,
	COALESCE(industry, ''), COALESCE(company_size, ''), COALESCE(revenue, ''),
	COALESCE(responsible_person, ''), COALESCE(urgency, 0), COALESCE(budget, ''),
	COALESCE(data_privacy_importance, 0), COALESCE(team_acceptance, 0),
	COALESCE(crm_system, ''), COALESCE(api_access, ''),
	monthly_leads, monthly_tickets, raw_answers,
	calculated_score, COALESCE(score_level, ''), chatgpt_analysis,
	COALESCE(analysis_completed, false), COALESCE(pdf_generated, false),
	COALESCE(email_sent, false), report_data,
	processing_lease_until, COALESCE(processing_attempts, 0)`

// updatableColumns whitelists the columns UpdateFields may touch.
var updatableColumns = map[string]bool{
	"calculated_score":   true,
	"score_level":        true,
	"chatgpt_analysis":   true,
	"analysis_completed": true,
	"pdf_generated":      true,
	"report_data":        true,
	"email_sent":         true,
}

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the record store.
func Connect(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetByID fetches a single assessment by id. Returns (nil, nil) when absent.
func (s *Postgres) GetByID(ctx context.Context, id uuid.UUID) (*types.Assessment, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, assessmentColumns, tableName), id)

	a, err := scanAssessment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assessment %s: %w", id, err)
	}
	return a, nil
}

// ListUnsent returns assessments with email_sent false or null, oldest first.
func (s *Postgres) ListUnsent(ctx context.Context, limit int) ([]types.Assessment, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE email_sent IS NULL OR email_sent = false
		 ORDER BY created_at ASC LIMIT $1`, assessmentColumns, tableName),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsent assessments: %w", err)
	}
	defer rows.Close()
	return collectAssessments(rows)
}

// ListPendingAnalysis returns assessments with analysis_completed false,
// oldest first.
func (s *Postgres) ListPendingAnalysis(ctx context.Context, limit int) ([]types.Assessment, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM %s
		 WHERE analysis_completed IS NULL OR analysis_completed = false
		 ORDER BY created_at ASC LIMIT $1`, assessmentColumns, tableName),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending assessments: %w", err)
	}
	defer rows.Close()
	return collectAssessments(rows)
}

// Latest returns the most recently created assessment, or (nil, nil) when the
// table is empty.
func (s *Postgres) Latest(ctx context.Context) (*types.Assessment, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC LIMIT 1`,
			assessmentColumns, tableName))

	a, err := scanAssessment(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest assessment: %w", err)
	}
	return a, nil
}

// UpdateFields applies a field map as a single UPDATE. Unknown columns are
// rejected rather than silently dropped.
func (s *Postgres) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE %s SET", tableName)
	args := []any{}
	argNum := 1

	for column, value := range fields {
		if !updatableColumns[column] {
			return fmt.Errorf("refusing to update unknown column %q", column)
		}
		if argNum > 1 {
			query += ","
		}
		// JSON columns are passed as marshaled bytes.
		if column == "chatgpt_analysis" || column == "report_data" {
			jsonBytes, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("failed to marshal %s: %w", column, err)
			}
			value = jsonBytes
		}
		query += fmt.Sprintf(" %s = $%d", column, argNum)
		args = append(args, value)
		argNum++
	}

	query += fmt.Sprintf(" WHERE id = $%d", argNum)
	args = append(args, id)

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update assessment %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("assessment not found: %s", id)
	}
	return nil
}

// AcquireLease claims the per-record lease with a conditional update: it
// succeeds only when no unexpired lease exists. The attempt counter is bumped
// on every successful claim.
func (s *Postgres) AcquireLease(ctx context.Context, id uuid.UUID, ttl time.Duration) (bool, error) {
	result, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s
		 SET processing_lease_until = NOW() + $2::interval,
		     processing_attempts = COALESCE(processing_attempts, 0) + 1
		 WHERE id = $1
		   AND (processing_lease_until IS NULL OR processing_lease_until < NOW())`,
			tableName),
		id, ttl.String(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to acquire lease for %s: %w", id, err)
	}
	return result.RowsAffected() > 0, nil
}

// ReleaseLease clears the per-record lease.
func (s *Postgres) ReleaseLease(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET processing_lease_until = NULL WHERE id = $1`, tableName),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to release lease for %s: %w", id, err)
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row rowScanner) (*types.Assessment, error) {
	var a types.Assessment
	var rawAnswers, analysis, reportData []byte
	var scoreLevel string

	err := row.Scan(
		&a.ID, &a.CreatedAt, &a.Email, &a.CompanyName,
		&a.Industry, &a.CompanySize, &a.Revenue,
		&a.ResponsiblePerson, &a.Urgency, &a.Budget,
		&a.DataPrivacyImportance, &a.TeamAcceptance,
		&a.CRMSystem, &a.APIAccess,
		&a.MonthlyLeads, &a.MonthlyTickets, &rawAnswers,
		&a.CalculatedScore, &scoreLevel, &analysis,
		&a.AnalysisCompleted, &a.PDFGenerated,
		&a.EmailSent, &reportData,
		&a.LeaseUntil, &a.ProcessingAttempts,
	)
	if err != nil {
		return nil, err
	}

	a.ScoreLevel = types.Level(scoreLevel)
	if len(rawAnswers) > 0 {
		_ = json.Unmarshal(rawAnswers, &a.RawAnswers)
	}
	if len(analysis) > 0 {
		_ = json.Unmarshal(analysis, &a.Analysis)
	}
	if len(reportData) > 0 {
		_ = json.Unmarshal(reportData, &a.ReportData)
	}
	return &a, nil
}

func collectAssessments(rows pgx.Rows) ([]types.Assessment, error) {
	var assessments []types.Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		assessments = append(assessments, *a)
	}
	return assessments, rows.Err()
}
