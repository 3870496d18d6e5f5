// Package types provides type definitions for assessment records and analysis
// reports used throughout the readiness-agent system.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Level is the categorical readiness level derived from the numeric score.
type Level string

const (
	LevelHigh   Level = "High"
	LevelMedium Level = "Medium"
	LevelLow    Level = "Low"
)

// LevelFromScore maps a 0-100 score onto a Level.
// Thresholds: >=70 High, 40-69 Medium, <40 Low.
func LevelFromScore(score int) Level {
	switch {
	case score >= 70:
		return LevelHigh
	case score >= 40:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Assessment is one survey submission row in the record store.
// The three stage flags move false->true independently; a null column reads as
// false. email_sent=true is terminal: the record is never processed again.
type Assessment struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Contact & company info
	Email             string `json:"email"`
	CompanyName       string `json:"company_name"`
	Industry          string `json:"industry,omitempty"`
	CompanySize       string `json:"company_size,omitempty"`
	Revenue           string `json:"revenue,omitempty"`
	ResponsiblePerson string `json:"responsible_person,omitempty"`

	// Goals & requirements
	Urgency               int    `json:"urgency,omitempty"`
	Budget                string `json:"budget,omitempty"`
	DataPrivacyImportance int    `json:"data_privacy_importance,omitempty"`
	TeamAcceptance        int    `json:"team_acceptance,omitempty"`

	// Tooling & metrics
	CRMSystem      string `json:"crm_system,omitempty"`
	APIAccess      string `json:"api_access,omitempty"`
	MonthlyLeads   *int   `json:"monthly_leads,omitempty"`
	MonthlyTickets *int   `json:"monthly_tickets,omitempty"`

	// Free-form structured answers: question key -> scalar, {text, value},
	// or a list of {text, value} pairs.
	RawAnswers RawAnswers `json:"raw_answers,omitempty"`

	// Derived analysis
	CalculatedScore *int    `json:"calculated_score,omitempty"`
	ScoreLevel      Level   `json:"score_level,omitempty"`
	Analysis        *Report `json:"chatgpt_analysis,omitempty"`

	// Stage completion flags
	AnalysisCompleted bool `json:"analysis_completed"`
	PDFGenerated      bool `json:"pdf_generated"`
	EmailSent         bool `json:"email_sent"`

	// Artifact metadata (the rendered document itself is not persisted)
	ReportData *ReportData `json:"report_data,omitempty"`

	// Concurrency guard
	LeaseUntil         *time.Time `json:"processing_lease_until,omitempty"`
	ProcessingAttempts int        `json:"processing_attempts,omitempty"`
}

// Score returns the calculated score, defaulting to 0 when analysis has not
// run yet.
func (a *Assessment) Score() int {
	if a.CalculatedScore == nil {
		return 0
	}
	return *a.CalculatedScore
}

// ReportData holds metadata about a rendered report artifact.
type ReportData struct {
	GeneratedAt time.Time `json:"generated_at"`
	Score       int       `json:"score"`
	ScoreLevel  Level     `json:"score_level"`
	PDFSizeKB   int       `json:"pdf_size_kb"`
}

// Report is the structured readiness report produced by the analysis stage.
type Report struct {
	Score                int        `json:"score"`
	ScoreLevel           Level      `json:"score_level"`
	ExecutiveSummary     string     `json:"executive_summary"`
	Strengths            []string   `json:"strengths"`
	Weaknesses           []string   `json:"weaknesses"`
	RecommendedUseCases  []UseCase  `json:"recommended_use_cases"`
	QuickWins            []QuickWin `json:"quick_wins"`
	StrategicSteps       []Phase    `json:"strategic_steps"`
	BudgetRecommendation string     `json:"budget_recommendation"`
	NextActions          []string   `json:"next_actions"`
}

// UseCase is one recommended AI use case in the report.
type UseCase struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Effort      string `json:"effort"`
	Priority    string `json:"priority"`
}

// QuickWin is a short-term actionable improvement.
type QuickWin struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Timeframe       string `json:"timeframe"`
	ExpectedBenefit string `json:"expected_benefit"`
}

// Phase is one step of the phased strategic roadmap.
type Phase struct {
	Phase       string   `json:"phase"`
	Description string   `json:"description"`
	Timeframe   string   `json:"timeframe"`
	KeyActions  []string `json:"key_actions"`
}

// Document is a rendered report artifact handed from the render stage to the
// delivery stage. It lives only in memory.
type Document struct {
	Filename    string
	Data        []byte
	GeneratedAt time.Time
}

// SizeKB returns the document size in whole kilobytes.
func (d *Document) SizeKB() int {
	return len(d.Data) / 1024
}

// RawAnswers maps a question key to its submitted answer.
type RawAnswers map[string]json.RawMessage

// WeightedAnswer is one {text, value} pair inside a raw answer.
type WeightedAnswer struct {
	Text  string  `json:"text"`
	Value float64 `json:"value"`
}

// Text extracts the textual content of an answer: the "text" field of an
// object, the comma-joined texts for lists, or the scalar itself.
func (r RawAnswers) Text(key string) string {
	raw, ok := r[key]
	if !ok || len(raw) == 0 {
		return ""
	}

	var obj WeightedAnswer
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != "" {
		return obj.Text
	}

	var list []WeightedAnswer
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item.Text != "" {
				parts = append(parts, item.Text)
			}
		}
		return joinComma(parts)
	}

	var scalar string
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return scalar
	}

	// Numbers and other scalars fall back to their JSON form.
	return string(raw)
}

// Weighted extracts the list of {text, value} pairs for a key, formatted as
// "text (Bewertung: N)" for prompt building. Non-list answers return nil.
func (r RawAnswers) Weighted(key string) []string {
	raw, ok := r[key]
	if !ok || len(raw) == 0 {
		return nil
	}

	var list []WeightedAnswer
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil
	}

	out := make([]string, 0, len(list))
	for _, item := range list {
		if item.Text == "" {
			continue
		}
		out = append(out, fmt.Sprintf("%s (Bewertung: %g)", item.Text, item.Value))
	}
	return out
}

func joinComma(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}
	s := parts[0]
	for _, p := range parts[1:] {
		s += ", " + p
	}
	return s
}
