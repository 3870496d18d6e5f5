package analysis

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/jonathan/readiness-agent/internal/llm"
	"github.com/jonathan/readiness-agent/internal/prompts"
	"github.com/jonathan/readiness-agent/internal/types"
)

//go:embed report_schema.json
var reportSchema string

// DefaultTimeout bounds a single LLM call.
const DefaultTimeout = 120 * time.Second

// Analyzer produces a structured readiness report for one assessment.
type Analyzer struct {
	client  llm.Client
	timeout time.Duration
}

// NewAnalyzer creates an Analyzer on top of an LLM client. A zero timeout
// selects DefaultTimeout.
func NewAnalyzer(client llm.Client, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Analyzer{client: client, timeout: timeout}
}

// Analyze builds the readiness prompt for the record, calls the model, and
// validates the JSON response. The returned report's score and level are
// authoritative: the level is always recomputed from the score thresholds,
// never trusted from the model.
func (an *Analyzer) Analyze(ctx context.Context, a *types.Assessment) (*types.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, an.timeout)
	defer cancel()

	systemPrompt := prompts.MustGet("analysis.json", "system")
	prompt := buildPrompt(a)

	responseText, err := an.client.GenerateJSON(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, &Error{Message: "failed to generate report", Cause: err}
	}

	report, err := parseReport(responseText)
	if err != nil {
		return nil, err
	}

	// The model is instructed to echo the pre-calculated score but may drift;
	// the submitted score wins, and the level follows the score.
	report.Score = clampScore(promptScore(a))
	report.ScoreLevel = types.LevelFromScore(report.Score)

	return report, nil
}

// parseReport validates the model response against the embedded JSON Schema
// and unmarshals it.
func parseReport(responseText string) (*types.Report, error) {
	responseText = llm.CleanJSONBlock(responseText)

	schemaLoader := gojsonschema.NewStringLoader(reportSchema)
	documentLoader := gojsonschema.NewStringLoader(responseText)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return nil, &Error{Message: "malformed JSON response", Cause: err}
	}
	if !result.Valid() {
		var issues []string
		for _, desc := range result.Errors() {
			issues = append(issues, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return nil, &Error{Message: "response failed schema validation: " + strings.Join(issues, "; ")}
	}

	var report types.Report
	if err := json.Unmarshal([]byte(responseText), &report); err != nil {
		return nil, &Error{Message: "failed to unmarshal report", Cause: err}
	}
	return &report, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
