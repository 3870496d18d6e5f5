package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/readiness-agent/internal/types"
)

func sampleAssessment() *types.Assessment {
	return &types.Assessment{
		CompanyName: "Beispiel GmbH",
		Industry:    "Fertigung",
		Analysis: &types.Report{
			Score:            72,
			ScoreLevel:       types.LevelHigh,
			ExecutiveSummary: "Gute Ausgangslage für KI-Projekte.",
			Strengths:        []string{"Klare Ziele", "API-Zugang vorhanden"},
			Weaknesses:       []string{"Verstreute Datenquellen"},
			RecommendedUseCases: []types.UseCase{
				{Title: "Lead-Qualifizierung", Description: "Automatische Bewertung eingehender Leads.", Impact: "Hoch", Effort: "Mittel", Priority: "Kurzfristig"},
			},
			QuickWins: []types.QuickWin{
				{Title: "E-Mail-Vorlagen", Description: "KI-gestützte Antwortvorschläge.", Timeframe: "3 Monate", ExpectedBenefit: "20% Zeitersparnis"},
			},
			StrategicSteps: []types.Phase{
				{Phase: "Phase 1: Grundlagen", Description: "Datenbasis konsolidieren.", Timeframe: "3 Monate", KeyActions: []string{"CRM-Daten bereinigen"}},
			},
			BudgetRecommendation: "5.000-15.000 EUR für die Pilotphase",
			NextActions:          []string{"Pilotprojekt auswählen", "Team-Workshop planen"},
		},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleAssessment())
	require.NoError(t, err)

	assert.Contains(t, html, "Beispiel GmbH")
	assert.Contains(t, html, "72/100")
	assert.Contains(t, html, "Reifegrad: Hoch")
	assert.Contains(t, html, "Lead-Qualifizierung")
	assert.Contains(t, html, "Phase 1: Grundlagen")
	assert.Contains(t, html, "5.000-15.000 EUR")
	assert.NotContains(t, html, "{{")
}

func TestRenderHTML_EscapesUserInput(t *testing.T) {
	a := sampleAssessment()
	a.CompanyName = `<script>alert("x")</script>`

	html, err := RenderHTML(a)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>alert")
}

func TestRenderHTML_NoAnalysis(t *testing.T) {
	_, err := RenderHTML(&types.Assessment{CompanyName: "Leer AG"})
	require.Error(t, err)

	var renderErr *RenderError
	assert.ErrorAs(t, err, &renderErr)
}

func TestExtractText(t *testing.T) {
	html, err := RenderHTML(sampleAssessment())
	require.NoError(t, err)

	text, err := ExtractText(html)
	require.NoError(t, err)

	assert.Contains(t, text, "KI-Readiness-Bewertung")
	assert.Contains(t, text, "Gute Ausgangslage für KI-Projekte.")
	assert.Contains(t, text, "- Klare Ziele")
	assert.NotContains(t, text, "<")
	assert.NotContains(t, text, "score-box")
}

func TestLevelLabel(t *testing.T) {
	assert.Equal(t, "Hoch", levelLabel(types.LevelHigh))
	assert.Equal(t, "Mittel", levelLabel(types.LevelMedium))
	assert.Equal(t, "Niedrig", levelLabel(types.LevelLow))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		company string
		want    string
	}{
		{"Beispiel GmbH", "KI_Readiness_Beispiel_GmbH.pdf"},
		{"A/B: Test?", "KI_Readiness_AB_Test.pdf"},
		{"", "KI_Readiness_Unternehmen.pdf"},
		{"  ", "KI_Readiness_Unternehmen.pdf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filename(tt.company))
	}
}
