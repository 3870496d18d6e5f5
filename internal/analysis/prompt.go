package analysis

import (
	"fmt"
	"strings"

	"github.com/jonathan/readiness-agent/internal/prompts"
	"github.com/jonathan/readiness-agent/internal/types"
)

// buildPrompt fills the readiness analysis template from the record's company
// fields and weighted raw answers.
func buildPrompt(a *types.Assessment) string {
	template := prompts.MustGet("analysis.json", "analyze")

	return prompts.Format(template, map[string]string{
		"CompanyName":         orDefault(a.CompanyName, "N/A"),
		"Industry":            orDefault(a.Industry, "Nicht angegeben"),
		"CompanySize":         orDefault(a.CompanySize, "Nicht angegeben"),
		"Revenue":             orDefault(a.Revenue, "Nicht angegeben"),
		"MainGoals":           weightedList(a.RawAnswers, "mainGoal"),
		"Urgency":             intOrDefault(a.Urgency, "Nicht angegeben"),
		"Budget":              orDefault(a.Budget, "Nicht angegeben"),
		"ResponsiblePerson":   orDefault(a.ResponsiblePerson, "Nicht angegeben"),
		"PriorityProcesses":   weightedList(a.RawAnswers, "priorityProcesses"),
		"PainPoints":          weightedList(a.RawAnswers, "painPoints"),
		"DetailedChallenges":  orDefault(a.RawAnswers.Text("detailedChallenges"), "N/A"),
		"RecurringTasks":      weightedList(a.RawAnswers, "recurringTasks"),
		"CRMSystem":           orDefault(a.CRMSystem, "Keines"),
		"MarketingTools":      weightedList(a.RawAnswers, "marketingTools"),
		"ServiceTools":        weightedList(a.RawAnswers, "serviceTools"),
		"DataSources":         weightedList(a.RawAnswers, "dataSources"),
		"APIAccess":           orDefault(a.APIAccess, "Nicht angegeben"),
		"MonthlyLeads":        intPtrOrDefault(a.MonthlyLeads, "N/A"),
		"MonthlyTickets":      intPtrOrDefault(a.MonthlyTickets, "N/A"),
		"DesiredOutputs":      weightedList(a.RawAnswers, "desiredOutputs"),
		"DataPrivacy":         intOrDefault(a.DataPrivacyImportance, "Nicht angegeben"),
		"Languages":           weightedList(a.RawAnswers, "languages"),
		"SuccessMetrics":      weightedList(a.RawAnswers, "successMetrics"),
		"TeamAcceptance":      intOrDefault(a.TeamAcceptance, "Nicht angegeben"),
		"PreviousExperience":  orDefault(a.RawAnswers.Text("previousExperience"), "Nicht angegeben"),
		"ImplementationSpeed": orDefault(a.RawAnswers.Text("implementationSpeed"), "Nicht angegeben"),
		"BiggestConcern":      orDefault(a.RawAnswers.Text("biggestConcern"), "Nicht angegeben"),
		"AdditionalInfo":      orDefault(a.RawAnswers.Text("additionalInfo"), "Keine"),
		"Score":               fmt.Sprintf("%d", promptScore(a)),
	})
}

// promptScore returns the pre-calculated submission score the model is told
// to adopt, defaulting to the scale midpoint when the form did not compute
// one.
func promptScore(a *types.Assessment) int {
	if a.CalculatedScore == nil {
		return 50
	}
	return *a.CalculatedScore
}

func weightedList(answers types.RawAnswers, key string) string {
	values := answers.Weighted(key)
	if len(values) == 0 {
		return "Nicht angegeben"
	}
	return strings.Join(values, ", ")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func intOrDefault(n int, def string) string {
	if n == 0 {
		return def
	}
	return fmt.Sprintf("%d", n)
}

func intPtrOrDefault(n *int, def string) string {
	if n == nil {
		return def
	}
	return fmt.Sprintf("%d", *n)
}
