// Package report renders readiness reports as HTML and PDF documents.
package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/readiness-agent/internal/types"
)

//go:embed report.html
var reportTemplateHTML string

var reportTemplate = template.Must(template.New("report").Parse(reportTemplateHTML))

// pageData is the template context for a single report page.
type pageData struct {
	CompanyName string
	Industry    string
	GeneratedAt string
	LevelLabel  string
	Report      *types.Report
}

// levelLabel maps a score level to its German display label.
func levelLabel(level types.Level) string {
	switch level {
	case types.LevelHigh:
		return "Hoch"
	case types.LevelMedium:
		return "Mittel"
	case types.LevelLow:
		return "Niedrig"
	default:
		return string(level)
	}
}

// RenderHTML fills the report template with the assessment's analysis.
func RenderHTML(a *types.Assessment) (string, error) {
	if a.Analysis == nil {
		return "", &RenderError{Message: "assessment has no analysis"}
	}

	data := pageData{
		CompanyName: a.CompanyName,
		Industry:    a.Industry,
		GeneratedAt: time.Now().Format("02.01.2006"),
		LevelLabel:  levelLabel(a.Analysis.ScoreLevel),
		Report:      a.Analysis,
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", &RenderError{Message: "failed to execute report template", Cause: err}
	}
	return buf.String(), nil
}

// ExtractText converts rendered report HTML into a plain-text version
// suitable for the text part of an email.
func ExtractText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse report HTML: %w", err)
	}

	var lines []string
	doc.Find("h1, h2, h3, p, li, .score-value, .score-level, .budget").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		if goquery.NodeName(s) == "li" {
			text = "- " + text
		}
		lines = append(lines, text)
	})

	return strings.Join(lines, "\n"), nil
}

// Filename builds the attachment filename for a company's report.
func Filename(companyName string) string {
	name := strings.TrimSpace(companyName)
	if name == "" {
		name = "Unternehmen"
	}
	name = strings.ReplaceAll(name, " ", "_")
	// Strip characters that are unsafe in filenames across platforms.
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
	return fmt.Sprintf("KI_Readiness_%s.pdf", name)
}
