package prompts

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	prompt, err := Get("analysis.json", "analyze")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !strings.Contains(prompt, "{{.CompanyName}}") {
		t.Error("analyze prompt missing CompanyName placeholder")
	}
	if !strings.Contains(prompt, "{{.Score}}") {
		t.Error("analyze prompt missing Score placeholder")
	}
}

func TestGet_MissingKey(t *testing.T) {
	_, err := Get("analysis.json", "nonexistent")
	if err == nil {
		t.Error("expected error for missing key")
	}
}

func TestGet_MissingFile(t *testing.T) {
	_, err := Get("nonexistent.json", "analyze")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormat(t *testing.T) {
	template := "Unternehmen: {{.CompanyName}}, Score: {{.Score}}"
	result := Format(template, map[string]string{
		"CompanyName": "Beispiel GmbH",
		"Score":       "72",
	})
	expected := "Unternehmen: Beispiel GmbH, Score: 72"
	if result != expected {
		t.Errorf("Format = %q, expected %q", result, expected)
	}
}

func TestFormat_UnknownPlaceholderLeftIntact(t *testing.T) {
	result := Format("{{.Known}} {{.Unknown}}", map[string]string{"Known": "x"})
	if result != "x {{.Unknown}}" {
		t.Errorf("Format = %q", result)
	}
}
