// Package mail delivers readiness reports by email through the SendGrid v3 API.
package mail

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jonathan/readiness-agent/internal/types"
)

// DefaultBaseURL is the SendGrid API endpoint used when none is configured.
const DefaultBaseURL = "https://api.sendgrid.com"

// DefaultTimeout bounds a single mail send request.
const DefaultTimeout = 30 * time.Second

// Config holds SendGrid connection settings.
type Config struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// ConfigFromEnv reads SendGrid settings from the environment.
func ConfigFromEnv() Config {
	return Config{
		APIKey:    strings.TrimSpace(os.Getenv("SENDGRID_API_KEY")),
		BaseURL:   strings.TrimSpace(os.Getenv("SENDGRID_BASE_URL")),
		FromEmail: strings.TrimSpace(os.Getenv("SENDGRID_FROM_EMAIL")),
		FromName:  strings.TrimSpace(os.Getenv("SENDGRID_FROM_NAME")),
	}
}

// Client sends report emails via SendGrid's mail/send endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient validates the config and creates a Client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SendGrid mail/send wire types.
type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
	Attachments      []sgAttachment    `json:"attachments,omitempty"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgAttachment struct {
	Content     string `json:"content"`
	Type        string `json:"type,omitempty"`
	Filename    string `json:"filename"`
	Disposition string `json:"disposition,omitempty"`
}

// Deliver sends the readiness report to the assessment's contact address
// with the PDF attached.
func (c *Client) Deliver(ctx context.Context, a *types.Assessment, doc *types.Document) error {
	if a.Email == "" {
		return &DeliveryError{Message: "assessment has no recipient email"}
	}
	if doc == nil || len(doc.Data) == 0 {
		return &DeliveryError{Message: "no report document to attach"}
	}

	body := buildBody(a)
	payload := mailSendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: a.Email}}}},
		From:             emailAddress{Email: c.cfg.FromEmail, Name: c.cfg.FromName},
		Subject:          Subject(a),
		Content:          []mailContent{{Type: "text/plain", Value: body}},
		Attachments: []sgAttachment{{
			Content:     base64.StdEncoding.EncodeToString(doc.Data),
			Type:        "application/pdf",
			Filename:    doc.Filename,
			Disposition: "attachment",
		}},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Message: "failed to encode mail payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v3/mail/send", bytes.NewReader(raw))
	if err != nil {
		return &DeliveryError{Message: "failed to build mail request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Message: "mail request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{
			Message: fmt.Sprintf("sendgrid returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))),
		}
	}

	log.Printf("[MAIL] Sent report to %s (%s, %d KB attachment)", a.Email, a.CompanyName, doc.SizeKB())
	return nil
}

// Subject builds the German email subject line for an assessment.
func Subject(a *types.Assessment) string {
	return fmt.Sprintf("Ihre KI-Readiness-Bewertung - Score: %d/100 - %s", a.Score(), a.CompanyName)
}

// buildBody assembles the plain-text email body. The full report travels as
// the PDF attachment.
func buildBody(a *types.Assessment) string {
	var b strings.Builder

	name := strings.TrimSpace(a.ResponsiblePerson)
	if name != "" {
		fmt.Fprintf(&b, "Guten Tag %s,\n\n", name)
	} else {
		b.WriteString("Guten Tag,\n\n")
	}

	fmt.Fprintf(&b, "vielen Dank für Ihre Teilnahme an unserer KI-Readiness-Bewertung für %s.\n\n", a.CompanyName)
	fmt.Fprintf(&b, "Ihr Ergebnis: %d von 100 Punkten\n\n", a.Score())

	if a.Analysis != nil && a.Analysis.ExecutiveSummary != "" {
		b.WriteString(a.Analysis.ExecutiveSummary)
		b.WriteString("\n\n")
	}

	b.WriteString("Die vollständige Auswertung mit konkreten Handlungsempfehlungen finden Sie im angehängten PDF-Bericht.\n\n")
	b.WriteString("Bei Fragen zu Ihrer Bewertung stehen wir Ihnen gerne zur Verfügung.\n\n")
	b.WriteString("Mit freundlichen Grüßen\nIhr KI-Readiness-Team\n")

	return b.String()
}
