package report

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/readiness-agent/internal/types"
)

// DefaultTimeout bounds a single PDF render, including browser startup.
const DefaultTimeout = 60 * time.Second

// A4 paper dimensions in inches.
const (
	paperWidthIn  = 8.27
	paperHeightIn = 11.69
	marginIn      = 0.4
)

// Renderer produces PDF documents from report HTML using a headless browser.
// Requires Chrome/Chromium to be installed on the system.
type Renderer struct {
	timeout time.Duration
}

// NewRenderer creates a Renderer. A zero timeout selects DefaultTimeout.
func NewRenderer(timeout time.Duration) *Renderer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Renderer{timeout: timeout}
}

// Render builds the report HTML for the assessment and prints it to a PDF.
func (r *Renderer) Render(ctx context.Context, a *types.Assessment) (*types.Document, error) {
	html, err := RenderHTML(a)
	if err != nil {
		return nil, err
	}

	pdf, err := r.printToPDF(ctx, html)
	if err != nil {
		return nil, &RenderError{Message: "failed to print report to PDF", Cause: err}
	}

	return &types.Document{
		Filename:    Filename(a.CompanyName),
		Data:        pdf,
		GeneratedAt: time.Now(),
	}, nil
}

// printToPDF loads the HTML in a headless browser and captures it as A4 PDF.
func (r *Renderer) printToPDF(ctx context.Context, html string) ([]byte, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, r.timeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPaperWidth(paperWidthIn).
				WithPaperHeight(paperHeightIn).
				WithMarginTop(marginIn).
				WithMarginBottom(marginIn).
				WithMarginLeft(marginIn).
				WithMarginRight(marginIn).
				WithPrintBackground(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
