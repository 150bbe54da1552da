package export

import (
	"context"
	"fmt"
	"time"

	"resumeforensics/internal/config"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer prints HTML to PDF with a headless Chrome.
// Requires Chrome/Chromium to be installed on the system.
type ChromeRenderer struct {
	ExecPath string
	Headless bool
	Timeout  time.Duration
}

func NewChromeRenderer(cfg config.ExportConfig) *ChromeRenderer {
	return &ChromeRenderer{
		ExecPath: cfg.ChromePath,
		Headless: cfg.Headless,
		Timeout:  cfg.Timeout,
	}
}

func (c *ChromeRenderer) RenderPDF(ctx context.Context, html string) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	if c.Timeout > 0 {
		browserCtx, cancel = context.WithTimeout(browserCtx, c.Timeout)
		defer cancel()
	}

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser PDF rendering failed: %w", err)
	}
	return pdf, nil
}
