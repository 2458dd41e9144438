package invoice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrChromeUnavailable reports that no Chrome or Chromium executable could
// be found, so PDF rendering is degraded for this run.
var ErrChromeUnavailable = errors.New("no chrome or chromium executable found")

// Printer renders a stored invoice HTML file to PDF with headless Chrome.
type Printer struct {
	// ChromePath overrides executable detection when set.
	ChromePath string
	// Timeout bounds one print run. Zero means 30 seconds.
	Timeout time.Duration
}

// Print renders htmlPath to an A4 PDF at pdfPath.
func (p Printer) Print(ctx context.Context, htmlPath, pdfPath string) error {
	execPath := p.ChromePath
	if execPath == "" {
		execPath = detectChromePath()
	}
	if execPath == "" {
		return ErrChromeUnavailable
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.NoSandbox,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return fmt.Errorf("resolve invoice html path: %w", err)
	}

	var buf []byte
	err = chromedp.Run(tabCtx,
		chromedp.Navigate("file://"+abs),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			// A4 paper in inches.
			buf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("print invoice pdf: %w", err)
	}
	if err := os.WriteFile(pdfPath, buf, 0o644); err != nil {
		return fmt.Errorf("write invoice pdf: %w", err)
	}
	return nil
}

// detectChromePath checks the CHROME_PATH variable, then common install
// locations.
func detectChromePath() string {
	if chromePath := os.Getenv("CHROME_PATH"); chromePath != "" {
		if _, err := os.Stat(chromePath); err == nil {
			return chromePath
		}
	}
	paths := []string{
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
