// Package desktop supplies the pointer, keyboard, and page capabilities the
// calibration and replay layers depend on, backed by a Chrome instance
// driven over the DevTools protocol.
//
// Coordinates are viewport-relative: what calibration captures is what the
// replay clicks. The rest of the system treats this package as an opaque
// capability and is tested against fakes.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/KevymLuccas/hbmxml/pkg/logger"
)

// DefaultPortalURL is the NFe consultation page.
const DefaultPortalURL = "https://www.nfe.fazenda.gov.br/portal/consultaRecaptcha.aspx?tipoConsulta=resumo&tipoConteudo=7PhJ+gAVw2g="

// pointerTracker records the last pointer position inside the page so
// calibration can ask where the operator's pointer is.
const pointerTracker = `window.addEventListener('mousemove', function(e) {
	window.__pointer = {x: e.clientX, y: e.clientY};
}, {passive: true});`

const openTimeout = 30 * time.Second

// Driver drives the browser session.
type Driver struct {
	portalURL   string
	downloadDir string
	headless    bool
	log         logger.Logger

	browserCtx context.Context
	cancels    []context.CancelFunc
}

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithPortalURL overrides the consultation page URL.
func WithPortalURL(url string) Option {
	return func(d *Driver) {
		if url != "" {
			d.portalURL = url
		}
	}
}

// WithDownloadDir sets where the browser drops downloaded XML files.
func WithDownloadDir(dir string) Option {
	return func(d *Driver) {
		if dir != "" {
			d.downloadDir = dir
		}
	}
}

// WithHeadless runs the browser without a visible window. Calibration needs
// a visible window; headless is for unattended replay on a prepared setup.
func WithHeadless(headless bool) Option {
	return func(d *Driver) {
		d.headless = headless
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(log logger.Logger) Option {
	return func(d *Driver) {
		if log != nil {
			d.log = log
		}
	}
}

// New creates a Driver. Open must be called before any other operation.
func New(opts ...Option) *Driver {
	d := &Driver{portalURL: DefaultPortalURL, downloadDir: "."}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = logger.Get().Named("desktop")
	}
	return d
}

// Open launches the browser, points it at the portal, routes downloads to
// the configured directory, and installs the pointer tracker.
func (d *Driver) Open(ctx context.Context) error {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", d.headless),
			chromedp.Flag("ignore-certificate-errors", "1"),
			chromedp.NoSandbox,
			chromedp.DisableGPU,
		)...,
	)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	d.browserCtx = browserCtx
	d.cancels = []context.CancelFunc{cancelBrowser, cancelAlloc}

	openCtx, cancel := context.WithTimeout(browserCtx, openTimeout)
	defer cancel()

	err := chromedp.Run(openCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(d.downloadDir),
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(pointerTracker).Do(ctx)
			return err
		}),
		chromedp.Navigate(d.portalURL),
	)
	if err != nil {
		d.Close()
		return fmt.Errorf("open portal: %w", err)
	}
	d.log.Info(ctx, "portal opened",
		logger.String("url", d.portalURL),
		logger.String("download_dir", d.downloadDir),
	)
	return nil
}

// Click presses the primary button at the given viewport position.
func (d *Driver) Click(ctx context.Context, x, y int) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	if err := chromedp.Run(d.browserCtx, chromedp.MouseClickXY(float64(x), float64(y))); err != nil {
		return fmt.Errorf("click at (%d,%d): %w", x, y, err)
	}
	return nil
}

// TypeKey replaces the focused field's content with text: select-all, then
// type.
func (d *Driver) TypeKey(ctx context.Context, text string) error {
	if err := d.ready(ctx); err != nil {
		return err
	}
	err := chromedp.Run(d.browserCtx,
		chromedp.KeyEvent("a", chromedp.KeyModifiers(input.ModifierCtrl)),
		chromedp.KeyEvent(text),
	)
	if err != nil {
		return fmt.Errorf("type into focused field: %w", err)
	}
	return nil
}

// CursorPosition returns the last pointer position seen inside the page.
// It errors until the operator has moved the pointer over the window.
func (d *Driver) CursorPosition(ctx context.Context) (int, int, error) {
	if err := d.ready(ctx); err != nil {
		return 0, 0, err
	}
	var pos *struct {
		X int `json:"x"`
		Y int `json:"y"`
	}
	if err := chromedp.Run(d.browserCtx, chromedp.Evaluate("window.__pointer", &pos)); err != nil {
		return 0, 0, fmt.Errorf("query pointer position: %w", err)
	}
	if pos == nil {
		return 0, 0, errors.New("no pointer activity observed yet")
	}
	return pos.X, pos.Y, nil
}

// Close tears the browser session down.
func (d *Driver) Close() {
	for _, cancel := range d.cancels {
		cancel()
	}
	d.cancels = nil
	d.browserCtx = nil
}

func (d *Driver) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d.browserCtx == nil {
		return errors.New("browser not open: call Open first")
	}
	return nil
}
