// Package browser owns the headless-browser lifecycle: one session per
// extraction request, launched, used and torn down within the same call.
package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Patches the JS properties bot checks look at before any page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
`

type Options struct {
	Headless       bool
	UserAgent      string
	AcceptLanguage string
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration
	ReadyTimeout   time.Duration
	ProxyURL       string
}

func (o *Options) applyDefaults() {
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.AcceptLanguage == "" {
		o.AcceptLanguage = "en-US,en;q=0.9"
	}
	if o.ViewportWidth == 0 {
		o.ViewportWidth = 1920
	}
	if o.ViewportHeight == 0 {
		o.ViewportHeight = 1080
	}
	if o.NavTimeout == 0 {
		o.NavTimeout = 90 * time.Second
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = 8 * time.Second
	}
}

// Manager launches one disposable browser session per request.
type Manager struct {
	opts Options
}

func NewManager(opts Options) *Manager {
	opts.applyDefaults()
	return &Manager{opts: opts}
}

// Session is one live page. Close is safe to call more than once and must be
// called on every exit path.
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	opts    Options

	closeOnce sync.Once
}

// Launch starts the browser with flags for a constrained container and a
// context dressed up as a desktop visitor.
func (m *Manager) Launch(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-gpu",
			"--disable-dev-shm-usage",
			"--disable-background-timer-throttling",
			"--disable-blink-features=AutomationControlled",
		},
	}
	if m.opts.ProxyURL != "" {
		launchOpts.Proxy = &playwright.Proxy{Server: m.opts.ProxyURL}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(m.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  m.opts.ViewportWidth,
			Height: m.opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept-Language": m.opts.AcceptLanguage,
		},
	})
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create context: %w", err)
	}

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		log.Printf("Warning: could not add init script: %v", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &Session{pw: pw, browser: browser, page: page, opts: m.opts}, nil
}

// gotoFunc matches page.Goto, so the retry policy is testable without a
// live browser.
type gotoFunc func(url string, options ...playwright.PageGotoOptions) (playwright.Response, error)

// Navigate loads the URL waiting for network idle; on timeout it retries once
// waiting only for domcontentloaded before giving up.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return navigate(url, s.page.Goto, s.opts.NavTimeout)
}

// navigate makes the networkidle attempt with the full budget, then the
// relaxed domcontentloaded retry with a third of it, keeping the worst case
// near one timeout instead of two.
func navigate(url string, visit gotoFunc, timeout time.Duration) error {
	_, err := visit(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err == nil {
		return nil
	}
	log.Printf("Navigation with networkidle failed, retrying with domcontentloaded: %v", err)

	_, err = visit(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeout.Milliseconds() / 3)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// WaitForContent waits for either a structured-data block or a price-looking
// node to appear, bounded by the ready timeout. The cascade tolerates neither
// ever showing up, so the outcome is ignored.
func (s *Session) WaitForContent(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := s.page.Locator(`script[type="application/ld+json"], [itemprop="price"], [class*="price"], [class*="Price"]`).
		First().
		WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateAttached,
			Timeout: playwright.Float(float64(s.opts.ReadyTimeout.Milliseconds())),
		})
	if err != nil {
		log.Printf("No structured-data or price marker within %s, extracting anyway", s.opts.ReadyTimeout)
	}
}

// Content returns the current serialized DOM.
func (s *Session) Content() (string, error) {
	html, err := s.page.Content()
	if err != nil {
		return "", fmt.Errorf("read page content: %w", err)
	}
	return html, nil
}

// Close tears the whole stack down: page, browser, driver. Exactly-once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.page != nil {
			s.page.Close()
		}
		if s.browser != nil {
			s.browser.Close()
		}
		if s.pw != nil {
			s.pw.Stop()
		}
	})
}
