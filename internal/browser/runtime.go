package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"
)

// jsRuntime is the minimum a browser backend must offer: every page
// interaction the engine performs is a script evaluated in the page.
type jsRuntime interface {
	evaluate(ctx context.Context, script string, arg any) (any, error)
	navigate(ctx context.Context, url string, timeoutMs int) error
	close(keepBrowser bool) error
}

type playwrightRuntime struct {
	logger         *zap.Logger
	playwright     *playwright.Playwright
	browser        playwright.Browser
	browserContext playwright.BrowserContext

	// mu guards page: a ping may reconnect while a run is evaluating.
	mu   sync.Mutex
	page playwright.Page
}

// activePage returns an open page, reattaching to another tab or opening a
// new one when the current page was closed.
func (r *playwrightRuntime) activePage() (playwright.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserContext == nil {
		return nil, fmt.Errorf("browser context is nil")
	}

	if r.page != nil && !r.page.IsClosed() {
		return r.page, nil
	}

	r.logger.Info("Page closed, reconnecting to active page...")

	for _, p := range r.browserContext.Pages() {
		if !p.IsClosed() {
			r.page = p
			r.logger.Info("Reconnected to existing page")

			return p, nil
		}
	}

	page, err := r.browserContext.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	r.page = page
	r.logger.Info("Created new page")

	return page, nil
}

func (r *playwrightRuntime) evaluate(_ context.Context, script string, arg any) (any, error) {
	page, err := r.activePage()
	if err != nil {
		return nil, err
	}

	if arg == nil {
		return page.Evaluate(script)
	}

	return page.Evaluate(script, arg)
}

func (r *playwrightRuntime) navigate(_ context.Context, url string, timeoutMs int) error {
	page, err := r.activePage()
	if err != nil {
		return err
	}

	_, err = page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(float64(timeoutMs)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})

	return err
}

func (r *playwrightRuntime) close(keepBrowser bool) error {
	if keepBrowser {
		return nil
	}

	if r.browserContext != nil {
		if err := r.browserContext.Close(); err != nil {
			r.logger.Warn("Failed to close context", zap.Error(err))
		}
	}

	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			r.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if r.playwright != nil {
		return r.playwright.Stop()
	}

	return nil
}

type rodRuntime struct {
	logger   *zap.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

func (r *rodRuntime) evaluate(ctx context.Context, script string, arg any) (any, error) {
	if r.page == nil {
		return nil, fmt.Errorf("page is nil")
	}

	var (
		res *proto.RuntimeRemoteObject
		err error
	)

	if arg == nil {
		res, err = r.page.Context(ctx).Eval(script)
	} else {
		res, err = r.page.Context(ctx).Eval(script, arg)
	}

	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(res.Value)
	if err != nil {
		return nil, fmt.Errorf("encode eval result: %w", err)
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode eval result: %w", err)
	}

	return out, nil
}

func (r *rodRuntime) navigate(ctx context.Context, url string, _ int) error {
	if r.page == nil {
		return fmt.Errorf("page is nil")
	}

	page := r.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}

	return page.WaitLoad()
}

func (r *rodRuntime) close(keepBrowser bool) error {
	if keepBrowser {
		return nil
	}

	if r.browser != nil {
		if err := r.browser.Close(); err != nil {
			r.logger.Warn("Failed to close browser", zap.Error(err))
		}
	}

	if r.launcher != nil {
		r.launcher.Cleanup()
	}

	return nil
}

// decodeInto converts a loosely typed evaluation result into out.
func decodeInto(raw any, out any) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

func ensureDir(dir string) error {
	if dir == "" {
		return nil
	}

	return os.MkdirAll(dir, 0755)
}
