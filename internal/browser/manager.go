package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"
	"tb-storyboard/pkg/tracing"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	browserManagerName = "BrowserManager"
	browserTracer      = "browser.manager"
	userAgent          = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

// Manager owns the browser showing the host page and implements
// ports.PageDriver on top of whichever backend is configured.
type Manager struct {
	config *config.Config
	logger *zap.Logger
	tracer trace.Tracer
	rt     jsRuntime
	ready  atomic.Bool
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewManager(params Params) *Manager {
	return &Manager{
		config: params.Config,
		logger: params.Logger.With(zap.String(logg.Layer, browserManagerName)),
		tracer: otel.Tracer(browserTracer),
	}
}

type scriptResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

type pageLocation struct {
	Href       string `json:"href"`
	Host       string `json:"host"`
	ReadyState string `json:"readyState"`
}

func (m *Manager) Launch(ctx context.Context) (err error) {
	const op = "Launch"
	driver := m.config.BrowserConfig.Driver
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Driver, driver))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("driver", driver))
	defer func() {
		step.End(err)
	}()

	logger.Info("Launching browser...")

	if err := ensureDir(m.config.BrowserConfig.UserDataDir); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "mkdir_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	switch driver {
	case DriverRod:
		err = m.launchRod(ctx)
	case DriverPlaywright, "":
		err = m.launchPlaywright(ctx)
	default:
		return apperr.InvalidReqError(op, "BROWSER_DRIVER", fmt.Errorf("unknown browser driver %q", driver))
	}

	if err != nil {
		return err
	}

	m.ready.Store(true)
	logger.Info("Browser launched successfully")

	if err := m.Navigate(ctx); err != nil {
		logger.Warn("Initial navigation failed, page must be opened manually", zap.Error(err))
	}

	return nil
}

func (m *Manager) launchPlaywright(ctx context.Context) (err error) {
	const op = "launchPlaywright"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	step.AddEvent("installing playwright")

	if err := playwright.Install(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_install_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	step.AddEvent("starting playwright")

	pw, err := playwright.Run()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "playwright_start_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	rt := &playwrightRuntime{logger: logger, playwright: pw}
	browserConfig := m.config.BrowserConfig

	if browserConfig.UserDataDir != "" {
		logger.Info("Launching persistent browser context")

		browserContext, err := pw.Chromium.LaunchPersistentContext(browserConfig.UserDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless:          playwright.Bool(browserConfig.Headless),
			SlowMo:            playwright.Float(float64(browserConfig.SlowMo)),
			Viewport:          &playwright.Size{Width: 1920, Height: 1080},
			UserAgent:         playwright.String(userAgent),
			AcceptDownloads:   playwright.Bool(true),
			JavaScriptEnabled: playwright.Bool(true),
			Args: []string{
				"--disable-blink-features=AutomationControlled",
				"--disable-dev-shm-usage",
				"--window-size=1920,1080",
			},
		})
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "launch_persistent_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}

		rt.browserContext = browserContext
	} else {
		logger.Info("Launching new browser")

		browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(browserConfig.Headless),
			SlowMo:   playwright.Float(float64(browserConfig.SlowMo)),
			Args: []string{
				"--disable-blink-features=AutomationControlled",
			},
		})
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "browser_launch_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}

		rt.browser = browser

		browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
			Viewport:          &playwright.Size{Width: 1920, Height: 1080},
			UserAgent:         playwright.String(userAgent),
			AcceptDownloads:   playwright.Bool(true),
			JavaScriptEnabled: playwright.Bool(true),
		})
		if err != nil {
			return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
				apperr.MetaReason: "context_create_failed",
				apperr.MetaStage:  apperr.StageBrowser,
			})
		}

		rt.browserContext = browserContext
	}

	if _, err := rt.activePage(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "new_page_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	m.rt = rt

	return nil
}

func (m *Manager) launchRod(ctx context.Context) (err error) {
	const op = "launchRod"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	browserConfig := m.config.BrowserConfig

	l := launcher.New().Headless(browserConfig.Headless).Set("disable-blink-features", "AutomationControlled")
	if browserConfig.UserDataDir != "" {
		l = l.UserDataDir(browserConfig.UserDataDir)
	}

	step.AddEvent("launching chromium")

	controlURL, err := l.Launch()
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "rod_launch_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	browser := rod.New().ControlURL(controlURL)
	if browserConfig.SlowMo > 0 {
		browser = browser.SlowMotion(time.Duration(browserConfig.SlowMo) * time.Millisecond)
	}

	if err := browser.Connect(); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "rod_connect_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "page_create_failed",
			apperr.MetaStage:  apperr.StageBrowser,
		})
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{Width: 1920, Height: 1080, DeviceScaleFactor: 1}); err != nil {
		logger.Warn("Failed to set viewport", zap.Error(err))
	}

	m.rt = &rodRuntime{logger: logger, launcher: l, browser: browser, page: page}

	return nil
}

func (m *Manager) Close(ctx context.Context) (err error) {
	const op = "Close"
	logger := m.logger.With(zap.String(logg.Operation, op))

	_, step := tracing.StartSpan(ctx, m.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	m.ready.Store(false)

	if m.rt == nil {
		return nil
	}

	keep := m.config.BrowserConfig.UserDataDir != ""
	if keep {
		logger.Info("Persistent browser - keeping it open")
	}

	if err := m.rt.close(keep); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "browser_stop_failed",
		})
	}

	logger.Info("Browser connection closed")

	return nil
}

func (m *Manager) IsReady() bool {
	return m.ready.Load() && m.rt != nil
}

func (m *Manager) Navigate(ctx context.Context) (err error) {
	const op = "Navigate"
	url := m.config.BrowserConfig.TargetURL
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.URL, url))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("url", url))
	defer func() {
		step.End(err)
	}()

	if !m.IsReady() {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	if err := m.rt.navigate(ctx, url, m.config.BrowserConfig.Timeout); err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "goto_failed",
			apperr.MetaStage:  apperr.StageNavigation,
			apperr.MetaURL:    url,
		})
	}

	return nil
}

// Ping fails with CodeTransportUnavailable unless the browser is up and the
// current page belongs to the target host.
func (m *Manager) Ping(ctx context.Context) (err error) {
	const op = "Ping"

	if !m.IsReady() {
		return apperr.WrapErrorWithReason(op, apperr.CodeTransportUnavailable, "browser_not_ready")
	}

	raw, err := m.rt.evaluate(ctx, locationScript, nil)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTransportUnavailable, err, map[string]any{
			apperr.MetaReason: "page_unreachable",
		})
	}

	var loc pageLocation
	if err := decodeInto(raw, &loc); err != nil {
		return apperr.Wrap(op, apperr.CodeTransportUnavailable, err, map[string]any{
			apperr.MetaReason: "unexpected_result_type",
		})
	}

	if !strings.Contains(loc.Host, m.config.BrowserConfig.TargetHost) {
		return apperr.Wrap(op, apperr.CodeTransportUnavailable, fmt.Errorf("page %s is not on %s", loc.Href, m.config.BrowserConfig.TargetHost), map[string]any{
			apperr.MetaReason: "target_page_not_loaded",
			apperr.MetaURL:    loc.Href,
		})
	}

	return nil
}

func (m *Manager) Snapshot(ctx context.Context, tags []string) (elements []entity.Element, err error) {
	const op = "Snapshot"

	if !m.IsReady() {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	raw, err := m.rt.evaluate(ctx, snapshotScript, tags)
	if err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	if err := decodeInto(raw, &elements); err != nil {
		return nil, apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unexpected_result_type",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	return elements, nil
}

func (m *Manager) BodyText(ctx context.Context) (string, error) {
	const op = "BodyText"

	if !m.IsReady() {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	raw, err := m.rt.evaluate(ctx, bodyTextScript, nil)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageSnapshot,
		})
	}

	text, _ := raw.(string)

	return text, nil
}

func (m *Manager) Click(ctx context.Context, handle string) error {
	return m.interact(ctx, "Click", clickScript, handle, map[string]any{"handle": handle})
}

func (m *Manager) SetValue(ctx context.Context, handle, value string) error {
	return m.interact(ctx, "SetValue", setValueScript, handle, map[string]any{
		"handle": handle,
		"value":  value,
	})
}

func (m *Manager) AttachFile(ctx context.Context, handle string, file entity.ImageFile) error {
	return m.interact(ctx, "AttachFile", attachFileScript, handle, map[string]any{
		"handle": handle,
		"name":   file.Name,
		"type":   file.MimeType,
		"data":   base64.StdEncoding.EncodeToString(file.Data),
	})
}

// PressKey dispatches key on the element, or on the focused element when
// handle is empty.
func (m *Manager) PressKey(ctx context.Context, handle, key string) error {
	return m.interact(ctx, "PressKey", pressKeyScript, handle, map[string]any{
		"handle": handle,
		"key":    key,
	})
}

func (m *Manager) interact(ctx context.Context, op, script, handle string, arg map[string]any) (err error) {
	logger := m.logger.With(zap.String(logg.Operation, op), zap.String(logg.Handle, handle))

	ctx, step := tracing.StartSpan(ctx, m.tracer, logger, op, attribute.String("handle", handle))
	defer func() {
		step.End(err)
	}()

	if !m.IsReady() {
		return apperr.WrapErrorWithReason(op, apperr.CodeBrowserNotReady, "browser_not_ready")
	}

	raw, err := m.rt.evaluate(ctx, script, arg)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeActionFailed, err, map[string]any{
			apperr.MetaReason: "evaluate_failed",
			apperr.MetaStage:  apperr.StageInteraction,
			apperr.MetaHandle: handle,
		})
	}

	var res scriptResult
	if err := decodeInto(raw, &res); err != nil {
		return apperr.Wrap(op, apperr.CodeInternal, err, map[string]any{
			apperr.MetaReason: "unexpected_result_type",
		})
	}

	return scriptError(op, handle, res)
}

func scriptError(op, handle string, res scriptResult) error {
	if res.OK {
		return nil
	}

	if res.Reason == "stale_handle" || res.Reason == "no_file_input" {
		return apperr.Wrap(op, apperr.CodeNotFound, fmt.Errorf("element %s: %s", handle, res.Reason), map[string]any{
			apperr.MetaReason: res.Reason,
			apperr.MetaHandle: handle,
		})
	}

	return apperr.Wrap(op, apperr.CodeActionFailed, fmt.Errorf("element %s: %s", handle, res.Reason), map[string]any{
		apperr.MetaReason: "script_failed",
		apperr.MetaStage:  apperr.StageInteraction,
		apperr.MetaHandle: handle,
	})
}
