package bootstrap

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/entity"
	"tb-storyboard/internal/ports"
	"tb-storyboard/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// hostPage answers pings only after failPings attempts.
type hostPage struct {
	ports.PageDriver

	mu        sync.Mutex
	failPings int
	pings     int
	closed    bool
}

func (p *hostPage) Launch(context.Context) error { return nil }

func (p *hostPage) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true

	return nil
}

func (p *hostPage) Ping(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pings++
	if p.failPings < 0 || p.pings <= p.failPings {
		return errors.New("host page not open")
	}

	return nil
}

type countingNotifier struct {
	ready  atomic.Int32
	closed atomic.Bool
}

func (n *countingNotifier) NotifyReady(context.Context) { n.ready.Add(1) }
func (n *countingNotifier) Close()                      { n.closed.Store(true) }

type idleRunner struct{}

func (idleRunner) Run(_ context.Context, req entity.StoryboardRequest) entity.StoryboardResult {
	return entity.FailedResult(len(req.Prompts), entity.ErrorTransportUnavailable)
}

func (idleRunner) Events(string) ([]entity.Event, bool) { return nil, false }
func (idleRunner) Ping(context.Context) error           { return nil }

func engineConfig() *config.Config {
	automation := config.DefaultAutomationConfig()
	automation.PollInterval = 5 * time.Millisecond

	return &config.Config{
		AutomationConfig: automation,
		RelayConfig:      &config.RelayConfig{Addr: "127.0.0.1:0", URL: "http://127.0.0.1:0"},
	}
}

func startEngine(t *testing.T, page *hostPage, notifier *countingNotifier) *fxtest.Lifecycle {
	t.Helper()

	cfg := engineConfig()
	server := relay.NewServer(relay.ServerParams{Config: cfg, Logger: zap.NewNop(), Runner: idleRunner{}})

	lc := fxtest.NewLifecycle(t)
	runEngine(lc, cfg, page, server, notifier, zap.NewNop())
	lc.RequireStart()

	return lc
}

func TestEngineAnnouncesReadyWhenPageLoadedAtStart(t *testing.T) {
	page := &hostPage{}
	notifier := &countingNotifier{}

	lc := startEngine(t, page, notifier)
	assert.Equal(t, int32(1), notifier.ready.Load())

	lc.RequireStop()
	assert.True(t, notifier.closed.Load())
	assert.True(t, page.closed)
}

func TestEngineAnnouncesReadyWhenPageOpensLater(t *testing.T) {
	page := &hostPage{failPings: 3}
	notifier := &countingNotifier{}

	lc := startEngine(t, page, notifier)
	assert.Zero(t, notifier.ready.Load(), "page not open at start")

	require.Eventually(t, func() bool { return notifier.ready.Load() == 1 }, time.Second, 5*time.Millisecond)

	lc.RequireStop()
	assert.Equal(t, int32(1), notifier.ready.Load())
}

func TestEngineStopsWaitingForPageOnShutdown(t *testing.T) {
	page := &hostPage{failPings: -1}
	notifier := &countingNotifier{}

	lc := startEngine(t, page, notifier)

	require.Eventually(t, func() bool {
		page.mu.Lock()
		defer page.mu.Unlock()

		return page.pings > 2
	}, time.Second, 5*time.Millisecond)

	lc.RequireStop()
	assert.Zero(t, notifier.ready.Load())
}
