package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedRuntime answers evaluations by script, the way a backend hands
// back JSON-decoded values.
type scriptedRuntime struct {
	results map[string]any
	err     error
	args    []any
	closed  bool
	kept    bool
}

func (r *scriptedRuntime) evaluate(_ context.Context, script string, arg any) (any, error) {
	r.args = append(r.args, arg)

	if r.err != nil {
		return nil, r.err
	}

	return r.results[script], nil
}

func (r *scriptedRuntime) navigate(context.Context, string, int) error {
	return r.err
}

func (r *scriptedRuntime) close(keepBrowser bool) error {
	r.closed = true
	r.kept = keepBrowser

	return nil
}

func testManager(rt jsRuntime) *Manager {
	m := NewManager(Params{
		Config: &config.Config{BrowserConfig: &config.BrowserConfig{
			Driver:     DriverPlaywright,
			TargetURL:  "https://labs.google/fx/tools/flow",
			TargetHost: "labs.google",
			Timeout:    1000,
		}},
		Logger: zap.NewNop(),
	})

	if rt != nil {
		m.rt = rt
		m.ready.Store(true)
	}

	return m
}

func TestPingRequiresBrowser(t *testing.T) {
	m := testManager(nil)

	err := m.Ping(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeTransportUnavailable))
	assert.False(t, m.IsReady())
}

func TestPingChecksHost(t *testing.T) {
	rt := &scriptedRuntime{results: map[string]any{
		locationScript: map[string]any{"href": "https://example.com/", "host": "example.com", "readyState": "complete"},
	}}
	m := testManager(rt)

	err := m.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeTransportUnavailable))
	assert.Equal(t, "target_page_not_loaded", apperr.Reason(err))

	rt.results[locationScript] = map[string]any{"href": "https://labs.google/fx/tools/flow", "host": "labs.google", "readyState": "complete"}
	assert.NoError(t, m.Ping(context.Background()))

	rt.err = errors.New("target closed")
	assert.True(t, apperr.Is(m.Ping(context.Background()), apperr.CodeTransportUnavailable))
}

func TestSnapshotDecodesElements(t *testing.T) {
	rt := &scriptedRuntime{results: map[string]any{
		snapshotScript: []any{
			map[string]any{
				"handle": "tbs-1", "tag": "button", "text": "Extend", "disabled": true,
				"box": map[string]any{"x": 10.0, "y": 700.0, "width": 80.0, "height": 30.0},
			},
		},
	}}
	m := testManager(rt)

	els, err := m.Snapshot(context.Background(), []string{"button"})
	require.NoError(t, err)
	require.Len(t, els, 1)

	assert.Equal(t, entity.Element{
		Handle:      "tbs-1",
		Tag:         "button",
		Text:        "Extend",
		Disabled:    true,
		BoundingBox: entity.BoundingBox{X: 10, Y: 700, Width: 80, Height: 30},
	}, els[0])
	assert.Equal(t, []string{"button"}, rt.args[0])
}

func TestInteractionErrors(t *testing.T) {
	rt := &scriptedRuntime{results: map[string]any{
		clickScript:    map[string]any{"ok": false, "reason": "stale_handle"},
		setValueScript: map[string]any{"ok": false, "reason": "not_editable"},
		pressKeyScript: map[string]any{"ok": true},
	}}
	m := testManager(rt)

	err := m.Click(context.Background(), "tbs-3")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	err = m.SetValue(context.Background(), "tbs-4", "hello")
	assert.True(t, apperr.Is(err, apperr.CodeActionFailed))

	assert.NoError(t, m.PressKey(context.Background(), "", "End"))

	rt.err = errors.New("execution context was destroyed")
	assert.True(t, apperr.Is(m.Click(context.Background(), "tbs-3"), apperr.CodeActionFailed))
}

func TestAttachFileSendsBase64(t *testing.T) {
	rt := &scriptedRuntime{results: map[string]any{
		attachFileScript: map[string]any{"ok": true},
	}}
	m := testManager(rt)

	err := m.AttachFile(context.Background(), "tbs-9", entity.ImageFile{Name: "a.png", MimeType: "image/png", Data: []byte("png")})
	require.NoError(t, err)

	arg, ok := rt.args[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png")), arg["data"])
	assert.Equal(t, "image/png", arg["type"])
}

func TestNotReadyInteractions(t *testing.T) {
	m := testManager(nil)

	_, err := m.Snapshot(context.Background(), []string{"div"})
	assert.True(t, apperr.Is(err, apperr.CodeBrowserNotReady))
	assert.True(t, apperr.Is(m.Click(context.Background(), "tbs-1"), apperr.CodeBrowserNotReady))
	assert.True(t, apperr.Is(m.Navigate(context.Background()), apperr.CodeBrowserNotReady))
}

func TestLaunchUnknownDriver(t *testing.T) {
	m := testManager(nil)
	m.config.BrowserConfig.Driver = "selenium"
	m.config.BrowserConfig.UserDataDir = t.TempDir()

	err := m.Launch(context.Background())
	assert.True(t, apperr.Is(err, apperr.CodeInvalidArgument))
	assert.False(t, m.IsReady())
}

func TestCloseKeepsPersistentBrowser(t *testing.T) {
	rt := &scriptedRuntime{}
	m := testManager(rt)
	m.config.BrowserConfig.UserDataDir = "./profile"

	require.NoError(t, m.Close(context.Background()))
	assert.True(t, rt.closed)
	assert.True(t, rt.kept)
	assert.False(t, m.IsReady())
}
