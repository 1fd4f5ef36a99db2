package locator

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"tb-storyboard/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// pageFixture answers snapshots from a captured element list, honouring
// plain tag selectors and [role=x] selectors.
type pageFixture struct {
	elements []entity.Element
	calls    [][]string
	err      error
}

func (p *pageFixture) Snapshot(_ context.Context, selectors []string) ([]entity.Element, error) {
	p.calls = append(p.calls, selectors)
	if p.err != nil {
		return nil, p.err
	}

	var out []entity.Element

	for _, el := range p.elements {
		if slices.ContainsFunc(selectors, func(sel string) bool { return selects(sel, el) }) {
			out = append(out, el)
		}
	}

	return out, nil
}

func selects(sel string, el entity.Element) bool {
	switch {
	case strings.HasPrefix(sel, "[role=") && strings.HasSuffix(sel, "]") && !strings.Contains(sel, " "):
		return el.Role == strings.TrimSuffix(strings.TrimPrefix(sel, "[role="), "]")
	case sel == "input[type=file]":
		return el.Tag == "input" && el.Type == "file"
	default:
		return el.Tag == sel
	}
}

func box(x, y, w, h float64) entity.BoundingBox {
	return entity.BoundingBox{X: x, Y: y, Width: w, Height: h}
}

func TestResolveModeSelectorPrefersBottomDock(t *testing.T) {
	snapshot := []entity.Element{
		{Handle: "top", Tag: "div", Text: "Text to Video", BoundingBox: box(10, 100, 150, 30)},
		{Handle: "wide", Tag: "div", Text: "Text to Video", BoundingBox: box(0, 700, 1200, 80)},
		{Handle: "dock", Tag: "button", Text: "Text to Video", BoundingBox: box(400, 980, 180, 40)},
	}

	el, strategy, ok := Resolve(snapshot, For(RoleModeSelector))
	require.True(t, ok)
	assert.Equal(t, "dock", el.Handle)
	assert.Equal(t, "bottom_docked_mode_label", strategy)
}

func TestResolveGenerateButtonRequiresEnabled(t *testing.T) {
	button := entity.Element{Handle: "gen", Tag: "button", HTML: `<i class="google-symbols">arrow_forward</i>`, Disabled: true}

	_, _, ok := Resolve([]entity.Element{button}, For(RoleGenerateButton))
	assert.False(t, ok)

	button.Disabled = false
	el, strategy, ok := Resolve([]entity.Element{button}, For(RoleGenerateButton))
	require.True(t, ok)
	assert.Equal(t, "gen", el.Handle)
	assert.Equal(t, "arrow_icon", strategy)
}

func TestResolveTimelineClipCollapsesWrappers(t *testing.T) {
	snapshot := []entity.Element{
		{Handle: "c2-outer", Tag: "div", HTML: "<div><video></video></div>", BoundingBox: box(300, 900, 200, 90)},
		{Handle: "c1-outer", Tag: "div", HTML: "<div><video></video></div>", BoundingBox: box(100, 900, 200, 90)},
		{Handle: "c1-inner", Tag: "div", HTML: "<video></video>", BoundingBox: box(102, 902, 160, 86)},
		{Handle: "c2-inner", Tag: "div", HTML: "<img src=x>", BoundingBox: box(301, 902, 160, 86)},
		{Handle: "header", Tag: "div", HTML: "<img src=logo>", BoundingBox: box(10, 10, 100, 40)},
	}

	first, _, ok := Resolve(snapshot, For(RoleTimelineClip))
	require.True(t, ok)
	assert.Equal(t, "c1-inner", first.Handle)

	last, _, ok := Resolve(snapshot, For(RoleTimelineClip).WithIndex(-1))
	require.True(t, ok)
	assert.Equal(t, "c2-inner", last.Handle)

	_, _, ok = Resolve(snapshot, For(RoleTimelineClip).WithIndex(2))
	assert.False(t, ok)
}

func TestResolveQualityOptionSkipsCreditLines(t *testing.T) {
	snapshot := []entity.Element{
		{Handle: "paid", Tag: "div", Text: "Upscaled (1080p) - 50 credits"},
		{Handle: "free", Tag: "span", Text: "Original size (1080p)"},
	}

	el, _, ok := Resolve(snapshot, For(RoleQualityOption).WithText("1080"))
	require.True(t, ok)
	assert.Equal(t, "free", el.Handle)
}

func TestResolveExtendIndicator(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []entity.Element
		want     bool
	}{
		{
			name:     "placeholder",
			snapshot: []entity.Element{{Tag: "textarea", Placeholder: "What happens next? Extend your clip"}},
			want:     true,
		},
		{
			name:     "chip below prompt",
			snapshot: []entity.Element{{Tag: "span", Text: "Extending clip 2", BoundingBox: box(0, 900, 100, 20)}},
			want:     true,
		},
		{
			name:     "extend button alone is not confirmation",
			snapshot: []entity.Element{{Tag: "div", Text: "Extend", BoundingBox: box(0, 900, 100, 20)}},
			want:     false,
		},
		{
			name:     "dock wrapper around the extend button",
			snapshot: []entity.Element{{Tag: "div", Text: "Scene 1\nExtend\n0:08", BoundingBox: box(0, 620, 1920, 200)}},
			want:     false,
		},
		{
			name: "container holding the extend button",
			snapshot: []entity.Element{{
				Tag:         "div",
				Text:        "Extend clip",
				HTML:        `<button>Extend</button><span>clip</span>`,
				BoundingBox: box(0, 620, 400, 40),
			}},
			want: false,
		},
		{
			name:     "plain prompt",
			snapshot: []entity.Element{{Tag: "textarea", Placeholder: "Create a video with text"}},
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, ok := Resolve(tt.snapshot, For(RoleExtendIndicator))
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestResolveAspectRatioOptionIsCaseInsensitive(t *testing.T) {
	snapshot := []entity.Element{
		{Handle: "combo", Tag: "div", Role: "combobox", Text: "Landscape"},
		{Handle: "opt", Tag: "li", Text: "Portrait (9:16)"},
	}

	el, _, ok := Resolve(snapshot, For(RoleAspectRatioOption).WithText("portrait"))
	require.True(t, ok)
	assert.Equal(t, "opt", el.Handle)
}

func TestFindFallsBackInOrderWithoutAggregating(t *testing.T) {
	page := &pageFixture{elements: []entity.Element{
		{Handle: "a", Tag: "textarea", BoundingBox: box(0, 100, 600, 80)},
		{Handle: "b", Tag: "textarea", BoundingBox: box(0, 200, 600, 80)},
	}}
	loc := New(page, zap.NewNop())

	el, ok, err := loc.Find(context.Background(), For(RolePromptInput))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", el.Handle)
	assert.Len(t, page.calls, 2, "first strategy misses, second hits")

	n, err := loc.Count(context.Background(), For(RolePromptInput))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFindNotFoundIsNotAnError(t *testing.T) {
	loc := New(&pageFixture{}, zap.NewNop())

	_, ok, err := loc.Find(context.Background(), For(RoleCropAndSave))
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := loc.Count(context.Background(), For(RoleReadyMarker))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFindPropagatesSnapshotErrors(t *testing.T) {
	boom := errors.New("page crashed")
	loc := New(&pageFixture{err: boom}, zap.NewNop())

	_, ok, err := loc.Find(context.Background(), For(RoleDismiss))
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestEveryRoleHasStrategies(t *testing.T) {
	every := []Role{
		RoleModeSelector, RoleModeOption, RoleClearTimeline, RoleConfirmDialog, RoleSettingsButton,
		RoleOutputsSelector, RoleOutputsOption, RoleAddImage, RoleFileInput, RoleAspectRatioSelector,
		RoleAspectRatioOption, RoleCropAndSave, RolePromptInput, RoleGenerateButton, RoleTimelineClip,
		RoleExtendButton, RoleExtendIndicator, RoleReadyMarker, RoleDurationReadout, RoleDownloadButton,
		RoleQualityOption, RoleDismiss,
	}

	for _, role := range every {
		strategies := Strategies(role)
		require.NotEmpty(t, strategies, role.String())

		for _, s := range strategies {
			assert.NotEmpty(t, s.Name, role.String())
			assert.NotEmpty(t, s.Selectors, role.String())
			assert.NotNil(t, s.Match, role.String())
		}
	}
}
