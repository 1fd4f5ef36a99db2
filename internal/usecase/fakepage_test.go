package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"
)

// fakePage is an in-memory host page. It renders its state into element
// snapshots and reacts to clicks, typing and key presses the way the live
// page does, closely enough for the orchestrator to drive it.
type fakePage struct {
	mu sync.Mutex

	// failure switches
	pingErr         error
	pingGate        chan struct{}
	pingEntered     chan struct{}
	extendBroken    bool
	disabledPrompts map[string]bool
	noDownload      bool
	cropBroken      bool
	panicOnClick    string

	// page state
	mode         entity.Mode
	clips        int
	prompt       string
	extendActive bool
	modeMenu     bool
	settingsOpen bool
	outputsMenu  bool
	aspectMenu   bool
	outputs      string
	aspect       string
	fileInput    bool
	cropOpen     bool
	images       []string
	downloadMenu bool
	rendered     bool
	downloaded   bool

	// recorded traffic
	snapshots int
	clicks    []string
	prompts   []string
	keys      []string
}

func newFakePage() *fakePage {
	return &fakePage{
		mode:            entity.ModeTextToVideo,
		clips:           2,
		outputs:         "1",
		aspect:          "Landscape",
		disabledPrompts: map[string]bool{},
	}
}

func (p *fakePage) Launch(context.Context) error   { return nil }
func (p *fakePage) Close(context.Context) error    { return nil }
func (p *fakePage) Navigate(context.Context) error { return nil }
func (p *fakePage) IsReady() bool                  { return true }

func (p *fakePage) Ping(ctx context.Context) error {
	if p.pingEntered != nil {
		close(p.pingEntered)
	}

	if p.pingGate != nil {
		select {
		case <-p.pingGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return p.pingErr
}

func (p *fakePage) BodyText(context.Context) (string, error) {
	return "", nil
}

func (p *fakePage) Snapshot(_ context.Context, selectors []string) ([]entity.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snapshots++

	var out []entity.Element

	for _, el := range p.render() {
		for _, sel := range selectors {
			if selects(sel, el) {
				out = append(out, el)

				break
			}
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

func (p *fakePage) render() []entity.Element {
	els := []entity.Element{
		{Handle: "mode", Tag: "button", Text: string(p.mode), BoundingBox: box(400, 980, 180, 40)},
		{Handle: "clear", Tag: "button", HTML: `<i>delete_sweep</i>`, BoundingBox: box(1700, 520, 40, 40)},
		{Handle: "settings", Tag: "button", HTML: `<i>tune</i>`, BoundingBox: box(1500, 980, 40, 40)},
		{Handle: "add", Tag: "button", Text: "add", BoundingBox: box(300, 300, 40, 40)},
		{Handle: "duration", Tag: "span", Text: fmt.Sprintf("0:%02d", p.clips*8), BoundingBox: box(900, 1040, 60, 20)},
		{
			Handle:      "prompt",
			Tag:         "textarea",
			Text:        p.prompt,
			Placeholder: p.placeholder(),
			BoundingBox: box(400, 900, 800, 60),
		},
		{
			Handle:      "generate",
			Tag:         "button",
			HTML:        `<i>arrow_forward</i>`,
			Disabled:    p.prompt == "" || p.disabledPrompts[p.prompt],
			BoundingBox: box(1300, 920, 40, 40),
		},
	}

	for i := range p.clips {
		els = append(els, entity.Element{
			Handle:      fmt.Sprintf("clip-%d", i),
			Tag:         "div",
			HTML:        `<video src="clip.mp4"></video>`,
			BoundingBox: box(float64(100+i*200), 700, 180, 100),
		})
	}

	if p.clips > 0 {
		els = append(els,
			entity.Element{Handle: "extend", Tag: "button", Text: "Extend", BoundingBox: box(1100, 650, 80, 30)},
			// The dock wrapper carries the Extend label in its text whether or
			// not extend mode is active.
			entity.Element{
				Handle:      "dock",
				Tag:         "div",
				Text:        fmt.Sprintf("Scene %d\nExtend\n0:%02d", p.clips, p.clips*8),
				HTML:        `<div class="scene">Scene</div><button>Extend</button>`,
				BoundingBox: box(0, 620, 1920, 200),
			},
		)
	}

	if !p.noDownload {
		els = append(els, entity.Element{Handle: "download", Tag: "button", HTML: `<i>file_download</i>`, BoundingBox: box(1800, 520, 40, 40)})
	}

	if p.modeMenu {
		for i, m := range entity.Modes {
			els = append(els, entity.Element{Handle: fmt.Sprintf("mode-%d", i), Tag: "div", Role: "option", Text: string(m), BoundingBox: box(400, float64(700+i*40), 180, 30)})
		}
	}

	if p.settingsOpen {
		els = append(els, entity.Element{Handle: "outputs", Tag: "button", Role: "combobox", Text: "Outputs per prompt " + p.outputs, BoundingBox: box(1400, 800, 200, 30)})
	}

	if p.outputsMenu {
		for _, n := range []string{"1", "2", "3", "4"} {
			els = append(els, entity.Element{Handle: "outputs-" + n, Tag: "li", Role: "option", Text: n, BoundingBox: box(1400, 700, 200, 30)})
		}
	}

	if p.settingsOpen || p.cropOpen {
		els = append(els, entity.Element{Handle: "aspect", Tag: "button", Role: "combobox", Text: p.aspect, BoundingBox: box(1400, 760, 200, 30)})
	}

	if p.aspectMenu {
		for _, label := range []string{"Landscape", "Portrait", "Square"} {
			els = append(els, entity.Element{Handle: "aspect-" + strings.ToLower(label), Tag: "li", Role: "option", Text: label, BoundingBox: box(1400, 600, 200, 30)})
		}
	}

	if p.fileInput {
		els = append(els, entity.Element{Handle: "file", Tag: "input", Type: "file", HasFileInput: true})
	}

	if p.cropOpen && !p.cropBroken {
		els = append(els, entity.Element{Handle: "crop", Tag: "button", Text: "Crop and Save", BoundingBox: box(900, 800, 120, 40)})
	}

	if p.downloadMenu {
		els = append(els,
			entity.Element{Handle: "quality-1080", Tag: "div", Role: "menuitem", Text: "Upscaled (1080p)", BoundingBox: box(1700, 400, 200, 30)},
			entity.Element{Handle: "quality-4k", Tag: "div", Role: "menuitem", Text: "4K 1080 x2 (50 credits)", BoundingBox: box(1700, 440, 200, 30)},
		)
	}

	if p.rendered {
		els = append(els, entity.Element{Handle: "dismiss", Tag: "button", Text: "Dismiss", BoundingBox: box(1700, 100, 80, 30)})
	}

	return els
}

func (p *fakePage) placeholder() string {
	if p.extendActive {
		return "What happens next? Extend the scene"
	}

	return "Create a video with text"
}

func (p *fakePage) Click(_ context.Context, handle string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.panicOnClick == handle {
		panic("click on " + handle)
	}

	p.clicks = append(p.clicks, handle)

	switch {
	case handle == "mode":
		p.modeMenu = true
	case strings.HasPrefix(handle, "mode-"):
		var i int
		_, _ = fmt.Sscanf(handle, "mode-%d", &i)
		p.mode = entity.Modes[i]
		p.modeMenu = false
	case handle == "clear":
		p.clips = 0
	case handle == "settings":
		p.settingsOpen = true
	case handle == "outputs":
		p.outputsMenu = true
	case strings.HasPrefix(handle, "outputs-"):
		p.outputs = strings.TrimPrefix(handle, "outputs-")
		p.outputsMenu = false
	case handle == "aspect":
		p.aspectMenu = true
	case strings.HasPrefix(handle, "aspect-"):
		p.aspect = strings.TrimPrefix(handle, "aspect-")
		p.aspectMenu = false
	case handle == "add":
		p.fileInput = true
	case handle == "crop":
		p.cropOpen = false
	case handle == "generate":
		if p.prompt == "" || p.disabledPrompts[p.prompt] {
			return nil
		}

		p.clips++
		p.prompt = ""
		p.extendActive = false
	case strings.HasPrefix(handle, "clip-"):
	case handle == "extend":
		if !p.extendBroken {
			p.extendActive = true
		}
	case handle == "download":
		p.downloadMenu = true
	case strings.HasPrefix(handle, "quality-"):
		p.downloadMenu = false
		p.rendered = true
	case handle == "dismiss":
		p.rendered = false
		p.downloaded = true
	default:
		return apperr.NotFoundError("Click", fmt.Errorf("no element with handle %q", handle))
	}

	return nil
}

func (p *fakePage) SetValue(_ context.Context, handle string, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle != "prompt" {
		return apperr.NotFoundError("SetValue", fmt.Errorf("no element with handle %q", handle))
	}

	p.prompt = value
	p.prompts = append(p.prompts, value)

	return nil
}

func (p *fakePage) AttachFile(_ context.Context, handle string, file entity.ImageFile) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if handle != "file" {
		return apperr.NotFoundError("AttachFile", fmt.Errorf("no file input with handle %q", handle))
	}

	p.fileInput = false
	p.cropOpen = true
	p.images = append(p.images, file.Name)

	return nil
}

func (p *fakePage) PressKey(_ context.Context, _ string, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = append(p.keys, key)

	if key == "Escape" {
		p.settingsOpen = false
		p.outputsMenu = false
		p.aspectMenu = false
	}

	return nil
}
