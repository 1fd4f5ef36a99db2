package poller

import (
	"context"
	"regexp"
	"strconv"

	"tb-storyboard/internal/locator"
)

var (
	percentPattern = regexp.MustCompile(`(\d+)\s*%`)
	clockPattern   = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

// GenerationSample is one reading of the page while a clip renders. -1
// marks a readout that was not on the page.
type GenerationSample struct {
	Percent         int
	DurationSeconds int
	ReadyCount      int
}

// Baseline is what the page showed before generation was triggered.
type Baseline struct {
	DurationSeconds int
	ReadyCount      int
}

type BodyTexter interface {
	BodyText(ctx context.Context) (string, error)
}

// Sampler reads page state for pollers. Sampling never mutates the page.
type Sampler struct {
	page    BodyTexter
	locator *locator.Locator
}

func NewSampler(page BodyTexter, loc *locator.Locator) *Sampler {
	return &Sampler{page: page, locator: loc}
}

func (s *Sampler) Generation(ctx context.Context) (GenerationSample, error) {
	sample := GenerationSample{Percent: -1, DurationSeconds: -1}

	text, err := s.page.BodyText(ctx)
	if err != nil {
		return sample, err
	}

	sample.Percent = ParsePercent(text)

	duration, err := s.Duration(ctx)
	if err != nil {
		return sample, err
	}

	sample.DurationSeconds = duration

	count, err := s.locator.Count(ctx, locator.For(locator.RoleReadyMarker))
	if err != nil {
		return sample, err
	}

	sample.ReadyCount = count

	return sample, nil
}

// Duration reads the timeline length readout in seconds, -1 if absent.
func (s *Sampler) Duration(ctx context.Context) (int, error) {
	el, found, err := s.locator.Find(ctx, locator.For(locator.RoleDurationReadout))
	if err != nil || !found {
		return -1, err
	}

	return ParseClock(el.Text), nil
}

// Baseline captures the readings generation progress is measured against.
// Unreadable values fall back to "absent".
func (s *Sampler) Baseline(ctx context.Context) Baseline {
	b := Baseline{DurationSeconds: -1}

	if d, err := s.Duration(ctx); err == nil {
		b.DurationSeconds = d
	}

	if n, err := s.locator.Count(ctx, locator.For(locator.RoleReadyMarker)); err == nil {
		b.ReadyCount = n
	}

	return b
}

// Presence samples whether q currently resolves to an element.
func (s *Sampler) Presence(q locator.Query) func(ctx context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		_, found, err := s.locator.Find(ctx, q)

		return found, err
	}
}

// Counter samples how many elements q currently resolves to.
func (s *Sampler) Counter(q locator.Query) func(ctx context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		return s.locator.Count(ctx, q)
	}
}

func IsTrue(v bool) bool {
	return v
}

func ProgressComplete() func(GenerationSample) bool {
	return func(s GenerationSample) bool {
		return s.Percent >= 100
	}
}

func DurationGrew(b Baseline) func(GenerationSample) bool {
	return func(s GenerationSample) bool {
		return s.DurationSeconds >= 0 && s.DurationSeconds > b.DurationSeconds
	}
}

func ReadyCountGrew(b Baseline) func(GenerationSample) bool {
	return func(s GenerationSample) bool {
		return s.ReadyCount > b.ReadyCount
	}
}

// GenerationFinished holds when progress reached 100, the timeline got
// longer, or more ready markers are shown than at baseline.
func GenerationFinished(b Baseline) func(GenerationSample) bool {
	return AnyOf(ProgressComplete(), DurationGrew(b), ReadyCountGrew(b))
}

// ParsePercent returns the first 0-100 percentage in text, or -1.
func ParsePercent(text string) int {
	m := percentPattern.FindStringSubmatch(text)
	if m == nil {
		return -1
	}

	n, err := strconv.Atoi(m[1])
	if err != nil || n < 0 || n > 100 {
		return -1
	}

	return n
}

// ParseClock returns the largest m:ss value in text in seconds, or -1.
// "0:08 / 0:16" reads as 16.
func ParseClock(text string) int {
	best := -1

	for _, m := range clockPattern.FindAllStringSubmatch(text, -1) {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])

		if total := minutes*60 + seconds; total > best {
			best = total
		}
	}

	return best
}
