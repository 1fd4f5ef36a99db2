package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"tb-storyboard/internal/entity"
	"tb-storyboard/internal/locator"
	"tb-storyboard/internal/poller"
)

// FailurePolicy says what a failed phase does to the rest of the run.
type FailurePolicy string

const (
	ContinueRun FailurePolicy = "continue"
	AbortRun    FailurePolicy = "abort"
)

// failurePolicy is consulted only for failed outcomes. UploadImages reports
// failure only when an image was left attached without a confirmed crop;
// images that never got attached are skipped inside the phase.
var failurePolicy = map[entity.PhaseName]FailurePolicy{
	entity.PhaseClearTimeline:     ContinueRun,
	entity.PhaseSwitchMode:        ContinueRun,
	entity.PhaseConfigureSettings: ContinueRun,
	entity.PhaseUploadImages:      AbortRun,
	entity.PhaseGenerateScene:     ContinueRun,
	entity.PhaseVerifyClipCount:   ContinueRun,
	entity.PhaseDownload:          ContinueRun,
}

// run is the state of one storyboard run. Only the orchestrator mutates it.
type run struct {
	req      entity.StoryboardRequest
	journal  *Journal
	result   entity.StoryboardResult
	outcomes []entity.PhaseOutcome
}

type phase struct {
	name entity.PhaseName
	run  func(ctx context.Context, r *run) entity.PhaseOutcome
}

func (s *StoryboardService) pipeline() []phase {
	return []phase{
		{name: entity.PhaseClearTimeline, run: s.clearTimeline},
		{name: entity.PhaseSwitchMode, run: s.switchMode},
		{name: entity.PhaseConfigureSettings, run: s.configureSettings},
		{name: entity.PhaseUploadImages, run: s.uploadImages},
		{name: entity.PhaseGenerateScene, run: s.generateScenes},
		{name: entity.PhaseVerifyClipCount, run: s.verifyClipCount},
		{name: entity.PhaseDownload, run: s.download},
	}
}

func phaseOK(detail string) entity.PhaseOutcome {
	return entity.PhaseOutcome{Succeeded: true, Detail: detail}
}

func phaseFailed(detail string) entity.PhaseOutcome {
	return entity.PhaseOutcome{Detail: detail}
}

func (s *StoryboardService) settle(ctx context.Context, d time.Duration) {
	poller.Sleep(ctx, d)
}

// waitFor polls for q to be present.
func (s *StoryboardService) waitFor(ctx context.Context, q locator.Query, interval, timeout time.Duration) entity.PollResult {
	return poller.Until(ctx, s.sampler.Presence(q), poller.IsTrue, interval, timeout)
}

func (s *StoryboardService) clearTimeline(ctx context.Context, r *run) entity.PhaseOutcome {
	if res := s.executor.Click(ctx, locator.For(locator.RoleClearTimeline)); !res.Succeeded {
		return phaseFailed("timeline clear control unavailable, timeline may already be empty: " + res.Detail)
	}

	s.settle(ctx, s.timing.SettleMedium)

	if res := s.executor.Click(ctx, locator.For(locator.RoleConfirmDialog)); res.Succeeded {
		r.journal.Info(entity.PhaseClearTimeline, "Clear confirmed")
		s.settle(ctx, s.timing.SettleMedium)
	}

	return phaseOK("timeline cleared")
}

func (s *StoryboardService) switchMode(ctx context.Context, r *run) entity.PhaseOutcome {
	mode := string(r.req.Mode)

	current, found, err := s.locator.Find(ctx, locator.For(locator.RoleModeSelector))
	if err != nil {
		return phaseFailed("mode selector unreadable: " + err.Error())
	}

	if !found {
		return phaseFailed("mode selector not found")
	}

	if current.Text == mode {
		return phaseOK("already in " + mode)
	}

	if res := s.executor.Click(ctx, locator.For(locator.RoleModeSelector)); !res.Succeeded {
		return phaseFailed(res.Detail)
	}

	s.settle(ctx, s.timing.SettleMedium)

	if res := s.executor.Click(ctx, locator.For(locator.RoleModeOption).WithText(mode)); !res.Succeeded {
		return phaseFailed(fmt.Sprintf("mode %q not offered: %s", mode, res.Detail))
	}

	s.settle(ctx, s.timing.SettleMedium)

	return phaseOK("switched to " + mode)
}

func (s *StoryboardService) configureSettings(ctx context.Context, r *run) entity.PhaseOutcome {
	if res := s.executor.Click(ctx, locator.For(locator.RoleSettingsButton)); !res.Succeeded {
		return phaseFailed(res.Detail)
	}

	s.settle(ctx, s.timing.SettleMedium)

	// Settings stay open until the panel is dismissed, whatever happens below.
	defer func() {
		s.executor.PressKeyOnFocused(ctx, "Escape")
		s.settle(ctx, s.timing.SettleShort)
	}()

	outputs := strconv.Itoa(r.req.Outputs)

	if res := s.executor.Click(ctx, locator.For(locator.RoleOutputsSelector)); !res.Succeeded {
		return phaseFailed(res.Detail)
	}

	s.settle(ctx, s.timing.SettleShort)

	if res := s.executor.Click(ctx, locator.For(locator.RoleOutputsOption).WithText(outputs)); !res.Succeeded {
		return phaseFailed(fmt.Sprintf("outputs %s not offered: %s", outputs, res.Detail))
	}

	s.settle(ctx, s.timing.SettleShort)

	// With images the ratio is chosen in the crop dialog instead.
	if len(r.req.Images) == 0 {
		if detail, done := s.chooseAspect(ctx, r.req.AspectRatio); !done {
			return phaseFailed(detail)
		}
	}

	return phaseOK(fmt.Sprintf("%s output(s), %s", outputs, r.req.AspectRatio))
}

func (s *StoryboardService) chooseAspect(ctx context.Context, aspect entity.AspectRatio) (string, bool) {
	if res := s.executor.Click(ctx, locator.For(locator.RoleAspectRatioSelector)); !res.Succeeded {
		return res.Detail, false
	}

	s.settle(ctx, s.timing.SettleShort)

	if res := s.executor.Click(ctx, locator.For(locator.RoleAspectRatioOption).WithText(aspect.CropLabel())); !res.Succeeded {
		return fmt.Sprintf("aspect %s not offered: %s", aspect, res.Detail), false
	}

	s.settle(ctx, s.timing.SettleShort)

	return "", true
}

func (s *StoryboardService) uploadImages(ctx context.Context, r *run) entity.PhaseOutcome {
	if len(r.req.Images) == 0 {
		return phaseOK("no images")
	}

	attached := 0

	for i, img := range r.req.Images {
		if ctx.Err() != nil {
			break
		}

		if res := s.executor.Click(ctx, locator.For(locator.RoleAddImage)); !res.Succeeded {
			r.journal.Warn(entity.PhaseUploadImages, "Image %d (%s) skipped: %s", i+1, img.Name, res.Detail)

			continue
		}

		s.settle(ctx, s.timing.SettleMedium)

		if res := s.executor.AttachImage(ctx, img); !res.Succeeded {
			r.journal.Warn(entity.PhaseUploadImages, "Image %d (%s) skipped: %s", i+1, img.Name, res.Detail)
			s.executor.PressKeyOnFocused(ctx, "Escape")

			continue
		}

		// From here on the image is attached and there is no undo.
		crop := s.waitFor(ctx, locator.For(locator.RoleCropAndSave), s.timing.SettleMedium, s.timing.UploadSettle)
		if !crop.Satisfied {
			return phaseFailed(fmt.Sprintf("image %d (%s) attached but crop dialog never appeared", i+1, img.Name))
		}

		if detail, done := s.chooseAspect(ctx, r.req.AspectRatio); !done {
			r.journal.Warn(entity.PhaseUploadImages, "Image %d crop ratio left as is: %s", i+1, detail)
		}

		if res := s.executor.Click(ctx, locator.For(locator.RoleCropAndSave)); !res.Succeeded {
			return phaseFailed(fmt.Sprintf("image %d (%s) attached but crop not confirmed: %s", i+1, img.Name, res.Detail))
		}

		s.settle(ctx, s.timing.SettleLong)

		attached++
		r.journal.Info(entity.PhaseUploadImages, "Image %d (%s) attached", i+1, img.Name)
	}

	return phaseOK(fmt.Sprintf("%d/%d image(s) attached", attached, len(r.req.Images)))
}

func (s *StoryboardService) generateScenes(ctx context.Context, r *run) entity.PhaseOutcome {
	for i, prompt := range r.req.Prompts {
		if ctx.Err() != nil {
			r.journal.Warn(entity.PhaseGenerateScene, "Run cancelled before scene %d", i+1)

			break
		}

		r.journal.Info(entity.PhaseGenerateScene, "Scene %d/%d started", i+1, len(r.req.Prompts))

		if detail, done := s.generateScene(ctx, r, i, prompt); !done {
			r.result.FailedSceneIndices = append(r.result.FailedSceneIndices, i)
			r.journal.Error(entity.PhaseGenerateScene, "Scene %d failed: %s", i+1, detail)

			continue
		}

		r.result.ScenesCompleted++
		r.journal.Success(entity.PhaseGenerateScene, "Scene %d completed", i+1)
	}

	detail := fmt.Sprintf("%d/%d scene(s) completed", r.result.ScenesCompleted, len(r.req.Prompts))
	if r.result.ScenesCompleted == 0 {
		return phaseFailed(detail)
	}

	return phaseOK(detail)
}

// generateScene drives one scene. Scenes after the first completed one
// extend the timeline; until a clip exists there is nothing to extend.
func (s *StoryboardService) generateScene(ctx context.Context, r *run, index int, prompt string) (string, bool) {
	if r.result.ScenesCompleted > 0 {
		if detail, done := s.enterExtendMode(ctx); !done {
			return "extend mode not entered: " + detail, false
		}
	}

	if res := s.executor.SetPrompt(ctx, prompt); !res.Succeeded {
		return res.Detail, false
	}

	s.settle(ctx, s.timing.SettleShort)

	baseline := s.sampler.Baseline(ctx)

	enabled := s.waitFor(ctx, locator.For(locator.RoleGenerateButton), s.timing.SettleShort, s.timing.GenerateEnableTimeout)
	if !enabled.Satisfied {
		return "generate button never enabled", false
	}

	if res := s.executor.Click(ctx, locator.For(locator.RoleGenerateButton)); !res.Succeeded {
		return res.Detail, false
	}

	r.journal.Info(entity.PhaseGenerateScene, "Scene %d generating", index+1)

	done := poller.Until(ctx, s.sampler.Generation, poller.GenerationFinished(baseline),
		s.timing.PollInterval, s.timing.GenerationTimeout)
	if !done.Satisfied {
		return fmt.Sprintf("generation not finished after %s", done.Elapsed.Round(time.Millisecond)), false
	}

	if last, isSample := done.LastObserved.(poller.GenerationSample); isSample && last.Percent >= 100 {
		// 100% is shown before the clip lands on the timeline.
		s.settle(ctx, s.timing.SettleLong)
	}

	s.settle(ctx, s.timing.SettleMedium)

	return "", true
}

func (s *StoryboardService) enterExtendMode(ctx context.Context) (string, bool) {
	if res := s.executor.Click(ctx, locator.For(locator.RoleTimelineClip).WithIndex(-1)); !res.Succeeded {
		return res.Detail, false
	}

	s.settle(ctx, s.timing.SettleShort)

	if res := s.executor.PressKeyOnFocused(ctx, "End"); !res.Succeeded {
		return res.Detail, false
	}

	s.settle(ctx, s.timing.SettleShort)

	if res := s.executor.Click(ctx, locator.For(locator.RoleExtendButton)); !res.Succeeded {
		return res.Detail, false
	}

	confirmed := s.waitFor(ctx, locator.For(locator.RoleExtendIndicator), s.timing.SettleShort, s.timing.ExtendConfirmTimeout)
	if !confirmed.Satisfied {
		return "extend indicator never appeared", false
	}

	return "", true
}

// verifyClipCount compares the timeline with the completed scene count,
// giving the last clip a moment to land. It only reports; nothing is retried.
func (s *StoryboardService) verifyClipCount(ctx context.Context, r *run) entity.PhaseOutcome {
	expected := r.result.ScenesCompleted

	counted := poller.Until(ctx, s.sampler.Counter(locator.For(locator.RoleTimelineClip)),
		func(n int) bool { return n == expected }, s.timing.SettleShort, s.timing.SettleMedium)

	clips, observed := counted.LastObserved.(int)
	if !observed {
		return phaseFailed("timeline unreadable")
	}

	if !counted.Satisfied {
		return phaseFailed(fmt.Sprintf("timeline shows %d clip(s), expected %d", clips, expected))
	}

	return phaseOK(fmt.Sprintf("%d clip(s) on timeline", clips))
}

func (s *StoryboardService) download(ctx context.Context, r *run) entity.PhaseOutcome {
	if r.result.ScenesCompleted == 0 {
		return phaseOK("skipped, nothing to download")
	}

	if res := s.executor.Click(ctx, locator.For(locator.RoleDownloadButton)); !res.Succeeded {
		return phaseFailed(res.Detail)
	}

	s.settle(ctx, s.timing.SettleMedium)

	quality := s.timing.DownloadQuality
	if res := s.executor.Click(ctx, locator.For(locator.RoleQualityOption).WithText(quality)); !res.Succeeded {
		r.journal.Warn(entity.PhaseDownload, "Quality %s not offered, using page default", quality)
	}

	r.journal.Info(entity.PhaseDownload, "Waiting for render")

	rendered := s.waitFor(ctx, locator.For(locator.RoleDismiss), s.timing.DownloadPollInterval, s.timing.DownloadTimeout)
	if !rendered.Satisfied {
		return phaseFailed(fmt.Sprintf("render not finished after %s", rendered.Elapsed.Round(time.Millisecond)))
	}

	s.executor.Click(ctx, locator.For(locator.RoleDismiss))

	return phaseOK("download started")
}
