package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"tb-storyboard/internal/actions"
	"tb-storyboard/internal/config"
	"tb-storyboard/internal/entity"
	"tb-storyboard/internal/locator"
	"tb-storyboard/internal/poller"
	"tb-storyboard/internal/ports"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"
	"tb-storyboard/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	storyboardServiceName = "StoryboardService"
	storyboardTracer      = "usecase.storyboard"
	keptJournals          = 16
)

// StoryboardService runs storyboard requests against the page, one at a time.
type StoryboardService struct {
	timing *config.AutomationConfig
	logger *zap.Logger
	tracer trace.Tracer

	page     ports.PageDriver
	locator  *locator.Locator
	executor *actions.Executor
	sampler  *poller.Sampler

	running sync.Mutex

	journalsMu sync.RWMutex
	journals   map[string]*Journal
	order      []string
}

type StoryboardServiceParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Page   ports.PageDriver
}

func NewStoryboardService(params StoryboardServiceParams) *StoryboardService {
	timing := params.Config.AutomationConfig
	if timing == nil {
		timing = config.DefaultAutomationConfig()
	}

	return newStoryboardService(timing, params.Logger, params.Page)
}

func newStoryboardService(timing *config.AutomationConfig, logger *zap.Logger, page ports.PageDriver) *StoryboardService {
	loc := locator.New(page, logger)

	return &StoryboardService{
		timing:   timing,
		logger:   logger.With(zap.String(logg.Layer, storyboardServiceName)),
		tracer:   otel.Tracer(storyboardTracer),
		page:     page,
		locator:  loc,
		executor: actions.New(page, loc, logger),
		sampler:  poller.NewSampler(page, loc),
		journals: make(map[string]*Journal),
	}
}

// Run executes one storyboard request and reports the outcome. It never
// returns an error: every failure is folded into the result.
func (s *StoryboardService) Run(ctx context.Context, req entity.StoryboardRequest) (result entity.StoryboardResult) {
	const op = "Run"
	logger := s.logger.With(zap.String(logg.Operation, op))

	total := len(req.Prompts)

	if !s.running.TryLock() {
		logger.Warn("Run refused, another run is in progress")

		return entity.FailedResult(total, entity.ErrorBusy)
	}
	defer s.running.Unlock()

	runID := uuid.New().String()
	logger = logger.With(zap.String(logg.RunID, runID))

	var err error

	ctx, step := tracing.StartSpan(ctx, s.tracer, logger, op,
		attribute.String(logg.RunID, runID),
		attribute.Int("total_scenes", total))
	defer func() {
		step.End(err)
	}()

	if err = ValidateRequest(req); err != nil {
		result = entity.FailedResult(total, "invalid request: "+errors.Unwrap(err).Error())
		result.RunID = runID

		return result
	}

	if err = s.page.Ping(ctx); err != nil {
		logger.Warn("Page is not reachable", zap.Error(err))

		result = entity.FailedResult(total, entity.ErrorTransportUnavailable)
		result.RunID = runID

		return result
	}

	journal := NewJournal(runID, s.logger)
	s.keepJournal(journal)

	r := &run{
		req:     req,
		journal: journal,
		result: entity.StoryboardResult{
			RunID:              runID,
			TotalScenes:        total,
			FailedSceneIndices: []int{},
		},
	}

	journal.Info("", "Storyboard started: %d scene(s), mode %q, aspect %s, %d output(s)",
		total, req.Mode, req.AspectRatio, req.Outputs)

	for _, p := range s.pipeline() {
		outcome, fault := s.runPhase(ctx, r, p)
		r.outcomes = append(r.outcomes, outcome)
		step.AddEvent(string(p.name), attribute.Bool("succeeded", outcome.Succeeded))

		if fault != nil {
			err = fault
			r.result.ErrorMessage = "internal fault: " + fault.Error()
			journal.Error(p.name, "%s", r.result.ErrorMessage)

			break
		}

		if outcome.Succeeded {
			continue
		}

		if failurePolicy[p.name] == AbortRun {
			err = apperr.WrapErrorWithReason(op, apperr.CodeActionFailed, outcome.Detail)
			r.result.ErrorMessage = fmt.Sprintf("%s failed: %s", p.name, outcome.Detail)
			journal.Error(p.name, "Run aborted: %s", outcome.Detail)

			break
		}

		journal.Error(p.name, "Phase failed: %s", outcome.Detail)
	}

	if ctx.Err() != nil && r.result.ErrorMessage == "" {
		err = ctx.Err()
		r.result.ErrorMessage = "cancelled: " + ctx.Err().Error()
	}

	r.result.Succeeded = r.result.ScenesCompleted > 0

	if r.result.Succeeded {
		journal.Success("", "Storyboard finished: %d/%d scene(s) completed", r.result.ScenesCompleted, total)
	} else {
		journal.Error("", "Storyboard finished without a completed scene")
	}

	return r.result
}

// runPhase runs one phase and turns a panic inside it into a fault.
func (s *StoryboardService) runPhase(ctx context.Context, r *run, p phase) (outcome entity.PhaseOutcome, fault error) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("Phase panicked",
				zap.String(logg.RunID, r.result.RunID),
				zap.String(logg.Phase, string(p.name)),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))

			fault = fmt.Errorf("%v", rec)
			outcome = entity.PhaseOutcome{Phase: p.name, Detail: fault.Error()}
		}
	}()

	r.journal.Info(p.name, "Phase started")

	outcome = p.run(ctx, r)
	outcome.Phase = p.name

	if outcome.Succeeded {
		r.journal.Success(p.name, "Phase done%s", suffix(outcome.Detail))
	}

	return outcome, nil
}

// Events returns the journal of a recent run.
func (s *StoryboardService) Events(runID string) ([]entity.Event, bool) {
	s.journalsMu.RLock()
	defer s.journalsMu.RUnlock()

	j, ok := s.journals[runID]
	if !ok {
		return nil, false
	}

	return j.Snapshot(), true
}

func (s *StoryboardService) Ping(ctx context.Context) error {
	const op = "Ping"

	if err := s.page.Ping(ctx); err != nil {
		if apperr.CodeOf(err) != "" {
			return err
		}

		return apperr.Wrap(op, apperr.CodeTransportUnavailable, err, map[string]any{
			apperr.MetaStage: apperr.StageRelay,
		})
	}

	return nil
}

func (s *StoryboardService) keepJournal(j *Journal) {
	s.journalsMu.Lock()
	defer s.journalsMu.Unlock()

	s.journals[j.RunID()] = j
	s.order = append(s.order, j.RunID())

	for len(s.order) > keptJournals {
		delete(s.journals, s.order[0])
		s.order = s.order[1:]
	}
}

func suffix(detail string) string {
	if detail == "" {
		return ""
	}

	return ": " + detail
}
