package actions

import (
	"context"
	"fmt"

	"tb-storyboard/internal/entity"
	"tb-storyboard/internal/locator"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"

	"go.uber.org/zap"
)

const executorName = "ActionExecutor"

// Page is the part of the page driver executors act through.
type Page interface {
	locator.Snapshotter
	Click(ctx context.Context, handle string) error
	SetValue(ctx context.Context, handle string, value string) error
	AttachFile(ctx context.Context, handle string, file entity.ImageFile) error
	PressKey(ctx context.Context, handle string, key string) error
}

// Executor performs single interactions: locate one element, act on it
// once, report the outcome. It never waits for the page and never retries.
type Executor struct {
	page    Page
	locator *locator.Locator
	logger  *zap.Logger
}

func New(page Page, loc *locator.Locator, logger *zap.Logger) *Executor {
	return &Executor{
		page:    page,
		locator: loc,
		logger:  logger.With(zap.String(logg.Layer, executorName)),
	}
}

func (e *Executor) Click(ctx context.Context, q locator.Query) entity.ActionOutcome {
	return e.act(ctx, "click", q, func(el entity.Element) error {
		return e.page.Click(ctx, el.Handle)
	})
}

// SetPrompt writes text into the prompt field the way a keystroke would.
func (e *Executor) SetPrompt(ctx context.Context, text string) entity.ActionOutcome {
	return e.act(ctx, "set prompt", locator.For(locator.RolePromptInput), func(el entity.Element) error {
		return e.page.SetValue(ctx, el.Handle, text)
	})
}

// AttachImage injects img into the page's file input. There is no undo: a
// later failure leaves the file attached.
func (e *Executor) AttachImage(ctx context.Context, img entity.ImageFile) entity.ActionOutcome {
	return e.act(ctx, "attach image", locator.For(locator.RoleFileInput), func(el entity.Element) error {
		return e.page.AttachFile(ctx, el.Handle, img)
	})
}

// PressKey dispatches a synthetic key press on the element for q. It is the
// fallback for actions the page offers no visible control for.
func (e *Executor) PressKey(ctx context.Context, q locator.Query, key string) entity.ActionOutcome {
	return e.act(ctx, "press "+key, q, func(el entity.Element) error {
		return e.page.PressKey(ctx, el.Handle, key)
	})
}

// PressKeyOnFocused dispatches key on whatever element has focus.
func (e *Executor) PressKeyOnFocused(ctx context.Context, key string) entity.ActionOutcome {
	logger := e.logger.With(zap.String(logg.Operation, "press "+key))

	if err := e.page.PressKey(ctx, "", key); err != nil {
		logger.Debug("Key press failed", zap.Error(err))

		return entity.Failed(fmt.Sprintf("press %s: %v", key, err))
	}

	return entity.Succeeded()
}

func (e *Executor) act(ctx context.Context, op string, q locator.Query, do func(el entity.Element) error) entity.ActionOutcome {
	logger := e.logger.With(zap.String(logg.Operation, op), zap.String(logg.Role, string(q.Role)))

	el, found, err := e.locator.Find(ctx, q)
	if err != nil {
		logger.Warn("Page could not be sampled", zap.Error(err))

		return entity.Failed(fmt.Sprintf("%s: locate %s: %v", op, q.Role, err))
	}

	if !found {
		return entity.Failed(fmt.Sprintf("%s: %s not found", op, q.Role))
	}

	if err := do(el); err != nil {
		if apperr.Is(err, apperr.CodeNotFound) {
			logger.Debug("Element vanished before interaction", zap.String(logg.Handle, el.Handle))

			return entity.Failed(fmt.Sprintf("%s: %s disappeared", op, q.Role))
		}

		logger.Warn("Interaction failed", zap.String(logg.Handle, el.Handle), zap.Error(err))

		return entity.Failed(fmt.Sprintf("%s: %v", op, err))
	}

	logger.Debug("Interaction done", zap.String(logg.Handle, el.Handle))

	return entity.Succeeded()
}
