package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tb-storyboard/internal/ports"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	promptServiceName = "PromptService"

	MinScenes = 1
	MaxScenes = 10
)

// PromptService checks a storyboard brief before it goes upstream.
type PromptService struct {
	generator ports.PromptGenerator
	logger    *zap.Logger
}

type PromptServiceParams struct {
	fx.In

	Generator ports.PromptGenerator
	Logger    *zap.Logger
}

func NewPromptService(params PromptServiceParams) *PromptService {
	return &PromptService{
		generator: params.Generator,
		logger:    params.Logger.With(zap.String(logg.Layer, promptServiceName)),
	}
}

func (s *PromptService) Generate(ctx context.Context, story string, sceneCount int, style string) ([]string, error) {
	const op = "Generate"

	story = strings.TrimSpace(story)
	if story == "" {
		return nil, apperr.InvalidReqError(op, "story", errors.New("story is empty"))
	}

	if sceneCount < MinScenes || sceneCount > MaxScenes {
		return nil, apperr.InvalidReqError(op, "scene_count",
			fmt.Errorf("scene count %d outside %d-%d", sceneCount, MinScenes, MaxScenes))
	}

	if strings.TrimSpace(style) == "" {
		style = "cinematic"
	}

	s.logger.Info("Generating storyboard prompts",
		zap.String(logg.Operation, op),
		zap.Int("scene_count", sceneCount),
		zap.String("style", style))

	return s.generator.GeneratePrompts(ctx, story, sceneCount, style)
}

func (s *PromptService) TestConnection(ctx context.Context) (string, error) {
	return s.generator.TestConnection(ctx)
}
