package adapters

import (
	"context"

	"tb-storyboard/internal/entity"
)

type StoryboardService interface {
	Run(ctx context.Context, req entity.StoryboardRequest) entity.StoryboardResult
	Events(runID string) ([]entity.Event, bool)
	Ping(ctx context.Context) error
}

type PromptService interface {
	Generate(ctx context.Context, story string, sceneCount int, style string) ([]string, error)
	TestConnection(ctx context.Context) (string, error)
}
