package ports

import (
	"context"

	"tb-storyboard/internal/entity"
)

// PageDriver is the live host page. Every call samples or mutates the page
// as it is at that moment; two calls may observe different renders.
type PageDriver interface {
	Launch(ctx context.Context) error
	Close(ctx context.Context) error
	Navigate(ctx context.Context) error
	Ping(ctx context.Context) error
	Snapshot(ctx context.Context, tags []string) ([]entity.Element, error)
	BodyText(ctx context.Context) (string, error)
	Click(ctx context.Context, handle string) error
	SetValue(ctx context.Context, handle string, value string) error
	AttachFile(ctx context.Context, handle string, file entity.ImageFile) error
	PressKey(ctx context.Context, handle string, key string) error
	IsReady() bool
}

type PromptGenerator interface {
	GeneratePrompts(ctx context.Context, story string, sceneCount int, style string) ([]string, error)
	TestConnection(ctx context.Context) (string, error)
}

type StoryboardRunner interface {
	Run(ctx context.Context, req entity.StoryboardRequest) entity.StoryboardResult
	Events(runID string) ([]entity.Event, bool)
	Ping(ctx context.Context) error
}

type ReadyNotifier interface {
	NotifyReady(ctx context.Context)
	Close()
}
