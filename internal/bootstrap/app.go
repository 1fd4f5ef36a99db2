package bootstrap

import (
	"time"

	"tb-storyboard/internal/ai"
	"tb-storyboard/internal/browser"
	"tb-storyboard/internal/config"
	"tb-storyboard/internal/console"
	"tb-storyboard/internal/ports"
	"tb-storyboard/internal/relay"
	"tb-storyboard/internal/usecase"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// ambient is shared by every process: configuration, logging and tracing.
var ambient = fx.Options(
	fx.Provide(
		config.GetConfig,
		newLogger,
		newTraceProvider,
	),

	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

// NewEngineApp drives the host page and serves storyboard requests over the
// relay.
func NewEngineApp() *fx.App {
	return fx.New(
		ambient,

		fx.Provide(
			fx.Annotate(browser.NewManager, fx.As(new(ports.PageDriver))),
			fx.Annotate(usecase.NewStoryboardService, fx.As(new(ports.StoryboardRunner))),
			fx.Annotate(relay.NewNotifier, fx.As(new(ports.ReadyNotifier))),

			relay.NewServer,
		),

		fx.Invoke(
			runEngine,
		),

		fx.StartTimeout(60*time.Second),
	)
}

// NewConsoleApp is the control surface: it composes storyboards, asks the
// prompt generator for scene prompts and hands runs to the engine.
func NewConsoleApp() *fx.App {
	return fx.New(
		ambient,

		fx.Provide(
			fx.Annotate(ai.NewClient, fx.As(new(ports.PromptGenerator))),
			fx.Annotate(relay.NewClient, fx.As(new(ports.StoryboardRunner))),

			usecase.NewUsecase,

			console.NewInterface,
		),

		fx.Invoke(
			runConsole,
		),

		fx.StartTimeout(10*time.Second),
	)
}

// NewPromptsApp runs the prompt generator alone, for one-shot generation.
func NewPromptsApp(populate ...any) *fx.App {
	return fx.New(
		ambient,

		fx.Provide(
			fx.Annotate(ai.NewClient, fx.As(new(ports.PromptGenerator))),
		),

		fx.Populate(populate...),

		fx.NopLogger,
	)
}
