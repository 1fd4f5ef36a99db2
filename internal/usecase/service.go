package usecase

import (
	"tb-storyboard/internal/config"
	"tb-storyboard/internal/ports"
	"tb-storyboard/internal/usecase/adapters"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service is what the control surface works with. Storyboard may be the
// local orchestrator or a relay client talking to a remote one.
type Service struct {
	Storyboard adapters.StoryboardService
	Prompts    adapters.PromptService
}

type Params struct {
	fx.In

	Logger    *zap.Logger
	Config    *config.Config
	Runner    ports.StoryboardRunner
	Generator ports.PromptGenerator
}

func NewUsecase(params Params) *Service {
	factory := newServiceFactory(params)

	return &Service{
		Storyboard: factory.CreateStoryboardService(),
		Prompts:    factory.CreatePromptService(),
	}
}
