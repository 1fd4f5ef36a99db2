package usecase

import (
	"tb-storyboard/internal/usecase/adapters"
)

type serviceFactory struct {
	deps Params
}

func newServiceFactory(deps Params) *serviceFactory {
	return &serviceFactory{
		deps: deps,
	}
}

func (f *serviceFactory) CreateStoryboardService() adapters.StoryboardService {
	return f.deps.Runner
}

func (f *serviceFactory) CreatePromptService() adapters.PromptService {
	return NewPromptService(PromptServiceParams{
		Generator: f.deps.Generator,
		Logger:    f.deps.Logger,
	})
}
