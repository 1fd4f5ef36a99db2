package ai

import (
	"context"
	"errors"
	"strings"

	"tb-storyboard/internal/config"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"
	"tb-storyboard/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	aiClientName = "AIClient"
	aiTracer     = "ai.client"

	defaultTemperature = float32(0.7)
	connectionProbe    = "Reply with one short greeting."
)

// textGenerator sends one prompt upstream and returns the model's text.
type textGenerator interface {
	generate(ctx context.Context, prompt string) (string, error)
}

type geminiBackend struct {
	client *genai.Client
	model  string
}

func (g *geminiBackend) generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(defaultTemperature),
	})
	if err != nil {
		return "", err
	}

	return result.Text(), nil
}

// Client turns a story into per-scene prompts on Gemini.
type Client struct {
	logger *zap.Logger
	tracer trace.Tracer
	gen    textGenerator
}

type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

// NewClient builds the client. Without an API key it still succeeds, and
// every call reports a missing credential.
func NewClient(params Params) (*Client, error) {
	c := &Client{
		logger: params.Logger.With(zap.String(logg.Layer, aiClientName)),
		tracer: otel.Tracer(aiTracer),
	}

	if params.Config.AIConfig.APIKey == "" {
		c.logger.Warn("AI_API_KEY is not set, prompt generation is disabled")

		return c, nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  params.Config.AIConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, apperr.Wrap("NewClient", apperr.CodeInternal, err, map[string]any{
			apperr.MetaStage: apperr.StageAI,
		})
	}

	c.gen = &geminiBackend{client: client, model: params.Config.AIConfig.Model}

	return c, nil
}

func (c *Client) GeneratePrompts(ctx context.Context, story string, sceneCount int, style string) (prompts []string, err error) {
	const op = "GeneratePrompts"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op,
		attribute.Int("scene_count", sceneCount),
		attribute.String("style", style))
	defer func() {
		step.End(err)
	}()

	if c.gen == nil {
		return nil, apperr.WrapErrorWithReason(op, apperr.CodeMissingCredential, "no API credential")
	}

	text, err := c.gen.generate(ctx, StoryboardPrompt(story, sceneCount, style))
	if err != nil {
		logger.Error("Upstream generation failed", zap.Error(err))

		return nil, apperr.Wrap(op, apperr.CodeUpstreamService, err, map[string]any{
			apperr.MetaStage:  apperr.StageAI,
			apperr.MetaReason: "upstream_error",
		})
	}

	prompts = ParseNumberedLines(text)
	if len(prompts) == 0 {
		logger.Warn("Upstream text has no numbered lines", zap.Int("length", len(text)))

		return nil, apperr.Wrap(op, apperr.CodeUpstreamService, errors.New("no numbered scene lines in response"), map[string]any{
			apperr.MetaStage:  apperr.StageAI,
			apperr.MetaReason: "unparseable_output",
		})
	}

	if len(prompts) != sceneCount {
		logger.Info("Scene count differs from request", zap.Int("requested", sceneCount), zap.Int("returned", len(prompts)))
	}

	step.AddEvent("prompts parsed", attribute.Int("count", len(prompts)))

	return prompts, nil
}

// TestConnection sends a one-line probe and returns the model's reply.
func (c *Client) TestConnection(ctx context.Context) (reply string, err error) {
	const op = "TestConnection"
	logger := c.logger.With(zap.String(logg.Operation, op))

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if c.gen == nil {
		return "", apperr.WrapErrorWithReason(op, apperr.CodeMissingCredential, "no API credential")
	}

	reply, err = c.gen.generate(ctx, connectionProbe)
	if err != nil {
		return "", apperr.Wrap(op, apperr.CodeUpstreamService, err, map[string]any{
			apperr.MetaStage: apperr.StageAI,
		})
	}

	return strings.TrimSpace(reply), nil
}
