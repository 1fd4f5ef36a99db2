package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"
	"tb-storyboard/pkg/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	clientName        = "RelayClient"
	clientTracer      = "relay.client"
	eventsLookupLimit = 10 * time.Second
)

// Client is the control side of the relay. It satisfies the same runner
// contract as the local orchestrator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	tracer     trace.Tracer
}

type ClientParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewClient(params ClientParams) *Client {
	return &Client{
		baseURL:    strings.TrimRight(params.Config.RelayConfig.URL, "/"),
		httpClient: &http.Client{Timeout: params.Config.RelayConfig.RequestTimeout},
		logger:     params.Logger.With(zap.String(logg.Layer, clientName)),
		tracer:     otel.Tracer(clientTracer),
	}
}

// Run sends req to the engine. Anything that keeps the request from
// reaching a loaded page comes back as "transport unavailable".
func (c *Client) Run(ctx context.Context, req entity.StoryboardRequest) entity.StoryboardResult {
	const op = "Run"
	logger := c.logger.With(zap.String(logg.Operation, op))

	total := len(req.Prompts)

	var err error

	ctx, step := tracing.StartSpan(ctx, c.tracer, logger, op, attribute.Int("total_scenes", total))
	defer func() {
		step.End(err)
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return entity.FailedResult(total, "invalid request: "+err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storyboard", bytes.NewReader(body))
	if err != nil {
		return entity.FailedResult(total, entity.ErrorTransportUnavailable)
	}

	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Warn("Engine unreachable", zap.String(logg.URL, c.baseURL), zap.Error(err))

		return entity.FailedResult(total, entity.ErrorTransportUnavailable)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusServiceUnavailable:
		return entity.FailedResult(total, entity.ErrorTransportUnavailable)
	case http.StatusConflict:
		return entity.FailedResult(total, entity.ErrorBusy)
	default:
		var e errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)

		if e.Error == "" {
			e.Error = resp.Status
		}

		err = fmt.Errorf("engine answered %d: %s", resp.StatusCode, e.Error)

		return entity.FailedResult(total, e.Error)
	}

	var result entity.StoryboardResult
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		logger.Error("Engine answered with an unreadable result", zap.Error(err))

		return entity.FailedResult(total, entity.ErrorTransportUnavailable)
	}

	if result.FailedSceneIndices == nil {
		result.FailedSceneIndices = []int{}
	}

	return result
}

// Events fetches the journal of a run from the engine.
func (c *Client) Events(runID string) ([]entity.Event, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), eventsLookupLimit)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runs/"+url.PathEscape(runID)+"/events", nil)
	if err != nil {
		return nil, false
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Debug("Events lookup failed", zap.String(logg.RunID, runID), zap.Error(err))

		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, false
	}

	var events []entity.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, false
	}

	return events, true
}

// Ping reports whether the engine is up with its page loaded.
func (c *Client) Ping(ctx context.Context) error {
	const op = "Ping"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeInvalidArgument, err, map[string]any{apperr.MetaURL: c.baseURL})
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTransportUnavailable, err, map[string]any{
			apperr.MetaStage: apperr.StageRelay,
			apperr.MetaURL:   c.baseURL,
		})
	}
	defer resp.Body.Close()

	var pong pingResponse
	if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&pong) != nil || pong.Status != "ready" {
		return apperr.Wrap(op, apperr.CodeTransportUnavailable, fmt.Errorf("engine not ready: %s", resp.Status), map[string]any{
			apperr.MetaStage: apperr.StageRelay,
			apperr.MetaURL:   c.baseURL,
		})
	}

	return nil
}
