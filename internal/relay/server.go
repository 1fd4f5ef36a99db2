package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/entity"
	"tb-storyboard/internal/ports"
	"tb-storyboard/pkg/apperr"
	"tb-storyboard/pkg/logg"
	"tb-storyboard/pkg/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	serverName  = "RelayServer"
	relayTracer = "relay.server"

	maxRequestBytes   = 64 << 20
	readHeaderTimeout = 10 * time.Second
)

type pingResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server is the engine side of the relay: it accepts storyboard requests
// over HTTP and runs them on the local page.
type Server struct {
	config *config.RelayConfig
	logger *zap.Logger
	tracer trace.Tracer
	runner ports.StoryboardRunner

	srv      *http.Server
	listener net.Listener
}

type ServerParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
	Runner ports.StoryboardRunner
}

func NewServer(params ServerParams) *Server {
	s := &Server{
		config: params.Config.RelayConfig,
		logger: params.Logger.With(zap.String(logg.Layer, serverName)),
		tracer: otel.Tracer(relayTracer),
		runner: params.Runner,
	}

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ping", s.ping)
	r.Post("/storyboard", s.runStoryboard)
	r.Get("/runs/{id}/events", s.runEvents)

	return r
}

// Start binds the relay address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	const op = "Start"

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return apperr.Wrap(op, apperr.CodeTransportUnavailable, err, map[string]any{
			apperr.MetaStage: apperr.StageRelay,
			apperr.MetaURL:   s.config.Addr,
		})
	}

	s.listener = ln
	s.logger.Info("Relay listening", zap.String(logg.Addr, ln.Addr().String()))

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Relay server stopped", zap.Error(err))
		}
	}()

	return nil
}

// Addr is the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}

	return s.srv.Shutdown(ctx)
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Ping(r.Context()); err != nil {
		s.logger.Debug("Ping failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: entity.ErrorTransportUnavailable})

		return
	}

	writeJSON(w, http.StatusOK, pingResponse{Status: "ready"})
}

func (s *Server) runStoryboard(w http.ResponseWriter, r *http.Request) {
	const op = "RunStoryboard"
	logger := s.logger.With(zap.String(logg.Operation, op), zap.String("request_id", middleware.GetReqID(r.Context())))

	var (
		req entity.StoryboardRequest
		err error
	)

	ctx, step := tracing.StartSpan(r.Context(), s.tracer, logger, op)
	defer func() {
		step.End(err)
	}()

	if err = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request: " + err.Error()})

		return
	}

	step.SetAttributes(attribute.Int("total_scenes", len(req.Prompts)))

	result := s.runner.Run(ctx, req)

	logger.Info("Storyboard request handled",
		zap.String(logg.RunID, result.RunID),
		zap.Int("completed", result.ScenesCompleted),
		zap.Int("total", result.TotalScenes),
		zap.String("error", result.ErrorMessage))

	switch result.ErrorMessage {
	case entity.ErrorBusy:
		writeJSON(w, http.StatusConflict, errorResponse{Error: entity.ErrorBusy})
	case entity.ErrorTransportUnavailable:
		writeJSON(w, http.StatusServiceUnavailable, result)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func (s *Server) runEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	events, ok := s.runner.Events(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown run " + id})

		return
	}

	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
