package relay

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tb-storyboard/internal/config"
	"tb-storyboard/pkg/logg"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	notifierName = "ReadyNotifier"
	flushTimeout = 2 * time.Second
)

type readyEvent struct {
	Status string    `json:"status"`
	Relay  string    `json:"relay"`
	At     time.Time `json:"at"`
}

// Notifier announces once that the engine is ready. The announcement is
// always logged and also published on NATS when a server is configured.
type Notifier struct {
	logger  *zap.Logger
	relay   string
	subject string
	nc      *nats.Conn
	once    sync.Once
}

type NotifierParams struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger
}

func NewNotifier(params NotifierParams) *Notifier {
	cfg := params.Config.RelayConfig

	n := &Notifier{
		logger:  params.Logger.With(zap.String(logg.Layer, notifierName)),
		relay:   cfg.URL,
		subject: cfg.ReadySubject,
	}

	if cfg.NatsURL == "" {
		return n
	}

	opts := nats.GetDefaultOptions()
	opts.Url = cfg.NatsURL
	opts.Name = "tb-storyboard-engine"
	opts.Timeout = flushTimeout

	nc, err := opts.Connect()
	if err != nil {
		n.logger.Warn("NATS unavailable, ready notification is log-only", zap.String(logg.URL, cfg.NatsURL), zap.Error(err))

		return n
	}

	n.nc = nc

	return n
}

// NotifyReady is fire-and-forget: failures are logged, never returned.
func (n *Notifier) NotifyReady(_ context.Context) {
	n.once.Do(func() {
		n.logger.Info("Engine ready", zap.String(logg.Addr, n.relay))

		if n.nc == nil {
			return
		}

		data, err := json.Marshal(readyEvent{Status: "ready", Relay: n.relay, At: time.Now().UTC()})
		if err != nil {
			n.logger.Warn("Ready event not encoded", zap.Error(err))

			return
		}

		if err := n.nc.Publish(n.subject, data); err != nil {
			n.logger.Warn("Ready event not published", zap.String("subject", n.subject), zap.Error(err))

			return
		}

		if err := n.nc.FlushTimeout(flushTimeout); err != nil {
			n.logger.Warn("Ready event not flushed", zap.String("subject", n.subject), zap.Error(err))
		}
	})
}

func (n *Notifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
