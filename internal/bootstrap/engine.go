package bootstrap

import (
	"context"
	"time"

	"tb-storyboard/internal/config"
	"tb-storyboard/internal/poller"
	"tb-storyboard/internal/ports"
	"tb-storyboard/internal/relay"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// readyWatchWindow bounds one poll; the watch itself runs until the page
// answers or the engine stops.
const readyWatchWindow = time.Minute

func runEngine(
	lc fx.Lifecycle,
	config *config.Config,
	page ports.PageDriver,
	server *relay.Server,
	notifier ports.ReadyNotifier,
	logger *zap.Logger,
) {
	var (
		stopWatch context.CancelFunc
		watchDone chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting storyboard engine...")

			if err := page.Launch(ctx); err != nil {
				logger.Error("Failed to launch browser", zap.Error(err))

				return err
			}

			if err := server.Start(ctx); err != nil {
				logger.Error("Failed to start relay", zap.Error(err))

				return err
			}

			err := page.Ping(ctx)
			if err == nil {
				notifier.NotifyReady(ctx)

				return nil
			}

			logger.Warn("Engine is up but the host page is not loaded yet, waiting for it", zap.Error(err))

			var watchCtx context.Context
			watchCtx, stopWatch = context.WithCancel(context.Background())
			watchDone = make(chan struct{})

			go func() {
				defer close(watchDone)

				awaitHostPage(watchCtx, page, notifier, config.AutomationConfig.PollInterval)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down storyboard engine...")

			if stopWatch != nil {
				stopWatch()
				<-watchDone
			}

			if err := server.Stop(ctx); err != nil {
				logger.Error("Failed to stop relay", zap.Error(err))
			}

			notifier.Close()

			if err := page.Close(ctx); err != nil {
				logger.Error("Failed to close browser", zap.Error(err))
			}

			return nil
		},
	})
}

// awaitHostPage pings the page every interval and announces the engine on
// the first answer. It returns when ctx is done.
func awaitHostPage(ctx context.Context, page ports.PageDriver, notifier ports.ReadyNotifier, interval time.Duration) {
	answered := func(ctx context.Context) (bool, error) {
		if err := page.Ping(ctx); err != nil {
			return false, err
		}

		return true, nil
	}

	for ctx.Err() == nil {
		if poller.Until(ctx, answered, poller.IsTrue, interval, readyWatchWindow).Satisfied {
			notifier.NotifyReady(ctx)

			return
		}
	}
}
