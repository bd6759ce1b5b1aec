package server

import (
	"context"
	"errors"
	"time"

	"ImpVol/internal/usecase"
	"ImpVol/pkg/config"
	xhttp "ImpVol/pkg/http"
	pkgkafka "ImpVol/pkg/kafka"
	applogger "ImpVol/pkg/logger"
)

// Resource is something the app must release on shutdown, such as a client pool.
type Resource struct {
	Name  string
	Close func() error
}

// Resources are closed in reverse order.
type Resources []Resource

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	http      *xhttp.Server
	collector *usecase.QuoteCollector // nil when the quote feed is disabled
	consumer  *pkgkafka.Consumer      // nil when the quotes consumer is disabled
	handler   pkgkafka.MessageHandler
	resources Resources
}

func New(
	cfg *config.Config,
	log *applogger.Logger,
	http *xhttp.Server,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	resources Resources,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		http:      http,
		collector: collector,
		consumer:  consumer,
		handler:   handler,
		resources: resources,
	}
}

// Run starts every configured component and blocks until ctx is done or the
// HTTP server fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.collector != nil {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("quote collector start failed", applogger.Error(err))
		} else {
			a.log.Info("quote collector started", applogger.Strings("symbols", a.cfg.Feed.Symbols))
		}
	}

	if a.consumer != nil && a.handler != nil {
		a.consumer.RegisterHandler(a.handler)
		if err := a.consumer.Start(ctx); err != nil {
			a.log.Error("kafka consumer start failed", applogger.Error(err))
		} else {
			a.log.Info("consuming quotes", applogger.String("topic", a.handler.Topic()))
		}
	}

	if err := a.http.Start(); err != nil {
		return err
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.log.Info("shutdown signal received")
	case runErr = <-a.http.Errors():
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer stop()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

// shutdown stops inbound traffic first, then closes the backends.
func (a *App) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		errs = append(errs, err)
	}
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", r.Name), applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
