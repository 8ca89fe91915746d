package main

import (
	"context"

	"github.com/user/signup-go/background"
	"github.com/user/signup-go/config"
	"github.com/user/signup-go/db"
	"github.com/user/signup-go/logging"
	"github.com/user/signup-go/metrics"
	"github.com/user/signup-go/notify"
	"github.com/user/signup-go/registration"
	"github.com/user/signup-go/users"
)

// pinger reports whether the account store is reachable.
type pinger interface {
	Ping(ctx context.Context) error
}

// application holds the wired services shared by the serve and register commands.
// It plays the role of the root module in a Nest.js application.
type application struct {
	cfg      *config.AppConfig
	logger   logging.Logger
	metrics  *metrics.Metrics
	service  *registration.Service
	handlers *registration.Handlers
	store    pinger

	// closers run in reverse order on shutdown.
	closers []func()
}

// newApplication wires storage, the notifier chain and the registration service.
func newApplication(cfg *config.AppConfig, logger logging.Logger) (*application, error) {
	app := &application{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	repo, err := app.newRepository()
	if err != nil {
		app.Close()
		return nil, err
	}

	notifier := app.newNotifier()
	dispatcher := background.StartVerificationDispatcher(notifier, cfg.Notifier.Workers, cfg.Notifier.QueueSize, logger)
	// Registered last so it stops first, before the publisher it sends through is closed.
	app.closers = append(app.closers, dispatcher.Stop)

	app.service = registration.NewService(repo, dispatcher, logger, app.metrics)
	app.handlers = registration.NewHandlers(app.service, logger)
	return app, nil
}

func (a *application) newRepository() (users.Repository, error) {
	ctx := context.Background()

	if a.cfg.Storage.Driver == config.StorageDriverMemory {
		a.logger.Warn(ctx, "using in-memory account storage; accounts are lost on restart")
		repo := users.NewMemoryRepository()
		a.store = repo
		return repo, nil
	}

	if a.cfg.Storage.AutoMigrate {
		if err := db.RunMigrations(a.cfg.DB); err != nil {
			return nil, err
		}
		a.logger.Info(ctx, "database schema is up to date")
	}

	pool, err := db.NewDBPool(a.cfg.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, pool.Close)
	a.store = pool
	a.logger.Info(ctx, "connected to postgres", "host", a.cfg.DB.Host, "database", a.cfg.DB.DBName)
	return users.NewPostgresRepository(pool), nil
}

// newNotifier builds the configured Notifier. An unreachable broker does not
// stop startup; the fallback notifier is used instead.
func (a *application) newNotifier() notify.Notifier {
	ctx := context.Background()
	nc := a.cfg.Notifier

	switch nc.Driver {
	case config.NotifierDriverAMQP:
		publisher, err := notify.NewAMQPPublisher(nc.RabbitMQURL, nc.RabbitMQExchange, a.logger)
		if err != nil {
			a.logger.Error(ctx, "RabbitMQ unavailable, verification events will not be published", "error", err)
			return notify.NewFallbackNotifier(err.Error())
		}
		a.closers = append(a.closers, func() {
			if err := publisher.Close(); err != nil {
				a.logger.Warn(ctx, "closing RabbitMQ publisher", "error", err)
			}
		})
		a.logger.Info(ctx, "publishing verification events to RabbitMQ", "exchange", nc.RabbitMQExchange)
		return publisher

	case config.NotifierDriverKafka:
		publisher := notify.NewKafkaPublisher(nc.KafkaBrokers, nc.KafkaTopic)
		a.closers = append(a.closers, func() {
			if err := publisher.Close(); err != nil {
				a.logger.Warn(ctx, "closing Kafka publisher", "error", err)
			}
		})
		a.logger.Info(ctx, "publishing verification events to Kafka", "topic", nc.KafkaTopic)
		return publisher

	default:
		return notify.NewSimulatedMailer(nc.Delay, a.logger)
	}
}

// Close releases everything newApplication acquired.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
