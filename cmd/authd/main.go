package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/activitymap"
	"github.com/goliatone/go-auth-service/config"
	"github.com/goliatone/go-auth-service/logging"
	"github.com/goliatone/go-auth-service/outbox"
	"github.com/goliatone/go-auth-service/repository"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Debug {
		logger.Debug("configuration: %s", print.MaybePrettyJSON(redacted(cfg)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("auth service stopped: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	db, err := WithPersistence(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repository.NewOutboxStore(db)
	manager := repository.NewManager(db,
		repository.WithOutboxWriter(store),
		repository.WithLogger(logger.Named("repository")),
	)
	manager.MustValidate()

	tokens, err := auth.NewTokenService(cfg, auth.WithTokenServiceLogger(logger.Named("tokens")))
	if err != nil {
		return err
	}

	srv := WithHTTPServer(cfg, logger, manager, tokens)

	publisher, closePublisher, err := WithPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	processor := outbox.NewProcessor(store, publisher,
		outbox.WithInterval(cfg.OutboxInterval),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
		outbox.WithLease(cfg.OutboxLease),
		outbox.WithLogger(logger.Named("outbox")),
	)

	metrics := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening on %s", cfg.HTTPAddr)
		return srv.Serve(cfg.HTTPAddr)
	})

	g.Go(func() error {
		logger.Info("metrics server listening on %s", cfg.MetricsAddr)
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return processor.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return errors.Join(
			srv.Shutdown(shutdownCtx),
			metrics.Shutdown(shutdownCtx),
		)
	})

	return g.Wait()
}

// WithPersistence opens the database and makes sure the schema exists.
func WithPersistence(ctx context.Context, cfg *config.Config) (*bun.DB, error) {
	db, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	if err := repository.CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// WithHTTPServer builds the fiber backed router and mounts the auth routes.
func WithHTTPServer(cfg *config.Config, logger *logging.Logger, manager auth.RepositoryManager, tokens auth.TokenService) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:               "go-auth-service",
			DisableStartupMessage: true,
			StrictRouting:         false,
		}))
	})

	controller := auth.NewHTTPController(manager, tokens,
		auth.WithControllerLogger(logger.Named("http")),
		auth.WithControllerDebug(cfg.Debug),
		auth.WithControllerAdministratorClaim(cfg.AdministratorClaim()),
		auth.WithControllerHandlerOptions(
			auth.WithHandlerPasswordHasher(auth.NewBcryptHasher(cfg.BcryptCost)),
			auth.WithHandlerPolicy(cfg.AdministrationPolicy()),
			auth.WithConflictRetries(cfg.ConflictRetries),
			auth.WithHandlerActivitySink(activitymap.LogSink(logger.Named("activity"))),
		),
	)
	controller.RegisterRoutes(srv.Router())

	return srv
}

// WithPublisher picks the outbox transport. When a Redis address is
// configured deliveries go through the idempotent consumer first.
func WithPublisher(cfg *config.Config, logger *logging.Logger) (outbox.Publisher, func(), error) {
	var (
		publisher outbox.Publisher
		closers   []func() error
	)

	switch cfg.OutboxPublisher {
	case config.PublisherKafka:
		kp, err := outbox.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		publisher = kp
		closers = append(closers, kp.Close)
	case config.PublisherRabbitMQ:
		rp, err := outbox.NewRabbitMQPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		publisher = rp
		closers = append(closers, rp.Close)
	default:
		publisher = outbox.NewLogPublisher(logger.Named("events"))
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		publisher = outbox.NewIdempotentConsumer(client, publisher.Publish).Publisher()
		closers = append(closers, client.Close)
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Error("failed to close publisher: %v", err)
			}
		}
	}
	return publisher, closeAll, nil
}

func redacted(cfg *config.Config) config.Config {
	out := *cfg
	if out.JWTSigningKey != "" {
		out.JWTSigningKey = "********"
	}
	return out
}
