package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/activity"
	aggregationrepo "github.com/Ramsey-B/fern/internal/repositories/aggregation"
	codelistrepo "github.com/Ramsey-B/fern/internal/repositories/codelist"
	"github.com/Ramsey-B/fern/internal/repositories/currencyrate"
	datasetrepo "github.com/Ramsey-B/fern/internal/repositories/dataset"
	"github.com/Ramsey-B/fern/internal/repositories/narrative"
	"github.com/Ramsey-B/fern/internal/repositories/organisation"
	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/codelist"
	"github.com/Ramsey-B/fern/pkg/currency"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logger"
	"github.com/Ramsey-B/fern/pkg/parse"
	"github.com/Ramsey-B/fern/pkg/processor"
	datasetroutes "github.com/Ramsey-B/fern/pkg/routes/dataset"
	"github.com/Ramsey-B/fern/pkg/routes/health"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.AppName, cfg.PrettyLogs)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("Service exited with error")
		os.Exit(1)
	}
}

func run(cfg config.Config, log ectologger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := connectWithRetry(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrateDatabase(cfg, db, log); err != nil {
		return err
	}

	// Repositories
	datasetRepo := datasetrepo.NewRepository(db, log)
	activityRepo := activity.NewRepository(db, log)
	organisationRepo := organisation.NewRepository(db, log)
	narrativeRepo := narrative.NewRepository(db, log)
	codelistRepo := codelistrepo.NewRepository(db, log)
	rateRepo := currencyrate.NewRepository(db, log)
	aggregationRepo := aggregationrepo.NewRepository(db, log)

	codelists := codelist.NewResolver(codelistRepo, log)
	if err := codelists.Reload(ctx); err != nil {
		log.WithError(err).Warn("Failed to load codelists, validation will be permissive")
	}

	converter := currency.NewConverter(rateRepo, log)

	// Graph projection
	var projector parse.GraphProjector
	var graphClient *graph.Client
	if cfg.GraphDBEnabled {
		graphClient, err = graph.NewClient(graph.Config{
			Host:     cfg.GraphDBHost,
			Port:     cfg.GraphDBPort,
			Username: cfg.GraphDBUser,
			Password: cfg.GraphDBPassword,
		}, log)
		if err != nil {
			return err
		}
		defer graphClient.Close(ctx)
		projector = graph.NewActivityProjector(graphClient, log)
	}

	// Events
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, log)
	defer producer.Close()
	emitter := events.NewEmitter(producer, log)

	aggregator := aggregation.NewEngine(activityRepo, aggregationRepo, cfg.AggregationStrictCurrency, log)

	// Parse pipeline
	registry := parse.NewRegistry()
	walker := parse.NewWalker(registry, log)
	persister := parse.NewPersister(db, activityRepo, narrativeRepo, organisationRepo, converter, cfg.ConvertCurrencies, log)
	postSave := parse.NewPostSave(activityRepo, projector, aggregator, emitter, log)
	engine := parse.NewEngine(walker, persister, postSave, datasetRepo, activityRepo, emitter, codelists, log)

	fetcher := processor.NewHTTPFetcher(0, 0)
	proc := processor.NewProcessor(log, datasetRepo, fetcher, engine, cfg.ParseWorkerCount)

	// Kafka consumer
	var consumer *kafka.Consumer
	if cfg.KafkaConsumerEnabled {
		consumer = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers:       cfg.KafkaBrokers,
			Topic:         cfg.KafkaInputTopic,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		}, log, proc.ProcessMessage)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		defer consumer.Stop()
	}

	container, err := buildContainer(datasetRepo, proc)
	if err != nil {
		return err
	}

	e := buildServer(cfg, db, consumer, container)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server stopped")
			stop()
		}
	}()

	log.WithFields(map[string]any{"port": cfg.Port}).Info("Service started")
	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func connectWithRetry(cfg config.Config, log ectologger.Logger) (database.DB, error) {
	pgCfg := database.PostgresConfig{
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		DatabaseName:    cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}

	var db database.DB
	var err error
	for attempt := 1; attempt <= cfg.StartupMaxAttempts; attempt++ {
		db, err = database.NewPostgresDB(pgCfg, log)
		if err == nil {
			return db, nil
		}
		log.WithError(err).Warnf("Database connection attempt %d/%d failed", attempt, cfg.StartupMaxAttempts)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, err
}

func migrateDatabase(cfg config.Config, db database.DB, log ectologger.Logger) error {
	driver, err := migratepg.WithInstance(db.Unsafe().DB, &migratepg.Config{})
	if err != nil {
		return err
	}

	ms := database.NewMigrationService(log, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

func buildContainer(datasetRepo *datasetrepo.Repository, proc *processor.Processor) (ectocontainer.DIContainer, error) {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return nil, err
	}

	if err := ectoinject.RegisterInstance[*datasetrepo.Repository](container, datasetRepo); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*processor.Processor](container, proc); err != nil {
		return nil, err
	}
	if err := ectoinject.RegisterInstance[*validator.Validate](container, validator.New()); err != nil {
		return nil, err
	}
	return container, nil
}

func buildServer(cfg config.Config, db database.DB, consumer *kafka.Consumer, container ectocontainer.DIContainer) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, err := ectoinject.SetActiveContainer(c.Request().Context(), container.GetContainerID())
			if err != nil {
				return err
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	checker := health.NewChecker(db.Unsafe(), consumerHealth(consumer), version)
	checker.RegisterRoutes(e)
	checker.SetReady(true)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	datasetroutes.Register(api.Group("/datasets"))

	return e
}

func consumerHealth(consumer *kafka.Consumer) interface{ Health() bool } {
	if consumer == nil {
		return nil
	}
	return consumer
}
