// Package server wires the service together: database, redis, kafka,
// domain services, background workers, and the HTTP surface.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/approval"
	"github.com/Ramsey-B/clover/internal/repositories/ingestjob"
	"github.com/Ramsey-B/clover/internal/repositories/menuitem"
	"github.com/Ramsey-B/clover/internal/repositories/onboarding"
	"github.com/Ramsey-B/clover/internal/repositories/stagingitem"
	"github.com/Ramsey-B/clover/internal/repositories/userdir"
	"github.com/Ramsey-B/clover/internal/repositories/venue"
	"github.com/Ramsey-B/clover/pkg/approvals"
	"github.com/Ramsey-B/clover/pkg/audit"
	"github.com/Ramsey-B/clover/pkg/claims"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/functions"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/lifecycle"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/reconciler"
	"github.com/Ramsey-B/clover/pkg/redis"
	approvalreqroutes "github.com/Ramsey-B/clover/pkg/routes/approvalreq"
	healthroutes "github.com/Ramsey-B/clover/pkg/routes/health"
	ingestroutes "github.com/Ramsey-B/clover/pkg/routes/ingest"
	onboardingroutes "github.com/Ramsey-B/clover/pkg/routes/onboarding"
	venueroutes "github.com/Ramsey-B/clover/pkg/routes/venues"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/worker"
)

// Version is the reported service version. Overridden at build time.
var Version = "dev"

// Run boots the service and blocks until ctx is cancelled or a fatal
// startup error occurs
func Run(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, cfg.AppName, cfg.OtlpEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	db, sqlxDB, err := database.Connect(database.ConnectConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
		RetryCount:      cfg.DatabaseReconnectRetryCount,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := runMigrations(cfg, sqlxDB, logger); err != nil {
		return err
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	locker := redis.NewLocker(redisClient, "")

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		EventsTopic:  cfg.KafkaEventsTopic,
		AuditTopic:   cfg.KafkaAuditTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()

	emitter := events.NewEmitter(producer, logger)
	auditSink := audit.NewSink(producer, logger)

	jobRepo := ingestjob.NewRepository(db, logger)
	stagingRepo := stagingitem.NewRepository(db, logger)
	venueRepo := venue.NewRepository(db, logger)
	onboardingRepo := onboarding.NewRepository(db, logger)
	approvalRepo := approval.NewRepository(db, logger)
	menuRepo := menuitem.NewRepository(db, logger)
	directory := userdir.NewRepository(db, logger)

	controller := lifecycle.NewController(jobRepo, emitter, auditSink, lifecycle.Config{
		MaxAttempts:    cfg.IngestMaxAttempts,
		RetryBaseDelay: cfg.IngestRetryBaseDelay,
	}, logger)
	reconcilerSvc := reconciler.NewService(stagingRepo, emitter, auditSink, logger)
	claimsSvc := claims.NewService(venueRepo, onboardingRepo, directory, menuRepo, emitter, auditSink, logger)
	approvalsSvc := approvals.NewService(approvalRepo, emitter, auditSink, logger)
	registerAppliers(approvalsSvc, reconcilerSvc, claimsSvc)

	if err := registerDependencies(cfg, logger, controller, reconcilerSvc, claimsSvc, approvalsSvc); err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	parserClient := functions.NewClient(functions.Config{
		BaseURL: cfg.ParserBaseURL,
		Timeout: cfg.ParserTimeout,
	}, logger)
	fileStore := worker.NewHTTPFileStore(cfg.FileStoreBaseURL, cfg.FileStoreTimeout, logger)
	menuParser := worker.NewFunctionParser(parserClient)

	ingestWorker := worker.NewIngestWorker(controller, reconcilerSvc, fileStore, menuParser, locker, worker.IngestConfig{
		PollInterval:  cfg.IngestPollInterval,
		BatchSize:     cfg.IngestBatchSize,
		LockTTL:       cfg.IngestLockTTL,
		MinConfidence: cfg.ParserMinConfidence,
	}, logger)
	sweeper := worker.NewApprovalSweeper(approvalsSvc, locker, worker.SweeperConfig{
		Interval: cfg.ApprovalSweepInterval,
		LockTTL:  cfg.IngestLockTTL,
	}, logger)
	consumer := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       cfg.KafkaBrokers,
		Topic:         cfg.KafkaUploadsTopic,
		ConsumerGroup: cfg.KafkaConsumerGroup,
	}, logger, worker.NewUploadHandler(controller, logger))

	kafkaHealth := func() bool { return true }
	if cfg.KafkaConsumerEnabled {
		kafkaHealth = consumer.Health
	}
	checker := healthroutes.NewChecker(healthroutes.PingerFunc(db.PingContext), redisClient, kafkaHealth, Version)

	e := buildEcho(cfg, logger, checker)

	orch := startup.NewOrchestrator(logger, cfg.StartupMaxAttempts)
	if cfg.KafkaConsumerEnabled {
		orch.Add(dependency{
			name:    "kafka-consumer",
			startFn: consumer.Start,
			stopFn:  func(context.Context) error { return consumer.Stop() },
		})
	}
	if cfg.IngestWorkerEnabled {
		orch.Add(dependency{
			name:    "ingest-worker",
			startFn: ingestWorker.Start,
			stopFn:  ingestWorker.Stop,
		})
	}
	if cfg.ApprovalSweepEnabled {
		orch.Add(dependency{
			name:    "approval-sweeper",
			startFn: sweeper.Start,
			stopFn:  sweeper.Stop,
		})
	}
	orch.Add(dependency{
		name: "http-server",
		startFn: func(context.Context) error {
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.WithError(err).Error("HTTP server exited with error")
				}
			}()
			return nil
		},
		stopFn: e.Shutdown,
	})

	if err := orch.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)
	logger.Infof("%s listening on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutdown signal received")
	checker.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return orch.Stop(stopCtx)
}

func runMigrations(cfg *config.Config, sqlxDB *sqlx.DB, logger ectologger.Logger) error {
	driver, err := migratepg.WithInstance(sqlxDB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
	return ms.Migrate(cfg.DatabaseName, driver)
}

// registerAppliers binds approval request types to their side effects.
// Unbound types approve with no side effect.
func registerAppliers(approvalsSvc *approvals.Service, reconcilerSvc *reconciler.Service, claimsSvc *claims.Service) {
	approvalsSvc.RegisterApplier(models.ApprovalTypeMenuPublish, func(ctx context.Context, request *models.ApprovalRequest) error {
		preview := request.EntityPreview.GetValue()
		venueID, _ := preview["venue_id"].(string)
		if venueID == "" && request.VenueID != nil {
			venueID = *request.VenueID
		}
		currency, _ := preview["currency"].(string)

		_, err := reconcilerSvc.Publish(ctx, request.TenantID, request.EntityID, &models.PublishRequest{
			VenueID:  venueID,
			Currency: currency,
		})
		return err
	})

	approvalsSvc.RegisterApplier(models.ApprovalTypeVenueClaim, func(ctx context.Context, request *models.ApprovalRequest) error {
		approver := ""
		if request.ResolvedBy != nil {
			approver = *request.ResolvedBy
		}
		_, err := claimsSvc.ApproveClaim(ctx, request.TenantID, request.EntityID, approver)
		return err
	})
}

func buildEcho(cfg *config.Config, logger ectologger.Logger, checker *healthroutes.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	ingestroutes.Register(api.Group("/ingest-jobs"))
	venueroutes.Register(api.Group("/venues"))
	onboardingroutes.Register(api.Group("/onboarding-requests"))
	approvalreqroutes.Register(api.Group("/approval-requests"))

	return e
}

// dependency adapts start/stop closures to the startup orchestrator
type dependency struct {
	name    string
	needs   []string
	startFn func(ctx context.Context) error
	stopFn  func(ctx context.Context) error
}

func (d dependency) GetName() string     { return d.name }
func (d dependency) DependsOn() []string { return d.needs }
func (d dependency) Start(ctx context.Context) error {
	return d.startFn(ctx)
}
func (d dependency) Stop(ctx context.Context) error {
	if d.stopFn == nil {
		return nil
	}
	return d.stopFn(ctx)
}
