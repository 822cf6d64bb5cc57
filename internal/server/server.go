// Package server assembles the routing service: Postgres, Redis, Kafka,
// the resolver pipeline, and the HTTP API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/config"
	mappingrepo "github.com/Ramsey-B/clover/internal/repositories/mapping"
	pendingrepo "github.com/Ramsey-B/clover/internal/repositories/pending"
	sessionrepo "github.com/Ramsey-B/clover/internal/repositories/session"
	tenantrepo "github.com/Ramsey-B/clover/internal/repositories/tenant"
	"github.com/Ramsey-B/clover/pkg/conversation"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/processor"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/resolver"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/resolve"
	"github.com/Ramsey-B/clover/pkg/routes/tenant"
	"github.com/Ramsey-B/clover/pkg/search"
	"github.com/Ramsey-B/clover/pkg/store"
)

// Server owns every runtime component and their lifecycles.
type Server struct {
	cfg    *config.Config
	logger ectologger.Logger

	db       database.DB
	redis    *redis.Client
	echo     *echo.Echo
	consumer *kafka.Consumer
	producer *kafka.Producer
	machine  *conversation.Machine
	checker  *health.Checker
}

// New builds the full component graph. Nothing is connected until Start.
func New(cfg *config.Config, logger ectologger.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// Machine exposes the conversation machine, available after Start.
func (s *Server) Machine() *conversation.Machine {
	return s.machine
}

// Start connects the stores, wires the pipeline, and begins serving.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.cfg

	db, err := database.Connect(ctx, database.ConnectConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		UserName:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db

	if err := s.migrate(db); err != nil {
		return err
	}

	redisClient, err := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.redis = redisClient

	sessions := sessionrepo.NewRepository(db, s.logger)
	mappings := mappingrepo.NewRepository(db, s.logger)
	tenants := tenantrepo.NewRepository(db, s.logger)
	pendings := pendingrepo.NewRepository(redisClient, s.logger)

	storeTimeout := time.Duration(cfg.StoreCallTimeoutMs) * time.Millisecond
	st := store.NewComposite(sessions, mappings, pendings, storeTimeout)

	writer := resolver.NewSessionWriter(st, s.logger, time.Duration(cfg.SessionWriteTimeoutMs)*time.Millisecond, nil)
	res := resolver.New(st, writer, s.logger, resolver.Config{
		SessionWindow: time.Duration(cfg.SessionWindowHours) * time.Hour,
	})

	locker := conversation.NewRedisLocker(redis.NewLocker(redisClient, "customer-lock"))
	machine := conversation.NewMachine(st, res, locker, s.logger, conversation.Config{
		PendingTTL: time.Duration(cfg.PendingTTLMinutes) * time.Minute,
		LockTTL:    time.Duration(cfg.LockTTLSeconds) * time.Second,
		LockWait:   time.Duration(cfg.LockWaitMs) * time.Millisecond,
	})
	machine.SetMappingEnsurer(mappings)
	s.machine = machine

	finder := search.NewService(tenants, s.logger)

	if err := s.startKafka(ctx, machine, finder); err != nil {
		return err
	}

	if err := s.startHTTP(db, redisClient, tenants, machine); err != nil {
		return err
	}

	s.checker.SetReady(true)
	return nil
}

// migrate runs schema migrations against the live connection.
func (s *Server) migrate(db database.DB) error {
	cfg := s.cfg

	instance, ok := db.(*database.DatabaseInstance)
	if !ok {
		return fmt.Errorf("database does not support migrations")
	}
	driver, err := migratepg.WithInstance(instance.DB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator := database.NewMigrationService(s.logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
	})
	if err := migrator.Migrate(cfg.DatabaseName, driver); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (s *Server) startKafka(ctx context.Context, machine *conversation.Machine, finder *search.Service) error {
	cfg := s.cfg

	producerCfg := kafka.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producerCfg.Topic = cfg.KafkaOutputTopic
	producerCfg.ErrorTopic = cfg.KafkaErrorTopic
	producerCfg.BatchSize = cfg.KafkaBatchSize
	producerCfg.BatchTimeout = time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond
	producerCfg.RequiredAcks = cfg.KafkaRequiredAcks
	producerCfg.Compression = cfg.KafkaCompression

	producer, err := kafka.NewProducer(producerCfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create kafka producer: %w", err)
	}
	s.producer = producer

	if !cfg.KafkaConsumerEnabled {
		return nil
	}

	proc := processor.NewProcessor(processor.ProcessorConfig{
		ProcessTimeout: time.Duration(cfg.ProcessorTimeoutSecond) * time.Second,
	}, machine, finder, producer, s.logger)

	consumerCfg := kafka.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.KafkaBrokers
	consumerCfg.Topic = cfg.KafkaInputTopic
	consumerCfg.GroupID = cfg.KafkaConsumerGroup

	consumer, err := kafka.NewConsumer(consumerCfg, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	s.consumer = consumer

	return consumer.Start(ctx, proc.MessageHandler())
}

func (s *Server) startHTTP(db database.DB, redisClient *redis.Client, tenants tenantrepo.TenantRepository, machine *conversation.Machine) error {
	cfg := s.cfg

	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}
	if err := ectoinject.RegisterInstance[ectologger.Logger](container, s.logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[database.DB](container, db); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[tenantrepo.TenantRepository](container, tenants); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*conversation.Machine](container, machine); err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.Error(s.logger)
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(s.logger))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx, err := ectoinject.SetActiveContainer(req.Context(), container.GetContainerID())
			if err != nil {
				return err
			}
			c.SetRequest(req.WithContext(ctx))
			return next(c)
		}
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.checker = health.NewChecker(db, redisClient, cfg.AppName)
	s.checker.RegisterRoutes(e)

	api := e.Group("/api/v1")
	resolve.Register(api)
	tenant.Register(api)

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes
	s.echo = e

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()

	return nil
}

// Stop shuts everything down in reverse dependency order.
func (s *Server) Stop(ctx context.Context) error {
	if s.checker != nil {
		s.checker.SetReady(false)
	}

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.echo != nil {
		keep(s.echo.Shutdown(ctx))
	}
	if s.consumer != nil {
		keep(s.consumer.Stop())
	}
	if s.producer != nil {
		keep(s.producer.Close())
	}
	if s.redis != nil {
		keep(s.redis.Close())
	}
	if s.db != nil {
		keep(s.db.Close())
	}
	return firstErr
}
