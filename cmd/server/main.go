package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger/zapadapter"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/server"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var zapLogger *zap.Logger
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	logger := zapadapter.NewZapEctoLogger(zapLogger, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		exporter, err := buildExporter(ctx, cfg)
		if err != nil {
			logger.WithError(err).Error("Failed to create trace exporter")
			os.Exit(1)
		}
		shutdown, err := tracing.Setup(ctx, cfg.AppName, exporter)
		if err != nil {
			logger.WithError(err).Error("Failed to set up tracing")
			os.Exit(1)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.WithError(err).Warn("Failed to shut down tracing")
			}
		}()
	}

	svc := server.New(cfg, logger)

	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(&serverDependency{server: svc})

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	logger.Infof("%s started on port %d", cfg.AppName, cfg.Port)

	<-ctx.Done()
	logger.Info("Shutting down")

	if err := boot.Stop(context.Background()); err != nil {
		logger.WithError(err).Error("Shutdown failed")
		os.Exit(1)
	}
}

func buildExporter(ctx context.Context, cfg *config.Config) (sdktrace.SpanExporter, error) {
	switch cfg.TracingExporter {
	case "otlp-grpc", "otlp-http":
		otlpCfg := exporters.DefaultOTLPConfig()
		otlpCfg.Endpoint = cfg.TracingOTLPEndpoint
		otlpCfg.Insecure = cfg.TracingOTLPInsecure
		if cfg.TracingExporter == "otlp-http" {
			otlpCfg.Protocol = "http"
		}
		return exporters.NewOTLPExporter(ctx, otlpCfg)
	default:
		return &exporters.ConsoleExporter{}, nil
	}
}

type serverDependency struct {
	server *server.Server
}

func (d *serverDependency) GetName() string { return "server" }

func (d *serverDependency) DependsOn() []string { return nil }

func (d *serverDependency) Start(ctx context.Context) error {
	return d.server.Start(ctx)
}

func (d *serverDependency) Stop(ctx context.Context) error {
	return d.server.Stop(ctx)
}
