package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/graphpool/internal/application/runner"
	"github.com/aescanero/graphpool/internal/config"
	eventsmemory "github.com/aescanero/graphpool/pkg/adapters/events/memory"
	eventsredis "github.com/aescanero/graphpool/pkg/adapters/events/redis"
	"github.com/aescanero/graphpool/pkg/adapters/metrics/prometheus"
	storagememory "github.com/aescanero/graphpool/pkg/adapters/storage/memory"
	storageredis "github.com/aescanero/graphpool/pkg/adapters/storage/redis"
	"github.com/aescanero/graphpool/pkg/api/grpc"
	"github.com/aescanero/graphpool/pkg/api/http"
	"github.com/aescanero/graphpool/pkg/api/websocket"
	"github.com/aescanero/graphpool/pkg/domain/graph"
	"github.com/aescanero/graphpool/pkg/ports"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	if len(os.Args) > 2 {
		fmt.Fprintf(os.Stderr, "usage: %s [input_file]\n", os.Args[0])
		os.Exit(2)
	}

	if len(os.Args) == 2 {
		if err := runFile(cfg, logger, os.Args[1], os.Stdout); err != nil {
			logger.Error("run failed", zap.Error(err))
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	serve(cfg, logger)
}

// runFile traverses a single graph file and prints the sum of its values.
// A graph without nodes sums to 0.
func runFile(cfg *config.Config, logger *zap.Logger, path string, out io.Writer) error {
	g, err := graph.LoadFile(path)
	if err != nil {
		return err
	}
	if g.Len() == 0 {
		fmt.Fprintln(out, 0)
		return nil
	}

	eventBus := eventsmemory.NewInMemoryEventBus()
	defer eventBus.Close()

	r := runner.NewRunner(
		eventBus,
		storagememory.NewInMemoryResultStorage(),
		nil,
		nil,
		logger,
		runnerConfig(cfg),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := r.Run(ctx, g)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, result.Sum)
	return nil
}

// serve runs the HTTP and gRPC APIs until interrupted
func serve(cfg *config.Config, logger *zap.Logger) {
	logger.Info("starting graphpool",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("storage_backend", cfg.Storage.Backend))

	// Initialize adapters
	var (
		eventBus    ports.EventBus
		storage     ports.ResultStorage
		redisClient *goredis.Client
	)

	switch cfg.Storage.Backend {
	case config.StorageRedis:
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		// Test Redis connection
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		eventBus = eventsredis.NewStreamsEventBus(redisClient, cfg.Redis.StreamMaxLen, logger)
		storage = storageredis.NewResultStorage(redisClient, cfg.Storage.ResultTTL, logger)
	default:
		eventBus = eventsmemory.NewInMemoryEventBus()
		storage = storagememory.NewInMemoryResultStorage()
	}

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	// Initialize application components
	r := runner.NewRunner(
		eventBus,
		storage,
		metricsCollector,
		runner.NewValidator(cfg.Runner.MaxNodes),
		logger,
		runnerConfig(cfg),
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:   cfg.HTTPPort,
		Runner: r,
		Logger: logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(eventBus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Runner: r,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("graphpool started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Int("worker_pool_size", cfg.Workers.PoolSize),
		zap.Int("queue_capacity", cfg.Workers.QueueCapacity))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	// Shutdown components
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// The health service reports NOT_SERVING while runs drain
	if err := r.Shutdown(shutdownCtx); err != nil {
		logger.Error("runner shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("graphpool shut down complete")
}

func runnerConfig(cfg *config.Config) runner.Config {
	return runner.Config{
		PoolSize:            cfg.Workers.PoolSize,
		QueueCapacity:       cfg.Workers.QueueCapacity,
		MaxStopAttempts:     cfg.Runner.MaxStopAttempts,
		RunTimeout:          cfg.Timeouts.RunTimeout,
		HealthCheckInterval: cfg.Workers.HealthCheckInterval,
		MaxNodes:            cfg.Runner.MaxNodes,
		PublishVisits:       cfg.Runner.PublishVisits,
	}
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
