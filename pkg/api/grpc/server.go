package grpc

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the runner
const ServiceName = "graphpool.Runner"

// RunnerStatus is the part of the runner the health service watches
type RunnerStatus interface {
	// Stopping is closed once the runner stops accepting work
	Stopping() <-chan struct{}
}

// Server represents the gRPC API server. It serves the standard gRPC health
// service so schedulers and load balancers can check on the runner.
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	runner   RunnerStatus
	logger   *zap.Logger

	quit    chan struct{}
	once    sync.Once
	watcher sync.WaitGroup
}

// Config holds gRPC server configuration
type Config struct {
	Port   int
	Runner RunnerStatus
	Logger *zap.Logger
	// Listener overrides Port when set
	Listener net.Listener
}

// NewServer creates a new gRPC server
func NewServer(cfg *Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	listener := cfg.Listener
	if listener == nil {
		var err error
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("failed to create listener: %w", err)
		}
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		runner:   cfg.Runner,
		logger:   logger,
		quit:     make(chan struct{}),
	}, nil
}

// Addr returns the listener address
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start starts the gRPC server and marks the runner as serving
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	if s.runner != nil {
		s.watcher.Add(1)
		go s.watchRunner()
	}

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown marks every service as not serving and gracefully stops the
// server. If ctx expires first the server is stopped immediately.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	s.once.Do(func() { close(s.quit) })
	s.watcher.Wait()
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
		<-done
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}

// watchRunner reports the runner as NOT_SERVING once it starts shutting down
func (s *Server) watchRunner() {
	defer s.watcher.Done()

	select {
	case <-s.runner.Stopping():
		s.logger.Info("runner stopping, health set to NOT_SERVING")
		s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	case <-s.quit:
	}
}
