package grpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServer serves grpc.health.v1.Health on a dedicated listener.
type HealthServer struct {
	listener net.Listener
	server   *gogrpc.Server
	health   *health.Server
}

// ListenHealth binds addr and prepares a health server reporting NOT_SERVING
// until SetServing is called.
func ListenHealth(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen health on %s: %w", addr, err)
	}
	server := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	return &HealthServer{listener: listener, server: server, health: healthServer}, nil
}

// Addr returns the bound listener address.
func (s *HealthServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SetServing flips the overall and per-service status.
func (s *HealthServer) SetServing(service string, serving bool) {
	if s == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	if service != "" {
		s.health.SetServingStatus(service, status)
	}
}

// Serve blocks until the server stops.
func (s *HealthServer) Serve() error {
	if s == nil {
		return errors.New("health server is not configured")
	}
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, gogrpc.ErrServerStopped) {
		return fmt.Errorf("serve health: %w", err)
	}
	return nil
}

// Shutdown marks every service NOT_SERVING, then stops gracefully, forcing the
// stop when ctx ends first.
func (s *HealthServer) Shutdown(ctx context.Context) {
	if s == nil {
		return
	}
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
}
