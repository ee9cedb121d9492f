package rpc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthServer reports the capture state through the standard grpc health service.
type HealthServer struct {
	listenAddr string
	health     *health.Server
	srv        *grpc.Server
}

func NewHealthServer(listenAddr string) *HealthServer {
	return &HealthServer{
		listenAddr: listenAddr,
		health:     health.NewServer(),
	}
}

func (s *HealthServer) Start(errChan chan error) error {
	s.srv = grpc.NewServer()
	healthpb.RegisterHealthServer(s.srv, s.health)
	reflection.Register(s.srv)

	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %v", err)
	}

	go func() {
		if err := s.srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("serving grpc listener: %v", err)
		}
	}()
	return nil
}

// SetCapturing switches the overall status to SERVING while a session captures.
func (s *HealthServer) SetCapturing(capturing bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if capturing {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
}

func (s *HealthServer) Stop() {
	s.health.Shutdown()
	if s.srv != nil {
		s.srv.GracefulStop()
	}
}
