package grpc_control

import (
	"errors"
	"fmt"
	"net"

	"market-relay/src/broadcast"
	"market-relay/src/config"
	"market-relay/src/logger"
	"market-relay/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ControlService exposes grpc.health.v1 for the relay as a whole ("") and
// for each broadcast channel by name.
type ControlService struct {
	Config *config.Config
	Health *health.Server
	Logger *logger.Logger

	server *grpc.Server
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *config.Config, log *logger.Logger) *ControlService {
	s := &ControlService{
		Config: cfg,
		Health: health.NewServer(),
		Logger: log,
		server: grpc.NewServer(),
	}
	healthpb.RegisterHealthServer(s.server, s.Health)
	reflection.Register(s.server)

	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, ch := range models.AllChannels {
		s.Health.SetServingStatus(string(ch), healthpb.HealthCheckResponse_SERVING)
	}
	return s
}

// -----------------------------------------------------------------------------

// ServingStatus maps a channel state onto a health status. A paused channel
// is NOT_SERVING; every other state still delivers updates.
func ServingStatus(state broadcast.ChannelState) healthpb.HealthCheckResponse_ServingStatus {
	if state == broadcast.StatePaused {
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
	return healthpb.HealthCheckResponse_SERVING
}

// ObserveChannel has the signature of Broadcaster.OnStateChange.
func (s *ControlService) ObserveChannel(ch models.Channel, state broadcast.ChannelState) {
	s.Health.SetServingStatus(string(ch), ServingStatus(state))
}

// -----------------------------------------------------------------------------

// Start listens on grpc_host:grpc_port and blocks until Stop.
func (s *ControlService) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(lis)
}

// Serve blocks on an existing listener.
func (s *ControlService) Serve(lis net.Listener) error {
	s.Logger.Info("gRPC control plane listening on %s", lis.Addr())
	if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *ControlService) Stop() {
	s.Health.Shutdown()
	s.server.GracefulStop()
	s.Logger.Info("gRPC control plane stopped")
}
