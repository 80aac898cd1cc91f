package main

import (
	"context"
	"time"

	"market-relay/src/broadcast"
	"market-relay/src/config"
	"market-relay/src/grpc_control"
	"market-relay/src/logger"
	"market-relay/src/server"
)

const shutdownTimeout = 10 * time.Second

// -----------------------------------------------------------------------------

// runningServers holds what startServers launched so shutdown can reverse it
type runningServers struct {
	http    *server.Server
	control *grpc_control.ControlService
}

// startServers orchestrates the startup of all server components
func startServers(conf *config.Config, services server.Services, b *broadcast.Broadcaster, appLogger *logger.Logger) runningServers {
	var rs runningServers

	// 1. HTTP and data stream
	rs.http = server.NewServer(conf.MConfig, services, logger.NewLogger(conf, "Server"))
	go func() {
		if err := rs.http.Start(); err != nil {
			appLogger.Critical("HTTP server failed: %v", err)
		}
	}()

	// 2. gRPC health, only when a port is configured
	if conf.GrpcPort != 0 {
		rs.control = grpc_control.NewControlService(conf, logger.NewLogger(conf, "ControlService"))
		b.OnStateChange = rs.control.ObserveChannel
		go func() {
			if err := rs.control.Start(); err != nil {
				appLogger.Critical("gRPC control plane failed: %v", err)
			}
		}()
	}
	return rs
}

// -----------------------------------------------------------------------------

func (rs runningServers) stop(appLogger *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := rs.http.Stop(ctx); err != nil {
		appLogger.Warning("HTTP shutdown: %v", err)
	}
	if rs.control != nil {
		rs.control.Stop()
	}
}
