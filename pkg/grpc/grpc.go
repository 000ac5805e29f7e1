package grpc

import (
	"fmt"
	"net"

	"github.com/ranorsolutions/svc-controller-go/pkg/service"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ControllersHealthService is the health-check name reporting whether the
// HTTP controllers have been mounted.
const ControllersHealthService = "controllers"

// GRPCService encapsulates a gRPC server and its configuration.
type GRPCService struct {
	Server  *grpc.Server
	Service *service.Service
	Health  *health.Server
}

// New creates a new gRPC server instance with health checks. The
// controllers health service starts as NOT_SERVING.
func New(svc *service.Service, opts ...grpc.ServerOption) *GRPCService {
	server := grpc.NewServer(opts...)

	hs := health.NewServer()
	hs.SetServingStatus(ControllersHealthService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpc_health_v1.RegisterHealthServer(server, hs)

	if svc != nil && svc.Logger != nil {
		svc.Logger.Info("gRPC reflection enabled")
		reflection.Register(server)
	}

	return &GRPCService{
		Server:  server,
		Service: svc,
		Health:  hs,
	}
}

// Register registers a gRPC service implementation (auto-generated from .proto).
func (g *GRPCService) Register(registerFunc func(*grpc.Server)) {
	registerFunc(g.Server)
}

// SetServing updates the health status reported for name.
func (g *GRPCService) SetServing(name string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	g.Health.SetServingStatus(name, status)
}

// Serve starts the gRPC server on the provided listener.
func (g *GRPCService) Serve(l net.Listener) error {
	g.logInfo("gRPC server listening on %s", l.Addr().String())
	return g.Server.Serve(l)
}

// GracefulStop marks every service NOT_SERVING and shuts down the server cleanly.
func (g *GRPCService) GracefulStop() {
	g.logInfo("Stopping gRPC server...")
	g.Health.Shutdown()
	g.Server.GracefulStop()
}

func (g *GRPCService) logInfo(format string, args ...interface{}) {
	if g.Service != nil && g.Service.Logger != nil {
		g.Service.Logger.Info(fmt.Sprintf(format, args...))
	}
}
