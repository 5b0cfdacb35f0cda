package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Sebdysart/hustlexp-ai-backend-sub000/internal/application"
)

type MoneyInternalServer struct {
	grpc_health_v1.UnimplementedHealthServer
	service *application.Service
}

func NewMoneyInternalServer(service *application.Service) *MoneyInternalServer {
	return &MoneyInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc *MoneyInternalServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *MoneyInternalServer) Check(_ context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING}, nil
}

func (s *MoneyInternalServer) Watch(_ *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: grpc_health_v1.HealthCheckResponse_SERVING})
}
