package transportgrpc

import (
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcinterceptors "github.com/VickyKR37/autobook/internal/transport/grpc/interceptors"
)

// ServerDependencies encapsulates services required by the gRPC server layer.
type ServerDependencies struct {
	Issuance       AccessCodeIssuer
	Validation     AccessValidator
	OwnerTokens    grpcinterceptors.OwnerTokenParser
	Metrics        *grpcinterceptors.GRPCMetrics
	TracerProvider trace.TracerProvider
	Logger         *zap.Logger
}

// NewServer wires the access code service with owner authentication enforced through
// interceptors. ValidateAccess is public; mechanics hold no owner token.
func NewServer(deps ServerDependencies) (*grpc.Server, error) {
	if deps.Issuance == nil || deps.Validation == nil {
		return nil, fmt.Errorf("issuance and validation services are required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authInterceptor := grpcinterceptors.NewAuthInterceptor(deps.OwnerTokens, grpcinterceptors.AuthOptions{
		Logger:       logger,
		AllowMethods: []string{ValidateAccessMethod},
	})

	unaryInterceptors := []grpc.UnaryServerInterceptor{
		deps.Metrics.UnaryServerInterceptor(),
		authInterceptor.UnaryServerInterceptor(),
	}

	server := grpc.NewServer(
		grpcinterceptors.TracingServerOption(grpcinterceptors.TracingOptions{TracerProvider: deps.TracerProvider}),
		grpc.ChainUnaryInterceptor(unaryInterceptors...),
	)

	RegisterAccessCodeServiceServer(server, NewAccessCodeServer(deps.Issuance, deps.Validation, logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(AccessCodeServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	// Register reflection service for tools like Postman, grpcurl, etc.
	reflection.Register(server)

	return server, nil
}
