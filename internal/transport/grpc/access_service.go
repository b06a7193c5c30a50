package transportgrpc

import (
	"context"
	"errors"
	"math"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/VickyKR37/autobook/internal/core/domain"
	grpcinterceptors "github.com/VickyKR37/autobook/internal/transport/grpc/interceptors"
	"github.com/VickyKR37/autobook/internal/usecase"
)

const (
	AccessCodeServiceName = "autobook.v1.AccessCodeService"

	RegenerateAccessCodeMethod = "/" + AccessCodeServiceName + "/RegenerateAccessCode"
	ValidateAccessMethod       = "/" + AccessCodeServiceName + "/ValidateAccess"

	retryAfterTrailer = "retry-after"
)

// AccessCodeIssuer regenerates owner access codes.
type AccessCodeIssuer interface {
	RegenerateAccessCode(ctx context.Context, accountID string) (*domain.IssuedAccessCode, error)
}

// AccessValidator checks mechanic-presented credentials.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, ownerEmail, code string) (*domain.AccessGrant, error)
}

// AccessCodeServiceServer is the server API of autobook.v1.AccessCodeService.
// Messages travel as google.protobuf.Struct with the same field names as the HTTP API.
type AccessCodeServiceServer interface {
	RegenerateAccessCode(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateAccess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// AccessCodeServiceDesc describes autobook.v1.AccessCodeService for grpc.Server registration.
var AccessCodeServiceDesc = grpc.ServiceDesc{
	ServiceName: AccessCodeServiceName,
	HandlerType: (*AccessCodeServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegenerateAccessCode", Handler: regenerateAccessCodeHandler},
		{MethodName: "ValidateAccess", Handler: validateAccessHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "autobook/v1/access_code.proto",
}

// RegisterAccessCodeServiceServer registers srv on s.
func RegisterAccessCodeServiceServer(s grpc.ServiceRegistrar, srv AccessCodeServiceServer) {
	s.RegisterService(&AccessCodeServiceDesc, srv)
}

func regenerateAccessCodeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccessCodeServiceServer).RegenerateAccessCode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RegenerateAccessCodeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccessCodeServiceServer).RegenerateAccessCode(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func validateAccessHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(AccessCodeServiceServer).ValidateAccess(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ValidateAccessMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(AccessCodeServiceServer).ValidateAccess(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// AccessCodeServer implements AccessCodeServiceServer on top of the use cases.
type AccessCodeServer struct {
	issuer    AccessCodeIssuer
	validator AccessValidator
	logger    *zap.Logger
}

var _ AccessCodeServiceServer = (*AccessCodeServer)(nil)

// NewAccessCodeServer constructs an AccessCodeServer.
func NewAccessCodeServer(issuer AccessCodeIssuer, validator AccessValidator, logger *zap.Logger) *AccessCodeServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessCodeServer{issuer: issuer, validator: validator, logger: logger}
}

// RegenerateAccessCode replaces the caller's access code. The caller is taken from the
// auth interceptor, never from the request body.
func (s *AccessCodeServer) RegenerateAccessCode(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	accountID, ok := grpcinterceptors.AccountIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}

	issued, err := s.issuer.RegenerateAccessCode(ctx, accountID)
	if err != nil {
		return nil, s.toStatus(ctx, RegenerateAccessCodeMethod, err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"success":       true,
		"newAccessCode": issued.Code,
	})
}

// ValidateAccess checks an owner email and access code pair. Every denial cause maps to
// the same PermissionDenied status and message.
func (s *AccessCodeServer) ValidateAccess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	email := stringField(req, "ownerEmail")
	code := stringField(req, "accessCode")

	grant, err := s.validator.ValidateAccess(ctx, email, code)
	if err != nil {
		return nil, s.toStatus(ctx, ValidateAccessMethod, err)
	}

	return structpb.NewStruct(map[string]interface{}{
		"success":     true,
		"ownerEmail":  grant.OwnerEmail,
		"ownerUserId": grant.OwnerAccountID,
	})
}

func (s *AccessCodeServer) toStatus(ctx context.Context, method string, err error) error {
	var (
		invalid   *usecase.InvalidArgumentError
		rateLimit *usecase.RateLimitExceededError
	)

	switch {
	case errors.As(err, &rateLimit):
		seconds := int(math.Ceil(rateLimit.RetryAfter.Seconds()))
		if seconds > 0 {
			_ = grpc.SetTrailer(ctx, metadata.Pairs(retryAfterTrailer, strconv.Itoa(seconds)))
		}
		return status.Error(codes.ResourceExhausted, "Too many attempts. Try again later.")
	case errors.As(err, &invalid):
		return status.Error(codes.InvalidArgument, invalid.Message)
	case errors.Is(err, usecase.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, "invalid request")
	case errors.Is(err, usecase.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "authentication required")
	case errors.Is(err, usecase.ErrAccessDenied):
		return status.Error(codes.PermissionDenied, usecase.AccessDeniedMessage)
	default:
		s.logger.Error("gRPC access code call failed", zap.String("method", method), zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	value, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return value.GetStringValue()
}
