package interceptors

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/VickyKR37/autobook/internal/infra/security"
)

const (
	authorizationKey = "authorization"
	bearerPrefix     = "bearer "
)

// OwnerTokenParser resolves an owner bearer token to its account ID.
type OwnerTokenParser interface {
	ParseOwnerToken(token string) (string, error)
}

// AuthOptions fine-tunes interceptor behaviour.
type AuthOptions struct {
	AllowMethods []string
	Logger       *zap.Logger
}

// AuthInterceptor validates incoming requests using owner bearer tokens.
type AuthInterceptor struct {
	parser OwnerTokenParser
	logger *zap.Logger
	allow  map[string]struct{}
}

// NewAuthInterceptor constructs a new AuthInterceptor instance.
func NewAuthInterceptor(parser OwnerTokenParser, opts AuthOptions) *AuthInterceptor {
	allow := make(map[string]struct{}, len(opts.AllowMethods))
	for _, method := range opts.AllowMethods {
		if method = strings.TrimSpace(method); method != "" {
			allow[method] = struct{}{}
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthInterceptor{parser: parser, logger: logger, allow: allow}
}

// UnaryServerInterceptor returns a gRPC unary interceptor that enforces owner authentication.
// Methods listed in AllowMethods skip the check.
func (ai *AuthInterceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if _, ok := ai.allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		if ai.parser == nil {
			return nil, status.Error(codes.Unavailable, "authentication unavailable")
		}

		token, err := tokenFromMetadata(ctx)
		if err != nil {
			ai.logger.Warn("gRPC authentication failed", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unauthenticated, err.Error())
		}

		accountID, err := ai.parser.ParseOwnerToken(token)
		if err != nil {
			ai.logger.Warn("gRPC token validation failed", zap.String("method", info.FullMethod), zap.Error(err))
			switch {
			case errors.Is(err, security.ErrExpiredOwnerToken):
				return nil, status.Error(codes.Unauthenticated, "access token expired")
			case errors.Is(err, security.ErrInvalidOwnerToken):
				return nil, status.Error(codes.Unauthenticated, "invalid access token")
			default:
				return nil, status.Error(codes.Unauthenticated, "failed to validate access token")
			}
		}

		return handler(WithAccountID(ctx, accountID), req)
	}
}

type accountIDContextKey struct{}

// WithAccountID returns a derived context carrying the authenticated owner account ID.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	if accountID == "" {
		return ctx
	}
	return context.WithValue(ctx, accountIDContextKey{}, accountID)
}

// AccountIDFromContext extracts the authenticated owner account ID when present.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	accountID, ok := ctx.Value(accountIDContextKey{}).(string)
	return accountID, ok && accountID != ""
}

func tokenFromMetadata(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", errors.New("missing metadata")
	}

	var raw string
	if values := md.Get(authorizationKey); len(values) > 0 {
		raw = strings.TrimSpace(values[0])
	}
	if raw == "" {
		return "", errors.New("authorization token required")
	}

	if len(raw) < len(bearerPrefix) || !strings.HasPrefix(strings.ToLower(raw), bearerPrefix) {
		return "", errors.New("invalid authorization header")
	}

	token := strings.TrimSpace(raw[len(bearerPrefix):])
	if token == "" {
		return "", errors.New("authorization token required")
	}

	return token, nil
}
