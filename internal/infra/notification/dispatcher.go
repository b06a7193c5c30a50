package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/VickyKR37/autobook/internal/core/domain"
	"github.com/VickyKR37/autobook/internal/core/port"
	"github.com/VickyKR37/autobook/internal/infra/logger"
)

// LoggingDispatcher records initial access code disclosures without delivering them.
// The plaintext is written only when development mode is enabled.
type LoggingDispatcher struct {
	logger      *zap.Logger
	development bool
}

var _ port.AccessCodeDispatcher = (*LoggingDispatcher)(nil)

// NewLoggingDispatcher constructs a dispatcher backed by structured logging.
func NewLoggingDispatcher(logger *zap.Logger, development bool) *LoggingDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingDispatcher{logger: logger, development: development}
}

// DispatchInitialCode logs the disclosure of a freshly issued access code.
func (d *LoggingDispatcher) DispatchInitialCode(_ context.Context, issued domain.IssuedAccessCode) error {
	if d == nil || d.logger == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("account_id", issued.AccountID),
		zap.String("email", logger.MaskEmail(issued.Email)),
		zap.Time("issued_at", issued.IssuedAt),
	}

	if d.development {
		fields = append(fields, zap.String("dev_access_code", issued.Code))
		d.logger.Warn("dispatch initial access code (development only)", fields...)
		return nil
	}

	fields = append(fields, zap.String("access_code", logger.MaskAccessCode(issued.Code)))
	d.logger.Info("dispatch initial access code", fields...)
	return nil
}
