package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/you/incidentsvc/domain"
)

// ZapLogger writes audit events as structured log entries on a dedicated "audit" logger
type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger creates an audit logger on top of logger
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapLogger{logger: logger.Named("audit")}
}

// LogEvent never fails; failed events are logged at warn level
func (l *ZapLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("event_type", string(event.EventType)),
		zap.Bool("success", event.Success),
		zap.Time("timestamp", event.Timestamp),
	}
	if event.AttemptID != "" {
		fields = append(fields, zap.String("attempt_id", event.AttemptID))
	}
	if event.ReportID != "" {
		fields = append(fields, zap.String("report_id", event.ReportID))
	}
	if event.Phone != "" {
		fields = append(fields, zap.String("phone", event.Phone))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}

	if !event.Success {
		fields = append(fields, zap.String("error", event.ErrorMsg))
		l.logger.Warn("audit event", fields...)
		return nil
	}
	l.logger.Info("audit event", fields...)
	return nil
}

var _ domain.AuditLogger = (*ZapLogger)(nil)
