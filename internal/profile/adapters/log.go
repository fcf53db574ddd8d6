package adapters

import (
	"context"
	"log/slog"

	"fedcore/internal/profile/models"
)

// LogNotifier records notifications without delivering them. It is the
// outbound transport when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) NotifyEntity(ctx context.Context, n models.EntityNotification) error {
	l.logger.InfoContext(ctx, "entity notification",
		"recipient", n.Entity,
		"source_entity", n.SourceEntity,
		"old_entity", n.OldEntity,
		"event_id", n.EventID,
	)
	return nil
}
