package adapters

import (
	"context"
	"log/slog"

	"fedcore/internal/profile/models"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/circuit"
	"fedcore/pkg/platform/sentinel"
)

// BreakingSender fails fast while the outbound transport keeps failing, so a
// broker outage costs one probe per cooldown instead of a timeout per
// recipient.
type BreakingSender struct {
	next    EntitySender
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakingSender(next EntitySender, breaker *circuit.Breaker, logger *slog.Logger) *BreakingSender {
	return &BreakingSender{next: next, breaker: breaker, logger: logger}
}

func (b *BreakingSender) NotifyEntity(ctx context.Context, n models.EntityNotification) error {
	if !b.breaker.Allow() {
		return dErrors.Wrap(sentinel.ErrUnavailable, dErrors.CodeUnavailable, "notification transport circuit open")
	}
	if err := b.next.NotifyEntity(ctx, n); err != nil {
		if _, change := b.breaker.RecordFailure(); change.Opened {
			b.log(ctx, slog.LevelWarn, "notification circuit opened", "breaker", b.breaker.Name(), "error", err)
		}
		return err
	}
	if _, change := b.breaker.RecordSuccess(); change.Closed {
		b.log(ctx, slog.LevelInfo, "notification circuit closed", "breaker", b.breaker.Name())
	}
	return nil
}

func (b *BreakingSender) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if b.logger != nil {
		b.logger.Log(ctx, level, msg, args...)
	}
}
