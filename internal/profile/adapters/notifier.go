package adapters

import (
	"context"

	"fedcore/internal/profile/models"
)

// EventTrigger emits in-process events.
type EventTrigger interface {
	Trigger(ctx context.Context, event string, payload models.ProfileChange) error
}

// EntitySender delivers one notify_entity call.
type EntitySender interface {
	NotifyEntity(ctx context.Context, n models.EntityNotification) error
}

// Notifier combines an in-process trigger with an outbound sender into the
// dispatcher's notifier port.
type Notifier struct {
	EventTrigger
	EntitySender
}

func NewNotifier(trigger EventTrigger, sender EntitySender) *Notifier {
	return &Notifier{EventTrigger: trigger, EntitySender: sender}
}
