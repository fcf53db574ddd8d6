package models

import (
	"github.com/google/uuid"
)

// Migration summarizes a committed change of canonical address.
type Migration struct {
	OldEntity         Entity
	NewEntity         Entity
	PreviousEntities  []Entity
	PostsRewritten    int64
	MentionsRewritten int64
	PermissionsCopied int64
}

// ChangeSet tells the dispatcher what changed in a profile update.
type ChangeSet struct {
	EntityChanged bool
	OldEntity     Entity
}

// ProfileChangedEvent is the trigger name emitted once per migration.
const ProfileChangedEvent = "profile.changed"

// ProfileChange is the in-process trigger payload.
type ProfileChange struct {
	EventID       uuid.UUID `json:"event_id"`
	Entity        Entity    `json:"entity"`
	OldEntity     Entity    `json:"old_entity,omitempty"`
	EntityChanged bool      `json:"entity_changed"`
	Type          string    `json:"type"`
}

// EntityNotification is one outbound notify_entity call. EventID is shared by
// every recipient of the same migration so transports can deduplicate replays.
type EntityNotification struct {
	EventID      uuid.UUID `json:"event_id"`
	Entity       Entity    `json:"entity"`
	SourceEntity Entity    `json:"source_entity"`
	OldEntity    Entity    `json:"old_entity,omitempty"`
	Type         string    `json:"type"`
}

// DeliveryFailure records a recipient whose notification was not accepted.
type DeliveryFailure struct {
	Recipient Entity
	Err       error
}

// DeliveryReport is the outcome of one dispatch.
type DeliveryReport struct {
	EventID    uuid.UUID
	Recipients []Entity
	Delivered  int
	TriggerErr error
	Failures   []DeliveryFailure
}

// OK reports whether the trigger and every notification succeeded.
func (r *DeliveryReport) OK() bool {
	return r.TriggerErr == nil && len(r.Failures) == 0
}

// UpdateResult is returned by a profile update. Warnings hold non-fatal
// notification failures; the update itself has been committed.
type UpdateResult struct {
	Profile   *ProfileInfo
	Version   *ProfileInfoVersion
	Created   bool
	Migration *Migration
	Delivery  *DeliveryReport
	Warnings  []error
}
