package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a content item owned by exactly one entity. Original marks content
// authored by that entity as opposed to mirrored or reposted content.
type Post struct {
	ID          uuid.UUID
	Entity      Entity
	Original    bool
	Type        string
	Public      bool
	Content     Content
	PublishedAt time.Time
}

// Mention is a directed edge from a post to a target entity. Entity is a cached
// copy of the target's canonical address and is rewritten on migration.
type Mention struct {
	ID     uuid.UUID
	PostID uuid.UUID
	Entity Entity
}

// Following subscribes FollowerEntity to FollowedEntity.
type Following struct {
	ID             uuid.UUID
	FollowerEntity Entity
	FollowedEntity Entity
	CreatedAt      time.Time
}

// Permission grants Entity access to a resource. Grants are only ever copied
// by this core; evaluation happens elsewhere.
type Permission struct {
	ID           uuid.UUID
	Entity       Entity
	ResourceKind string
	ResourceID   string
	CreatedAt    time.Time
}

// ProfileInfo is the current record for a profile info type base. At most one
// exists per base.
type ProfileInfo struct {
	ID          uuid.UUID
	TypeBase    string
	TypeVersion string
	Public      bool
	Content     Content
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Type returns the full type URI of the current content.
func (p *ProfileInfo) Type() ProfileType {
	return ProfileType{Base: p.TypeBase, Version: p.TypeVersion}
}

// Entity returns the canonical entity for a core profile info.
func (p *ProfileInfo) Entity() (Entity, bool) {
	return p.Content.Entity()
}

// ProfileInfoVersion is an immutable snapshot of a ProfileInfo. Version
// numbers start at 1 and increase by one per put.
type ProfileInfoVersion struct {
	ID            uuid.UUID
	ProfileInfoID uuid.UUID
	Version       int
	TypeBase      string
	TypeVersion   string
	Public        bool
	Content       Content
	CreatedAt     time.Time
}

// SnapshotOf builds the next version for info.
func SnapshotOf(info *ProfileInfo, version int, at time.Time) *ProfileInfoVersion {
	return &ProfileInfoVersion{
		ID:            uuid.New(),
		ProfileInfoID: info.ID,
		Version:       version,
		TypeBase:      info.TypeBase,
		TypeVersion:   info.TypeVersion,
		Public:        info.Public,
		Content:       info.Content.Clone(),
		CreatedAt:     at,
	}
}
