package migration

import (
	"context"

	"fedcore/internal/profile/mention"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/versions"
)

// PostRepository rewrites authored posts.
type PostRepository interface {
	// RewriteOriginalEntity sets entity = to on every post with entity = from
	// and original = true, returning the number of rows changed.
	RewriteOriginalEntity(ctx context.Context, from, to models.Entity) (int64, error)
}

// PermissionCopier duplicates grants from one entity address to another. The
// copy is additive; grants under from are kept.
type PermissionCopier interface {
	Copy(ctx context.Context, from, to models.Entity) (int64, error)
}

// Stores exposes the repositories bound to one transaction.
type Stores interface {
	ProfileInfos() versions.Repository
	Posts() PostRepository
	Mentions() mention.Repository
	Permissions() PermissionCopier
}

// StoreTx provides the transactional boundary spanning reference rewrites and
// the profile write. Either everything fn wrote becomes visible or nothing does.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(stores Stores) error) error
}

// Dispatcher fans a committed change out to interested entities.
type Dispatcher interface {
	Notify(ctx context.Context, info *models.ProfileInfo, change models.ChangeSet) (*models.DeliveryReport, error)
}
