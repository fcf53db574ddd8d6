// Package mention indexes the entities referenced by posts.
package mention

import (
	"context"

	"fedcore/internal/profile/models"
	dErrors "fedcore/pkg/domain-errors"
)

// Repository is the storage behind the index. Results are ordered by mention
// creation.
type Repository interface {
	FindByEntity(ctx context.Context, entity models.Entity) ([]models.Mention, error)
	// RewriteEntity sets entity = to on every mention whose entity = from and
	// returns the number of rows changed. Post ownership is never touched.
	RewriteEntity(ctx context.Context, from, to models.Entity) (int64, error)
	// FindTargetsByPostOwner returns the distinct entities mentioned by posts
	// whose owner is owner.
	FindTargetsByPostOwner(ctx context.Context, owner models.Entity) ([]models.Entity, error)
}

// Index answers mention lookups and performs the bulk entity rewrite.
type Index struct {
	repo Repository
}

func NewIndex(repo Repository) *Index {
	return &Index{repo: repo}
}

// FindByEntity returns every mention whose stored entity equals entity.
func (i *Index) FindByEntity(ctx context.Context, entity models.Entity) ([]models.Mention, error) {
	mentions, err := i.repo.FindByEntity(ctx, entity)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find mentions by entity")
	}
	return mentions, nil
}

// Rewrite moves every mention of from to to.
func (i *Index) Rewrite(ctx context.Context, from, to models.Entity) (int64, error) {
	if from.IsZero() || to.IsZero() {
		return 0, dErrors.New(dErrors.CodeValidation, "mention rewrite requires both entities")
	}
	if from == to {
		return 0, nil
	}
	n, err := i.repo.RewriteEntity(ctx, from, to)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to rewrite mentions")
	}
	return n, nil
}

// MentionedBy returns the distinct entities referenced by owner's posts.
func (i *Index) MentionedBy(ctx context.Context, owner models.Entity) ([]models.Entity, error) {
	targets, err := i.repo.FindTargetsByPostOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to find mentioned entities")
	}
	return targets, nil
}
