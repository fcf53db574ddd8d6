// Package versions keeps the current profile info per type base together with
// its append-only version history.
package versions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fedcore/internal/profile/models"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

// Repository persists current profile infos and their versions. FindCurrent
// and LatestVersion return sentinel.ErrNotFound when nothing is stored;
// CreateCurrent returns sentinel.ErrConflict when the base already exists.
type Repository interface {
	FindCurrent(ctx context.Context, typeBase string) (*models.ProfileInfo, error)
	CreateCurrent(ctx context.Context, info *models.ProfileInfo) error
	UpdateCurrent(ctx context.Context, info *models.ProfileInfo) error
	AppendVersion(ctx context.Context, version *models.ProfileInfoVersion) error
	LatestVersion(ctx context.Context, profileInfoID uuid.UUID) (*models.ProfileInfoVersion, error)
	ListVersions(ctx context.Context, profileInfoID uuid.UUID) ([]*models.ProfileInfoVersion, error)
}

// PutResult reports what a put did.
type PutResult struct {
	IsNew   bool
	Profile *models.ProfileInfo
	Version *models.ProfileInfoVersion
}

// Store implements the put/latest contract over a Repository. It holds no
// state of its own; callers bind it to a transaction-scoped repository.
type Store struct {
	repo  Repository
	clock func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now for deterministic version timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(repo Repository, opts ...Option) *Store {
	s := &Store{repo: repo, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type putConfig struct {
	public *bool
}

type PutOption func(*putConfig)

// WithPublic sets the public flag. Without it an existing flag is kept and new
// records start private.
func WithPublic(public bool) PutOption {
	return func(c *putConfig) {
		c.public = &public
	}
}

// Put stores content as the current profile info for typ's base and appends
// one version carrying the same content.
func (s *Store) Put(ctx context.Context, typ models.ProfileType, content models.Content, opts ...PutOption) (*PutResult, error) {
	var cfg putConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	now := s.clock()

	current, err := s.repo.FindCurrent(ctx, typ.Base)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile info")
	}

	isNew := current == nil
	if isNew {
		current = &models.ProfileInfo{
			ID:        uuid.New(),
			TypeBase:  typ.Base,
			CreatedAt: now,
		}
	}
	current.TypeVersion = typ.Version
	current.Content = content.Clone()
	current.UpdatedAt = now
	if cfg.public != nil {
		current.Public = *cfg.public
	}

	next := 1
	if isNew {
		if err := s.repo.CreateCurrent(ctx, current); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.Wrap(err, dErrors.CodeConflict, "profile info created concurrently")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create profile info")
		}
	} else {
		if err := s.repo.UpdateCurrent(ctx, current); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "profile info vanished while being updated")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile info")
		}
		// every current record was written together with its first version
		latest, err := s.repo.LatestVersion(ctx, current.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.Wrap(err, dErrors.CodeInvariantViolation, "profile info has no versions")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest profile version")
		}
		next = latest.Version + 1
	}

	version := models.SnapshotOf(current, next, now)
	if err := s.repo.AppendVersion(ctx, version); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append profile version")
	}

	return &PutResult{IsNew: isNew, Profile: current, Version: version}, nil
}

// Current returns the current profile info for typ's base.
func (s *Store) Current(ctx context.Context, typ models.ProfileType) (*models.ProfileInfo, error) {
	info, err := s.repo.FindCurrent(ctx, typ.Base)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "profile info not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile info")
	}
	return info, nil
}

// LatestVersion returns the most recently appended version of info.
func (s *Store) LatestVersion(ctx context.Context, info *models.ProfileInfo) (*models.ProfileInfoVersion, error) {
	version, err := s.repo.LatestVersion(ctx, info.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "profile version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load latest profile version")
	}
	return version, nil
}

// Versions returns the full history of typ's base, oldest first.
func (s *Store) Versions(ctx context.Context, typ models.ProfileType) ([]*models.ProfileInfoVersion, error) {
	info, err := s.Current(ctx, typ)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.ListVersions(ctx, info.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list profile versions")
	}
	return versions, nil
}
