package versions_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedcore/internal/profile/models"
	"fedcore/internal/profile/store"
	"fedcore/internal/profile/versions"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

type VersionStoreSuite struct {
	suite.Suite
	ctx   context.Context
	repo  *store.MemoryProfiles
	now   time.Time
	store *versions.Store
}

func TestVersionStoreSuite(t *testing.T) {
	suite.Run(t, new(VersionStoreSuite))
}

func (s *VersionStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.repo = store.NewMemory().ProfileInfos()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = versions.New(s.repo, versions.WithClock(func() time.Time { return s.now }))
}

func mustType(s *VersionStoreSuite, uri string) models.ProfileType {
	typ, err := models.ParseProfileType(uri)
	s.Require().NoError(err)
	return typ
}

func (s *VersionStoreSuite) TestPut() {
	typ := mustType(s, "https://tent.io/types/info/basic/v0.1.0")

	s.Run("first put creates record and version 1", func() {
		res, err := s.store.Put(s.ctx, typ, models.Content{"name": "Alice"}, versions.WithPublic(true))
		s.Require().NoError(err)
		s.True(res.IsNew)
		s.True(res.Profile.Public)
		s.Equal("0.1.0", res.Profile.TypeVersion)
		s.Equal(1, res.Version.Version)
		s.Equal(s.now, res.Version.CreatedAt)
		s.Equal(res.Profile.Content, res.Version.Content)
	})

	s.Run("second put replaces content and appends version 2", func() {
		s.now = s.now.Add(time.Minute)
		next := mustType(s, "https://tent.io/types/info/basic/v0.2.0")

		res, err := s.store.Put(s.ctx, next, models.Content{"name": "Alicia"})
		s.Require().NoError(err)
		s.False(res.IsNew)
		s.True(res.Profile.Public, "public flag is kept when not supplied")
		s.Equal("0.2.0", res.Profile.TypeVersion)
		s.Equal(2, res.Version.Version)

		current, err := s.store.Current(s.ctx, typ)
		s.Require().NoError(err)
		s.Equal("Alicia", current.Content["name"])
		s.Equal(s.now, current.UpdatedAt)
	})

	s.Run("history keeps every snapshot in order", func() {
		history, err := s.store.Versions(s.ctx, typ)
		s.Require().NoError(err)
		s.Require().Len(history, 2)
		s.Equal(1, history[0].Version)
		s.Equal("Alice", history[0].Content["name"])
		s.Equal(2, history[1].Version)
	})

	s.Run("caller mutations do not leak into stored content", func() {
		content := models.Content{"tags": []any{"a"}}
		_, err := s.store.Put(s.ctx, typ, content)
		s.Require().NoError(err)
		content["tags"].([]any)[0] = "mutated"

		current, err := s.store.Current(s.ctx, typ)
		s.Require().NoError(err)
		s.Equal([]any{"a"}, current.Content["tags"])
	})
}

func (s *VersionStoreSuite) TestLatestVersion() {
	typ := mustType(s, models.CoreProfileTypeBase+"/v0.1.0")
	for i := 0; i < 3; i++ {
		_, err := s.store.Put(s.ctx, typ, models.Content{"n": i})
		s.Require().NoError(err)
	}
	info, err := s.store.Current(s.ctx, typ)
	s.Require().NoError(err)

	latest, err := s.store.LatestVersion(s.ctx, info)
	s.Require().NoError(err)
	s.Equal(3, latest.Version)
	s.Equal(info.ID, latest.ProfileInfoID)
}

func (s *VersionStoreSuite) TestNotFound() {
	typ := mustType(s, "https://tent.io/types/info/missing/v0.1.0")

	_, err := s.store.Current(s.ctx, typ)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.Versions(s.ctx, typ)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.store.LatestVersion(s.ctx, &models.ProfileInfo{ID: uuid.New()})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

type failingRepo struct {
	versions.Repository
}

func (failingRepo) FindCurrent(context.Context, string) (*models.ProfileInfo, error) {
	return nil, errors.New("connection reset")
}

func (s *VersionStoreSuite) TestStorageErrorsAreInternal() {
	svc := versions.New(failingRepo{})
	typ := mustType(s, models.CoreProfileTypeBase)

	_, err := svc.Put(s.ctx, typ, models.Content{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// staleRepo serves a current record the backing store no longer has, or one
// whose versions are missing.
type staleRepo struct {
	*store.MemoryProfiles
	current    *models.ProfileInfo
	noVersions bool
}

func (r staleRepo) FindCurrent(context.Context, string) (*models.ProfileInfo, error) {
	info := *r.current
	info.Content = r.current.Content.Clone()
	return &info, nil
}

func (r staleRepo) LatestVersion(ctx context.Context, id uuid.UUID) (*models.ProfileInfoVersion, error) {
	if r.noVersions {
		return nil, sentinel.ErrNotFound
	}
	return r.MemoryProfiles.LatestVersion(ctx, id)
}

func (s *VersionStoreSuite) TestBrokenHistoryIsInvariantViolation() {
	typ := mustType(s, models.CoreProfileTypeBase+"/v0.1.0")

	s.Run("current record vanished before update", func() {
		ghost := &models.ProfileInfo{ID: uuid.New(), TypeBase: typ.Base, Content: models.Content{}}
		svc := versions.New(staleRepo{MemoryProfiles: s.repo, current: ghost})

		_, err := svc.Put(s.ctx, typ, models.Content{"name": "Alice"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("current record without versions", func() {
		res, err := s.store.Put(s.ctx, typ, models.Content{"name": "Alice"})
		s.Require().NoError(err)
		svc := versions.New(staleRepo{MemoryProfiles: s.repo, current: res.Profile, noVersions: true})

		_, err = svc.Put(s.ctx, typ, models.Content{"name": "Bob"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

		n, err := s.repo.CountVersions(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n, "no version is appended")
	})
}
