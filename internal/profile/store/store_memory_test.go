package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedcore/internal/profile/migration"
	"fedcore/internal/profile/models"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

const (
	alice = models.Entity("https://alice.example.com")
	bob   = models.Entity("https://bob.example.com")
	carol = models.Entity("https://carol.example.com")
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx context.Context
	mem *Memory
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.mem = NewMemory()
}

func (s *MemoryStoreSuite) post(owner models.Entity, original bool) models.Post {
	p := models.Post{ID: uuid.New(), Entity: owner, Original: original, Content: models.Content{}}
	s.Require().NoError(s.mem.Posts().Create(s.ctx, &p))
	return p
}

func (s *MemoryStoreSuite) TestPosts() {
	s.Run("rewrite touches only original posts of the entity", func() {
		s.post(alice, true)
		s.post(alice, true)
		s.post(alice, false)
		s.post(bob, true)

		n, err := s.mem.Posts().RewriteOriginalEntity(s.ctx, alice, carol)
		s.Require().NoError(err)
		s.Equal(int64(2), n)

		left, err := s.mem.Posts().FindByEntity(s.ctx, alice)
		s.Require().NoError(err)
		s.Require().Len(left, 1)
		s.False(left[0].Original)

		count, err := s.mem.Posts().Count(s.ctx)
		s.Require().NoError(err)
		s.Equal(4, count)
	})

	s.Run("duplicate id conflicts", func() {
		p := s.post(alice, true)
		err := s.mem.Posts().Create(s.ctx, &p)
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("missing post is not found", func() {
		_, err := s.mem.Posts().FindByID(s.ctx, uuid.New())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *MemoryStoreSuite) TestMentions() {
	s.Run("mention requires an existing post", func() {
		err := s.mem.Mentions().Create(s.ctx, &models.Mention{ID: uuid.New(), PostID: uuid.New(), Entity: bob})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("targets by owner are distinct and sorted", func() {
		p1 := s.post(alice, true)
		p2 := s.post(alice, false)
		for _, m := range []models.Mention{
			{ID: uuid.New(), PostID: p1.ID, Entity: carol},
			{ID: uuid.New(), PostID: p1.ID, Entity: bob},
			{ID: uuid.New(), PostID: p2.ID, Entity: bob},
		} {
			s.Require().NoError(s.mem.Mentions().Create(s.ctx, &m))
		}

		targets, err := s.mem.Mentions().FindTargetsByPostOwner(s.ctx, alice)
		s.Require().NoError(err)
		s.Equal([]models.Entity{bob, carol}, targets)
	})
}

func (s *MemoryStoreSuite) TestFollowings() {
	for _, f := range []models.Following{
		{ID: uuid.New(), FollowerEntity: carol, FollowedEntity: alice},
		{ID: uuid.New(), FollowerEntity: bob, FollowedEntity: alice},
		{ID: uuid.New(), FollowerEntity: bob, FollowedEntity: carol},
	} {
		s.Require().NoError(s.mem.Followings().Create(s.ctx, &f))
	}

	err := s.mem.Followings().Create(s.ctx, &models.Following{ID: uuid.New(), FollowerEntity: bob, FollowedEntity: alice})
	s.ErrorIs(err, sentinel.ErrConflict)

	followers, err := s.mem.Followings().FindFollowers(s.ctx, []models.Entity{alice, carol})
	s.Require().NoError(err)
	s.Equal([]models.Entity{bob, carol}, followers)
}

func (s *MemoryStoreSuite) TestPermissionsCopyIsAdditive() {
	grant := func(e models.Entity, id string) {
		s.Require().NoError(s.mem.Permissions().Create(s.ctx, &models.Permission{
			ID: uuid.New(), Entity: e, ResourceKind: "post", ResourceID: id,
		}))
	}
	grant(alice, "p1")
	grant(alice, "p2")
	grant(bob, "p2")

	n, err := s.mem.Permissions().Copy(s.ctx, alice, bob)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	bobs, err := s.mem.Permissions().FindByEntity(s.ctx, bob)
	s.Require().NoError(err)
	s.Len(bobs, 2)
	alices, err := s.mem.Permissions().FindByEntity(s.ctx, alice)
	s.Require().NoError(err)
	s.Len(alices, 2)
}

func (s *MemoryStoreSuite) TestRunInTx() {
	s.Run("commits every write on success", func() {
		p := s.post(alice, true)
		err := s.mem.RunInTx(s.ctx, func(stores migration.Stores) error {
			_, err := stores.Posts().RewriteOriginalEntity(s.ctx, alice, bob)
			return err
		})
		s.Require().NoError(err)

		got, err := s.mem.Posts().FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(bob, got.Entity)
	})

	s.Run("discards every write on error", func() {
		p := s.post(carol, true)
		boom := errors.New("boom")
		err := s.mem.RunInTx(s.ctx, func(stores migration.Stores) error {
			if _, err := stores.Posts().RewriteOriginalEntity(s.ctx, carol, alice); err != nil {
				return err
			}
			info := &models.ProfileInfo{ID: uuid.New(), TypeBase: models.CoreProfileTypeBase}
			if err := stores.ProfileInfos().CreateCurrent(s.ctx, info); err != nil {
				return err
			}
			return boom
		})
		s.ErrorIs(err, boom)

		got, err := s.mem.Posts().FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(carol, got.Entity)
		_, err = s.mem.ProfileInfos().FindCurrent(s.ctx, models.CoreProfileTypeBase)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("reads inside the transaction see its own writes", func() {
		p := s.post(alice, true)
		err := s.mem.RunInTx(s.ctx, func(stores migration.Stores) error {
			if _, err := stores.Posts().RewriteOriginalEntity(s.ctx, alice, carol); err != nil {
				return err
			}
			n, err := stores.Mentions().FindTargetsByPostOwner(s.ctx, carol)
			s.Empty(n)
			return err
		})
		s.Require().NoError(err)
		got, err := s.mem.Posts().FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(carol, got.Entity)
	})

	s.Run("cancelled context aborts with timeout code", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		cancel()
		err := s.mem.RunInTx(ctx, func(migration.Stores) error { return nil })
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
	})

	s.Run("exceeding the transaction timeout does not commit", func() {
		mem := NewMemory(WithMemoryTxTimeout(10 * time.Millisecond))
		p := models.Post{ID: uuid.New(), Entity: alice, Original: true}
		s.Require().NoError(mem.Posts().Create(s.ctx, &p))

		err := mem.RunInTx(s.ctx, func(stores migration.Stores) error {
			if _, err := stores.Posts().RewriteOriginalEntity(s.ctx, alice, bob); err != nil {
				return err
			}
			time.Sleep(50 * time.Millisecond)
			return nil
		})
		s.True(dErrors.HasCode(err, dErrors.CodeTimeout))

		got, err := mem.Posts().FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(alice, got.Entity)
	})
}

func (s *MemoryStoreSuite) TestProfilesReturnCopies() {
	info := &models.ProfileInfo{ID: uuid.New(), TypeBase: "https://tent.io/types/info/basic", Content: models.Content{"name": "a"}}
	s.Require().NoError(s.mem.ProfileInfos().CreateCurrent(s.ctx, info))
	info.Content["name"] = "mutated"

	got, err := s.mem.ProfileInfos().FindCurrent(s.ctx, info.TypeBase)
	s.Require().NoError(err)
	s.Equal("a", got.Content["name"])

	err = s.mem.ProfileInfos().CreateCurrent(s.ctx, info)
	s.ErrorIs(err, sentinel.ErrConflict)
}
