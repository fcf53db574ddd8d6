//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"fedcore/internal/profile/mention"
	"fedcore/internal/profile/migration"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/notify"
	"fedcore/internal/profile/store"
	"fedcore/internal/profile/versions"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
	"fedcore/pkg/testutil/containers"
)

const (
	alice = models.Entity("https://alice.example.com")
	bob   = models.Entity("https://bob.example.com")
	carol = models.Entity("https://carol.example.com")
	coreV = models.CoreProfileTypeBase + "/v0.1.0"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.store.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) post(owner models.Entity, original bool) models.Post {
	p := models.Post{
		ID:       uuid.New(),
		Entity:   owner,
		Original: original,
		Type:     "https://tent.io/types/post/status/v0.1.0",
		Content:  models.Content{"text": "hi"},
	}
	s.Require().NoError(s.store.Posts().Create(context.Background(), &p))
	return p
}

func (s *PostgresStoreSuite) mention(p models.Post, target models.Entity) models.Mention {
	m := models.Mention{ID: uuid.New(), PostID: p.ID, Entity: target}
	s.Require().NoError(s.store.Mentions().Create(context.Background(), &m))
	return m
}

func (s *PostgresStoreSuite) TestPostRewrite() {
	ctx := context.Background()
	original := s.post(alice, true)
	mirrored := s.post(alice, false)

	n, err := s.store.Posts().RewriteOriginalEntity(ctx, alice, bob)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	got, err := s.store.Posts().FindByID(ctx, original.ID)
	s.Require().NoError(err)
	s.Equal(bob, got.Entity)
	s.Equal("hi", got.Content["text"])
	got, err = s.store.Posts().FindByID(ctx, mirrored.ID)
	s.Require().NoError(err)
	s.Equal(alice, got.Entity)
}

func (s *PostgresStoreSuite) TestMentionQueries() {
	ctx := context.Background()
	own := s.post(alice, true)
	s.mention(own, carol)
	s.mention(own, bob)
	s.mention(own, bob)
	foreign := s.post(carol, true)
	s.mention(foreign, alice)

	targets, err := s.store.Mentions().FindTargetsByPostOwner(ctx, alice)
	s.Require().NoError(err)
	s.Equal([]models.Entity{bob, carol}, targets)

	n, err := s.store.Mentions().RewriteEntity(ctx, bob, "https://bob.example.net")
	s.Require().NoError(err)
	s.Equal(int64(2), n)
	left, err := s.store.Mentions().FindByEntity(ctx, bob)
	s.Require().NoError(err)
	s.Empty(left)
}

func (s *PostgresStoreSuite) TestFollowersAndPermissions() {
	ctx := context.Background()
	s.Require().NoError(s.store.Followings().Create(ctx, &models.Following{ID: uuid.New(), FollowerEntity: carol, FollowedEntity: alice}))
	s.Require().NoError(s.store.Followings().Create(ctx, &models.Following{ID: uuid.New(), FollowerEntity: bob, FollowedEntity: bob}))
	err := s.store.Followings().Create(ctx, &models.Following{ID: uuid.New(), FollowerEntity: carol, FollowedEntity: alice})
	s.ErrorIs(err, sentinel.ErrConflict)

	followers, err := s.store.Followings().FindFollowers(ctx, []models.Entity{alice, bob})
	s.Require().NoError(err)
	s.Equal([]models.Entity{bob, carol}, followers)

	s.Require().NoError(s.store.Permissions().Create(ctx, &models.Permission{ID: uuid.New(), Entity: alice, ResourceKind: "post", ResourceID: "p1"}))
	s.Require().NoError(s.store.Permissions().Create(ctx, &models.Permission{ID: uuid.New(), Entity: bob, ResourceKind: "post", ResourceID: "p1"}))
	n, err := s.store.Permissions().Copy(ctx, alice, bob)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *PostgresStoreSuite) TestVersionStore() {
	ctx := context.Background()
	typ, err := models.ParseProfileType(coreV)
	s.Require().NoError(err)

	vs := versions.New(s.store.ProfileInfos())
	first, err := vs.Put(ctx, typ, models.Content{"entity": string(alice)}, versions.WithPublic(true))
	s.Require().NoError(err)
	s.True(first.IsNew)
	second, err := vs.Put(ctx, typ, models.Content{"entity": string(alice), "previous_entities": []any{}})
	s.Require().NoError(err)
	s.Equal(2, second.Version.Version)
	s.Equal(first.Profile.ID, second.Profile.ID)

	history, err := vs.Versions(ctx, typ)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(1, history[0].Version)
	s.True(history[1].Public)

	err = s.store.ProfileInfos().CreateCurrent(ctx, &models.ProfileInfo{ID: uuid.New(), TypeBase: typ.Base})
	s.ErrorIs(err, sentinel.ErrConflict)
}

type recordingNotifier struct {
	mu       sync.Mutex
	triggers int
	notified []models.Entity
}

func (r *recordingNotifier) Trigger(context.Context, string, models.ProfileChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers++
	return nil
}

func (r *recordingNotifier) NotifyEntity(_ context.Context, n models.EntityNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notified = append(r.notified, n.Entity)
	return nil
}

func (s *PostgresStoreSuite) newEngine(tx migration.StoreTx, notifier notify.Notifier) *migration.Engine {
	dispatcher, err := notify.New(mention.NewIndex(s.store.Mentions()), s.store.Followings(), notifier)
	s.Require().NoError(err)
	engine, err := migration.New(tx, dispatcher)
	s.Require().NoError(err)
	return engine
}

func (s *PostgresStoreSuite) TestMigrationEndToEnd() {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	engine := s.newEngine(s.store, notifier)

	own := s.post(alice, true)
	s.mention(own, carol)
	foreign := s.post(carol, true)
	inbound := s.mention(foreign, alice)

	_, err := engine.UpdateProfile(ctx, coreV, models.Content{"entity": string(alice)})
	s.Require().NoError(err)
	res, err := engine.UpdateProfile(ctx, coreV, models.Content{"entity": string(bob)})
	s.Require().NoError(err)

	s.Require().NotNil(res.Migration)
	s.Equal(int64(1), res.Migration.PostsRewritten)
	s.Equal(int64(1), res.Migration.MentionsRewritten)
	s.Equal([]models.Entity{alice}, res.Migration.PreviousEntities)

	m, err := s.store.Mentions().FindByID(ctx, inbound.ID)
	s.Require().NoError(err)
	s.Equal(bob, m.Entity)

	s.Equal(1, notifier.triggers)
	s.Equal([]models.Entity{carol}, notifier.notified)

	versionsCount, err := s.store.ProfileInfos().CountVersions(ctx)
	s.Require().NoError(err)
	s.Equal(2, versionsCount)
}

type brokenPermissions struct{}

func (brokenPermissions) Copy(context.Context, models.Entity, models.Entity) (int64, error) {
	return 0, errors.New("permission copy failed")
}

type brokenStores struct{ migration.Stores }

func (brokenStores) Permissions() migration.PermissionCopier { return brokenPermissions{} }

type brokenTx struct{ inner migration.StoreTx }

func (b brokenTx) RunInTx(ctx context.Context, fn func(migration.Stores) error) error {
	return b.inner.RunInTx(ctx, func(st migration.Stores) error { return fn(brokenStores{st}) })
}

func (s *PostgresStoreSuite) TestMigrationRollsBack() {
	ctx := context.Background()
	own := s.post(alice, true)
	_, err := s.newEngine(s.store, &recordingNotifier{}).UpdateProfile(ctx, coreV, models.Content{"entity": string(alice)})
	s.Require().NoError(err)

	_, err = s.newEngine(brokenTx{inner: s.store}, &recordingNotifier{}).
		UpdateProfile(ctx, coreV, models.Content{"entity": string(bob)})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	got, err := s.store.Posts().FindByID(ctx, own.ID)
	s.Require().NoError(err)
	s.Equal(alice, got.Entity)
	n, err := s.store.ProfileInfos().CountVersions(ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *PostgresStoreSuite) TestTxTimeout() {
	pg := store.NewPostgres(s.postgres.DB, store.WithTxTimeout(50*time.Millisecond))
	err := pg.RunInTx(context.Background(), func(st migration.Stores) error {
		time.Sleep(100 * time.Millisecond)
		_, err := st.Posts().RewriteOriginalEntity(context.Background(), alice, bob)
		return err
	})
	s.Require().Error(err)
}
