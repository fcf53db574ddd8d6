package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fedcore/internal/profile/mention"
	"fedcore/internal/profile/migration"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/versions"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

// defaultTxTimeout is the maximum duration for a migration transaction.
const defaultTxTimeout = 5 * time.Second

// tables is one consistent snapshot of every record type.
type tables struct {
	posts       []models.Post
	mentions    []models.Mention
	followings  []models.Following
	permissions []models.Permission
	profiles    map[string]*models.ProfileInfo
	versions    map[uuid.UUID][]*models.ProfileInfoVersion
}

func newTables() *tables {
	return &tables{
		profiles: make(map[string]*models.ProfileInfo),
		versions: make(map[uuid.UUID][]*models.ProfileInfoVersion),
	}
}

func (t *tables) clone() *tables {
	out := &tables{
		posts:       make([]models.Post, len(t.posts)),
		mentions:    append([]models.Mention(nil), t.mentions...),
		followings:  append([]models.Following(nil), t.followings...),
		permissions: append([]models.Permission(nil), t.permissions...),
		profiles:    make(map[string]*models.ProfileInfo, len(t.profiles)),
		versions:    make(map[uuid.UUID][]*models.ProfileInfoVersion, len(t.versions)),
	}
	for i, p := range t.posts {
		p.Content = p.Content.Clone()
		out.posts[i] = p
	}
	for k, v := range t.profiles {
		out.profiles[k] = cloneProfile(v)
	}
	// versions are immutable once appended, so sharing pointers is safe
	for k, v := range t.versions {
		out.versions[k] = append([]*models.ProfileInfoVersion(nil), v...)
	}
	return out
}

// Memory is an in-process implementation of every profile repository. Writers
// and transactions are serialized; a transaction works on a private snapshot
// that replaces the live tables only when fn succeeds.
type Memory struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    *tables
	timeout time.Duration
}

type MemoryOption func(*Memory)

// WithMemoryTxTimeout bounds RunInTx when the caller's context has no deadline.
func WithMemoryTxTimeout(d time.Duration) MemoryOption {
	return func(m *Memory) {
		m.timeout = d
	}
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{data: newTables()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// memScope routes reads and writes either to the live tables or to the
// snapshot of an open transaction.
type memScope struct {
	m  *Memory
	tx *tables
}

func (s memScope) read(fn func(t *tables)) {
	if s.tx != nil {
		fn(s.tx)
		return
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	fn(s.m.data)
}

func (s memScope) write(fn func(t *tables) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	s.m.writeMu.Lock()
	defer s.m.writeMu.Unlock()
	next := s.m.snapshot()
	if err := fn(next); err != nil {
		return err
	}
	s.m.mu.Lock()
	s.m.data = next
	s.m.mu.Unlock()
	return nil
}

func (m *Memory) snapshot() *tables {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.clone()
}

func (m *Memory) live() memScope {
	return memScope{m: m}
}

// RunInTx runs fn against a snapshot and publishes it atomically on success.
func (m *Memory) RunInTx(ctx context.Context, fn func(stores migration.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := m.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	next := m.snapshot()
	if err := fn(memStores{memScope{m: m, tx: next}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted before commit")
	}

	m.mu.Lock()
	m.data = next
	m.mu.Unlock()
	return nil
}

type memStores struct {
	scope memScope
}

func (s memStores) ProfileInfos() versions.Repository       { return &MemoryProfiles{s.scope} }
func (s memStores) Posts() migration.PostRepository         { return &MemoryPosts{s.scope} }
func (s memStores) Mentions() mention.Repository            { return &MemoryMentions{s.scope} }
func (s memStores) Permissions() migration.PermissionCopier { return &MemoryPermissions{s.scope} }

// Repositories outside of any transaction.

func (m *Memory) ProfileInfos() *MemoryProfiles   { return &MemoryProfiles{m.live()} }
func (m *Memory) Posts() *MemoryPosts             { return &MemoryPosts{m.live()} }
func (m *Memory) Mentions() *MemoryMentions       { return &MemoryMentions{m.live()} }
func (m *Memory) Permissions() *MemoryPermissions { return &MemoryPermissions{m.live()} }
func (m *Memory) Followings() *MemoryFollowings   { return &MemoryFollowings{m.live()} }

// MemoryPosts stores posts.
type MemoryPosts struct{ scope memScope }

func (s *MemoryPosts) Create(_ context.Context, post *models.Post) error {
	return s.scope.write(func(t *tables) error {
		for _, p := range t.posts {
			if p.ID == post.ID {
				return sentinel.ErrConflict
			}
		}
		p := *post
		p.Content = post.Content.Clone()
		t.posts = append(t.posts, p)
		return nil
	})
}

func (s *MemoryPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	var found *models.Post
	s.scope.read(func(t *tables) {
		for _, p := range t.posts {
			if p.ID == id {
				p.Content = p.Content.Clone()
				found = &p
				return
			}
		}
	})
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

func (s *MemoryPosts) FindByEntity(_ context.Context, entity models.Entity) ([]models.Post, error) {
	var out []models.Post
	s.scope.read(func(t *tables) {
		for _, p := range t.posts {
			if p.Entity == entity {
				p.Content = p.Content.Clone()
				out = append(out, p)
			}
		}
	})
	return out, nil
}

func (s *MemoryPosts) RewriteOriginalEntity(_ context.Context, from, to models.Entity) (int64, error) {
	var n int64
	err := s.scope.write(func(t *tables) error {
		for i := range t.posts {
			if t.posts[i].Original && t.posts[i].Entity == from {
				t.posts[i].Entity = to
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *MemoryPosts) Count(_ context.Context) (int, error) {
	var n int
	s.scope.read(func(t *tables) { n = len(t.posts) })
	return n, nil
}

// MemoryMentions stores mentions and answers mention index queries.
type MemoryMentions struct{ scope memScope }

func (s *MemoryMentions) Create(_ context.Context, m *models.Mention) error {
	return s.scope.write(func(t *tables) error {
		found := false
		for _, p := range t.posts {
			if p.ID == m.PostID {
				found = true
				break
			}
		}
		if !found {
			return sentinel.ErrNotFound
		}
		t.mentions = append(t.mentions, *m)
		return nil
	})
}

func (s *MemoryMentions) FindByID(_ context.Context, id uuid.UUID) (*models.Mention, error) {
	var found *models.Mention
	s.scope.read(func(t *tables) {
		for _, m := range t.mentions {
			if m.ID == id {
				found = &m
				return
			}
		}
	})
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

func (s *MemoryMentions) FindByEntity(_ context.Context, entity models.Entity) ([]models.Mention, error) {
	var out []models.Mention
	s.scope.read(func(t *tables) {
		for _, m := range t.mentions {
			if m.Entity == entity {
				out = append(out, m)
			}
		}
	})
	return out, nil
}

func (s *MemoryMentions) RewriteEntity(_ context.Context, from, to models.Entity) (int64, error) {
	var n int64
	err := s.scope.write(func(t *tables) error {
		for i := range t.mentions {
			if t.mentions[i].Entity == from {
				t.mentions[i].Entity = to
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *MemoryMentions) FindTargetsByPostOwner(_ context.Context, owner models.Entity) ([]models.Entity, error) {
	var out []models.Entity
	s.scope.read(func(t *tables) {
		owned := make(map[uuid.UUID]struct{})
		for _, p := range t.posts {
			if p.Entity == owner {
				owned[p.ID] = struct{}{}
			}
		}
		seen := make(map[models.Entity]struct{})
		for _, m := range t.mentions {
			if _, ok := owned[m.PostID]; !ok {
				continue
			}
			if _, dup := seen[m.Entity]; dup {
				continue
			}
			seen[m.Entity] = struct{}{}
			out = append(out, m.Entity)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// MemoryFollowings stores subscriptions.
type MemoryFollowings struct{ scope memScope }

func (s *MemoryFollowings) Create(_ context.Context, f *models.Following) error {
	return s.scope.write(func(t *tables) error {
		for _, existing := range t.followings {
			if existing.FollowerEntity == f.FollowerEntity && existing.FollowedEntity == f.FollowedEntity {
				return sentinel.ErrConflict
			}
		}
		t.followings = append(t.followings, *f)
		return nil
	})
}

func (s *MemoryFollowings) FindFollowers(_ context.Context, followed []models.Entity) ([]models.Entity, error) {
	want := make(map[models.Entity]struct{}, len(followed))
	for _, e := range followed {
		want[e] = struct{}{}
	}
	var out []models.Entity
	s.scope.read(func(t *tables) {
		seen := make(map[models.Entity]struct{})
		for _, f := range t.followings {
			if _, ok := want[f.FollowedEntity]; !ok {
				continue
			}
			if _, dup := seen[f.FollowerEntity]; dup {
				continue
			}
			seen[f.FollowerEntity] = struct{}{}
			out = append(out, f.FollowerEntity)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// MemoryPermissions stores grants.
type MemoryPermissions struct{ scope memScope }

func (s *MemoryPermissions) Create(_ context.Context, p *models.Permission) error {
	return s.scope.write(func(t *tables) error {
		if hasGrant(t.permissions, p.Entity, p.ResourceKind, p.ResourceID) {
			return sentinel.ErrConflict
		}
		t.permissions = append(t.permissions, *p)
		return nil
	})
}

func (s *MemoryPermissions) FindByEntity(_ context.Context, entity models.Entity) ([]models.Permission, error) {
	var out []models.Permission
	s.scope.read(func(t *tables) {
		for _, p := range t.permissions {
			if p.Entity == entity {
				out = append(out, p)
			}
		}
	})
	return out, nil
}

func (s *MemoryPermissions) Copy(_ context.Context, from, to models.Entity) (int64, error) {
	var n int64
	err := s.scope.write(func(t *tables) error {
		now := time.Now()
		for _, p := range t.permissions {
			if p.Entity != from || hasGrant(t.permissions, to, p.ResourceKind, p.ResourceID) {
				continue
			}
			t.permissions = append(t.permissions, models.Permission{
				ID:           uuid.New(),
				Entity:       to,
				ResourceKind: p.ResourceKind,
				ResourceID:   p.ResourceID,
				CreatedAt:    now,
			})
			n++
		}
		return nil
	})
	return n, err
}

func hasGrant(grants []models.Permission, entity models.Entity, kind, resourceID string) bool {
	for _, g := range grants {
		if g.Entity == entity && g.ResourceKind == kind && g.ResourceID == resourceID {
			return true
		}
	}
	return false
}

// MemoryProfiles stores current profile infos and their versions.
type MemoryProfiles struct{ scope memScope }

func (s *MemoryProfiles) FindCurrent(_ context.Context, typeBase string) (*models.ProfileInfo, error) {
	var found *models.ProfileInfo
	s.scope.read(func(t *tables) {
		if info, ok := t.profiles[typeBase]; ok {
			found = cloneProfile(info)
		}
	})
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

func (s *MemoryProfiles) CreateCurrent(_ context.Context, info *models.ProfileInfo) error {
	return s.scope.write(func(t *tables) error {
		if _, exists := t.profiles[info.TypeBase]; exists {
			return sentinel.ErrConflict
		}
		t.profiles[info.TypeBase] = cloneProfile(info)
		return nil
	})
}

func (s *MemoryProfiles) UpdateCurrent(_ context.Context, info *models.ProfileInfo) error {
	return s.scope.write(func(t *tables) error {
		existing, ok := t.profiles[info.TypeBase]
		if !ok || existing.ID != info.ID {
			return sentinel.ErrNotFound
		}
		t.profiles[info.TypeBase] = cloneProfile(info)
		return nil
	})
}

func (s *MemoryProfiles) AppendVersion(_ context.Context, v *models.ProfileInfoVersion) error {
	return s.scope.write(func(t *tables) error {
		for _, existing := range t.versions[v.ProfileInfoID] {
			if existing.Version == v.Version {
				return sentinel.ErrConflict
			}
		}
		stored := *v
		stored.Content = v.Content.Clone()
		t.versions[v.ProfileInfoID] = append(t.versions[v.ProfileInfoID], &stored)
		return nil
	})
}

func (s *MemoryProfiles) LatestVersion(_ context.Context, profileInfoID uuid.UUID) (*models.ProfileInfoVersion, error) {
	var found *models.ProfileInfoVersion
	s.scope.read(func(t *tables) {
		list := t.versions[profileInfoID]
		if len(list) > 0 {
			found = cloneVersion(list[len(list)-1])
		}
	})
	if found == nil {
		return nil, sentinel.ErrNotFound
	}
	return found, nil
}

func (s *MemoryProfiles) ListVersions(_ context.Context, profileInfoID uuid.UUID) ([]*models.ProfileInfoVersion, error) {
	var out []*models.ProfileInfoVersion
	s.scope.read(func(t *tables) {
		for _, v := range t.versions[profileInfoID] {
			out = append(out, cloneVersion(v))
		}
	})
	return out, nil
}

// CountCurrent returns the number of current profile infos.
func (s *MemoryProfiles) CountCurrent(_ context.Context) (int, error) {
	var n int
	s.scope.read(func(t *tables) { n = len(t.profiles) })
	return n, nil
}

// CountVersions returns the number of versions across every profile info.
func (s *MemoryProfiles) CountVersions(_ context.Context) (int, error) {
	var n int
	s.scope.read(func(t *tables) {
		for _, list := range t.versions {
			n += len(list)
		}
	})
	return n, nil
}

func cloneProfile(info *models.ProfileInfo) *models.ProfileInfo {
	out := *info
	out.Content = info.Content.Clone()
	return &out
}

func cloneVersion(v *models.ProfileInfoVersion) *models.ProfileInfoVersion {
	out := *v
	out.Content = v.Content.Clone()
	return &out
}
