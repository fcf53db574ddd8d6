package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"fedcore/internal/profile/mention"
	"fedcore/internal/profile/migration"
	"fedcore/internal/profile/models"
	"fedcore/internal/profile/versions"
	dErrors "fedcore/pkg/domain-errors"
	"fedcore/pkg/platform/sentinel"
)

// Postgres persists profile records in PostgreSQL.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

type PostgresOption func(*Postgres)

// WithTxTimeout bounds RunInTx when the caller's context has no deadline.
func WithTxTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		p.timeout = d
	}
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB, opts ...PostgresOption) *Postgres {
	p := &Postgres{db: db}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// execer is the subset of *sql.DB and *sql.Tx used by repositories.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// pgScope binds repositories to the transaction opened by RunInTx, or to
// the pool when tx is nil.
type pgScope struct {
	db *sql.DB
	tx *sql.Tx
}

func (s pgScope) q() execer {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s pgScope) inTx() bool {
	return s.tx != nil
}

// RunInTx runs fn inside a single database transaction.
func (p *Postgres) RunInTx(ctx context.Context, fn func(stores migration.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := p.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(pgStores{pgScope{db: p.db, tx: sqlTx}}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type pgStores struct {
	scope pgScope
}

func (s pgStores) ProfileInfos() versions.Repository       { return &PostgresProfiles{s.scope} }
func (s pgStores) Posts() migration.PostRepository         { return &PostgresPosts{s.scope} }
func (s pgStores) Mentions() mention.Repository            { return &PostgresMentions{s.scope} }
func (s pgStores) Permissions() migration.PermissionCopier { return &PostgresPermissions{s.scope} }

// Repositories outside of RunInTx run each statement on the pool.

func (p *Postgres) ProfileInfos() *PostgresProfiles   { return &PostgresProfiles{pgScope{db: p.db}} }
func (p *Postgres) Posts() *PostgresPosts             { return &PostgresPosts{pgScope{db: p.db}} }
func (p *Postgres) Mentions() *PostgresMentions       { return &PostgresMentions{pgScope{db: p.db}} }
func (p *Postgres) Permissions() *PostgresPermissions { return &PostgresPermissions{pgScope{db: p.db}} }
func (p *Postgres) Followings() *PostgresFollowings   { return &PostgresFollowings{pgScope{db: p.db}} }

// PostgresPosts stores posts.
type PostgresPosts struct{ scope pgScope }

func (s *PostgresPosts) Create(ctx context.Context, post *models.Post) error {
	content, err := marshalContent(post.Content)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO posts (id, entity, original, type, public, content, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := s.scope.q().ExecContext(ctx, query,
		post.ID, string(post.Entity), post.Original, post.Type, post.Public, content, orNow(post.PublishedAt))
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return requireAffected(res, "insert post")
}

func (s *PostgresPosts) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	query := `
		SELECT id, entity, original, type, public, content, published_at
		FROM posts
		WHERE id = $1
	`
	post, err := scanPost(s.scope.q().QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return post, nil
}

func (s *PostgresPosts) FindByEntity(ctx context.Context, entity models.Entity) ([]models.Post, error) {
	query := `
		SELECT id, entity, original, type, public, content, published_at
		FROM posts
		WHERE entity = $1
		ORDER BY published_at, id
	`
	rows, err := s.scope.q().QueryContext(ctx, query, string(entity))
	if err != nil {
		return nil, fmt.Errorf("query posts by entity: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return posts, nil
}

func (s *PostgresPosts) RewriteOriginalEntity(ctx context.Context, from, to models.Entity) (int64, error) {
	res, err := s.scope.q().ExecContext(ctx,
		`UPDATE posts SET entity = $2 WHERE entity = $1 AND original = TRUE`,
		string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("rewrite post entity: %w", err)
	}
	return res.RowsAffected()
}

// PostgresMentions stores mentions and answers mention index queries.
type PostgresMentions struct{ scope pgScope }

func (s *PostgresMentions) Create(ctx context.Context, m *models.Mention) error {
	_, err := s.scope.q().ExecContext(ctx,
		`INSERT INTO mentions (id, post_id, entity) VALUES ($1, $2, $3)`,
		m.ID, m.PostID, string(m.Entity))
	if err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}
	return nil
}

func (s *PostgresMentions) FindByID(ctx context.Context, id uuid.UUID) (*models.Mention, error) {
	var (
		m      models.Mention
		entity string
	)
	err := s.scope.q().QueryRowContext(ctx,
		`SELECT id, post_id, entity FROM mentions WHERE id = $1`, id).Scan(&m.ID, &m.PostID, &entity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find mention by id: %w", err)
	}
	m.Entity = models.Entity(entity)
	return &m, nil
}

func (s *PostgresMentions) FindByEntity(ctx context.Context, entity models.Entity) ([]models.Mention, error) {
	rows, err := s.scope.q().QueryContext(ctx,
		`SELECT id, post_id, entity FROM mentions WHERE entity = $1 ORDER BY created_at, id`, string(entity))
	if err != nil {
		return nil, fmt.Errorf("query mentions by entity: %w", err)
	}
	defer rows.Close()

	var mentions []models.Mention
	for rows.Next() {
		var (
			m   models.Mention
			raw string
		)
		if err := rows.Scan(&m.ID, &m.PostID, &raw); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		m.Entity = models.Entity(raw)
		mentions = append(mentions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mentions: %w", err)
	}
	return mentions, nil
}

func (s *PostgresMentions) RewriteEntity(ctx context.Context, from, to models.Entity) (int64, error) {
	res, err := s.scope.q().ExecContext(ctx,
		`UPDATE mentions SET entity = $2 WHERE entity = $1`, string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("rewrite mention entity: %w", err)
	}
	return res.RowsAffected()
}

func (s *PostgresMentions) FindTargetsByPostOwner(ctx context.Context, owner models.Entity) ([]models.Entity, error) {
	query := `
		SELECT DISTINCT m.entity
		FROM mentions m
		JOIN posts p ON p.id = m.post_id
		WHERE p.entity = $1
		ORDER BY m.entity
	`
	return queryEntities(ctx, s.scope.q(), query, string(owner))
}

// PostgresFollowings stores subscriptions.
type PostgresFollowings struct{ scope pgScope }

func (s *PostgresFollowings) Create(ctx context.Context, f *models.Following) error {
	query := `
		INSERT INTO followings (id, follower_entity, followed_entity, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (follower_entity, followed_entity) DO NOTHING
	`
	res, err := s.scope.q().ExecContext(ctx, query,
		f.ID, string(f.FollowerEntity), string(f.FollowedEntity), orNow(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert following: %w", err)
	}
	return requireAffected(res, "insert following")
}

func (s *PostgresFollowings) FindFollowers(ctx context.Context, followed []models.Entity) ([]models.Entity, error) {
	if len(followed) == 0 {
		return nil, nil
	}
	raw := make([]string, 0, len(followed))
	for _, e := range followed {
		raw = append(raw, string(e))
	}
	query := `
		SELECT DISTINCT follower_entity
		FROM followings
		WHERE followed_entity = ANY($1::text[])
		ORDER BY follower_entity
	`
	return queryEntities(ctx, s.scope.q(), query, pq.Array(raw))
}

// PostgresPermissions stores grants.
type PostgresPermissions struct{ scope pgScope }

func (s *PostgresPermissions) Create(ctx context.Context, p *models.Permission) error {
	query := `
		INSERT INTO permissions (id, entity, resource_kind, resource_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (entity, resource_kind, resource_id) DO NOTHING
	`
	res, err := s.scope.q().ExecContext(ctx, query,
		p.ID, string(p.Entity), p.ResourceKind, p.ResourceID, orNow(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert permission: %w", err)
	}
	return requireAffected(res, "insert permission")
}

func (s *PostgresPermissions) FindByEntity(ctx context.Context, entity models.Entity) ([]models.Permission, error) {
	rows, err := s.scope.q().QueryContext(ctx, `
		SELECT id, entity, resource_kind, resource_id, created_at
		FROM permissions
		WHERE entity = $1
		ORDER BY created_at, id
	`, string(entity))
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	var out []models.Permission
	for rows.Next() {
		var (
			p   models.Permission
			raw string
		)
		if err := rows.Scan(&p.ID, &raw, &p.ResourceKind, &p.ResourceID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		p.Entity = models.Entity(raw)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return out, nil
}

// Copy duplicates every grant of from onto to in one statement. Grants that to
// already holds are skipped.
func (s *PostgresPermissions) Copy(ctx context.Context, from, to models.Entity) (int64, error) {
	query := `
		INSERT INTO permissions (id, entity, resource_kind, resource_id, created_at)
		SELECT gen_random_uuid(), $2, resource_kind, resource_id, now()
		FROM permissions
		WHERE entity = $1
		ON CONFLICT (entity, resource_kind, resource_id) DO NOTHING
	`
	res, err := s.scope.q().ExecContext(ctx, query, string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("copy permissions: %w", err)
	}
	return res.RowsAffected()
}

// PostgresProfiles stores current profile infos and their versions.
type PostgresProfiles struct{ scope pgScope }

func (s *PostgresProfiles) FindCurrent(ctx context.Context, typeBase string) (*models.ProfileInfo, error) {
	query := `
		SELECT id, type_base, type_version, public, content, created_at, updated_at
		FROM profile_infos
		WHERE type_base = $1
	`
	if s.scope.inTx() {
		query += " FOR UPDATE"
	}
	var (
		info    models.ProfileInfo
		content []byte
	)
	err := s.scope.q().QueryRowContext(ctx, query, typeBase).Scan(
		&info.ID, &info.TypeBase, &info.TypeVersion, &info.Public, &content, &info.CreatedAt, &info.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find profile info: %w", err)
	}
	if info.Content, err = unmarshalContent(content); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *PostgresProfiles) CreateCurrent(ctx context.Context, info *models.ProfileInfo) error {
	content, err := marshalContent(info.Content)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO profile_infos (id, type_base, type_version, public, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (type_base) DO NOTHING
	`
	res, err := s.scope.q().ExecContext(ctx, query,
		info.ID, info.TypeBase, info.TypeVersion, info.Public, content, info.CreatedAt, info.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert profile info: %w", err)
	}
	return requireAffected(res, "insert profile info")
}

func (s *PostgresProfiles) UpdateCurrent(ctx context.Context, info *models.ProfileInfo) error {
	content, err := marshalContent(info.Content)
	if err != nil {
		return err
	}
	query := `
		UPDATE profile_infos
		SET type_version = $2, public = $3, content = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := s.scope.q().ExecContext(ctx, query,
		info.ID, info.TypeVersion, info.Public, content, info.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update profile info: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile info: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresProfiles) AppendVersion(ctx context.Context, v *models.ProfileInfoVersion) error {
	content, err := marshalContent(v.Content)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO profile_info_versions
			(id, profile_info_id, version, type_base, type_version, public, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (profile_info_id, version) DO NOTHING
	`
	res, err := s.scope.q().ExecContext(ctx, query,
		v.ID, v.ProfileInfoID, v.Version, v.TypeBase, v.TypeVersion, v.Public, content, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert profile version: %w", err)
	}
	return requireAffected(res, "insert profile version")
}

const versionColumns = `id, profile_info_id, version, type_base, type_version, public, content, created_at`

func (s *PostgresProfiles) LatestVersion(ctx context.Context, profileInfoID uuid.UUID) (*models.ProfileInfoVersion, error) {
	query := `SELECT ` + versionColumns + `
		FROM profile_info_versions
		WHERE profile_info_id = $1
		ORDER BY version DESC
		LIMIT 1
	`
	v, err := scanVersion(s.scope.q().QueryRowContext(ctx, query, profileInfoID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest profile version: %w", err)
	}
	return v, nil
}

func (s *PostgresProfiles) ListVersions(ctx context.Context, profileInfoID uuid.UUID) ([]*models.ProfileInfoVersion, error) {
	query := `SELECT ` + versionColumns + `
		FROM profile_info_versions
		WHERE profile_info_id = $1
		ORDER BY version
	`
	rows, err := s.scope.q().QueryContext(ctx, query, profileInfoID)
	if err != nil {
		return nil, fmt.Errorf("query profile versions: %w", err)
	}
	defer rows.Close()

	var out []*models.ProfileInfoVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile version: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile versions: %w", err)
	}
	return out, nil
}

func (s *PostgresProfiles) CountCurrent(ctx context.Context) (int, error) {
	return count(ctx, s.scope.q(), `SELECT COUNT(*) FROM profile_infos`)
}

func (s *PostgresProfiles) CountVersions(ctx context.Context) (int, error) {
	return count(ctx, s.scope.q(), `SELECT COUNT(*) FROM profile_info_versions`)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		post    models.Post
		entity  string
		content []byte
	)
	if err := row.Scan(&post.ID, &entity, &post.Original, &post.Type, &post.Public, &content, &post.PublishedAt); err != nil {
		return nil, err
	}
	post.Entity = models.Entity(entity)
	c, err := unmarshalContent(content)
	if err != nil {
		return nil, err
	}
	post.Content = c
	return &post, nil
}

func scanVersion(row rowScanner) (*models.ProfileInfoVersion, error) {
	var (
		v       models.ProfileInfoVersion
		content []byte
	)
	if err := row.Scan(&v.ID, &v.ProfileInfoID, &v.Version, &v.TypeBase, &v.TypeVersion, &v.Public, &content, &v.CreatedAt); err != nil {
		return nil, err
	}
	c, err := unmarshalContent(content)
	if err != nil {
		return nil, err
	}
	v.Content = c
	return &v, nil
}

func queryEntities(ctx context.Context, q execer, query string, args ...any) ([]models.Entity, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []models.Entity
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out = append(out, models.Entity(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func count(ctx context.Context, q execer, query string) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, sentinel.ErrConflict)
	}
	return nil
}

func marshalContent(c models.Content) ([]byte, error) {
	if c == nil {
		c = models.Content{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal content: %w", err)
	}
	return b, nil
}

func unmarshalContent(raw []byte) (models.Content, error) {
	content := models.Content{}
	if len(raw) == 0 {
		return content, nil
	}
	if err := json.Unmarshal(raw, &content); err != nil {
		return nil, fmt.Errorf("unmarshal content: %w", err)
	}
	return content, nil
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
