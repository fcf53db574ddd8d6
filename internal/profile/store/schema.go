package store

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// EnsureSchema creates the profile tables when they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// TruncateAll empties every profile table. Intended for tests.
func (p *Postgres) TruncateAll(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `TRUNCATE profile_info_versions, profile_infos, mentions, posts, followings, permissions`)
	if err != nil {
		return fmt.Errorf("truncate profile tables: %w", err)
	}
	return nil
}
