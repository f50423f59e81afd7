package audit

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE interaction_kind AS ENUM ('command', 'action'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id BIGSERIAL PRIMARY KEY,
		interaction_id TEXT NOT NULL,
		kind interaction_kind NOT NULL,
		name TEXT NOT NULL,
		user_id TEXT NOT NULL,
		user_tag TEXT NOT NULL DEFAULT '',
		guild_id TEXT NOT NULL DEFAULT '',
		channel_id TEXT NOT NULL DEFAULT '',
		outcome TEXT NOT NULL,
		error_kind TEXT NOT NULL DEFAULT '',
		duration_ms BIGINT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_guild ON audit_entries (guild_id, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_user ON audit_entries (user_id, occurred_at DESC)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
