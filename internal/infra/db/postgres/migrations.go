package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS chat_logs (
		id          BIGSERIAL PRIMARY KEY,
		job_id      TEXT NOT NULL DEFAULT '',
		phone       TEXT NOT NULL,
		role        TEXT NOT NULL,
		message     TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		media_kind  TEXT NOT NULL DEFAULT '',
		media_url   TEXT NOT NULL DEFAULT '',
		media_mime  TEXT NOT NULL DEFAULT '',
		media_size  BIGINT NOT NULL DEFAULT 0,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_chat_logs_phone_time ON chat_logs (phone, created_at);`,
	// One user turn and one assistant turn per job, no matter how often the
	// queue redelivers it.
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_chat_logs_job_role ON chat_logs (job_id, role) WHERE job_id <> '';`,
	`CREATE TABLE IF NOT EXISTS system_config (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

// EnsureSchema applies the idempotent DDL above. Both binaries call it on
// startup; CREATE IF NOT EXISTS keeps that safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
