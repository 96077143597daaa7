package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/ports/repository"
)

var _ repository.SystemConfigRepository = (*SystemConfigRepo)(nil)

const instructionKey = "ai_instruction"

// SystemConfigRepo reads configuration values straight from the table on
// every call. The orchestrator depends on that: an instruction edit in the
// admin panel must reach the very next job, across all worker processes.
type SystemConfigRepo struct {
	pool *pgxpool.Pool
}

func NewSystemConfigRepo(pool *pgxpool.Pool) *SystemConfigRepo {
	return &SystemConfigRepo{pool: pool}
}

func (r *SystemConfigRepo) GetInstruction(ctx context.Context) (string, error) {
	const q = `SELECT value FROM system_config WHERE key = $1;`
	var value string
	if err := r.pool.QueryRow(ctx, q, instructionKey).Scan(&value); err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("read instruction: %w", err)
	}
	return value, nil
}

func (r *SystemConfigRepo) SetInstruction(ctx context.Context, value string) error {
	const q = `
INSERT INTO system_config (key, value) VALUES ($1, $2)
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value;`
	if _, err := r.pool.Exec(ctx, q, instructionKey, value); err != nil {
		return fmt.Errorf("save instruction: %w", err)
	}
	return nil
}
