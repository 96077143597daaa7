package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/repository"
)

var _ repository.ChatLogRepository = (*ChatLogRepo)(nil)

// ChatLogRepo persists conversation turns. Rows are append-only.
type ChatLogRepo struct {
	pool *pgxpool.Pool
}

func NewChatLogRepo(pool *pgxpool.Pool) *ChatLogRepo {
	return &ChatLogRepo{pool: pool}
}

const uniqueViolation = "23505"

func (r *ChatLogRepo) AppendTurn(ctx context.Context, turn *model.ChatTurn) error {
	var kind, url, mime string
	var size int64
	if turn.Media != nil {
		kind, url, mime, size = string(turn.Media.Kind), turn.Media.URL, turn.Media.MimeType, turn.Media.Size
	}
	ts := turn.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	const q = `
INSERT INTO chat_logs (job_id, phone, role, message, sender_name, media_kind, media_url, media_mime, media_size, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (job_id, role) WHERE job_id <> '' DO NOTHING;`
	_, err := r.pool.Exec(ctx, q,
		turn.JobID, turn.Phone, turn.Role, turn.Message, turn.SenderName,
		kind, url, mime, size, ts,
	)
	if err != nil {
		// A concurrent redelivery can still race the insert; the duplicate
		// is exactly the row we wanted, so swallow it.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil
		}
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (r *ChatLogRepo) RecentTurns(ctx context.Context, phone string, limit int) ([]model.ChatTurn, error) {
	const q = `
SELECT job_id, phone, role, message, sender_name, media_kind, media_url, media_mime, media_size, created_at
FROM chat_logs
WHERE phone = $1
ORDER BY created_at DESC, id DESC
LIMIT $2;`
	turns, err := r.queryTurns(ctx, q, phone, limit)
	if err != nil {
		return nil, err
	}
	// Newest-first from the query; the model wants oldest-first.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (r *ChatLogRepo) HistoryByContact(ctx context.Context, phone string, limit int) ([]model.ChatTurn, error) {
	const q = `
SELECT job_id, phone, role, message, sender_name, media_kind, media_url, media_mime, media_size, created_at
FROM chat_logs
WHERE phone = $1
ORDER BY created_at ASC, id ASC
LIMIT $2;`
	return r.queryTurns(ctx, q, phone, limit)
}

func (r *ChatLogRepo) queryTurns(ctx context.Context, q, phone string, limit int) ([]model.ChatTurn, error) {
	rows, err := r.pool.Query(ctx, q, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var out []model.ChatTurn
	for rows.Next() {
		var t model.ChatTurn
		var kind, url, mime string
		var size int64
		if err := rows.Scan(&t.JobID, &t.Phone, &t.Role, &t.Message, &t.SenderName,
			&kind, &url, &mime, &size, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if url != "" {
			t.Media = &model.TurnMedia{Kind: model.MediaKind(kind), URL: url, MimeType: mime, Size: size}
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ChatLogRepo) ListContacts(ctx context.Context) ([]model.Contact, error) {
	const q = `
SELECT c.phone,
       COALESCE((
           SELECT l.sender_name FROM chat_logs l
           WHERE l.phone = c.phone AND l.role = 'user' AND l.sender_name <> ''
           ORDER BY l.created_at DESC LIMIT 1
       ), '') AS name,
       c.message, c.created_at, c.media_url <> ''
FROM (
    SELECT DISTINCT ON (phone) phone, message, created_at, media_url
    FROM chat_logs
    ORDER BY phone, created_at DESC, id DESC
) c
ORDER BY c.created_at DESC;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.Phone, &c.Name, &c.LastMessage, &c.LastTime, &c.HasMedia); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
