package repository

import (
	"context"

	"whatsapp-ai-cs/internal/domain/model"
)

// ChatLogRepository is the history store: append-only conversation turns
// keyed by contact phone number.
type ChatLogRepository interface {
	// AppendTurn persists one turn. Appends are idempotent per
	// (JobID, Role): redelivering a job must not duplicate the turn a
	// crashed earlier attempt already wrote.
	AppendTurn(ctx context.Context, turn *model.ChatTurn) error

	// RecentTurns returns up to limit most recent turns for a contact in
	// chronological (oldest first) order. A new contact yields an empty
	// slice, not an error.
	RecentTurns(ctx context.Context, phone string, limit int) ([]model.ChatTurn, error)

	// HistoryByContact returns up to limit turns for the admin view,
	// oldest first.
	HistoryByContact(ctx context.Context, phone string, limit int) ([]model.ChatTurn, error)

	// ListContacts returns one summary row per distinct contact, most
	// recently active first.
	ListContacts(ctx context.Context) ([]model.Contact, error)
}
