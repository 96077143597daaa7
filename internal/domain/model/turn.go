package model

import "time"

// Turn roles as stored in the chat log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TurnMedia describes an attachment persisted with a turn.
type TurnMedia struct {
	Kind     MediaKind
	URL      string
	MimeType string
	Size     int64
}

// ChatTurn is one persisted message in a contact's conversation history.
// Turns are append-only and never mutated.
type ChatTurn struct {
	JobID      string // ties the turn to the job that produced it; "" for legacy rows
	Phone      string
	Role       string // "user" | "assistant"
	Message    string
	SenderName string
	Media      *TurnMedia
	Timestamp  time.Time
}

// Contact is an admin-facing summary of one conversation partner.
type Contact struct {
	Phone       string    `json:"phone"`
	Name        string    `json:"name"`
	LastMessage string    `json:"last_message"`
	LastTime    time.Time `json:"last_time"`
	HasMedia    bool      `json:"has_media"`
}
