package model

import "time"

// MediaKind classifies an inbound attachment.
type MediaKind string

const (
	MediaNone     MediaKind = "none"
	MediaImage    MediaKind = "image"
	MediaDocument MediaKind = "document"
	MediaAudio    MediaKind = "audio"
	MediaVideo    MediaKind = "video"
)

// ChatJob is one unit of asynchronous work for an inbound customer message.
// The payload is immutable once enqueued; retries redeliver the same bytes.
// Attempts is bookkeeping owned by the queue, not part of the payload.
type ChatJob struct {
	ID         string    `json:"id"`
	Phone      string    `json:"phone"`
	Message    string    `json:"message"` // empty for media-only messages
	SenderName string    `json:"sender_name"`
	MediaURL   string    `json:"media_url,omitempty"`
	MediaKind  MediaKind `json:"media_kind,omitempty"`
	Attempts   int       `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Valid reports whether the job carries enough data to be processed.
// A job needs a contact and either text or media.
func (j *ChatJob) Valid() bool {
	if j == nil || j.Phone == "" {
		return false
	}
	return j.Message != "" || j.MediaURL != ""
}

// RetryPolicy is attached to a job at enqueue time.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	Backoff     time.Duration `json:"backoff"`
}
