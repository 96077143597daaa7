package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/repository"
	"whatsapp-ai-cs/internal/infra/media"
)

// Compile-time check
var _ IntakeUseCase = (*intakeUC)(nil)

// InboundEvent is the raw webhook payload after JSON decoding, before any
// normalization.
type InboundEvent struct {
	Direction   string
	ContactName string
	Phone       string
	PhoneNo     string
	Message     string
	SenderName  string
	MediaBase64 string // "none" or empty when absent
}

// IntakeUseCase normalizes gateway events and enqueues jobs.
type IntakeUseCase interface {
	// Accept validates, normalizes and enqueues one inbound event.
	// Returns the enqueued job, or nil when the event was deliberately
	// ignored (outgoing echo, not whitelisted, no content).
	Accept(ctx context.Context, ev *InboundEvent) (*model.ChatJob, error)
}

type intakeUC struct {
	queue     repository.JobQueue
	media     *media.Store
	policy    model.RetryPolicy
	whitelist []string // normalized suffixes; empty disables filtering
	log       *zerolog.Logger
}

func NewIntakeUseCase(
	queue repository.JobQueue,
	mediaStore *media.Store,
	policy model.RetryPolicy,
	whitelist []string,
	log *zerolog.Logger,
) *intakeUC {
	normalized := make([]string, 0, len(whitelist))
	for _, n := range whitelist {
		if clean := digitsOnly(n); clean != "" {
			normalized = append(normalized, clean)
		}
	}
	return &intakeUC{
		queue:     queue,
		media:     mediaStore,
		policy:    policy,
		whitelist: normalized,
		log:       log,
	}
}

func (u *intakeUC) Accept(ctx context.Context, ev *InboundEvent) (*model.ChatJob, error) {
	// Echoes of our own outbound messages come back marked outgoing;
	// processing them would loop the bot against itself.
	if ev.Direction == "outgoing" {
		return nil, nil
	}

	phone := NormalizePhone(firstNonEmpty(ev.ContactName, ev.Phone, ev.PhoneNo))
	message := strings.TrimSpace(ev.Message)
	name := ev.SenderName
	if name == "" {
		name = "Pelanggan"
	}

	var mediaURL string
	mediaKind := model.MediaNone
	if ev.MediaBase64 != "" && ev.MediaBase64 != "none" {
		url, kind, err := u.media.SaveBase64(phone, ev.MediaBase64)
		if err != nil {
			u.log.Error().Err(err).Str("phone", phone).Msg("media save failed")
		} else {
			mediaURL, mediaKind = url, kind
			u.log.Info().Str("phone", phone).Str("kind", string(kind)).Msg("media stored")
		}
	}

	if phone == "" || (message == "" && mediaURL == "") {
		return nil, nil
	}

	if len(u.whitelist) > 0 && !u.whitelisted(phone) {
		u.log.Debug().Str("phone", phone).Msg("contact not whitelisted; ignoring")
		return nil, domain.ErrNotListening
	}

	job := &model.ChatJob{
		ID:         ulid.Make().String(),
		Phone:      phone,
		Message:    message,
		SenderName: name,
		MediaURL:   mediaURL,
		MediaKind:  mediaKind,
		CreatedAt:  time.Now(),
	}
	if err := u.queue.Enqueue(ctx, job, u.policy); err != nil {
		return nil, err
	}
	u.log.Info().
		Str("job_id", job.ID).
		Str("phone", phone).
		Str("name", name).
		Msg("job enqueued")
	return job, nil
}

func (u *intakeUC) whitelisted(phone string) bool {
	for _, suffix := range u.whitelist {
		if strings.HasSuffix(phone, suffix) {
			return true
		}
	}
	return false
}

// NormalizePhone strips group suffixes (@g.us), device parts after "-", and
// every non-digit, matching how the gateway formats sender IDs.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "@"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, "-"); i >= 0 {
		raw = raw[:i]
	}
	return digitsOnly(raw)
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
