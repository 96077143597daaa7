package messenger

import (
	"context"

	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

var _ adapter.MessengerAdapter = (*NoopAdapter)(nil)

// NoopAdapter logs instead of sending; for local runs without a gateway key.
type NoopAdapter struct {
	log *zerolog.Logger
}

func NewNoopAdapter(log *zerolog.Logger) *NoopAdapter {
	return &NoopAdapter{log: log}
}

func (n *NoopAdapter) SendText(ctx context.Context, phone, text string) error {
	n.log.Info().Str("phone", phone).Int("len", len(text)).Msg("noop messenger: drop outbound message")
	return nil
}
