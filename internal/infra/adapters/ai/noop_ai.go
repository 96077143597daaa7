package ai

import (
	"context"

	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

var _ adapter.ModelAdapter = (*NoopAdapter)(nil)

// NoopAdapter echoes a fixed reply without calling any provider. Useful for
// wiring checks and local runs without API keys.
type NoopAdapter struct {
	Reply string
}

func NewNoopAdapter() *NoopAdapter {
	return &NoopAdapter{Reply: "Halo! Sistem sedang dalam mode uji coba."}
}

func (n *NoopAdapter) Start(ctx context.Context, instruction string, history []adapter.Message, userMessage string) (adapter.ModelConversation, *adapter.ModelTurn, error) {
	return noopConversation{reply: n.Reply}, &adapter.ModelTurn{Text: n.Reply}, nil
}

type noopConversation struct{ reply string }

func (c noopConversation) Continue(ctx context.Context, results []model.ToolResult) (*adapter.ModelTurn, error) {
	return &adapter.ModelTurn{Text: c.reply}, nil
}
