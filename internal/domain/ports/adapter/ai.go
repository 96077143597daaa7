package adapter

import (
	"context"

	"whatsapp-ai-cs/internal/domain/model"
)

// Message is one prior turn handed to the model as context.
type Message struct {
	Role    string `json:"role"` // "user" | "assistant"
	Content string `json:"content"`
}

// ModelTurn is the model's output for one round: either a final text,
// a batch of tool calls, or (rarely) neither.
type ModelTurn struct {
	Text  string
	Calls []model.ToolCall
}

// Final reports whether the model is done asking for tools.
func (t *ModelTurn) Final() bool { return t == nil || len(t.Calls) == 0 }

// ModelConversation carries provider-side state between rounds of a single
// job. Continue must answer every tool call from the previous turn at once.
type ModelConversation interface {
	Continue(ctx context.Context, results []model.ToolResult) (*ModelTurn, error)
}

// ModelAdapter is the port for the generative model.
type ModelAdapter interface {
	// Start opens a conversation with the system instruction and prior
	// turns (oldest first), then sends the newest user message.
	Start(ctx context.Context, instruction string, history []Message, userMessage string) (ModelConversation, *ModelTurn, error)
}
