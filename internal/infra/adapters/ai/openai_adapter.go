package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

var _ adapter.ModelAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter drives any OpenAI-compatible chat-completions endpoint.
// Tool calling uses the standard tools/tool_calls wire format; conversation
// state between rounds is the accumulated message list.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, base, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   strings.TrimRight(base, "/"),
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// --- chat completions wire types ---

type oaToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type oaMessage struct {
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	ToolCalls  []oaToolCall `json:"tool_calls,omitempty"`
	ToolCallID string       `json:"tool_call_id,omitempty"`
}

type oaTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

func openAITools() []oaTool {
	mk := func(name model.ToolKind, desc string, params map[string]any) oaTool {
		var t oaTool
		t.Type = "function"
		t.Function.Name = string(name)
		t.Function.Description = desc
		t.Function.Parameters = params
		return t
	}
	return []oaTool{
		mk(model.ToolSearchInventory,
			"Mencari ketersediaan stok produk dan harga berdasarkan nama barang.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"keyword": map[string]any{"type": "string", "description": "Nama atau jenis produk yang ditanyakan pelanggan."},
				},
				"required": []string{"keyword"},
			}),
		mk(model.ToolFindCustomerOrder,
			"Mengecek status pesanan, rincian item, dan nomor resi pengiriman pelanggan.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Nomor telepon atau nomor order pelanggan."},
				},
				"required": []string{"query"},
			}),
		mk(model.ToolValidateOrder,
			"Memvalidasi stok dan total harga sebelum pesanan diproses.",
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"item_group_id": map[string]any{"type": "integer", "description": "ID grup produk dari hasil pencarian stok."},
					"quantity":      map[string]any{"type": "integer", "description": "Jumlah yang ingin dipesan."},
				},
				"required": []string{"item_group_id", "quantity"},
			}),
	}
}

func (o *OpenAIAdapter) Start(ctx context.Context, instruction string, history []adapter.Message, userMessage string) (adapter.ModelConversation, *adapter.ModelTurn, error) {
	msgs := make([]oaMessage, 0, len(history)+2)
	if instruction != "" {
		msgs = append(msgs, oaMessage{Role: "system", Content: instruction})
	}
	for _, m := range history {
		role := "assistant"
		if strings.ToLower(m.Role) == model.RoleUser {
			role = "user"
		}
		msgs = append(msgs, oaMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, oaMessage{Role: "user", Content: userMessage})

	conv := &openAIConversation{adapter: o, messages: msgs}
	turn, err := conv.complete(ctx)
	if err != nil {
		return nil, nil, err
	}
	return conv, turn, nil
}

type openAIConversation struct {
	adapter  *OpenAIAdapter
	messages []oaMessage
}

func (c *openAIConversation) Continue(ctx context.Context, results []model.ToolResult) (*adapter.ModelTurn, error) {
	for _, r := range results {
		payload, err := json.Marshal(r.Payload)
		if err != nil {
			payload = []byte(`{"error":"unserializable tool result"}`)
		}
		c.messages = append(c.messages, oaMessage{
			Role:       "tool",
			Content:    string(payload),
			ToolCallID: r.ID,
		})
	}
	return c.complete(ctx)
}

func (c *openAIConversation) complete(ctx context.Context) (*adapter.ModelTurn, error) {
	reqBody := struct {
		Model    string      `json:"model"`
		Messages []oaMessage `json:"messages"`
		Tools    []oaTool    `json:"tools"`
	}{Model: c.adapter.model, Messages: c.messages, Tools: openAITools()}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.adapter.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.adapter.apiKey)

	resp, err := c.adapter.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message oaMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if len(payload.Choices) == 0 {
		return &adapter.ModelTurn{}, nil
	}

	msg := payload.Choices[0].Message
	// The assistant turn (including its tool calls) must stay in the
	// transcript for the follow-up round to make sense.
	c.messages = append(c.messages, msg)

	turn := &adapter.ModelTurn{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		turn.Calls = append(turn.Calls, model.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return turn, nil
}
