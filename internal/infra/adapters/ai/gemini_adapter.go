package ai

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

var _ adapter.ModelAdapter = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client *genai.Client
	model  string
	maxOut int
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, model string, maxOut int) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiAdapter{client: c, model: model, maxOut: maxOut}, nil
}

// geminiTools declares the closed tool catalog to the model. Descriptions are
// what the model matches against, so they stay in the shop's language.
func geminiTools() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        string(model.ToolSearchInventory),
				Description: "Mencari ketersediaan stok produk dan harga berdasarkan nama barang.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"keyword": {
							Type:        genai.TypeString,
							Description: "Nama atau jenis produk yang ditanyakan pelanggan (misal: Tunik, Adelia, Gamis).",
						},
					},
					Required: []string{"keyword"},
				},
			},
			{
				Name:        string(model.ToolFindCustomerOrder),
				Description: "Mengecek status pesanan, rincian item, dan nomor resi pengiriman pelanggan.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {
							Type:        genai.TypeString,
							Description: "Nomor telepon atau nomor order pelanggan untuk mencari data pesanan.",
						},
					},
					Required: []string{"query"},
				},
			},
			{
				Name:        string(model.ToolValidateOrder),
				Description: "Memvalidasi stok dan total harga sebelum pesanan diproses.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"item_group_id": {
							Type:        genai.TypeInteger,
							Description: "ID grup produk dari hasil pencarian stok.",
						},
						"quantity": {
							Type:        genai.TypeInteger,
							Description: "Jumlah yang ingin dipesan.",
						},
					},
					Required: []string{"item_group_id", "quantity"},
				},
			},
		},
	}}
}

func (g *GeminiAdapter) Start(ctx context.Context, instruction string, history []adapter.Message, userMessage string) (adapter.ModelConversation, *adapter.ModelTurn, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.maxOut),
		Tools:           geminiTools(),
	}
	if instruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	}

	chat, err := g.client.Chats.Create(ctx, g.model, cfg, toGenAIHistory(history))
	if err != nil {
		return nil, nil, err
	}

	resp, err := chat.SendMessage(ctx, genai.Part{Text: userMessage})
	if err != nil {
		return nil, nil, err
	}
	conv := &geminiConversation{chat: chat}
	return conv, turnFromResponse(resp), nil
}

type geminiConversation struct {
	chat *genai.Chat
}

func (c *geminiConversation) Continue(ctx context.Context, results []model.ToolResult) (*adapter.ModelTurn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.Part{
			FunctionResponse: &genai.FunctionResponse{
				ID:       r.ID,
				Name:     r.Name,
				Response: r.Payload,
			},
		})
	}
	resp, err := c.chat.SendMessage(ctx, parts...)
	if err != nil {
		return nil, err
	}
	return turnFromResponse(resp), nil
}

func turnFromResponse(resp *genai.GenerateContentResponse) *adapter.ModelTurn {
	turn := &adapter.ModelTurn{}
	if resp == nil {
		return turn
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text != "" {
				turn.Text += p.Text
			}
		}
	}
	for _, fc := range resp.FunctionCalls() {
		turn.Calls = append(turn.Calls, model.ToolCall{
			ID:   fc.ID,
			Name: fc.Name,
			Args: fc.Args,
		})
	}
	return turn
}

func toGenAIHistory(msgs []adapter.Message) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		role := genai.RoleUser
		if strings.ToLower(m.Role) != model.RoleUser {
			role = genai.RoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return out
}
