package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
	"whatsapp-ai-cs/internal/infra/metrics"
)

// Customer-facing fallback texts, matching the production system's tone.
const (
	msgOrderNotFound   = "Maaf, pesanan dengan nomor tersebut tidak ditemukan di sistem kami."
	msgInventoryError  = "Gagal mencari data produk karena kendala komunikasi API."
	msgOrderError      = "Terjadi kendala saat menghubungi sistem pusat. Mohon coba beberapa saat lagi."
	msgValidateError   = "Gagal memproses validasi stok."
	msgKeywordTooShort = "Kata kunci terlalu pendek."
	msgProductNotFound = `Produk dengan kata kunci "%s" tidak ditemukan.`
	msgUnknownTool     = "Permintaan tidak dikenali oleh sistem."
)

// ToolDispatcher resolves every model tool request to a value. The model
// stalls if a request goes unanswered, so nothing here may return an error:
// failures become payloads the model can phrase an apology from.
type ToolDispatcher struct {
	erp adapter.ERPGateway
	log *zerolog.Logger
}

func NewToolDispatcher(erp adapter.ERPGateway, log *zerolog.Logger) *ToolDispatcher {
	return &ToolDispatcher{erp: erp, log: log}
}

// Invoke executes one tool call. fallbackQuery is the job's contact number,
// used when the model asks for an order without supplying a query, the way
// customers usually mean "my order".
func (d *ToolDispatcher) Invoke(ctx context.Context, call model.ToolCall, fallbackQuery string) model.ToolResult {
	kind, ok := model.ParseToolKind(call.Name)
	if !ok {
		d.log.Warn().Str("tool", call.Name).Msg("model requested unregistered tool")
		metrics.IncTool(call.Name, "unknown_tool")
		return result(call, map[string]any{"error": msgUnknownTool})
	}

	switch kind {
	case model.ToolSearchInventory:
		return d.searchInventory(ctx, call)
	case model.ToolFindCustomerOrder:
		return d.findCustomerOrder(ctx, call, fallbackQuery)
	case model.ToolValidateOrder:
		return d.validateOrder(ctx, call)
	}
	// Unreachable while ParseToolKind stays in sync with the switch.
	metrics.IncTool(call.Name, "unknown_tool")
	return result(call, map[string]any{"error": msgUnknownTool})
}

func (d *ToolDispatcher) searchInventory(ctx context.Context, call model.ToolCall) model.ToolResult {
	keyword := stringArg(call.Args, "keyword")
	if len(keyword) < 2 {
		metrics.IncTool(call.Name, "not_found")
		return result(call, map[string]any{"content": msgKeywordTooShort})
	}

	listings, err := d.erp.SearchInventory(ctx, keyword)
	if err != nil {
		d.log.Error().Err(err).Str("keyword", keyword).Msg("inventory search failed")
		metrics.IncTool(call.Name, "error")
		return result(call, map[string]any{"content": msgInventoryError})
	}
	if len(listings) == 0 {
		metrics.IncTool(call.Name, "not_found")
		return result(call, map[string]any{"content": fmt.Sprintf(msgProductNotFound, keyword)})
	}
	metrics.IncTool(call.Name, "ok")
	return result(call, map[string]any{"content": listings})
}

func (d *ToolDispatcher) findCustomerOrder(ctx context.Context, call model.ToolCall, fallbackQuery string) model.ToolResult {
	query := stringArg(call.Args, "query")
	if query == "" {
		query = fallbackQuery
	}

	order, err := d.erp.FindCustomerOrder(ctx, query)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncTool(call.Name, "not_found")
		return result(call, map[string]any{"content": msgOrderNotFound})
	}
	if err != nil {
		d.log.Error().Err(err).Msg("order lookup failed")
		metrics.IncTool(call.Name, "error")
		return result(call, map[string]any{"content": msgOrderError})
	}
	metrics.IncTool(call.Name, "ok")
	return result(call, map[string]any{"content": order})
}

func (d *ToolDispatcher) validateOrder(ctx context.Context, call model.ToolCall) model.ToolResult {
	groupID := intArg(call.Args, "item_group_id")
	qty := intArg(call.Args, "quantity")

	validation, err := d.erp.ValidateOrder(ctx, int64(groupID), qty)
	if err != nil {
		d.log.Error().Err(err).Int("item_group_id", groupID).Msg("order validation failed")
		metrics.IncTool(call.Name, "error")
		return result(call, map[string]any{"success": false, "message": msgValidateError})
	}
	metrics.IncTool(call.Name, "ok")
	return result(call, map[string]any{"success": validation.Valid, "message": validation.Message})
}

func result(call model.ToolCall, payload map[string]any) model.ToolResult {
	return model.ToolResult{ID: call.ID, Name: call.Name, Payload: payload}
}

// stringArg digs a string out of the model-supplied argument map; the model
// occasionally sends numbers where strings are expected.
func stringArg(args map[string]any, key string) string {
	switch v := args[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}
