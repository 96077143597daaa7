package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"whatsapp-ai-cs/internal/domain"
	"whatsapp-ai-cs/internal/domain/model"
	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

var _ adapter.ERPGateway = (*JubelioClient)(nil)

// JubelioClient talks to the Jubelio bridge that fronts the back office.
// Every call has a hard timeout; the tool dispatcher turns any error into a
// model-visible payload, so this client only reports, never retries.
type JubelioClient struct {
	base   string
	client *http.Client
}

func NewJubelioClient(base string, timeout time.Duration) *JubelioClient {
	if base == "" {
		base = "http://localhost:3002/jubelio-api"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &JubelioClient{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

type productRow struct {
	ItemName    string `json:"item_name"`
	SellPrice   int64  `json:"sell_price"`
	Price       int64  `json:"price"`
	ItemGroupID int64  `json:"item_group_id"`
	Variants    []struct {
		ColorSize string `json:"color_size"`
		Stock     int    `json:"stok"`
	} `json:"variants"`
}

func (c *JubelioClient) SearchInventory(ctx context.Context, keyword string) ([]model.InventoryListing, error) {
	var rows []productRow
	if err := c.getJSON(ctx, "/products/search?q="+url.QueryEscape(keyword), &rows); err != nil {
		return nil, err
	}

	out := make([]model.InventoryListing, 0, len(rows))
	for _, p := range rows {
		price := p.SellPrice
		if price == 0 {
			price = p.Price
		}
		total := 0
		details := make([]string, 0, len(p.Variants))
		for _, v := range p.Variants {
			total += v.Stock
			details = append(details, fmt.Sprintf("%s: %d", v.ColorSize, v.Stock))
		}
		out = append(out, model.InventoryListing{
			Name:        p.ItemName,
			Price:       price,
			TotalStock:  total,
			ItemGroupID: p.ItemGroupID,
			SKUDetail:   strings.Join(details, ", "),
		})
	}
	return out, nil
}

func (c *JubelioClient) FindCustomerOrder(ctx context.Context, query string) (*model.OrderSummary, error) {
	var order struct {
		OrderNo        string `json:"order_no"`
		OrderStatus    string `json:"order_status"`
		TotalAmount    int64  `json:"total_amount"`
		TrackingNumber string `json:"tracking_number"`
		LastUpdate     string `json:"last_update"`
		Items          []struct {
			ItemName string `json:"item_name"`
			Qty      int    `json:"qty"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, "/orders/status?search="+url.QueryEscape(query), &order); err != nil {
		return nil, err
	}

	tracking := order.TrackingNumber
	if tracking == "" {
		tracking = "Sedang diproses/belum diinput"
	}
	items := "Tidak ada rincian produk"
	if len(order.Items) > 0 {
		parts := make([]string, 0, len(order.Items))
		for _, it := range order.Items {
			parts = append(parts, fmt.Sprintf("%s (x%d)", it.ItemName, it.Qty))
		}
		items = strings.Join(parts, ", ")
	}
	return &model.OrderSummary{
		OrderNo:    order.OrderNo,
		Status:     order.OrderStatus,
		Total:      order.TotalAmount,
		TrackingNo: tracking,
		Items:      items,
		LastUpdate: order.LastUpdate,
	}, nil
}

func (c *JubelioClient) ValidateOrder(ctx context.Context, itemGroupID int64, quantity int) (*model.OrderValidation, error) {
	reqBody := map[string]any{
		"items": []map[string]any{{"item_group_id": itemGroupID, "qty": quantity}},
	}
	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/orders/validate", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jubelio validate: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jubelio validate: http %d", resp.StatusCode)
	}

	var result struct {
		Valid      bool   `json:"valid"`
		Message    string `json:"message"`
		TotalPrice int64  `json:"total_price"`
		Summary    []struct {
			ItemName string `json:"item_name"`
			Qty      int    `json:"qty"`
		} `json:"summary"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("jubelio validate: %w", err)
	}

	if !result.Valid {
		return &model.OrderValidation{
			Valid:   false,
			Message: fmt.Sprintf("Waduh, maaf Kak. %s", result.Message),
		}, nil
	}
	detail := struct {
		ItemName string
		Qty      int
	}{}
	if len(result.Summary) > 0 {
		detail.ItemName = result.Summary[0].ItemName
		detail.Qty = result.Summary[0].Qty
	}
	msg := fmt.Sprintf(
		"Stok tersedia! ✅\n\n*Ringkasan Pesanan:*\n- Produk: %s\n- Jumlah: %d\n- Total: Rp %d\n\nApakah datanya sudah benar? Ketik *YA* untuk memproses pesanan.",
		detail.ItemName, detail.Qty, result.TotalPrice,
	)
	return &model.OrderValidation{Valid: true, Message: msg}, nil
}

func (c *JubelioClient) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("jubelio get %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("jubelio get %s: http %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
