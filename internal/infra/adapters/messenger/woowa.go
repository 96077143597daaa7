package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"whatsapp-ai-cs/internal/domain/ports/adapter"
)

var _ adapter.MessengerAdapter = (*WooWaAdapter)(nil)

// WooWaAdapter sends outbound WhatsApp messages through the WooWa gateway.
type WooWaAdapter struct {
	key    string
	base   string
	client *http.Client
}

func NewWooWaAdapter(key, base string) (*WooWaAdapter, error) {
	if key == "" {
		return nil, errors.New("woowa: empty api key")
	}
	if base == "" {
		base = "https://notifapi.com"
	}
	return &WooWaAdapter{
		key:    key,
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (w *WooWaAdapter) SendText(ctx context.Context, phone, text string) error {
	body := struct {
		PhoneNo string `json:"phone_no"`
		Key     string `json:"key"`
		Message string `json:"message"`
	}{PhoneNo: phone, Key: w.key, Message: text}

	b, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/send_message", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("woowa send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("woowa send: http %d", resp.StatusCode)
	}
	return nil
}
