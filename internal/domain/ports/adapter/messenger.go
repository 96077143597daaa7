package adapter

import "context"

// MessengerAdapter is the port for the outbound messaging gateway.
// A failed send is reported to the caller; delivery retries ride the
// job's own attempt budget, there is no separate delivery retry.
type MessengerAdapter interface {
	SendText(ctx context.Context, phone, text string) error
}
