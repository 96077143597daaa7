package adapter

import (
	"context"

	"whatsapp-ai-cs/internal/domain/model"
)

// ERPGateway is the port for the business back office (inventory and
// orders). Implementations return domain.ErrNotFound for missing orders;
// any other error is a transport problem the dispatcher converts into a
// model-visible failure payload.
type ERPGateway interface {
	SearchInventory(ctx context.Context, keyword string) ([]model.InventoryListing, error)
	FindCustomerOrder(ctx context.Context, query string) (*model.OrderSummary, error)
	ValidateOrder(ctx context.Context, itemGroupID int64, quantity int) (*model.OrderValidation, error)
}
