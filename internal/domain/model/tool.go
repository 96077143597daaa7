package model

// ToolKind is the closed set of business-system tools the model may call.
// Unknown names from the model never enter this set; they fall through to
// the dispatcher's single unknown arm.
type ToolKind string

const (
	ToolSearchInventory   ToolKind = "searchInventory"
	ToolFindCustomerOrder ToolKind = "findCustomerOrder"
	ToolValidateOrder     ToolKind = "validateOrder"
)

// ParseToolKind maps a model-supplied tool name onto the closed set.
func ParseToolKind(name string) (ToolKind, bool) {
	switch ToolKind(name) {
	case ToolSearchInventory, ToolFindCustomerOrder, ToolValidateOrder:
		return ToolKind(name), true
	}
	return "", false
}

// ToolCall is one tool request issued by the model within a round.
type ToolCall struct {
	ID   string // provider-assigned call id, may be empty
	Name string // raw name as the model sent it
	Args map[string]any
}

// ToolResult answers exactly one ToolCall. Payload is always a value the
// model can summarize, including for failures.
type ToolResult struct {
	ID      string
	Name    string
	Payload map[string]any
}

// InventoryListing is one product row returned by inventory search.
type InventoryListing struct {
	Name        string `json:"nama"`
	Price       int64  `json:"harga"`
	TotalStock  int    `json:"total_stok"`
	ItemGroupID int64  `json:"item_group_id"`
	SKUDetail   string `json:"sku_detail"`
}

// OrderSummary is the customer-order status view exposed to the model.
type OrderSummary struct {
	OrderNo    string `json:"order_no"`
	Status     string `json:"status"`
	Total      int64  `json:"total"`
	TrackingNo string `json:"resi"`
	Items      string `json:"items"`
	LastUpdate string `json:"last_update"`
}

// OrderValidation is the outcome of a pre-order stock/price check.
type OrderValidation struct {
	Valid   bool   `json:"success"`
	Message string `json:"message"`
}
