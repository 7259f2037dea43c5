package domain

// PurchaseItem is one line submitted for purchase.
type PurchaseItem struct {
	LineID    string `json:"cart_item_id,omitempty"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// PurchaseRequest is re-validated by the server; totals in it are advisory.
type PurchaseRequest struct {
	Mode            CheckoutMode    `json:"mode"`
	Items           []PurchaseItem  `json:"items,omitempty"`
	ProductID       string          `json:"product_id,omitempty"`
	Quantity        int             `json:"quantity,omitempty"`
	ShippingAddress Address         `json:"shipping_address"`
	Voucher         *AppliedVoucher `json:"voucher,omitempty"`
	IdempotencyKey  string          `json:"-"`
}

type Purchase struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int64  `json:"total"`
}

// Payment is the redirect target of the external payment flow.
type Payment struct {
	PurchaseID  string `json:"purchase_id"`
	InvoiceURL  string `json:"invoice_url"`
	ExternalRef string `json:"external_id,omitempty"`
}
