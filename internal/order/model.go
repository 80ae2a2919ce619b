package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Table is one named running tab.
type Table struct {
	Name       string `json:"name"`
	OrderIndex int    `json:"order_index"`
}

// LineItem is one product entry on a table's working order.
type LineItem struct {
	ID          string          `json:"id"`
	Table       string          `json:"table"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Comments    string          `json:"comments"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewLine is the input of AddLine.
type NewLine struct {
	Table       string
	ProductName string
	Unit        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Comments    string
}

func lineSubtotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// DispatchedItem is what the table view shows as already sent to the kitchen.
type DispatchedItem struct {
	LineID      string          `json:"line_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
}

// KitchenTicket is one entry of a dispatch batch. Only the first ticket of
// a batch carries Status.
type KitchenTicket struct {
	LineID      string          `json:"line_id"`
	Table       string          `json:"table"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	Comments    string          `json:"comments"`
	Status      string          `json:"status,omitempty"`
}

// DispatchBatch is one kitchen submission; Tickets keep selection order.
type DispatchBatch struct {
	ID        uuid.UUID       `json:"id"`
	Table     string          `json:"table"`
	Tickets   []KitchenTicket `json:"tickets"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order is a settled payment: a header with its aggregates and the lines it
// paid for. Values are frozen at submission time.
type Order struct {
	ID            uuid.UUID        `json:"id"`
	Table         string           `json:"table"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	TipPercentage *decimal.Decimal `json:"tip_percentage"`
	TipAmount     decimal.Decimal  `json:"tip_amount"`
	GrandTotal    decimal.Decimal  `json:"grand_total"`
	PaymentMethod string           `json:"payment_method"`
	Status        string           `json:"status"`
	BusinessDate  string           `json:"business_date"`
	CreatedAt     time.Time        `json:"created_at"`
	Lines         []OrderLine      `json:"lines"`
}

// OrderLine is a paid line as persisted with its order.
type OrderLine struct {
	LineID      string          `json:"line_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Comments    string          `json:"comments"`
}

// Checkout holds the per-table payment inputs the cashier fills in before
// registering a payment. A nil TipPercentage means tip is disabled.
type Checkout struct {
	PaymentMethod string           `json:"payment_method"`
	TipPercentage *decimal.Decimal `json:"tip_percentage"`
	Tendered      *decimal.Decimal `json:"amount_tendered"`
}

func (c Checkout) clone() Checkout {
	out := Checkout{PaymentMethod: c.PaymentMethod}
	if c.TipPercentage != nil {
		v := *c.TipPercentage
		out.TipPercentage = &v
	}
	if c.Tendered != nil {
		v := *c.Tendered
		out.Tendered = &v
	}
	return out
}

type idSet map[string]struct{}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func newBatchID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
