package order

import (
	"github.com/micaja/api/internal/enum"
	"github.com/shopspring/decimal"
)

// State is the full working state of an owner as shown to the UI.
type State struct {
	Tables       []TableView `json:"tables"`
	Active       string      `json:"active"`
	BusinessDate string      `json:"business_date"`
}

type TableView struct {
	Name       string           `json:"name"`
	OrderIndex int              `json:"order_index"`
	Active     bool             `json:"active"`
	Lines      []LineView       `json:"lines"`
	Dispatched []DispatchedItem `json:"dispatched"`
	Checkout   Checkout         `json:"checkout"`
	Totals     Totals           `json:"totals"`
}

type LineView struct {
	LineItem
	State   string `json:"state"`
	Kitchen bool   `json:"kitchen_selected"`
	Payment bool   `json:"payment_selected"`
}

type Totals struct {
	KitchenSubtotal decimal.Decimal `json:"kitchen_subtotal"`
	PaymentSubtotal decimal.Decimal `json:"payment_subtotal"`
	TipAmount       decimal.Decimal `json:"tip_amount"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	Change          *Change         `json:"change,omitempty"`
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		Tables:       make([]TableView, 0, len(e.tables)),
		Active:       e.active,
		BusinessDate: e.businessDateLocked(),
	}
	for _, t := range e.tables {
		s.Tables = append(s.Tables, e.tableViewLocked(t))
	}
	return s
}

// Table returns the view of one table.
func (e *Engine) Table(name string) (TableView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.tableIndex(name)
	if i < 0 {
		return TableView{}, invalid(ErrTableNotFound)
	}
	return e.tableViewLocked(e.tables[i]), nil
}

// Totals returns the pricing of one table.
func (e *Engine) Totals(name string) (Totals, error) {
	v, err := e.Table(name)
	if err != nil {
		return Totals{}, err
	}
	return v.Totals, nil
}

func (e *Engine) tableViewLocked(t Table) TableView {
	v := TableView{
		Name:       t.Name,
		OrderIndex: t.OrderIndex,
		Active:     t.Name == e.active,
		Lines:      make([]LineView, 0, len(e.lines[t.Name])),
		Dispatched: append([]DispatchedItem{}, e.dispatched[t.Name]...),
	}
	for _, l := range e.lines[t.Name] {
		_, k := e.kitchenSel[t.Name][l.ID]
		_, p := e.paymentSel[t.Name][l.ID]
		v.Lines = append(v.Lines, LineView{
			LineItem: l,
			State:    e.lineStateLocked(t.Name, l.ID),
			Kitchen:  k,
			Payment:  p,
		})
	}
	if c, ok := e.checkout[t.Name]; ok {
		v.Checkout = c.clone()
	}

	sub := e.subtotalLocked(t.Name, enum.SelectionPayment)
	tip := e.tipLocked(t.Name, sub)
	v.Totals = Totals{
		KitchenSubtotal: wholeUnits(e.subtotalLocked(t.Name, enum.SelectionKitchen)),
		PaymentSubtotal: wholeUnits(sub),
		TipAmount:       tip,
		GrandTotal:      wholeUnits(sub).Add(tip),
	}
	if v.Checkout.Tendered != nil {
		ch := changeFor(*v.Checkout.Tendered, v.Totals.GrandTotal)
		v.Totals.Change = &ch
	}
	return v
}
