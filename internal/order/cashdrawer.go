package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/micaja/api/internal/enum"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Change is the result of comparing the tendered amount with the grand
// total. A negative Amount is a shortfall, not an error.
type Change struct {
	Amount     decimal.Decimal `json:"amount"`
	Sufficient bool            `json:"sufficient"`
	Message    string          `json:"message"`
}

func changeFor(tendered, grandTotal decimal.Decimal) Change {
	amount := tendered.Sub(grandTotal)
	if amount.IsNegative() {
		return Change{
			Amount:  amount,
			Message: fmt.Sprintf("insufficient, short by %s", amount.Neg().Round(0).String()),
		}
	}
	return Change{
		Amount:     amount,
		Sufficient: true,
		Message:    fmt.Sprintf("change due %s", amount.Round(0).String()),
	}
}

// ChangeDue compares tendered with the table's grand total.
func (e *Engine) ChangeDue(table string, tendered decimal.Decimal) Change {
	e.mu.Lock()
	defer e.mu.Unlock()
	return changeFor(tendered, e.grandTotalLocked(table))
}

// CashDrawerTotal is the opening float plus the grand totals of the cash
// orders given. Non-cash orders are ignored.
func CashDrawerTotal(openingFloat decimal.Decimal, orders []Order) decimal.Decimal {
	total := openingFloat
	for _, o := range orders {
		if o.PaymentMethod == enum.PaymentMethodCash {
			total = total.Add(o.GrandTotal)
		}
	}
	return total
}

// BusinessDate is the calendar date of now in the business's location.
func BusinessDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(dateLayout)
}

func validBusinessDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}

// CashDrawer is the drawer summary for one business day.
type CashDrawer struct {
	BusinessDate string          `json:"business_date"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	CashSales    decimal.Decimal `json:"cash_sales"`
	Total        decimal.Decimal `json:"total"`
	Orders       int             `json:"orders"`
}

// BusinessDate returns the override set with SetBusinessDate, else today in
// the configured location.
func (e *Engine) BusinessDate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.businessDateLocked()
}

func (e *Engine) businessDateLocked() string {
	if e.businessDate != "" {
		return e.businessDate
	}
	return BusinessDate(e.now(), e.loc)
}

// SetBusinessDate overrides the date used to stamp settlements. An empty
// date goes back to today. The value is checked when a payment is registered.
func (e *Engine) SetBusinessDate(date string) {
	e.mu.Lock()
	e.businessDate = strings.TrimSpace(date)
	e.mu.Unlock()
	e.changed()
}

// CashDrawer loads the opening float and settled orders of the current
// business date.
func (e *Engine) CashDrawer(ctx context.Context) (CashDrawer, error) {
	date := e.BusinessDate()
	if !validBusinessDate(date) {
		return CashDrawer{}, invalid(ErrInvalidBusinessDate)
	}

	float, err := e.store.GetOpeningFloat(ctx, e.owner, date)
	if err != nil {
		return CashDrawer{}, &PersistenceFailure{Op: "get opening float", Err: err}
	}
	orders, err := e.store.ListSettledOrders(ctx, e.owner, date)
	if err != nil {
		return CashDrawer{}, &PersistenceFailure{Op: "list settled orders", Err: err}
	}

	total := CashDrawerTotal(float, orders)
	return CashDrawer{
		BusinessDate: date,
		OpeningFloat: float,
		CashSales:    total.Sub(float),
		Total:        total,
		Orders:       len(orders),
	}, nil
}

// SettledOrders lists the orders settled on date.
func (e *Engine) SettledOrders(ctx context.Context, date string) ([]Order, error) {
	if !validBusinessDate(date) {
		return nil, invalid(ErrInvalidBusinessDate)
	}
	orders, err := e.store.ListSettledOrders(ctx, e.owner, date)
	if err != nil {
		return nil, &PersistenceFailure{Op: "list settled orders", Err: err}
	}
	return orders, nil
}

// SetOpeningFloat stores the float for the current business date and waits
// for the store to acknowledge it.
func (e *Engine) SetOpeningFloat(ctx context.Context, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if amount.IsNegative() {
		return invalid(ErrInvalidAmount)
	}

	e.mu.Lock()
	date := e.businessDateLocked()
	if !validBusinessDate(date) {
		e.mu.Unlock()
		return invalid(ErrInvalidBusinessDate)
	}
	done := e.writes.enqueue("set opening float", func(ctx context.Context) error {
		return e.store.SetOpeningFloat(ctx, e.owner, date, amount)
	}, false)
	e.mu.Unlock()

	if err := await(done); err != nil {
		return &PersistenceFailure{Op: "set opening float", Err: err}
	}
	return nil
}
