package order

import (
	"github.com/micaja/api/internal/enum"
	"github.com/shopspring/decimal"
)

var maxTip = decimal.NewFromInt(50)

// Subtotal sums the lines selected in the given set. An empty set means the
// whole table is in scope.
func (e *Engine) Subtotal(table, kind string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subtotalLocked(table, kind)
}

func (e *Engine) subtotalLocked(table, kind string) decimal.Decimal {
	set := e.selLocked(kind)[table]
	sum := decimal.Zero
	for _, l := range e.lines[table] {
		if len(set) == 0 {
			sum = sum.Add(l.Subtotal)
			continue
		}
		if _, ok := set[l.ID]; ok {
			sum = sum.Add(l.Subtotal)
		}
	}
	return sum
}

// TipAmount is the payment subtotal times the tip percentage, rounded to
// whole currency units. Zero when tip is disabled.
func (e *Engine) TipAmount(table string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tipLocked(table, e.subtotalLocked(table, enum.SelectionPayment))
}

func (e *Engine) tipLocked(table string, subtotal decimal.Decimal) decimal.Decimal {
	c, ok := e.checkout[table]
	if !ok || c.TipPercentage == nil {
		return decimal.Zero
	}
	return tipFor(subtotal, *c.TipPercentage)
}

func tipFor(subtotal, pct decimal.Decimal) decimal.Decimal {
	return wholeUnits(subtotal.Mul(pct).Div(hundred))
}

// wholeUnits rounds a money amount to whole currency units. Line subtotals
// keep two decimals; every total shown or persisted goes through here.
func wholeUnits(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// GrandTotal is the payment subtotal in whole currency units plus the tip.
func (e *Engine) GrandTotal(table string) decimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grandTotalLocked(table)
}

func (e *Engine) grandTotalLocked(table string) decimal.Decimal {
	sub := e.subtotalLocked(table, enum.SelectionPayment)
	return wholeUnits(sub).Add(e.tipLocked(table, sub))
}

// Checkout returns the table's payment inputs.
func (e *Engine) Checkout(table string) Checkout {
	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok := e.checkout[table]; ok {
		return c.clone()
	}
	return Checkout{}
}

// SetTip enables the tip at pct percent (0 to 50). nil disables it.
func (e *Engine) SetTip(table string, pct *decimal.Decimal) error {
	if err := validateTip(pct); err != nil {
		return err
	}
	return e.updateCheckout(table, func(c *Checkout) {
		if pct == nil {
			c.TipPercentage = nil
			return
		}
		v := *pct
		c.TipPercentage = &v
	})
}

func (e *Engine) SetPaymentMethod(table, method string) error {
	if err := validatePaymentMethod(method); err != nil {
		return err
	}
	return e.updateCheckout(table, func(c *Checkout) { c.PaymentMethod = method })
}

// SetTendered records the cash handed over. nil resets it.
func (e *Engine) SetTendered(table string, amount *decimal.Decimal) error {
	if err := validateTendered(amount); err != nil {
		return err
	}
	return e.updateCheckout(table, func(c *Checkout) {
		if amount == nil {
			c.Tendered = nil
			return
		}
		v := *amount
		c.Tendered = &v
	})
}

// SetCheckout replaces every payment input of the table at once. Nothing
// changes unless all fields are valid.
func (e *Engine) SetCheckout(table string, c Checkout) error {
	if err := validateTip(c.TipPercentage); err != nil {
		return err
	}
	if err := validatePaymentMethod(c.PaymentMethod); err != nil {
		return err
	}
	if err := validateTendered(c.Tendered); err != nil {
		return err
	}
	next := c.clone()
	return e.updateCheckout(table, func(cur *Checkout) { *cur = next })
}

func validateTip(pct *decimal.Decimal) error {
	if pct != nil && (pct.IsNegative() || pct.GreaterThan(maxTip)) {
		return invalid(ErrInvalidTip)
	}
	return nil
}

func validatePaymentMethod(method string) error {
	if method != "" && !enum.IsValidPaymentMethod(method) {
		return invalid(ErrInvalidPaymentMethod)
	}
	return nil
}

func validateTendered(amount *decimal.Decimal) error {
	if amount != nil && amount.IsNegative() {
		return invalid(ErrInvalidAmount)
	}
	return nil
}

func (e *Engine) updateCheckout(table string, fn func(c *Checkout)) error {
	e.mu.Lock()
	if e.tableIndex(table) < 0 {
		e.mu.Unlock()
		return invalid(ErrTableNotFound)
	}
	fn(e.checkoutLocked(table))
	e.mu.Unlock()
	e.changed()
	return nil
}
