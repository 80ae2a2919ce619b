package order

import (
	"context"

	"github.com/micaja/api/internal/enum"
	"github.com/shopspring/decimal"
)

const globalGuardKey = "*"

func (e *Engine) guardKey(table string) string {
	if e.guard == enum.SettlementGuardTable {
		return table
	}
	return globalGuardKey
}

// tryAcquire sets the in-flight flag for key. It reports false when a
// settlement already holds it.
func (e *Engine) tryAcquire(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.settling[key] {
		return false
	}
	e.settling[key] = true
	return true
}

func (e *Engine) release(key string) {
	e.mu.Lock()
	delete(e.settling, key)
	e.mu.Unlock()
}

// RegisterPayment settles the payment-selected lines of a table as one
// order. Only one settlement runs at a time per guard scope; a second call
// while one is in flight fails with ErrReentrancyRejected. The guard is held
// until the store has answered, even if ctx ends first. On any failure
// local state is left untouched.
func (e *Engine) RegisterPayment(ctx context.Context, table string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := e.guardKey(table)
	if !e.tryAcquire(key) {
		e.log.Warn().Str("table", table).Msg("payment already in progress; duplicate submission ignored")
		return nil, ErrReentrancyRejected
	}
	defer e.release(key)

	e.mu.Lock()
	o, paid, err := e.buildOrderLocked(table)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}
	done := e.writes.enqueue("register payment", func(ctx context.Context) error {
		return e.store.InsertSettlement(ctx, e.owner, o)
	}, false)
	e.mu.Unlock()

	if err := await(done); err != nil {
		e.log.Error().Err(err).Str("table", table).Msg("register payment failed")
		return nil, &PersistenceFailure{Op: "register payment", Err: err}
	}

	e.mu.Lock()
	e.applySettlementLocked(o.Table, paid)
	e.mu.Unlock()
	e.changed()

	e.log.Info().
		Str("table", table).
		Str("order_id", o.ID.String()).
		Str("grand_total", o.GrandTotal.StringFixed(2)).
		Str("payment_method", o.PaymentMethod).
		Msg("payment registered")
	return &o, nil
}

func (e *Engine) buildOrderLocked(table string) (Order, idSet, error) {
	if e.tableIndex(table) < 0 {
		return Order{}, nil, invalid(ErrTableNotFound)
	}
	set := e.paymentSel[table]
	if len(set) == 0 {
		return Order{}, nil, invalid(ErrEmptyPaymentSelection)
	}
	c := e.checkoutLocked(table)
	if c.PaymentMethod == "" {
		return Order{}, nil, invalid(ErrNoPaymentMethod)
	}
	if !enum.IsValidPaymentMethod(c.PaymentMethod) {
		return Order{}, nil, invalid(ErrInvalidPaymentMethod)
	}
	date := e.businessDateLocked()
	if !validBusinessDate(date) {
		return Order{}, nil, invalid(ErrInvalidBusinessDate)
	}

	o := Order{
		ID:            newBatchID(),
		Table:         table,
		PaymentMethod: c.PaymentMethod,
		Status:        enum.OrderStatusPaid,
		BusinessDate:  date,
		CreatedAt:     e.now(),
	}
	paid := make(idSet, len(set))
	subtotal := decimal.Zero
	for _, l := range e.lines[table] {
		if _, ok := set[l.ID]; !ok {
			continue
		}
		paid[l.ID] = struct{}{}
		subtotal = subtotal.Add(l.Subtotal)
		o.Lines = append(o.Lines, OrderLine{
			LineID:      l.ID,
			ProductName: l.ProductName,
			Unit:        l.Unit,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
			Comments:    l.Comments,
		})
	}

	o.Subtotal = wholeUnits(subtotal)
	o.TipAmount = decimal.Zero
	if c.TipPercentage != nil {
		pct := *c.TipPercentage
		o.TipPercentage = &pct
		o.TipAmount = tipFor(subtotal, pct)
	}
	o.GrandTotal = o.Subtotal.Add(o.TipAmount)
	return o, paid, nil
}

func (e *Engine) applySettlementLocked(table string, paid idSet) {
	kept := e.lines[table][:0:0]
	for _, l := range e.lines[table] {
		if _, ok := paid[l.ID]; ok {
			e.comments.Cancel(l.ID)
			continue
		}
		kept = append(kept, l)
	}
	e.lines[table] = kept
	delete(e.paymentSel, table)
	e.pruneLocked(table)

	if len(kept) == 0 {
		delete(e.kitchenSel, table)
		delete(e.dispatched, table)
	}
	if c, ok := e.checkout[table]; ok {
		c.Tendered = nil
	}
}

