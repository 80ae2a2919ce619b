package database

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/micaja/api/internal/order"
)

// flattenSettlement turns an order into settled_orders rows: one per line,
// with the order aggregates on the first row only.
func flattenSettlement(owner uuid.UUID, o order.Order, date pgtype.Date) []InsertSettledRowParams {
	rows := make([]InsertSettledRowParams, len(o.Lines))
	for i, l := range o.Lines {
		rows[i] = InsertSettledRowParams{
			OrderID:      o.ID,
			OwnerID:      owner,
			LineNo:       int32(i),
			LineID:       l.LineID,
			TableName:    o.Table,
			ProductName:  l.ProductName,
			Quantity:     quantityToNumeric(l.Quantity),
			Unit:         l.Unit,
			UnitPrice:    decimalToNumeric(l.UnitPrice),
			Subtotal:     decimalToNumeric(l.Subtotal),
			Comments:     l.Comments,
			BusinessDate: date,
			CreatedAt:    timestamptz(o.CreatedAt),
		}
		if i > 0 {
			continue
		}
		rows[i].Total = decimalToNumeric(o.GrandTotal)
		rows[i].OrderSubtotal = decimalToNumeric(o.Subtotal)
		rows[i].TipAmount = decimalToNumeric(o.TipAmount)
		if o.TipPercentage != nil {
			rows[i].TipPercentage = decimalToNumeric(*o.TipPercentage)
		}
		rows[i].PaymentMethod = textOrNull(o.PaymentMethod)
		rows[i].Status = textOrNull(o.Status)
	}
	return rows
}

// assembleSettlements groups rows back into orders. Rows must be ordered by
// order then line number; the header is read from line 0.
func assembleSettlements(rows []SettledOrderRow) []order.Order {
	var orders []order.Order
	index := make(map[uuid.UUID]int)
	for _, r := range rows {
		i, ok := index[r.OrderID]
		if !ok {
			i = len(orders)
			index[r.OrderID] = i
			orders = append(orders, order.Order{
				ID:           r.OrderID,
				Table:        r.TableName,
				BusinessDate: formatDate(r.BusinessDate),
				CreatedAt:    r.CreatedAt.Time,
			})
		}
		o := &orders[i]
		if r.LineNo == 0 {
			o.GrandTotal = numericToDecimal(r.Total)
			o.Subtotal = numericToDecimal(r.OrderSubtotal)
			o.TipAmount = numericToDecimal(r.TipAmount)
			o.TipPercentage = numericToDecimalPtr(r.TipPercentage)
			o.PaymentMethod = r.PaymentMethod.String
			o.Status = r.Status.String
		}
		o.Lines = append(o.Lines, order.OrderLine{
			LineID:      r.LineID,
			ProductName: r.ProductName,
			Unit:        r.Unit,
			Quantity:    numericToDecimal(r.Quantity),
			UnitPrice:   numericToDecimal(r.UnitPrice),
			Subtotal:    numericToDecimal(r.Subtotal),
			Comments:    r.Comments,
		})
	}
	return orders
}

// flattenDispatch turns a batch into kitchen_queue rows with the status on
// the first row only.
func flattenDispatch(owner uuid.UUID, b order.DispatchBatch) []InsertKitchenTicketParams {
	rows := make([]InsertKitchenTicketParams, len(b.Tickets))
	for i, t := range b.Tickets {
		rows[i] = InsertKitchenTicketParams{
			BatchID:     b.ID,
			OwnerID:     owner,
			LineNo:      int32(i),
			LineID:      t.LineID,
			TableName:   t.Table,
			ProductName: t.ProductName,
			Quantity:    quantityToNumeric(t.Quantity),
			Unit:        t.Unit,
			Comments:    t.Comments,
			CreatedAt:   timestamptz(b.CreatedAt),
		}
		if i == 0 {
			rows[i].Status = textOrNull(t.Status)
		}
	}
	return rows
}

func tableFromRow(r TableConfig) order.Table {
	return order.Table{Name: r.TableName, OrderIndex: int(r.OrderIndex)}
}

func lineFromRow(r WorkingOrderLine) order.LineItem {
	return order.LineItem{
		ID:          r.LineID,
		Table:       r.TableName,
		ProductName: r.ProductName,
		Unit:        r.Unit,
		Quantity:    numericToDecimal(r.Quantity),
		UnitPrice:   numericToDecimal(r.UnitPrice),
		Subtotal:    numericToDecimal(r.Subtotal),
		Comments:    r.Comments,
		CreatedAt:   r.CreatedAt.Time,
	}
}

func lineParams(owner uuid.UUID, l order.LineItem) InsertWorkingLineParams {
	return InsertWorkingLineParams{
		OwnerID:     owner,
		LineID:      l.ID,
		TableName:   l.Table,
		ProductName: l.ProductName,
		Quantity:    quantityToNumeric(l.Quantity),
		Unit:        l.Unit,
		UnitPrice:   decimalToNumeric(l.UnitPrice),
		Subtotal:    decimalToNumeric(l.Subtotal),
		Comments:    l.Comments,
		CreatedAt:   timestamptz(l.CreatedAt),
	}
}
