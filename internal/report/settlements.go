// Package report renders settled orders as spreadsheets.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/micaja/api/internal/order"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	linesSheet   = "Settlements"
	summarySheet = "Summary"
)

var lineHeaders = []string{
	"Order ID", "Table", "Business Date", "Payment Method", "Tip %", "Tip Amount",
	"Order Subtotal", "Grand Total", "Product", "Unit", "Quantity", "Unit Price",
	"Line Subtotal", "Comments",
}

// Filename is the download name for a business date's report.
func Filename(businessDate string) string {
	return fmt.Sprintf("settlements-%s.xlsx", businessDate)
}

// WriteSettlements writes one row per paid line, each repeating its order's
// header columns, plus a summary sheet with totals per payment method.
func WriteSettlements(w io.Writer, businessDate string, orders []order.Order) error {
	file := xlsx.NewFile()

	sheet, err := file.AddSheet(linesSheet)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	addRow(sheet, lineHeaders...)
	for _, o := range orders {
		tipPct := ""
		if o.TipPercentage != nil {
			tipPct = o.TipPercentage.String()
		}
		for _, l := range o.Lines {
			addRow(sheet,
				o.ID.String(),
				o.Table,
				o.BusinessDate,
				o.PaymentMethod,
				tipPct,
				o.TipAmount.StringFixed(2),
				o.Subtotal.StringFixed(2),
				o.GrandTotal.StringFixed(2),
				l.ProductName,
				l.Unit,
				l.Quantity.String(),
				l.UnitPrice.StringFixed(2),
				l.Subtotal.StringFixed(2),
				l.Comments,
			)
		}
	}

	summary, err := file.AddSheet(summarySheet)
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	addRow(summary, "Business Date", businessDate)
	addRow(summary, "Orders", fmt.Sprint(len(orders)))
	addRow(summary, "Payment Method", "Orders", "Tips", "Total")

	totals := summarize(orders)
	grand := decimal.Zero
	for _, t := range totals {
		addRow(summary, t.method, fmt.Sprint(t.count), t.tips.StringFixed(2), t.total.StringFixed(2))
		grand = grand.Add(t.total)
	}
	addRow(summary, "All", fmt.Sprint(len(orders)), "", grand.StringFixed(2))

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type methodTotal struct {
	method string
	count  int
	tips   decimal.Decimal
	total  decimal.Decimal
}

func summarize(orders []order.Order) []methodTotal {
	byMethod := make(map[string]*methodTotal)
	for _, o := range orders {
		t, ok := byMethod[o.PaymentMethod]
		if !ok {
			t = &methodTotal{method: o.PaymentMethod}
			byMethod[o.PaymentMethod] = t
		}
		t.count++
		t.tips = t.tips.Add(o.TipAmount)
		t.total = t.total.Add(o.GrandTotal)
	}
	out := make([]methodTotal, 0, len(byMethod))
	for _, t := range byMethod {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].method < out[j].method })
	return out
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
