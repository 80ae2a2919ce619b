package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/micaja/api/internal/order"
	"github.com/micaja/api/internal/report"
	"github.com/rs/zerolog"
)

// ReportHandler serves spreadsheet exports of settled orders.
type ReportHandler struct {
	base
}

func NewReportHandler(sessions EngineProvider, log zerolog.Logger) *ReportHandler {
	return &ReportHandler{base: newBase(sessions, log)}
}

func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/reports/settlements.xlsx", h.Settlements)
	r.Get("/reports/settlements", h.SettlementsJSON)
}

func (h *ReportHandler) date(r *http.Request, businessDate func() string) string {
	if d := r.URL.Query().Get("date"); d != "" {
		return d
	}
	return businessDate()
}

// Settlements handles GET /reports/settlements.xlsx?date=YYYY-MM-DD. The
// date defaults to the current business date.
func (h *ReportHandler) Settlements(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	date := h.date(r, e.BusinessDate)
	orders, err := e.SettledOrders(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Render fully before writing headers so a failure can still be a JSON error.
	var buf bytes.Buffer
	if err := report.WriteSettlements(&buf, date, orders); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+report.Filename(date))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// SettlementsJSON handles GET /reports/settlements?date=YYYY-MM-DD.
func (h *ReportHandler) SettlementsJSON(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	date := h.date(r, e.BusinessDate)
	orders, err := e.SettledOrders(r.Context(), date)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"business_date": date, "orders": orders})
}
