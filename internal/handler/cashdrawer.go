package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// CashDrawerHandler serves the drawer summary, the opening float and the
// business date override.
type CashDrawerHandler struct {
	base
}

func NewCashDrawerHandler(sessions EngineProvider, log zerolog.Logger) *CashDrawerHandler {
	return &CashDrawerHandler{base: newBase(sessions, log)}
}

func (h *CashDrawerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cash-drawer", h.Get)
	r.Put("/cash-drawer/float", h.SetFloat)
	r.Get("/business-date", h.GetBusinessDate)
	r.Put("/business-date", h.SetBusinessDate)
}

type setFloatRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// setBusinessDateRequest sets the override. An empty date goes back to
// today in the business timezone.
type setBusinessDateRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// Get handles GET /cash-drawer.
func (h *CashDrawerHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	drawer, err := e.CashDrawer(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drawer)
}

// SetFloat handles PUT /cash-drawer/float and answers with the updated
// drawer.
func (h *CashDrawerHandler) SetFloat(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req setFloatRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := e.SetOpeningFloat(r.Context(), req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	drawer, err := e.CashDrawer(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, drawer)
}

// GetBusinessDate handles GET /business-date.
func (h *CashDrawerHandler) GetBusinessDate(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"business_date": e.BusinessDate()})
}

// SetBusinessDate handles PUT /business-date.
func (h *CashDrawerHandler) SetBusinessDate(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req setBusinessDateRequest
	if !h.decode(w, r, &req) {
		return
	}
	e.SetBusinessDate(req.Date)
	writeJSON(w, http.StatusOK, map[string]string{"business_date": e.BusinessDate()})
}
