package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/micaja/api/internal/order"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TableHandler serves the working state: tables, their lines, selections,
// checkout inputs, dispatch and payment.
type TableHandler struct {
	base
}

func NewTableHandler(sessions EngineProvider, log zerolog.Logger) *TableHandler {
	return &TableHandler{base: newBase(sessions, log)}
}

// RegisterRoutes registers the table endpoints on the given router.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/state", h.State)
	r.Route("/tables", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Put("/order", h.Reorder)
		r.Put("/active", h.SetActive)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Rename)
			r.Delete("/", h.Delete)

			r.Post("/lines", h.AddLine)
			r.Patch("/lines/{lid}", h.UpdateLine)
			r.Delete("/lines/{lid}", h.DeleteLine)

			r.Post("/selections/{kind}/toggle", h.Toggle)
			r.Post("/selections/{kind}/all", h.SelectAll)
			r.Delete("/selections/{kind}", h.ClearSelection)

			r.Put("/checkout", h.UpdateCheckout)
			r.Get("/totals", h.Totals)
			r.Post("/dispatch", h.Dispatch)
			r.Post("/payments", h.RegisterPayment)
		})
	})
}

// --- Request / Response types ---

type createTableRequest struct {
	Name string `json:"name" validate:"max=60"`
}

type renameTableRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

type reorderRequest struct {
	Names []string `json:"names" validate:"required,min=1,dive,required"`
}

type setActiveRequest struct {
	Name string `json:"name" validate:"required"`
}

type addLineRequest struct {
	ProductName string          `json:"product_name" validate:"required,max=120"`
	Unit        string          `json:"unit" validate:"required,oneof=KG UNIT"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Comments    string          `json:"comments" validate:"max=500"`
}

type updateLineRequest struct {
	Comments string `json:"comments" validate:"max=500"`
}

type toggleRequest struct {
	LineID string `json:"line_id" validate:"required"`
}

type selectionResponse struct {
	Kind     string       `json:"kind"`
	Selected []string     `json:"selected"`
	Totals   order.Totals `json:"totals"`
}

// checkoutRequest replaces all checkout inputs. A null tip_percentage
// disables the tip; a null amount_tendered clears it.
type checkoutRequest struct {
	PaymentMethod  string           `json:"payment_method" validate:"omitempty,oneof=CASH DEBIT TRANSFER"`
	TipPercentage  *decimal.Decimal `json:"tip_percentage"`
	AmountTendered *decimal.Decimal `json:"amount_tendered"`
}

type checkoutResponse struct {
	Checkout order.Checkout `json:"checkout"`
	Totals   order.Totals   `json:"totals"`
}

// --- Handlers ---

// State handles GET /state.
func (h *TableHandler) State(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.State())
}

// Get handles GET /tables/{name}.
func (h *TableHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	view, err := e.Table(pathParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Create handles POST /tables. A blank name picks the next default name.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req createTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	t, err := e.AddTable(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Rename handles PATCH /tables/{name}.
func (h *TableHandler) Rename(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req renameTableRequest
	if !h.decode(w, r, &req) {
		return
	}
	name := strings.TrimSpace(req.Name)
	if err := e.RenameTable(r.Context(), pathParam(r, "name"), name); err != nil {
		h.writeError(w, r, err)
		return
	}
	view, err := e.Table(name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /tables/{name}.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := e.RemoveTable(r.Context(), pathParam(r, "name")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PUT /tables/order.
func (h *TableHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req reorderRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := e.Reorder(r.Context(), req.Names); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Tables())
}

// SetActive handles PUT /tables/active.
func (h *TableHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req setActiveRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := e.SetActive(req.Name); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": e.Active()})
}

// AddLine handles POST /tables/{name}/lines.
func (h *TableHandler) AddLine(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req addLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	line, err := e.AddLine(r.Context(), order.NewLine{
		Table:       pathParam(r, "name"),
		ProductName: req.ProductName,
		Unit:        req.Unit,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Comments:    req.Comments,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, line)
}

// UpdateLine handles PATCH /tables/{name}/lines/{lid}. Only comments are
// editable.
func (h *TableHandler) UpdateLine(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req updateLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	table, lineID := pathParam(r, "name"), chi.URLParam(r, "lid")
	if err := e.UpdateComments(r.Context(), table, lineID, req.Comments); err != nil {
		h.writeError(w, r, err)
		return
	}
	for _, l := range e.Lines(table) {
		if l.ID == lineID {
			writeJSON(w, http.StatusOK, l)
			return
		}
	}
	h.writeError(w, r, order.ErrLineNotFound)
}

// DeleteLine handles DELETE /tables/{name}/lines/{lid}.
func (h *TableHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	if err := e.RemoveLine(r.Context(), pathParam(r, "name"), chi.URLParam(r, "lid")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Toggle handles POST /tables/{name}/selections/{kind}/toggle.
func (h *TableHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !h.decode(w, r, &req) {
		return
	}
	table, kind := pathParam(r, "name"), chi.URLParam(r, "kind")
	if err := e.Toggle(kind, table, req.LineID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSelection(w, r, e, kind, table)
}

// SelectAll handles POST /tables/{name}/selections/{kind}/all. It selects
// every line, or clears the set when every line is already selected.
func (h *TableHandler) SelectAll(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	table, kind := pathParam(r, "name"), chi.URLParam(r, "kind")
	if err := e.SelectAll(kind, table); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSelection(w, r, e, kind, table)
}

// ClearSelection handles DELETE /tables/{name}/selections/{kind}.
func (h *TableHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	table, kind := pathParam(r, "name"), chi.URLParam(r, "kind")
	if err := e.Clear(kind, table); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeSelection(w, r, e, kind, table)
}

func (h *TableHandler) writeSelection(w http.ResponseWriter, r *http.Request, e *order.Engine, kind, table string) {
	totals, err := e.Totals(table)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	selected := e.Selected(kind, table)
	if selected == nil {
		selected = []string{}
	}
	writeJSON(w, http.StatusOK, selectionResponse{Kind: kind, Selected: selected, Totals: totals})
}

// UpdateCheckout handles PUT /tables/{name}/checkout.
func (h *TableHandler) UpdateCheckout(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	table := pathParam(r, "name")
	err := e.SetCheckout(table, order.Checkout{
		PaymentMethod: req.PaymentMethod,
		TipPercentage: req.TipPercentage,
		Tendered:      req.AmountTendered,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	totals, err := e.Totals(table)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{Checkout: e.Checkout(table), Totals: totals})
}

// Totals handles GET /tables/{name}/totals.
func (h *TableHandler) Totals(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	totals, err := e.Totals(pathParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

// Dispatch handles POST /tables/{name}/dispatch.
func (h *TableHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	batch, err := e.DispatchSelected(r.Context(), pathParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

// RegisterPayment handles POST /tables/{name}/payments. A submission that
// arrives while another is being registered is answered with 202 and has no
// effect.
func (h *TableHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	e, ok := h.engine(w, r)
	if !ok {
		return
	}
	o, err := e.RegisterPayment(r.Context(), pathParam(r, "name"))
	if errors.Is(err, order.ErrReentrancyRejected) {
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "already in progress"})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}
