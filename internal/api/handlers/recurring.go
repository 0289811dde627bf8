package handlers

import (
	"net/http"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/recurring"
)

// RecurringHandler handles recurring templates and catch-up.
type RecurringHandler struct {
	svc   *recurring.Service
	today func() civil.Date
}

// NewRecurringHandler creates a new recurring handler.
func NewRecurringHandler(svc *recurring.Service, today func() civil.Date) *RecurringHandler {
	return &RecurringHandler{svc: svc, today: today}
}

// ListRecurring handles GET /api/recurring?active=true
func (h *RecurringHandler) ListRecurring(w http.ResponseWriter, r *http.Request) {
	templates, err := h.svc.List(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		writeError(w, r, err, "Failed to list recurring templates")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("recurring", templates))
}

// GetRecurring handles GET /api/recurring/{id}
func (h *RecurringHandler) GetRecurring(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to get recurring template")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// CreateRecurring handles POST /api/recurring
func (h *RecurringHandler) CreateRecurring(w http.ResponseWriter, r *http.Request) {
	var t domain.RecurringTransaction
	if !decodeJSON(w, r, &t) {
		return
	}
	created, err := h.svc.Create(r.Context(), t)
	if err != nil {
		writeError(w, r, err, "Failed to create recurring template")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdateRecurring handles PUT /api/recurring/{id}
func (h *RecurringHandler) UpdateRecurring(w http.ResponseWriter, r *http.Request) {
	var t domain.RecurringTransaction
	if !decodeJSON(w, r, &t) {
		return
	}
	updated, err := h.svc.Update(r.Context(), r.PathValue("id"), t)
	if err != nil {
		writeError(w, r, err, "Failed to update recurring template")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// PatchRecurring handles PATCH /api/recurring/{id}
func (h *RecurringHandler) PatchRecurring(w http.ResponseWriter, r *http.Request) {
	var p recurring.Patch
	if !decodeJSON(w, r, &p) {
		return
	}
	updated, err := h.svc.Apply(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeError(w, r, err, "Failed to update recurring template")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// ToggleRecurring handles POST /api/recurring/{id}/active
func (h *RecurringHandler) ToggleRecurring(w http.ResponseWriter, r *http.Request) {
	updated, err := h.svc.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to toggle recurring template")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// DeleteRecurring handles DELETE /api/recurring/{id}
func (h *RecurringHandler) DeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "Failed to delete recurring template")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CatchUp handles POST /api/recurring/catch-up
func (h *RecurringHandler) CatchUp(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.CatchUp(r.Context(), h.today())
	if err != nil {
		writeError(w, r, err, "Failed to run recurring catch-up")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"watermark": res.Watermark,
		"created":   res.Created(),
		"days":      res.Days,
	})
}

// FireForDate handles POST /api/recurring/fire?date=YYYY-MM-DD
//
// It fires the templates due on one date without touching the watermark.
func (h *RecurringHandler) FireForDate(w http.ResponseWriter, r *http.Request) {
	date, set, ok := queryDate(w, r, "date")
	if !ok {
		return
	}
	if !set {
		date = h.today()
	}
	res, err := h.svc.FireForDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err, "Failed to fire recurring templates")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}
