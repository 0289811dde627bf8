package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

// AccountsHandler handles accounts, payment methods and categories.
type AccountsHandler struct {
	engine *ledger.Engine
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(engine *ledger.Engine) *AccountsHandler {
	return &AccountsHandler{engine: engine}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.engine.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list accounts")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("accounts", accounts))
}

// GetAccount handles GET /api/accounts/{id}
func (h *AccountsHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	a, err := h.engine.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to get account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, a)
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string       `json:"name"`
		OpeningBalance money.Amount `json:"opening_balance"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.engine.CreateAccount(r.Context(), req.Name, req.OpeningBalance)
	if err != nil {
		writeError(w, r, err, "Failed to create account")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, a)
}

// RenameAccount handles PUT /api/accounts/{id}
func (h *AccountsHandler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.engine.RenameAccount(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, r, err, "Failed to rename account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, a)
}

// DeleteAccount handles DELETE /api/accounts/{id}
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "Failed to delete account")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPaymentMethods handles GET /api/payment-methods
func (h *AccountsHandler) ListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	pms, err := h.engine.ListPaymentMethods(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list payment methods")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("payment_methods", pms))
}

// CreatePaymentMethod handles POST /api/payment-methods
func (h *AccountsHandler) CreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var pm domain.PaymentMethod
	if !decodeJSON(w, r, &pm) {
		return
	}
	created, err := h.engine.CreatePaymentMethod(r.Context(), pm)
	if err != nil {
		writeError(w, r, err, "Failed to create payment method")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// UpdatePaymentMethod handles PUT /api/payment-methods/{id}
func (h *AccountsHandler) UpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var pm domain.PaymentMethod
	if !decodeJSON(w, r, &pm) {
		return
	}
	updated, err := h.engine.UpdatePaymentMethod(r.Context(), r.PathValue("id"), pm)
	if err != nil {
		writeError(w, r, err, "Failed to update payment method")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// DeletePaymentMethod handles DELETE /api/payment-methods/{id}
func (h *AccountsHandler) DeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeletePaymentMethod(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "Failed to delete payment method")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string                 `json:"name"`
	Type domain.TransactionType `json:"type"`
}

// ListCategories handles GET /api/categories
func (h *AccountsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.engine.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list categories")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("categories", categories))
}

// CreateCategory handles POST /api/categories
func (h *AccountsHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.engine.CreateCategory(r.Context(), req.Name, req.Type)
	if err != nil {
		writeError(w, r, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categories/{id}
func (h *AccountsHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.engine.UpdateCategory(r.Context(), r.PathValue("id"), req.Name, req.Type)
	if err != nil {
		writeError(w, r, err, "Failed to update category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *AccountsHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
