package handlers

import (
	"net/http"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/money"
)

// TransactionsHandler handles transactions, settlement, transfers and the
// monthly budget.
type TransactionsHandler struct {
	engine *ledger.Engine
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(engine *ledger.Engine) *TransactionsHandler {
	return &TransactionsHandler{engine: engine}
}

// ListTransactions handles GET /api/transactions
//
// Query parameters: start_date, end_date (YYYY-MM-DD), category_id,
// payment_method_id, account_id, type, include_cancelled.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, _, ok := queryDate(w, r, "start_date")
	if !ok {
		return
	}
	to, _, ok := queryDate(w, r, "end_date")
	if !ok {
		return
	}

	filter := domain.TransactionFilter{
		From:             from,
		To:               to,
		CategoryID:       query.Get("category_id"),
		PaymentMethodID:  query.Get("payment_method_id"),
		AssetAccountID:   query.Get("account_id"),
		Type:             domain.TransactionType(query.Get("type")),
		IncludeCancelled: query.Get("include_cancelled") == "true",
	}
	if filter.Type != "" {
		if err := filter.Type.Validate(); err != nil {
			writeError(w, r, err, "Failed to list transactions")
			return
		}
	}

	txs, err := h.engine.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "Failed to list transactions")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("transactions", txs))
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.engine.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, t)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in domain.TransactionInput
	if !decodeJSON(w, r, &in) {
		return
	}
	t, err := h.engine.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// CancelTransaction handles POST /api/transactions/{id}/cancel
func (h *TransactionsHandler) CancelTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to cancel transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RunSettlement handles POST /api/settlements/run?as_of=YYYY-MM-DD
func (h *TransactionsHandler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	asOf, set, ok := queryDate(w, r, "as_of")
	if !ok {
		return
	}
	if !set {
		asOf = h.engine.Today()
	}
	res, err := h.engine.SettlePending(r.Context(), asOf)
	if err != nil {
		writeError(w, r, err, "Failed to run settlement")
		return
	}
	log := requestLog(r)
	log.Info().
		Int("settled", len(res.Settled)).
		Int("failed", len(res.Failed)).
		Msg("Settlement triggered via API")
	middleware.WriteJSON(w, http.StatusOK, res)
}

// PendingSettlements handles GET /api/settlements/pending
func (h *TransactionsHandler) PendingSettlements(w http.ResponseWriter, r *http.Request) {
	pending, err := h.engine.PendingSettlements(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list pending settlements")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("transactions", pending))
}

// UpcomingSettlements handles GET /api/settlements/upcoming?days=N
func (h *TransactionsHandler) UpcomingSettlements(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.engine.UpcomingSettlements(r.Context(), h.engine.Today(), queryInt(r, "days", 7))
	if err != nil {
		writeError(w, r, err, "Failed to list upcoming settlements")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("reminders", reminders))
}

// ListTransfers handles GET /api/transfers
func (h *TransactionsHandler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.engine.ListTransfers(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list transfers")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, listResponse("transfers", transfers))
}

// CreateTransfer handles POST /api/transfers
func (h *TransactionsHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var t domain.Transfer
	if !decodeJSON(w, r, &t) {
		return
	}
	created, err := h.engine.CreateTransfer(r.Context(), t)
	if err != nil {
		writeError(w, r, err, "Failed to create transfer")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, created)
}

// GetTransfer handles GET /api/transfers/{id}
func (h *TransactionsHandler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.engine.GetTransfer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to get transfer")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// DeleteTransfer handles DELETE /api/transfers/{id}
func (h *TransactionsHandler) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteTransfer(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, r, err, "Failed to delete transfer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBudget handles GET /api/settings/budget
func (h *TransactionsHandler) GetBudget(w http.ResponseWriter, r *http.Request) {
	budget, ok, err := h.engine.MonthlyBudget(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to read budget")
		return
	}
	if !ok {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{"monthly_budget": nil})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"monthly_budget": budget})
}

// SetBudget handles PUT /api/settings/budget
func (h *TransactionsHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MonthlyBudget money.Amount `json:"monthly_budget"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.engine.SetMonthlyBudget(r.Context(), req.MonthlyBudget); err != nil {
		writeError(w, r, err, "Failed to save budget")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"monthly_budget": req.MonthlyBudget})
}
