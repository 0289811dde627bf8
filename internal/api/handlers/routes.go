package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/jobs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/recurring"
)

// Deps are the services the REST API is built on.
type Deps struct {
	Engine    *ledger.Engine
	Recurring *recurring.Service
	JobStore  jobs.JobStore
	Publisher jobs.Publisher
}

// Register mounts every endpoint on mux.
func Register(mux *http.ServeMux, d Deps) {
	accounts := NewAccountsHandler(d.Engine)
	transactions := NewTransactionsHandler(d.Engine)
	templates := NewRecurringHandler(d.Recurring, d.Engine.Today)

	// Accounts, payment methods and categories
	mux.HandleFunc("GET /api/accounts", accounts.ListAccounts)
	mux.HandleFunc("POST /api/accounts", accounts.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", accounts.GetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", accounts.RenameAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", accounts.DeleteAccount)

	mux.HandleFunc("GET /api/payment-methods", accounts.ListPaymentMethods)
	mux.HandleFunc("POST /api/payment-methods", accounts.CreatePaymentMethod)
	mux.HandleFunc("PUT /api/payment-methods/{id}", accounts.UpdatePaymentMethod)
	mux.HandleFunc("DELETE /api/payment-methods/{id}", accounts.DeletePaymentMethod)

	mux.HandleFunc("GET /api/categories", accounts.ListCategories)
	mux.HandleFunc("POST /api/categories", accounts.CreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", accounts.UpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", accounts.DeleteCategory)

	// Transactions
	mux.HandleFunc("GET /api/transactions", transactions.ListTransactions)
	mux.HandleFunc("POST /api/transactions", transactions.CreateTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", transactions.GetTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", transactions.UpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", transactions.DeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/cancel", transactions.CancelTransaction)

	// Settlement
	mux.HandleFunc("POST /api/settlements/run", transactions.RunSettlement)
	mux.HandleFunc("GET /api/settlements/pending", transactions.PendingSettlements)
	mux.HandleFunc("GET /api/settlements/upcoming", transactions.UpcomingSettlements)

	// Transfers
	mux.HandleFunc("GET /api/transfers", transactions.ListTransfers)
	mux.HandleFunc("POST /api/transfers", transactions.CreateTransfer)
	mux.HandleFunc("GET /api/transfers/{id}", transactions.GetTransfer)
	mux.HandleFunc("DELETE /api/transfers/{id}", transactions.DeleteTransfer)

	// Settings
	mux.HandleFunc("GET /api/settings/budget", transactions.GetBudget)
	mux.HandleFunc("PUT /api/settings/budget", transactions.SetBudget)

	// Recurring templates
	mux.HandleFunc("GET /api/recurring", templates.ListRecurring)
	mux.HandleFunc("POST /api/recurring", templates.CreateRecurring)
	mux.HandleFunc("POST /api/recurring/catch-up", templates.CatchUp)
	mux.HandleFunc("POST /api/recurring/fire", templates.FireForDate)
	mux.HandleFunc("GET /api/recurring/{id}", templates.GetRecurring)
	mux.HandleFunc("PUT /api/recurring/{id}", templates.UpdateRecurring)
	mux.HandleFunc("PATCH /api/recurring/{id}", templates.PatchRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", templates.DeleteRecurring)
	mux.HandleFunc("POST /api/recurring/{id}/active", templates.ToggleRecurring)

	// Jobs
	if d.JobStore != nil {
		jobsHandler := NewJobsHandler(d.JobStore, d.Publisher)
		mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
		mux.HandleFunc("GET /api/jobs/{id}", jobsHandler.GetJob)
		if d.Publisher != nil {
			mux.HandleFunc("POST /api/jobs", jobsHandler.EnqueueJob)
		}
	}

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
}
