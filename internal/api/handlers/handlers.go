// Package handlers maps the ledger operations onto REST endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/api/middleware"
	"github.com/dvloznov/finance-ledger/internal/calendar"
	"github.com/dvloznov/finance-ledger/internal/domain"
	"github.com/dvloznov/finance-ledger/internal/logger"
)

// StatusFor maps an error kind onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Client errors carry the error text
// and kind; internal errors are logged and hidden behind msg.
func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg(msg)
		middleware.WriteError(w, status, msg)
		return
	}
	middleware.WriteJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  domain.Kind(err),
	})
}

// decodeJSON reads the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// queryDate parses an optional YYYY-MM-DD query parameter. ok is false when
// a 400 has already been written.
func queryDate(w http.ResponseWriter, r *http.Request, name string) (d civil.Date, set bool, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return civil.Date{}, false, true
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid "+name+" format")
		return civil.Date{}, false, false
	}
	return d, true, true
}

// queryInt parses an optional integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return v
	}
	return def
}

// listResponse is the envelope of collection endpoints.
func listResponse[T any](key string, items []T) map[string]any {
	if items == nil {
		items = []T{}
	}
	return map[string]any{key: items, "count": len(items)}
}

// requestLog returns the logger for r.
func requestLog(r *http.Request) zerolog.Logger {
	return logger.FromContext(r.Context())
}
