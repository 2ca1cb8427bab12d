package http

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"divider/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeDomainError maps ledger errors onto HTTP status codes: 422 for
// rejected input, 404 for unknown names or ids, 409 for conflicts, 500 for
// everything else.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var unknown *core.UnknownPersonError
	var mismatch *core.ShareMismatchError

	switch {
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrNoShares),
		errors.Is(err, core.ErrSelfPayment),
		errors.Is(err, core.ErrNegativeShare),
		errors.As(err, &unknown),
		errors.As(err, &mismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrNoSuchLedger):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName),
		errors.Is(err, core.ErrDuplicateLedger),
		errors.Is(err, core.ErrAlreadyUndone):
		status = http.StatusConflict
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

// parseAmount converts a decimal amount string ("12.34" or "12,34") to Money.
func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}
