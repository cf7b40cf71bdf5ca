package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/core"
)

// envelope is the uniform JSON response shape: {"success": true, "data": ...}
// on success, {"success": false, "message": ..., "code": ...} on failure.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message, Code: code})
}

// respondDomainError maps domain sentinels to HTTP statuses. Anything
// unmatched is a 500 with the detail kept out of the response body.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, core.ErrMissingUncategorized):
		respondError(w, http.StatusConflict, "missing_uncategorized_category",
			"user has no Uncategorized category; create it before importing")
	case errors.Is(err, core.ErrEmptyBatch):
		respondError(w, http.StatusUnprocessableEntity, "no_valid_rows",
			"no valid rows to import")
	case errors.Is(err, core.ErrForeignKeyViolation):
		respondError(w, http.StatusConflict, "invalid_category_reference",
			"referenced category does not exist")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyMerchant):
		respondError(w, http.StatusBadRequest, "invalid_expense", err.Error())
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

// userID returns the authenticated user for the request. The identity
// middleware guarantees the value is present on every /api route.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

// parsePagination reads limit/offset query parameters, leaving zero values
// for the service layer to clamp.
func parsePagination(r *http.Request) (limit, offset int) {
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}

// clientIP extracts the caller address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i > 0 {
			return strings.TrimSpace(ip[:i])
		}
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
