package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"spendtrack/internal/core"
)

type categoryRequest struct {
	Name string `json:"name"`
}

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.expenses.ListCategories(r.Context(), userID(r))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request payload")
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_category", "category name is required")
		return
	}

	c, err := s.expenses.CreateCategory(r.Context(), userID(r), name)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toCategoryResponse(c))
}

// handleEnsureStarterCategories seeds the fixed starter set for the caller.
// Safe to call repeatedly.
func (s *Server) handleEnsureStarterCategories(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.expenses.EnsureStarterCategories(r.Context(), uid); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	cats, err := s.expenses.ListCategories(r.Context(), uid)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request payload")
		return
	}
	name := sanitizeInput(req.Name)
	if name == "" {
		respondError(w, http.StatusBadRequest, "invalid_category", "category name is required")
		return
	}

	if err := s.expenses.RenameCategory(r.Context(), userID(r), chi.URLParam(r, "id"), name); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"renamed": true})
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.expenses.DeleteCategory(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	// Deleting a category uncategorizes its expenses.
	s.invalidateOverview(uid)
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
