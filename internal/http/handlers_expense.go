package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"spendtrack/internal/core"
)

// expenseRequest is the create/update body. Amount is a decimal string or
// number; Date is a calendar date.
type expenseRequest struct {
	Title      string          `json:"title"`
	Amount     json.RawMessage `json:"amount"`
	Merchant   string          `json:"merchant"`
	Date       string          `json:"date"`
	CategoryID *string         `json:"categoryId"`
	Notes      *string         `json:"notes"`
}

type expenseResponse struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Amount     core.Money `json:"amount"`
	Merchant   string     `json:"merchant"`
	Date       string     `json:"date"`
	CategoryID *string    `json:"categoryId"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:         e.ID,
		Title:      e.Title,
		Amount:     e.Amount,
		Merchant:   e.Merchant,
		Date:       e.Date.Format("2006-01-02"),
		CategoryID: e.CategoryID,
		Notes:      e.Notes,
		CreatedAt:  e.CreatedAt,
	}
}

// parseAmountField accepts both `"4.50"` and `4.50` as the amount value.
func parseAmountField(raw json.RawMessage) (core.Money, error) {
	if len(raw) == 0 {
		return core.Money{}, core.ErrInvalidAmount
	}
	s := string(raw)
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		s = str
	}
	cents, err := core.ParseAmountToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request payload")
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	date, err := core.ParseCalendarDate(req.Date)
	if err != nil {
		respondDomainError(r.Context(), w, core.ErrInvalidDate)
		return
	}

	e := core.Expense{
		UserID:     userID(r),
		Title:      sanitizeInput(req.Title),
		Amount:     amount,
		Merchant:   sanitizeInput(req.Merchant),
		Date:       date,
		CategoryID: req.CategoryID,
	}
	if req.Notes != nil {
		e.Notes = sanitizeInput(*req.Notes)
	}

	saved, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(saved.UserID)
	respondJSON(w, http.StatusCreated, toExpenseResponse(saved))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.expenses.GetExpense(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(e))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	page, err := s.expenses.ListExpenses(r.Context(), userID(r), limit, offset)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	items := make([]expenseResponse, 0, len(page.Items))
	for _, e := range page.Items {
		items = append(items, toExpenseResponse(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": page.Total,
	})
}

// expensePatchRequest distinguishes absent fields from explicit nulls: a
// literal null categoryId clears the category.
type expensePatchRequest struct {
	Title      *string          `json:"title"`
	Amount     *json.RawMessage `json:"amount"`
	Merchant   *string          `json:"merchant"`
	Date       *string          `json:"date"`
	CategoryID *json.RawMessage `json:"categoryId"`
	Notes      *string          `json:"notes"`
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expensePatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request payload")
		return
	}

	var patch core.ExpensePatch
	if req.Title != nil {
		t := sanitizeInput(*req.Title)
		patch.Title = &t
	}
	if req.Amount != nil {
		amount, err := parseAmountField(*req.Amount)
		if err != nil {
			respondDomainError(r.Context(), w, err)
			return
		}
		patch.Amount = &amount
	}
	if req.Merchant != nil {
		m := sanitizeInput(*req.Merchant)
		if m == "" {
			respondDomainError(r.Context(), w, core.ErrEmptyMerchant)
			return
		}
		patch.Merchant = &m
	}
	if req.Date != nil {
		date, err := core.ParseCalendarDate(*req.Date)
		if err != nil {
			respondDomainError(r.Context(), w, core.ErrInvalidDate)
			return
		}
		patch.Date = &date
	}
	if req.CategoryID != nil {
		if string(*req.CategoryID) == "null" {
			patch.ClearCategory = true
		} else {
			var id string
			if err := json.Unmarshal(*req.CategoryID, &id); err != nil {
				respondError(w, http.StatusBadRequest, "invalid_body", "categoryId must be a string or null")
				return
			}
			patch.CategoryID = &id
		}
	}
	if req.Notes != nil {
		n := sanitizeInput(*req.Notes)
		patch.Notes = &n
	}

	uid := userID(r)
	after, err := s.expenses.UpdateExpense(r.Context(), uid, chi.URLParam(r, "id"), patch)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(uid)
	respondJSON(w, http.StatusOK, toExpenseResponse(after))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.expenses.DeleteExpense(r.Context(), uid, chi.URLParam(r, "id")); err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	s.invalidateOverview(uid)
	respondJSON(w, http.StatusOK, map[string]any{"deleted": true})
}
