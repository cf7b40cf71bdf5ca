package http

import (
	"net/http"
)

// handleOverview serves the full dashboard, cached per user for a short TTL.
// Every expense write path invalidates the cache entry.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	key := overviewCacheKey(uid)

	if ov, ok := s.overviewCache.Get(key); ok {
		w.Header().Set("X-Cache", "HIT")
		respondJSON(w, http.StatusOK, ov)
		return
	}

	ov, err := s.reports.BuildOverview(r.Context(), uid)
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}

	s.overviewCache.Set(key, ov)
	w.Header().Set("X-Cache", "MISS")
	respondJSON(w, http.StatusOK, ov)
}

func (s *Server) handleExpenseCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.reports.Count(r.Context(), userID(r))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"expenseCount": n})
}

func (s *Server) handleMonthToDateTotal(w http.ResponseWriter, r *http.Request) {
	total, err := s.reports.MonthToDateTotal(r.Context(), userID(r))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"monthToDateTotal": total})
}

func (s *Server) handleAverageDaily(w http.ResponseWriter, r *http.Request) {
	avg, err := s.reports.AverageDaily(r.Context(), userID(r))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"averageDailySpend": avg})
}

func (s *Server) handleTopCategory(w http.ResponseWriter, r *http.Request) {
	top, err := s.reports.TopCategory(r.Context(), userID(r))
	if err != nil {
		respondDomainError(r.Context(), w, err)
		return
	}
	// top is nil when the month has no expenses; the client renders that as
	// an empty state.
	respondJSON(w, http.StatusOK, map[string]any{"topCategory": top})
}
