package http

import (
	"net/http"
	"strings"

	"aurora/internal/core"
)

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conti": accounts})
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeBody(r, &a); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id, err := s.accounts.Create(r.Context(), a)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.accounts.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListBudgets returns either the single budget of ?mese=YYYY-MM or
// the full list, most recent month first.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	if month := strings.TrimSpace(r.URL.Query().Get("mese")); month != "" {
		b, err := s.budgets.Get(r.Context(), month)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
		return
	}

	budgets, err := s.budgets.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budget": budgets})
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := decodeBody(r, &b); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id, err := s.budgets.Save(r.Context(), b)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"obiettivi": goals})
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g core.Goal
	if err := decodeBody(r, &g); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id, err := s.goals.Create(r.Context(), g)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.goals.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.categories.Get(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categorie": cats})
}

func (s *Server) handleSaveCategories(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Categories []core.Category `json:"categorie"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.categories.Save(r.Context(), body.Categories); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
