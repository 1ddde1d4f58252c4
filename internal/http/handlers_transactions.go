package http

import (
	"net/http"
	"strings"
	"time"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/export"
	"aurora/internal/list"
	"aurora/internal/pager"
)

// transactionsResponse is one page of transactions after the in-memory
// refinements, plus the pager token for the follow-up request.
type transactionsResponse struct {
	Rows    []core.Transaction `json:"transazioni"`
	Totals  core.Totals        `json:"totali"`
	HasNext bool               `json:"hasNext"`
	HasPrev bool               `json:"hasPrev"`
	State   string             `json:"state"`
}

// handleListTransactions pages through the principal's transactions.
// Server-side predicates (categoria, dal, al) narrow the query; q, tipo,
// mese, sottocategoria and sort refine the fetched page in memory. The
// free-text search is debounced per principal, so a burst of edits only
// changes the visible set once input has settled.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.Principal(r.Context(), s.auth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	q := r.URL.Query()

	filters := pager.Filters{
		Category: strings.TrimSpace(q.Get("categoria")),
		DateFrom: strings.TrimSpace(q.Get("dal")),
		DateTo:   strings.TrimSpace(q.Get("al")),
	}

	var pg *pager.Pager
	if token := q.Get("state"); token != "" {
		state, err := decodePagerState(token)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed state token")
			return
		}
		pg = pager.Resume(s.gw, s.auth, state)
		if state.Filters != filters {
			// Changed predicates invalidate every cursor.
			pg.SetFilters(filters)
		}
	} else {
		pg = pager.New(s.gw, s.auth, s.pageSize)
		pg.SetFilters(filters)
	}

	var (
		page pager.Page
		err  error
	)
	switch dir := q.Get("dir"); dir {
	case "next":
		page, err = pg.Next(r.Context())
	case "prev":
		page, err = pg.Prev(r.Context())
	default:
		page, err = pg.First(r.Context())
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	criteria := list.Criteria{
		Search:      s.debouncedSearch(owner, q.Get("q")),
		Kind:        list.Kind(q.Get("tipo")),
		Month:       q.Get("mese"),
		Subcategory: q.Get("sottocategoria"),
		Sort:        list.Sort(q.Get("sort")),
	}
	visible := list.Apply(page.Rows, criteria)

	token, err := encodePagerState(pg.State())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionsResponse{
		Rows:    visible,
		Totals:  core.ComputeTotals(visible),
		HasNext: page.HasNext,
		HasPrev: page.HasPrev,
		State:   token,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeBody(r, &t); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	id, err := s.transactions.Create(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var fields map[string]any
	if err := decodeBody(r, &fields); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	if err := s.transactions.Update(r.Context(), id, fields); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.transactions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExportTransactions streams the principal's full history as CSV.
// The same in-memory refinements as the list endpoint apply, so the
// export matches what the client currently sees.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	owner, ok := auth.Principal(r.Context(), s.auth)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	rows, err := s.transactions.ListAll(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	criteria := list.Criteria{
		Search:      s.debouncedSearch(owner, q.Get("q")),
		Kind:        list.Kind(q.Get("tipo")),
		Month:       q.Get("mese"),
		Category:    q.Get("categoria"),
		Subcategory: q.Get("sottocategoria"),
		Sort:        list.Sort(q.Get("sort")),
	}
	rows = list.Apply(rows, criteria)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)
	_, _ = w.Write([]byte(export.CSV(rows)))
}
