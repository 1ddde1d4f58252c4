package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/pager"
	"aurora/internal/store"
	"aurora/internal/store/memory"
)

func newTestServer(pageSize int) (*Server, *memory.Store) {
	s := memory.New()
	srv := NewServer(Options{
		Addr:     ":0",
		Gateway:  s,
		Auth:     auth.NewStaticState("uid-1"),
		PageSize: pageSize,
	})
	return srv, s
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(20)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, "")
		if rr.Code != 200 {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv, _ := newTestServer(20)

	// Create
	rr := doJSON(t, srv, http.MethodPost, "/api/transazioni",
		`{"data":"2026-08-10","descrizione":"Spesa settimanale","categoria":"Cibo","importo":-42.5}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("create response: %v", err)
	}
	id := created["id"]
	if id == "" {
		t.Fatal("create returned no id")
	}

	// List
	rr = doJSON(t, srv, http.MethodGet, "/api/transazioni", "")
	if rr.Code != 200 {
		t.Fatalf("list status=%d body=%s", rr.Code, rr.Body.String())
	}
	var page transactionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("list response: %v", err)
	}
	if len(page.Rows) != 1 || page.Rows[0].ID != id {
		t.Fatalf("list rows = %+v, want the created transaction", page.Rows)
	}
	if page.Totals.Expense != 42.5 || page.Totals.Net != -42.5 {
		t.Errorf("totals = %+v", page.Totals)
	}
	if page.State == "" {
		t.Error("list returned no state token")
	}

	// Update
	rr = doJSON(t, srv, http.MethodPut, "/api/transazioni/"+id, `{"importo":-50}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	// Delete
	rr = doJSON(t, srv, http.MethodDelete, "/api/transazioni/"+id, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/api/transazioni", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("list response: %v", err)
	}
	if len(page.Rows) != 0 {
		t.Fatalf("rows after delete = %+v", page.Rows)
	}
}

func TestCreateTransactionRejectsZeroAmount(t *testing.T) {
	srv, _ := newTestServer(20)
	rr := doJSON(t, srv, http.MethodPost, "/api/transazioni",
		`{"data":"2026-08-10","descrizione":"x","importo":0}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", rr.Code)
	}
}

func TestListTransactionsPaging(t *testing.T) {
	srv, s := newTestServer(3)
	for i := 1; i <= 5; i++ {
		s.Seed(core.CollectionTransactions, fmt.Sprintf("t%02d", i), map[string]any{
			"utente": "uid-1", "data": fmt.Sprintf("2026-08-%02d", i), "importo": -1.0,
		})
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/transazioni", "")
	var first transactionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &first); err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Rows) != 3 || !first.HasNext || first.HasPrev {
		t.Fatalf("first page rows=%d hasNext=%v hasPrev=%v", len(first.Rows), first.HasNext, first.HasPrev)
	}
	if first.Rows[0].ID != "t05" {
		t.Errorf("first row = %s, want t05 (newest first)", first.Rows[0].ID)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transazioni?dir=next&state="+url.QueryEscape(first.State), "")
	var second transactionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Rows) != 2 || !second.HasPrev {
		t.Fatalf("second page rows=%d hasPrev=%v", len(second.Rows), second.HasPrev)
	}
	if second.Rows[0].ID != "t02" || second.Rows[1].ID != "t01" {
		t.Errorf("second page = %s,%s", second.Rows[0].ID, second.Rows[1].ID)
	}

	// Back to the first window.
	rr = doJSON(t, srv, http.MethodGet, "/api/transazioni?dir=prev&state="+url.QueryEscape(second.State), "")
	var back transactionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &back); err != nil {
		t.Fatalf("prev page: %v", err)
	}
	if len(back.Rows) != 3 || back.Rows[0].ID != "t05" {
		t.Fatalf("prev page rows = %+v", back.Rows)
	}
}

func TestListTransactionsMalformedStateToken(t *testing.T) {
	srv, _ := newTestServer(20)
	rr := doJSON(t, srv, http.MethodGet, "/api/transazioni?state=%25%25not-base64", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestExportTransactionsCSV(t *testing.T) {
	srv, s := newTestServer(20)
	s.Seed(core.CollectionTransactions, "t1", map[string]any{
		"utente": "uid-1", "data": "2026-08-10", "descrizione": "Spesa", "categoria": "Cibo", "importo": -10.0,
	})

	rr := doJSON(t, srv, http.MethodGet, "/api/transazioni/export", "")
	if rr.Code != 200 {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %s", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "transazioni_") {
		t.Errorf("Content-Disposition = %s", cd)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "ID;Data;Descrizione;Categoria;Importo\r\n") {
		t.Errorf("missing CSV header: %q", body)
	}
	if !strings.Contains(body, "t1;2026-08-10;Spesa;Cibo;-10") {
		t.Errorf("missing row: %q", body)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	srv, _ := newTestServer(20)

	rr := doJSON(t, srv, http.MethodPut, "/api/budget", `{"mese":"2026-08","importo":600}`)
	if rr.Code != 200 {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget?mese=2026-08", "")
	if rr.Code != 200 {
		t.Fatalf("get status=%d body=%s", rr.Code, rr.Body.String())
	}
	var b core.Budget
	if err := json.Unmarshal(rr.Body.Bytes(), &b); err != nil {
		t.Fatalf("get response: %v", err)
	}
	if b.Month != "2026-08" || b.Amount != 600 {
		t.Errorf("budget = %+v", b)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget?mese=2026-01", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing month status=%d, want 404", rr.Code)
	}
}

func TestCategoriesSeedDefaults(t *testing.T) {
	srv, _ := newTestServer(20)

	rr := doJSON(t, srv, http.MethodGet, "/api/categorie", "")
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var body struct {
		Categories []core.Category `json:"categorie"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response: %v", err)
	}
	if len(body.Categories) == 0 {
		t.Fatal("expected default taxonomy")
	}
	found := false
	for _, c := range body.Categories {
		if c.Name == core.DefaultCategory {
			found = true
		}
	}
	if !found {
		t.Errorf("default taxonomy missing %q: %+v", core.DefaultCategory, body.Categories)
	}
}

func TestMalformedBodyIs400(t *testing.T) {
	srv, _ := newTestServer(20)
	rr := doJSON(t, srv, http.MethodPost, "/api/transazioni", `{"importo": "not-a-number"`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", rr.Code)
	}
}

func TestListTransactionsInconsistentStateToken(t *testing.T) {
	srv, s := newTestServer(2)
	for i := 1; i <= 3; i++ {
		s.Seed(core.CollectionTransactions, fmt.Sprintf("t%02d", i), map[string]any{
			"utente": "uid-1", "data": fmt.Sprintf("2026-08-%02d", i), "importo": -1.0,
		})
	}

	// A token carrying a last cursor but no first cursor cannot come
	// from a pager we issued; paging forward from it starts over.
	token, err := encodePagerState(pager.State{
		Owner:    "uid-1",
		PageSize: 2,
		Last:     &store.Cursor{Value: "2026-08-02", ID: "t02"},
	})
	if err != nil {
		t.Fatalf("encode state: %v", err)
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/transazioni?dir=next&state="+url.QueryEscape(token), "")
	if rr.Code != 200 {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var page transactionsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
		t.Fatalf("response: %v", err)
	}
	if len(page.Rows) != 2 || page.Rows[0].ID != "t03" || page.HasPrev {
		t.Fatalf("rows=%+v hasPrev=%v, want first page", page.Rows, page.HasPrev)
	}
}

func TestListTransactionsSearchDebounce(t *testing.T) {
	s := memory.New()
	srv := NewServer(Options{
		Addr:           ":0",
		Gateway:        s,
		Auth:           auth.NewStaticState("uid-1"),
		PageSize:       20,
		SearchDebounce: 15 * time.Millisecond,
	})
	s.Seed(core.CollectionTransactions, "t1", map[string]any{
		"utente": "uid-1", "data": "2026-08-10", "descrizione": "Affitto casa", "importo": -700.0,
	})
	s.Seed(core.CollectionTransactions, "t2", map[string]any{
		"utente": "uid-1", "data": "2026-08-11", "descrizione": "Spesa", "importo": -40.0,
	})

	list := func() int {
		rr := doJSON(t, srv, http.MethodGet, "/api/transazioni?q=casa", "")
		if rr.Code != 200 {
			t.Fatalf("status=%d", rr.Code)
		}
		var page transactionsResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &page); err != nil {
			t.Fatalf("response: %v", err)
		}
		return len(page.Rows)
	}

	// The query has not settled yet: the visible set is unchanged.
	if got := list(); got != 2 {
		t.Fatalf("rows before commit = %d, want 2", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for list() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("filter never applied after the quiet interval")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
