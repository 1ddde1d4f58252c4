// Package pager implements cursor-based pagination over the global
// transaction collection. A pager is built per principal, keeps a stack
// of page-start cursors for backwards navigation, and exposes its whole
// state as a serializable value so an API handler can round-trip it
// through an opaque token.
package pager

import (
	"context"
	"fmt"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/store"
)

// DefaultPageSize matches the page size of the original dashboard.
const DefaultPageSize = 20

// Filters are the server-side predicates. They narrow the query itself,
// unlike the in-memory refinements applied after a page is fetched.
type Filters struct {
	Category string `json:"categoria,omitempty"`
	DateFrom string `json:"dal,omitempty"`
	DateTo   string `json:"al,omitempty"`
}

// State is the full serializable pager position. Restoring it with
// Resume yields a pager that continues exactly where this one left off.
type State struct {
	Owner    string         `json:"owner,omitempty"`
	Filters  Filters        `json:"filters"`
	PageSize int            `json:"pageSize"`
	Stack    []store.Cursor `json:"stack"`
	First    *store.Cursor  `json:"first,omitempty"`
	Last     *store.Cursor  `json:"last,omitempty"`
}

// Page is one fetched window of results.
type Page struct {
	Rows    []core.Transaction `json:"transazioni"`
	HasNext bool               `json:"hasNext"`
	HasPrev bool               `json:"hasPrev"`
}

// Pager pages through a principal's transactions in descending date
// order. It is not safe for concurrent use; callers serialize access.
type Pager struct {
	gw       store.Gateway
	auth     *auth.State
	pageSize int
	state    State
}

// New builds a pager on its first page. A non-positive pageSize falls
// back to DefaultPageSize.
func New(gw store.Gateway, authState *auth.State, pageSize int) *Pager {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pager{
		gw:       gw,
		auth:     authState,
		pageSize: pageSize,
		state:    State{PageSize: pageSize},
	}
}

// Resume rebuilds a pager from a previously serialized state.
func Resume(gw store.Gateway, authState *auth.State, s State) *Pager {
	if s.PageSize <= 0 {
		s.PageSize = DefaultPageSize
	}
	return &Pager{gw: gw, auth: authState, pageSize: s.PageSize, state: s}
}

// State returns a copy of the current position.
func (p *Pager) State() State {
	s := p.state
	s.Stack = append([]store.Cursor(nil), p.state.Stack...)
	return s
}

// SetFilters replaces the server-side predicates and resets the pager to
// the first page. The next fetch starts from the top.
func (p *Pager) SetFilters(f Filters) {
	p.state = State{Filters: f, PageSize: p.pageSize}
}

// First fetches the first page under the current filters, discarding any
// navigation history.
func (p *Pager) First(ctx context.Context) (Page, error) {
	spec, err := p.buildSpec(ctx)
	if err != nil {
		return Page{}, err
	}
	docs, err := p.gw.GetAll(ctx, spec)
	if err != nil {
		return Page{}, fmt.Errorf("fetch first page: %w", err)
	}
	p.state.Stack = nil
	p.setBoundaries(docs)
	return p.page(docs), nil
}

// Next fetches the page after the current one. The pager position only
// advances once the fetch succeeds; on error the current page remains
// addressable.
func (p *Pager) Next(ctx context.Context) (Page, error) {
	spec, err := p.buildSpec(ctx)
	if err != nil {
		return Page{}, err
	}
	// Both boundary cursors are set together; a state missing either
	// (fresh pager, or a token tampered into inconsistency) starts over.
	if p.state.Last == nil || p.state.First == nil {
		return p.First(ctx)
	}
	spec.StartAfter = p.state.Last
	docs, err := p.gw.GetAll(ctx, spec)
	if err != nil {
		return Page{}, fmt.Errorf("fetch next page: %w", err)
	}
	if len(docs) == 0 {
		return Page{HasPrev: len(p.state.Stack) > 0}, nil
	}
	p.state.Stack = append(p.state.Stack, *p.state.First)
	p.setBoundaries(docs)
	return p.page(docs), nil
}

// Prev fetches the page before the current one using the stacked
// page-start cursor.
func (p *Pager) Prev(ctx context.Context) (Page, error) {
	spec, err := p.buildSpec(ctx)
	if err != nil {
		return Page{}, err
	}
	if len(p.state.Stack) == 0 || p.state.First == nil {
		return p.First(ctx)
	}
	spec.EndBefore = p.state.First
	spec.Limit = 0
	spec.LimitToLast = p.pageSize
	docs, err := p.gw.GetAll(ctx, spec)
	if err != nil {
		return Page{}, fmt.Errorf("fetch previous page: %w", err)
	}
	p.state.Stack = p.state.Stack[:len(p.state.Stack)-1]
	p.setBoundaries(docs)
	pg := p.page(docs)
	// A page reached by going backwards always has a next page.
	pg.HasNext = true
	return pg, nil
}

// principal resolves the current owner, failing closed when nobody is
// signed in. A principal switch drops the cursor stack and both boundary
// cursors in one step: cursors minted for one owner never leak into
// another owner's query.
func (p *Pager) principal(ctx context.Context) (string, error) {
	owner, ok := auth.Principal(ctx, p.auth)
	if !ok {
		return "", core.ErrNoPrincipal
	}
	if p.state.Owner != owner {
		p.state = State{Owner: owner, Filters: p.state.Filters, PageSize: p.pageSize}
	}
	return owner, nil
}

// buildSpec assembles the query: owner first, then the optional
// predicates, date-descending order and the page limit.
func (p *Pager) buildSpec(ctx context.Context) (store.Spec, error) {
	owner, err := p.principal(ctx)
	if err != nil {
		return store.Spec{}, err
	}
	spec := store.NewSpec(core.CollectionTransactions).
		Where("utente", store.OpEqual, owner)
	if p.state.Filters.Category != "" {
		spec = spec.Where("categoria", store.OpEqual, p.state.Filters.Category)
	}
	if p.state.Filters.DateFrom != "" {
		spec = spec.Where("data", store.OpGTE, core.NormalizeISODate(p.state.Filters.DateFrom))
	}
	if p.state.Filters.DateTo != "" {
		spec = spec.Where("data", store.OpLTE, core.NormalizeISODate(p.state.Filters.DateTo))
	}
	spec = spec.OrderDesc("data")
	spec.Limit = p.pageSize
	return spec, nil
}

func (p *Pager) setBoundaries(docs []store.Document) {
	if len(docs) == 0 {
		p.state.First = nil
		p.state.Last = nil
		return
	}
	order := store.NewSpec(core.CollectionTransactions).OrderDesc("data")
	first := order.CursorFor(docs[0])
	last := order.CursorFor(docs[len(docs)-1])
	p.state.First = &first
	p.state.Last = &last
}

func (p *Pager) page(docs []store.Document) Page {
	rows := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, core.TransactionFromDoc(d.ID, d.Data))
	}
	return Page{
		Rows:    rows,
		HasNext: len(docs) == p.pageSize,
		HasPrev: len(p.state.Stack) > 0,
	}
}
