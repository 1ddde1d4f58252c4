// Package dashboard maintains live KPI rollups for one principal over
// the union of the two transaction sources: the global collection and
// the legacy per-owner namespace.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"aurora/internal/core"
	"aurora/internal/store"
)

// Snapshot is one consistent view of the dashboard numbers.
type Snapshot struct {
	KPI        core.KPI             `json:"kpi"`
	Flows      []core.MonthFlow     `json:"andamento"`
	Categories []core.CategoryTotal `json:"categorie"`
	Budget     *BudgetOverview      `json:"budget,omitempty"`

	// Per-source error flags. A failed source stops contributing until
	// the aggregator is rebuilt; the other source keeps updating.
	GlobalFailed bool `json:"globalFailed,omitempty"`
	LegacyFailed bool `json:"legacyFailed,omitempty"`
}

// BudgetOverview summarizes the current month against its budget.
type BudgetOverview struct {
	Month     string  `json:"mese"`
	Budget    float64 `json:"importo"`
	Spent     float64 `json:"speso"`
	Remaining float64 `json:"rimanente"`
	Percent   float64 `json:"percentuale"`
}

// Aggregator subscribes to both transaction sources of a principal and
// recomputes the full rollup on every snapshot. No delta arithmetic:
// each source snapshot replaces that source's cache entirely.
type Aggregator struct {
	gw    store.Gateway
	owner string
	now   func() time.Time

	mu         sync.Mutex
	global     []core.Transaction
	legacy     []core.Transaction
	globalErr  error
	legacyErr  error
	budget     *core.Budget
	onSnapshot func(Snapshot)

	unsubs    []store.Unsubscribe
	closeOnce sync.Once
}

// New starts an aggregator for the given principal. onSnapshot fires
// after every recompute, including the initial ones; it is called
// without internal locks held.
func New(ctx context.Context, gw store.Gateway, owner string, onSnapshot func(Snapshot)) *Aggregator {
	a := &Aggregator{
		gw:         gw,
		owner:      owner,
		now:        time.Now,
		onSnapshot: onSnapshot,
	}
	a.loadBudget(ctx)
	a.subscribe()
	return a
}

func (a *Aggregator) subscribe() {
	globalSpec := store.NewSpec(core.CollectionTransactions).
		Where("utente", store.OpEqual, a.owner).
		OrderDesc("data")
	legacySpec := store.NewSpec(core.OwnerTransactions(a.owner))

	a.unsubs = append(a.unsubs,
		a.gw.Subscribe(globalSpec,
			func(docs []store.Document) { a.apply(&a.global, &a.globalErr, docs) },
			func(err error) { a.fail(&a.globalErr, "global", err) },
		),
		a.gw.Subscribe(legacySpec,
			func(docs []store.Document) { a.apply(&a.legacy, &a.legacyErr, docs) },
			func(err error) { a.fail(&a.legacyErr, "legacy", err) },
		),
	)
}

// loadBudget fetches the current month's budget once at startup. Budget
// edits land on the next aggregator rebuild; the rollups themselves stay
// live.
func (a *Aggregator) loadBudget(ctx context.Context) {
	doc, err := a.gw.Get(ctx, core.CollectionBudgets, core.BudgetID(a.owner, core.CurrentMonthKey(a.now())))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			slog.WarnContext(ctx, "Failed to load current budget",
				"owner", a.owner, "error", err)
		}
		return
	}
	b := core.BudgetFromDoc(doc.ID, doc.Data)
	a.budget = &b
}

func (a *Aggregator) apply(cache *[]core.Transaction, errState *error, docs []store.Document) {
	rows := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, core.TransactionFromDoc(d.ID, d.Data).Normalize())
	}

	a.mu.Lock()
	if *errState != nil {
		// A failed source stays out of the rollup.
		a.mu.Unlock()
		return
	}
	*cache = rows
	snap := a.computeLocked()
	cb := a.onSnapshot
	a.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

func (a *Aggregator) fail(errState *error, source string, err error) {
	slog.Error("Dashboard source failed", "owner", a.owner, "source", source, "error", err)

	a.mu.Lock()
	*errState = err
	switch errState {
	case &a.globalErr:
		a.global = nil
	case &a.legacyErr:
		a.legacy = nil
	}
	snap := a.computeLocked()
	cb := a.onSnapshot
	a.mu.Unlock()

	if cb != nil {
		cb(snap)
	}
}

// Current returns the rollup over the present caches.
func (a *Aggregator) Current() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.computeLocked()
}

func (a *Aggregator) computeLocked() Snapshot {
	merged := make([]core.Transaction, 0, len(a.global)+len(a.legacy))
	merged = append(merged, a.global...)
	merged = append(merged, a.legacy...)

	month := core.CurrentMonthKey(a.now())
	snap := Snapshot{
		KPI:          core.ComputeKPI(merged, month),
		Flows:        core.MonthlyFlows(a.global),
		Categories:   core.ExpenseByCategory(a.global),
		GlobalFailed: a.globalErr != nil,
		LegacyFailed: a.legacyErr != nil,
	}
	snap.Budget = a.budgetOverview(month, snap.KPI)
	return snap
}

// budgetOverview derives the month summary: remaining is budget minus
// expenses when a budget exists, income minus expenses otherwise.
func (a *Aggregator) budgetOverview(month string, kpi core.KPI) *BudgetOverview {
	ov := &BudgetOverview{Month: month, Spent: kpi.CurrentMonthExpense}
	if a.budget != nil && a.budget.Month == month {
		ov.Budget = a.budget.Amount
		ov.Remaining = ov.Budget - ov.Spent
		if ov.Budget > 0 {
			ov.Percent = ov.Spent / ov.Budget * 100
		}
		return ov
	}
	ov.Remaining = kpi.TotalIncome - kpi.TotalExpense
	return ov
}

// Close releases both subscriptions. Safe to call more than once.
func (a *Aggregator) Close() {
	a.closeOnce.Do(func() {
		for _, unsub := range a.unsubs {
			unsub()
		}
	})
}
