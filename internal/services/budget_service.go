package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/store"
)

// BudgetService manages monthly spending caps. One budget exists per
// owner and month: saves go through the deterministic document ID, so a
// second save for the same month overwrites the first.
type BudgetService struct {
	gw   store.Gateway
	auth *auth.State
}

func NewBudgetService(gw store.Gateway, authState *auth.State) *BudgetService {
	return &BudgetService{gw: gw, auth: authState}
}

func (s *BudgetService) owner(ctx context.Context) (string, error) {
	uid, ok := auth.Principal(ctx, s.auth)
	if !ok {
		return "", core.ErrNoPrincipal
	}
	return uid, nil
}

// Save upserts the budget for its month.
func (s *BudgetService) Save(ctx context.Context, b core.Budget) (string, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return "", err
	}

	b.Owner = owner
	if err := b.Validate(); err != nil {
		return "", fmt.Errorf("validate budget: %w", err)
	}

	b.UpdatedAt = time.Now()
	id := core.BudgetID(owner, b.Month)
	if err := s.gw.Set(ctx, core.CollectionBudgets, id, b.Doc()); err != nil {
		return "", fmt.Errorf("save budget: %w", err)
	}
	return id, nil
}

// Get returns the budget for a month, or ErrNotFound.
func (s *BudgetService) Get(ctx context.Context, month string) (core.Budget, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return core.Budget{}, err
	}
	if !core.IsMonthKey(month) {
		return core.Budget{}, fmt.Errorf("%w: %q", core.ErrInvalidMonthKey, month)
	}

	doc, err := s.gw.Get(ctx, core.CollectionBudgets, core.BudgetID(owner, month))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.Budget{}, err
		}
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return core.BudgetFromDoc(doc.ID, doc.Data), nil
}

// List returns the principal's budgets, most recent month first.
func (s *BudgetService) List(ctx context.Context) ([]core.Budget, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	spec := store.NewSpec(core.CollectionBudgets).
		Where("utente", store.OpEqual, owner).
		OrderDesc("mese")
	docs, err := s.gw.GetAll(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}

	budgets := make([]core.Budget, 0, len(docs))
	for _, d := range docs {
		budgets = append(budgets, core.BudgetFromDoc(d.ID, d.Data))
	}
	return budgets, nil
}
