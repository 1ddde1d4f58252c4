package services

import (
	"context"
	"errors"
	"testing"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/store"
	"aurora/internal/store/memory"
)

func TestBudgetSaveIsUpsertPerMonth(t *testing.T) {
	s := memory.New()
	svc := NewBudgetService(s, auth.NewStaticState("uid-1"))
	ctx := context.Background()

	first, err := svc.Save(ctx, core.Budget{Month: "2026-08", Amount: 500})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := svc.Save(ctx, core.Budget{Month: "2026-08", Amount: 650})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if first != second {
		t.Errorf("same month produced different IDs: %q vs %q", first, second)
	}
	if first != core.BudgetID("uid-1", "2026-08") {
		t.Errorf("unexpected budget ID %q", first)
	}

	budgets, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(budgets) != 1 {
		t.Fatalf("upsert produced %d budgets, want 1", len(budgets))
	}
	if budgets[0].Amount != 650 {
		t.Errorf("last write did not win: %v", budgets[0].Amount)
	}
}

func TestBudgetSaveValidation(t *testing.T) {
	svc := NewBudgetService(memory.New(), auth.NewStaticState("uid-1"))
	ctx := context.Background()

	tests := []struct {
		name   string
		budget core.Budget
		want   error
	}{
		{name: "zero amount", budget: core.Budget{Month: "2026-08"}, want: core.ErrInvalidAmount},
		{name: "negative amount", budget: core.Budget{Month: "2026-08", Amount: -5}, want: core.ErrInvalidAmount},
		{name: "bad month key", budget: core.Budget{Month: "agosto", Amount: 100}, want: core.ErrInvalidMonthKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Save(ctx, tt.budget); !errors.Is(err, tt.want) {
				t.Errorf("Save() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestBudgetGet(t *testing.T) {
	s := memory.New()
	svc := NewBudgetService(s, auth.NewStaticState("uid-1"))
	ctx := context.Background()

	if _, err := svc.Get(ctx, "2026-08"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() of absent budget = %v, want ErrNotFound", err)
	}

	if _, err := svc.Save(ctx, core.Budget{Month: "2026-08", Amount: 400}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	b, err := svc.Get(ctx, "2026-08")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if b.Amount != 400 || b.Month != "2026-08" {
		t.Errorf("Get() = %+v", b)
	}

	if _, err := svc.Get(ctx, "ferragosto"); !errors.Is(err, core.ErrInvalidMonthKey) {
		t.Errorf("Get() with bad key = %v, want ErrInvalidMonthKey", err)
	}
}

func TestBudgetListOrderedByMonthDesc(t *testing.T) {
	svc := NewBudgetService(memory.New(), auth.NewStaticState("uid-1"))
	ctx := context.Background()

	for _, month := range []string{"2026-06", "2026-08", "2026-07"} {
		if _, err := svc.Save(ctx, core.Budget{Month: month, Amount: 100}); err != nil {
			t.Fatalf("Save(%s) error = %v", month, err)
		}
	}

	budgets, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"2026-08", "2026-07", "2026-06"}
	for i, m := range want {
		if budgets[i].Month != m {
			t.Fatalf("List()[%d].Month = %s, want %s", i, budgets[i].Month, m)
		}
	}
}
