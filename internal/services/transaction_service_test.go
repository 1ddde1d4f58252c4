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

func TestTransactionCreateWritesCanonicalOnly(t *testing.T) {
	s := memory.New()
	svc := NewTransactionService(s, auth.NewStaticState("uid-1"), nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, core.Transaction{
		Date:        "2026-08-15T10:00:00Z",
		Description: "Supermercato",
		Amount:      -54.3,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	doc, err := s.Get(ctx, core.CollectionTransactions, id)
	if err != nil {
		t.Fatalf("canonical doc missing: %v", err)
	}
	if doc.Data["utente"] != "uid-1" {
		t.Errorf("owner not stamped: %v", doc.Data["utente"])
	}
	if doc.Data["data"] != "2026-08-15" {
		t.Errorf("date not normalized: %v", doc.Data["data"])
	}
	if doc.Data["categoria"] != core.DefaultCategory {
		t.Errorf("category not defaulted: %v", doc.Data["categoria"])
	}

	// The namespace is the worker's job; the service never touches it.
	docs, err := s.GetAll(ctx, store.NewSpec(core.OwnerTransactions("uid-1")))
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("service wrote the mirror namespace directly: %d docs", len(docs))
	}
}

func TestTransactionCreateFailsClosedWithoutPrincipal(t *testing.T) {
	svc := NewTransactionService(memory.New(), auth.NewState(), nil)

	_, err := svc.Create(context.Background(), core.Transaction{Amount: -1, Category: "Casa"})
	if !errors.Is(err, core.ErrNoPrincipal) {
		t.Errorf("Create() error = %v, want ErrNoPrincipal", err)
	}
}

func TestTransactionCreateRejectsZeroAmount(t *testing.T) {
	svc := NewTransactionService(memory.New(), auth.NewStaticState("uid-1"), nil)

	_, err := svc.Create(context.Background(), core.Transaction{Amount: 0, Category: "Casa"})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("Create() error = %v, want ErrInvalidAmount", err)
	}
}

func TestTransactionUpdateNormalizesAndProtectsOwner(t *testing.T) {
	s := memory.New()
	s.Seed(core.CollectionTransactions, "t1", map[string]any{
		"utente": "uid-1", "data": "2026-08-01", "importo": -10.0,
	})
	svc := NewTransactionService(s, auth.NewStaticState("uid-1"), nil)
	ctx := context.Background()

	err := svc.Update(ctx, "t1", map[string]any{
		"data":    "2026-08-20T08:00:00Z",
		"importo": "25.50",
		"utente":  "uid-2", // must be dropped
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	doc, err := s.Get(ctx, core.CollectionTransactions, "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Data["data"] != "2026-08-20" {
		t.Errorf("date not normalized: %v", doc.Data["data"])
	}
	if doc.Data["importo"] != 25.5 {
		t.Errorf("amount not coerced: %v", doc.Data["importo"])
	}
	if doc.Data["utente"] != "uid-1" {
		t.Errorf("ownership changed: %v", doc.Data["utente"])
	}
}

func TestTransactionDelete(t *testing.T) {
	s := memory.New()
	s.Seed(core.CollectionTransactions, "t1", map[string]any{"utente": "uid-1", "importo": -10.0})
	svc := NewTransactionService(s, auth.NewStaticState("uid-1"), nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, core.CollectionTransactions, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("doc survived delete: %v", err)
	}
}

func TestTransactionListAllScopedToOwner(t *testing.T) {
	s := memory.New()
	s.Seed(core.CollectionTransactions, "mine", map[string]any{"utente": "uid-1", "data": "2026-08-01", "importo": -1.0})
	s.Seed(core.CollectionTransactions, "other", map[string]any{"utente": "uid-2", "data": "2026-08-02", "importo": -2.0})
	svc := NewTransactionService(s, auth.NewStaticState("uid-1"), nil)

	rows, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "mine" {
		t.Errorf("ListAll() leaked foreign rows: %+v", rows)
	}
}

func TestTransactionRequestPrincipalOverridesProcessState(t *testing.T) {
	// Two identities in flight at once: each call resolves the owner
	// from its own context, never from whatever the process state holds.
	s := memory.New()
	svc := NewTransactionService(s, auth.NewStaticState("uid-1"), nil)

	ctxB := auth.WithPrincipal(context.Background(), "uid-2")
	id, err := svc.Create(ctxB, core.Transaction{Date: "2026-08-10", Amount: -5})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	doc, err := s.Get(context.Background(), core.CollectionTransactions, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Data["utente"] != "uid-2" {
		t.Errorf("owner = %v, want the context principal uid-2", doc.Data["utente"])
	}

	rows, err := svc.ListAll(ctxB)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Owner != "uid-2" {
		t.Errorf("ListAll() under context principal = %+v", rows)
	}

	rows, err = svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("process principal uid-1 saw uid-2 rows: %+v", rows)
	}
}
