package worker

import (
	"context"
	"errors"
	"testing"

	"aurora/internal/amqp"
	"aurora/internal/core"
	"aurora/internal/store"
	"aurora/internal/store/memory"
)

func TestUpsertCopiesCanonicalIntoNamespace(t *testing.T) {
	s := memory.New()
	s.Seed(core.CollectionTransactions, "t1", map[string]any{
		"utente": "uid-1", "data": "2026-08-15", "categoria": "Spesa", "importo": -54.3,
	})
	w := NewMirrorWorker(s)
	ctx := context.Background()

	msg := amqp.NewMirrorMessage(amqp.OpUpsert, "uid-1", "t1")
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	doc, err := s.Get(ctx, core.OwnerTransactions("uid-1"), "t1")
	if err != nil {
		t.Fatalf("mirror copy missing: %v", err)
	}
	if _, ok := doc.Data["utente"]; ok {
		t.Error("mirror copy must not carry utente")
	}
	if doc.Data["categoria"] != "Spesa" {
		t.Errorf("mirror copy lost fields: %+v", doc.Data)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := memory.New()
	s.Seed(core.CollectionTransactions, "t1", map[string]any{
		"utente": "uid-1", "data": "2026-08-15", "importo": -10.0,
	})
	w := NewMirrorWorker(s)
	ctx := context.Background()

	msg := amqp.NewMirrorMessage(amqp.OpUpsert, "uid-1", "t1")
	for i := 0; i < 3; i++ {
		if err := w.HandleMessage(ctx, msg); err != nil {
			t.Fatalf("replay %d failed: %v", i, err)
		}
	}

	docs, err := s.GetAll(ctx, store.NewSpec(core.OwnerTransactions("uid-1")))
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("replays multiplied the mirror copy: %d docs", len(docs))
	}
}

func TestUpsertOfDeletedCanonicalRemovesMirror(t *testing.T) {
	// A stale upsert arriving after the canonical delete must converge
	// to absence, not resurrect the row.
	s := memory.New()
	s.Seed(core.OwnerTransactions("uid-1"), "t1", map[string]any{"importo": -5.0})
	w := NewMirrorWorker(s)
	ctx := context.Background()

	msg := amqp.NewMirrorMessage(amqp.OpUpsert, "uid-1", "t1")
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if _, err := s.Get(ctx, core.OwnerTransactions("uid-1"), "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stale mirror copy survived: %v", err)
	}
}

func TestDeleteRemovesMirror(t *testing.T) {
	s := memory.New()
	s.Seed(core.OwnerTransactions("uid-1"), "t1", map[string]any{"importo": -5.0})
	w := NewMirrorWorker(s)
	ctx := context.Background()

	msg := amqp.NewMirrorMessage(amqp.OpDelete, "uid-1", "t1")
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if _, err := s.Get(ctx, core.OwnerTransactions("uid-1"), "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("mirror copy survived delete: %v", err)
	}
}

func TestOwnerMismatchIsDropped(t *testing.T) {
	s := memory.New()
	s.Seed(core.CollectionTransactions, "t1", map[string]any{
		"utente": "uid-1", "data": "2026-08-15", "importo": -10.0,
	})
	w := NewMirrorWorker(s)
	ctx := context.Background()

	// Wrong owner in the message: dropping (nil error) avoids a requeue
	// loop, and nothing is written.
	msg := amqp.NewMirrorMessage(amqp.OpUpsert, "uid-2", "t1")
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if _, err := s.Get(ctx, core.OwnerTransactions("uid-2"), "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Error("mismatched message produced a mirror copy")
	}
}

func TestUnknownOpIsDropped(t *testing.T) {
	w := NewMirrorWorker(memory.New())

	msg := amqp.NewMirrorMessage("replace", "uid-1", "t1")
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Errorf("unknown op must be dropped without error, got %v", err)
	}
}
