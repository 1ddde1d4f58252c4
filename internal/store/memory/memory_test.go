package memory

import (
	"context"
	"testing"

	"aurora/internal/store"
)

func seedTransactions(s *Store) {
	s.Seed("transazioni", "t1", map[string]any{"utente": "uid-1", "data": "2026-08-03", "importo": -30.0})
	s.Seed("transazioni", "t2", map[string]any{"utente": "uid-1", "data": "2026-08-01", "importo": 100.0})
	s.Seed("transazioni", "t3", map[string]any{"utente": "uid-2", "data": "2026-08-02", "importo": -5.0})
}

func TestGetAllFiltersAndOrders(t *testing.T) {
	s := New()
	seedTransactions(s)

	spec := store.NewSpec("transazioni").
		Where("utente", store.OpEqual, "uid-1").
		OrderDesc("data")

	docs, err := s.GetAll(context.Background(), spec)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("GetAll() returned %d docs, want 2", len(docs))
	}
	if docs[0].ID != "t1" || docs[1].ID != "t2" {
		t.Errorf("wrong order: %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	s := New()
	seedTransactions(s)

	spec := store.NewSpec("transazioni").
		Where("utente", store.OpEqual, "uid-1").
		OrderDesc("data")

	var snapshots [][]store.Document
	unsub := s.Subscribe(spec, func(docs []store.Document) {
		snapshots = append(snapshots, docs)
	}, nil)
	defer unsub()

	if len(snapshots) != 1 || len(snapshots[0]) != 2 {
		t.Fatalf("initial snapshot missing or wrong: %d snapshots", len(snapshots))
	}

	if _, err := s.Create(context.Background(), "transazioni", map[string]any{
		"utente": "uid-1", "data": "2026-08-10", "importo": -1.0,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if len(snapshots) != 2 {
		t.Fatalf("expected a second snapshot after create, have %d", len(snapshots))
	}
	if len(snapshots[1]) != 3 {
		t.Errorf("second snapshot has %d docs, want 3", len(snapshots[1]))
	}

	// Mutations on other collections stay silent.
	if err := s.Set(context.Background(), "conti", "c1", map[string]any{"nome": "Banca"}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if len(snapshots) != 2 {
		t.Errorf("unrelated collection triggered a snapshot")
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	s := New()

	spec := store.NewSpec("transazioni")
	calls := 0
	unsub := s.Subscribe(spec, func([]store.Document) { calls++ }, nil)

	unsub()
	unsub() // second release must be a no-op

	if _, err := s.Create(context.Background(), "transazioni", map[string]any{"importo": 1.0}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("released subscription still notified, calls = %d", calls)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New()
	if _, err := s.Get(context.Background(), "transazioni", "missing"); err != store.ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateMergesFields(t *testing.T) {
	s := New()
	s.Seed("transazioni", "t1", map[string]any{"descrizione": "vecchia", "importo": -10.0})

	if err := s.Update(context.Background(), "transazioni", "t1", map[string]any{"descrizione": "nuova"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	doc, err := s.Get(context.Background(), "transazioni", "t1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if doc.Data["descrizione"] != "nuova" || doc.Data["importo"] != -10.0 {
		t.Errorf("merge lost fields: %+v", doc.Data)
	}
}

func TestDeleteAbsentIsNoError(t *testing.T) {
	s := New()
	if err := s.Delete(context.Background(), "transazioni", "ghost"); err != nil {
		t.Errorf("Delete() of absent doc returned %v", err)
	}
}

func TestNamespacePathsAreDistinctCollections(t *testing.T) {
	s := New()
	s.Seed("transazioni", "t1", map[string]any{"importo": -1.0})
	s.Seed("Aurora/uid-1/transazioni", "t1", map[string]any{"importo": -1.0})

	docs, err := s.GetAll(context.Background(), store.NewSpec("Aurora/uid-1/transazioni"))
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("namespace query returned %d docs, want 1", len(docs))
	}
}
