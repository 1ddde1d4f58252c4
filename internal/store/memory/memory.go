// Package memory implements the store gateway with an in-process map,
// including live snapshot fan-out. It is the default backend and the
// test double for everything above the gateway.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"aurora/internal/store"
)

type subscription struct {
	spec       store.Spec
	onSnapshot store.SnapshotFunc
	onError    store.ErrorFunc
}

type Store struct {
	mu   sync.Mutex
	data map[string]map[string]map[string]any // collection -> id -> fields

	subMu  sync.Mutex
	subs   map[int64]*subscription
	nextID int64
	closed bool
}

func New() *Store {
	return &Store{
		data: make(map[string]map[string]map[string]any),
		subs: make(map[int64]*subscription),
	}
}

// Seed inserts a document directly, bypassing notification. Test helper.
func (s *Store) Seed(collection, id string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection)[id] = cloneData(data)
}

func (s *Store) collection(name string) map[string]map[string]any {
	col, ok := s.data[name]
	if !ok {
		col = make(map[string]map[string]any)
		s.data[name] = col
	}
	return col
}

func (s *Store) GetAll(_ context.Context, spec store.Spec) ([]store.Document, error) {
	s.mu.Lock()
	docs := s.snapshotLocked(spec)
	s.mu.Unlock()
	return docs, nil
}

// snapshotLocked evaluates a spec against the current data. Caller holds mu.
func (s *Store) snapshotLocked(spec store.Spec) []store.Document {
	var docs []store.Document
	for id, data := range s.collection(spec.Collection) {
		doc := store.Document{ID: id, Data: cloneData(data)}
		if spec.Matches(doc) {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return spec.Less(docs[i], docs[j]) })
	return spec.Trim(docs)
}

func (s *Store) Subscribe(spec store.Spec, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Unsubscribe {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = &subscription{spec: spec, onSnapshot: onSnapshot, onError: onError}
	s.subMu.Unlock()

	// Initial snapshot, delivered outside the locks.
	s.mu.Lock()
	docs := s.snapshotLocked(spec)
	s.mu.Unlock()
	onSnapshot(docs)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// notify re-evaluates every live subscription on the mutated collection
// and delivers fresh full snapshots.
func (s *Store) notify(collection string) {
	s.subMu.Lock()
	targets := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.spec.Collection == collection {
			targets = append(targets, sub)
		}
	}
	s.subMu.Unlock()

	for _, sub := range targets {
		s.mu.Lock()
		docs := s.snapshotLocked(sub.spec)
		s.mu.Unlock()
		sub.onSnapshot(docs)
	}
}

func (s *Store) Get(_ context.Context, collection, id string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.collection(collection)[id]
	if !ok {
		return store.Document{}, store.ErrNotFound
	}
	return store.Document{ID: id, Data: cloneData(data)}, nil
}

func (s *Store) Create(_ context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	s.collection(collection)[id] = cloneData(data)
	s.mu.Unlock()
	s.notify(collection)
	return id, nil
}

func (s *Store) Set(_ context.Context, collection, id string, data map[string]any) error {
	s.mu.Lock()
	s.collection(collection)[id] = cloneData(data)
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

func (s *Store) Update(_ context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	doc, ok := s.collection(collection)[id]
	if !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.collection(collection), id)
	s.mu.Unlock()
	s.notify(collection)
	return nil
}

func (s *Store) Close() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = make(map[int64]*subscription)
	s.closed = true
	return nil
}

func cloneData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
