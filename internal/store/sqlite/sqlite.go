// Package sqlite implements the store gateway on a local SQLite file.
// Documents are stored as JSON keyed by (collection, id); predicates and
// ordering run in SQL through json_extract, cursor trimming runs in Go so
// pagination semantics stay identical across adapters.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"aurora/internal/store"
)

type subscription struct {
	spec       store.Spec
	onSnapshot store.SnapshotFunc
	onError    store.ErrorFunc
}

type Store struct {
	db *sql.DB

	subMu  sync.Mutex
	subs   map[int64]*subscription
	nextID int64
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:   db,
		subs: make(map[int64]*subscription),
	}, nil
}

func (s *Store) GetAll(ctx context.Context, spec store.Spec) ([]store.Document, error) {
	query := "SELECT id, data FROM documents WHERE collection = ?"
	args := []any{spec.Collection}
	for _, f := range spec.Filters {
		op, ok := sqlOp(f.Op)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported operator %q", store.ErrQueryRejected, f.Op)
		}
		query += fmt.Sprintf(" AND json_extract(data, '$.' || ?) %s ?", op)
		args = append(args, f.Field, f.Value)
	}
	if spec.OrderBy != "" {
		dir := "ASC"
		if spec.Descending {
			dir = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY json_extract(data, '$.' || ?) %s, id %s", dir, dir)
		args = append(args, spec.OrderBy)
	} else {
		query += " ORDER BY id ASC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrQueryRejected, err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := decodeDoc(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrQueryRejected, err)
	}
	return spec.Trim(docs), nil
}

func (s *Store) Subscribe(spec store.Spec, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Unsubscribe {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = &subscription{spec: spec, onSnapshot: onSnapshot, onError: onError}
	s.subMu.Unlock()

	s.deliver(context.Background(), s.subs[id])

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) deliver(ctx context.Context, sub *subscription) {
	docs, err := s.GetAll(ctx, sub.spec)
	if err != nil {
		if sub.onError != nil {
			sub.onError(err)
		}
		return
	}
	sub.onSnapshot(docs)
}

// notify refreshes every live subscription on the mutated collection.
// Mutations on this store are local, so a synchronous re-query after each
// write is enough to keep snapshots current.
func (s *Store) notify(ctx context.Context, collection string) {
	s.subMu.Lock()
	targets := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		if sub.spec.Collection == collection {
			targets = append(targets, sub)
		}
	}
	s.subMu.Unlock()

	for _, sub := range targets {
		s.deliver(ctx, sub)
	}
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, fmt.Errorf("get document: %w", err)
	}
	return decodeDoc(id, raw)
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Set(ctx, collection, id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	raw, err := encodeDoc(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, raw)
	if err != nil {
		return fmt.Errorf("set document: %w", err)
	}
	s.notify(ctx, collection)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	doc, err := s.Get(ctx, collection, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		doc.Data[k] = v
	}
	raw, err := encodeDoc(doc.Data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		raw, collection, id)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	s.notify(ctx, collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.notify(ctx, collection)
	return nil
}

func (s *Store) Close() error {
	s.subMu.Lock()
	s.subs = make(map[int64]*subscription)
	s.subMu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func sqlOp(op string) (string, bool) {
	switch op {
	case store.OpEqual:
		return "=", true
	case store.OpGTE:
		return ">=", true
	case store.OpLTE:
		return "<=", true
	}
	return "", false
}

func encodeDoc(data map[string]any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(raw), nil
}

func decodeDoc(id, raw string) (store.Document, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		slog.Error("Corrupt document payload", "id", id, "error", err)
		return store.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return store.Document{ID: id, Data: data}, nil
}
