// Package store defines the port for the external managed document
// store: filtered reads, live snapshot subscriptions, and mutations.
// Adapters live in the subpackages (memory, sqlite, firestore).
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no document exists at the ref.
	ErrNotFound = errors.New("document not found")

	// ErrQueryRejected wraps store-side query failures (denied access,
	// missing composite index). Callers surface it as a distinct error
	// state, never as an empty result.
	ErrQueryRejected = errors.New("query rejected by store")
)

// Document is one row of a collection: an opaque store-assigned ID plus
// schemaless fields.
type Document struct {
	ID   string
	Data map[string]any
}

// Unsubscribe releases a live subscription. It is idempotent: releasing
// an already-released subscription is a no-op.
type Unsubscribe func()

// SnapshotFunc receives the full current matching set on every change:
// a complete snapshot, never a delta.
type SnapshotFunc func(docs []Document)

// ErrorFunc receives a terminal subscription error. After it fires the
// subscription stops delivering snapshots.
type ErrorFunc func(err error)

// Gateway is the document store port. Collection arguments are
// slash-separated paths; nested paths address per-owner namespaces.
type Gateway interface {
	// GetAll runs a one-shot query and returns the matching page.
	GetAll(ctx context.Context, spec Spec) ([]Document, error)

	// Subscribe registers a live query. onSnapshot fires with the full
	// matching set immediately and again after every change; onError
	// fires at most once, terminally.
	Subscribe(spec Spec, onSnapshot SnapshotFunc, onError ErrorFunc) Unsubscribe

	// Get fetches a single document, ErrNotFound when absent.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Create inserts a document with a store-assigned ID.
	Create(ctx context.Context, collection string, data map[string]any) (string, error)

	// Set writes a document at a caller-chosen ID, replacing any
	// previous content (last-write-wins upsert).
	Set(ctx context.Context, collection, id string, data map[string]any) error

	// Update merges the given fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an
	// error.
	Delete(ctx context.Context, collection, id string) error

	// Close releases the underlying client and all subscriptions.
	Close() error
}
