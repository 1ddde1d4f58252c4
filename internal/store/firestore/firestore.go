// Package firestore implements the store gateway against Google Cloud
// Firestore, the managed document database the hosted deployment uses.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"aurora/internal/store"
)

type Store struct {
	client *firestore.Client

	mu     sync.Mutex
	cancel []context.CancelFunc
}

// New connects to the given Firestore project. credentialsFile may be
// empty, in which case application default credentials apply.
func New(ctx context.Context, projectID, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) buildQuery(spec store.Spec) firestore.Query {
	q := s.client.Collection(spec.Collection).Query
	for _, f := range spec.Filters {
		q = q.Where(f.Field, f.Op, f.Value)
	}
	if spec.OrderBy != "" {
		dir := firestore.Asc
		if spec.Descending {
			dir = firestore.Desc
		}
		// Document-ID tie-break keeps cursors unambiguous on equal dates.
		q = q.OrderBy(spec.OrderBy, dir).OrderBy(firestore.DocumentID, dir)
		if c := spec.StartAfter; c != nil {
			q = q.StartAfter(c.Value, c.ID)
		}
		if c := spec.EndBefore; c != nil {
			q = q.EndBefore(c.Value, c.ID)
		}
	}
	if spec.Limit > 0 {
		q = q.Limit(spec.Limit)
	}
	if spec.LimitToLast > 0 {
		q = q.LimitToLast(spec.LimitToLast)
	}
	return q
}

func (s *Store) GetAll(ctx context.Context, spec store.Spec) ([]store.Document, error) {
	snaps, err := s.buildQuery(spec).Documents(ctx).GetAll()
	if err != nil {
		return nil, classify(err)
	}
	docs := make([]store.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, store.Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (s *Store) Subscribe(spec store.Spec, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) store.Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancel = append(s.cancel, cancel)
	s.mu.Unlock()

	iter := s.buildQuery(spec).Snapshots(ctx)
	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil {
					return // released
				}
				slog.Error("Firestore snapshot stream failed",
					"collection", spec.Collection, "error", err)
				if onError != nil {
					onError(classify(err))
				}
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				if onError != nil {
					onError(classify(err))
				}
				return
			}
			docs := make([]store.Document, 0, len(snaps))
			for _, d := range snaps {
				docs = append(docs, store.Document{ID: d.Ref.ID, Data: d.Data()})
			}
			onSnapshot(docs)
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }
}

func (s *Store) Get(ctx context.Context, collection, id string) (store.Document, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return store.Document{}, store.ErrNotFound
	}
	if err != nil {
		return store.Document{}, classify(err)
	}
	return store.Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (s *Store) Create(ctx context.Context, collection string, data map[string]any) (string, error) {
	ref, _, err := s.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", classify(err)
	}
	return ref.ID, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data map[string]any) error {
	_, err := s.client.Collection(collection).Doc(id).Set(ctx, data)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	updates := make([]firestore.Update, 0, len(fields))
	for k, v := range fields {
		updates = append(updates, firestore.Update{Path: k, Value: v})
	}
	_, err := s.client.Collection(collection).Doc(id).Update(ctx, updates)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.Collection(collection).Doc(id).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return classify(err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	for _, cancel := range s.cancel {
		cancel()
	}
	s.cancel = nil
	s.mu.Unlock()
	return s.client.Close()
}

// classify maps store-side rejections (denied access, missing composite
// index) onto ErrQueryRejected so callers can tell them from empty
// results or transport hiccups.
func classify(err error) error {
	switch status.Code(err) {
	case codes.PermissionDenied, codes.FailedPrecondition, codes.Unauthenticated:
		return fmt.Errorf("%w: %v", store.ErrQueryRejected, err)
	}
	return err
}
