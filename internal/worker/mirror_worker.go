// Package worker reconciles the legacy per-owner transaction namespace
// with the canonical global collection. It is the only writer of the
// namespace: request handlers write the global collection and enqueue a
// reconcile message, the worker converges the mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"aurora/internal/amqp"
	"aurora/internal/core"
	"aurora/internal/store"
)

// MirrorWorker applies reconcile messages to the per-owner namespace.
type MirrorWorker struct {
	gw store.Gateway
}

func NewMirrorWorker(gw store.Gateway) *MirrorWorker {
	return &MirrorWorker{gw: gw}
}

// HandleMessage processes one reconcile request. It always reads the
// canonical document first and converges the mirror to it, so replaying
// old or duplicated messages is harmless.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.MirrorMessage) error {
	slog.InfoContext(ctx, "Processing mirror message",
		"op", msg.Op,
		"owner", msg.Owner,
		"id", msg.ID)

	switch msg.Op {
	case amqp.OpDelete:
		return w.removeMirror(ctx, msg.Owner, msg.ID)
	case amqp.OpUpsert:
		return w.upsertMirror(ctx, msg.Owner, msg.ID)
	default:
		// Unknown ops are dropped, not requeued.
		slog.WarnContext(ctx, "Unknown mirror op, dropping message",
			"op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *MirrorWorker) upsertMirror(ctx context.Context, owner, id string) error {
	doc, err := w.gw.Get(ctx, core.CollectionTransactions, id)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted since the message was enqueued; converge by removing
		// the mirror copy too.
		return w.removeMirror(ctx, owner, id)
	}
	if err != nil {
		return fmt.Errorf("get canonical transaction: %w", err)
	}

	t := core.TransactionFromDoc(doc.ID, doc.Data)
	if t.Owner != owner {
		slog.WarnContext(ctx, "Mirror message owner mismatch, dropping",
			"owner", owner, "doc_owner", t.Owner, "id", id)
		return nil
	}

	if err := w.gw.Set(ctx, core.OwnerTransactions(owner), id, t.MirrorDoc()); err != nil {
		return fmt.Errorf("write mirror copy: %w", err)
	}

	slog.InfoContext(ctx, "Mirrored transaction", "owner", owner, "id", id)
	return nil
}

func (w *MirrorWorker) removeMirror(ctx context.Context, owner, id string) error {
	if err := w.gw.Delete(ctx, core.OwnerTransactions(owner), id); err != nil {
		return fmt.Errorf("delete mirror copy: %w", err)
	}
	slog.InfoContext(ctx, "Removed mirrored transaction", "owner", owner, "id", id)
	return nil
}
