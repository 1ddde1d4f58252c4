package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aurora/internal/amqp"
	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/store"
)

// TransactionService owns the canonical write path for transactions.
// Every mutation goes to the global collection only; the per-owner
// namespace is reconciled asynchronously by the mirror worker, so a
// crash between the two writes can no longer leave the copies diverged.
type TransactionService struct {
	gw         store.Gateway
	auth       *auth.State
	amqpClient *amqp.Client
}

func NewTransactionService(gw store.Gateway, authState *auth.State, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		gw:         gw,
		auth:       authState,
		amqpClient: amqpClient,
	}
}

func (s *TransactionService) owner(ctx context.Context) (string, error) {
	uid, ok := auth.Principal(ctx, s.auth)
	if !ok {
		return "", core.ErrNoPrincipal
	}
	return uid, nil
}

// Create stores a new transaction and requests its mirror copy.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (string, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return "", err
	}

	t.Owner = owner
	t.CreatedAt = time.Now()
	t = t.Normalize()
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}

	id, err := s.gw.Create(ctx, core.CollectionTransactions, t.Doc())
	if err != nil {
		return "", fmt.Errorf("save transaction: %w", err)
	}

	s.publishMirror(ctx, amqp.OpUpsert, owner, id)
	return id, nil
}

// Update merges the given fields into an owned transaction and requests
// re-mirroring. Date fields are normalized before the write.
func (s *TransactionService) Update(ctx context.Context, id string, fields map[string]any) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}

	if raw, ok := fields["data"].(string); ok {
		fields["data"] = core.NormalizeISODate(raw)
	}
	if raw, ok := fields["importo"]; ok {
		fields["importo"] = core.CoerceAmount(raw)
	}
	// Ownership is immutable.
	delete(fields, "utente")

	if err := s.gw.Update(ctx, core.CollectionTransactions, id, fields); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	s.publishMirror(ctx, amqp.OpUpsert, owner, id)
	return nil
}

// Delete removes an owned transaction and requests removal of its mirror
// copy.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}

	if err := s.gw.Delete(ctx, core.CollectionTransactions, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publishMirror(ctx, amqp.OpDelete, owner, id)
	return nil
}

// ListAll fetches every transaction of the principal in descending date
// order. Used by the CSV export, which is not paginated.
func (s *TransactionService) ListAll(ctx context.Context) ([]core.Transaction, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	spec := store.NewSpec(core.CollectionTransactions).
		Where("utente", store.OpEqual, owner).
		OrderDesc("data")
	docs, err := s.gw.GetAll(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	rows := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, core.TransactionFromDoc(d.ID, d.Data))
	}
	return rows, nil
}

func (s *TransactionService) publishMirror(ctx context.Context, op, owner, id string) {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping mirror message")
		return
	}
	// Non-blocking for the caller: the canonical write already succeeded,
	// and the worker converges the namespace on the next message anyway.
	if err := s.amqpClient.PublishMirror(ctx, op, owner, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish mirror message",
			"op", op, "id", id, "error", err)
	}
}
