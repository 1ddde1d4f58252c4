package services

import (
	"context"
	"fmt"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/store"
)

// AccountService manages the principal's money containers (conti).
type AccountService struct {
	gw   store.Gateway
	auth *auth.State
}

func NewAccountService(gw store.Gateway, authState *auth.State) *AccountService {
	return &AccountService{gw: gw, auth: authState}
}

func (s *AccountService) owner(ctx context.Context) (string, error) {
	uid, ok := auth.Principal(ctx, s.auth)
	if !ok {
		return "", core.ErrNoPrincipal
	}
	return uid, nil
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (string, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return "", err
	}

	a.Owner = owner
	if a.Currency == "" {
		a.Currency = "EUR"
	}
	if err := a.Validate(); err != nil {
		return "", fmt.Errorf("validate account: %w", err)
	}

	id, err := s.gw.Create(ctx, core.CollectionAccounts, a.Doc())
	if err != nil {
		return "", fmt.Errorf("save account: %w", err)
	}
	return id, nil
}

// List returns the principal's accounts ordered by name.
func (s *AccountService) List(ctx context.Context) ([]core.Account, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	spec := store.NewSpec(core.CollectionAccounts).
		Where("utente", store.OpEqual, owner).
		OrderAsc("nome")
	docs, err := s.gw.GetAll(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	accounts := make([]core.Account, 0, len(docs))
	for _, d := range docs {
		accounts = append(accounts, core.AccountFromDoc(d.ID, d.Data))
	}
	return accounts, nil
}

func (s *AccountService) Delete(ctx context.Context, id string) error {
	if _, err := s.owner(ctx); err != nil {
		return err
	}
	if err := s.gw.Delete(ctx, core.CollectionAccounts, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}
