package services

import (
	"context"
	"fmt"
	"time"

	"aurora/internal/auth"
	"aurora/internal/core"
	"aurora/internal/store"
)

// GoalService manages savings goals (obiettivi).
type GoalService struct {
	gw   store.Gateway
	auth *auth.State
}

func NewGoalService(gw store.Gateway, authState *auth.State) *GoalService {
	return &GoalService{gw: gw, auth: authState}
}

func (s *GoalService) owner(ctx context.Context) (string, error) {
	uid, ok := auth.Principal(ctx, s.auth)
	if !ok {
		return "", core.ErrNoPrincipal
	}
	return uid, nil
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (string, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return "", err
	}

	g.Owner = owner
	g.Deadline = core.NormalizeISODate(g.Deadline)
	g.Status = core.GoalActive
	g.CreatedAt = time.Now()
	if err := g.Validate(); err != nil {
		return "", fmt.Errorf("validate goal: %w", err)
	}

	id, err := s.gw.Create(ctx, core.CollectionGoals, g.Doc())
	if err != nil {
		return "", fmt.Errorf("save goal: %w", err)
	}
	return id, nil
}

// List returns the principal's goals, nearest deadline first.
func (s *GoalService) List(ctx context.Context) ([]core.Goal, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	spec := store.NewSpec(core.CollectionGoals).
		Where("utente", store.OpEqual, owner).
		OrderAsc("deadline")
	docs, err := s.gw.GetAll(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	goals := make([]core.Goal, 0, len(docs))
	for _, d := range docs {
		goals = append(goals, core.GoalFromDoc(d.ID, d.Data))
	}
	return goals, nil
}

func (s *GoalService) Delete(ctx context.Context, id string) error {
	if _, err := s.owner(ctx); err != nil {
		return err
	}
	if err := s.gw.Delete(ctx, core.CollectionGoals, id); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return nil
}
