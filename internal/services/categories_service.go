package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"aurora/internal/auth"
	"aurora/internal/cache"
	"aurora/internal/core"
	"aurora/internal/store"
)

// CategoriesService serves the per-owner category taxonomy. A missing
// taxonomy is seeded lazily from the built-in default on first read, so
// every owner ends up with a private, editable copy of one canonical
// table. Reads go through a small TTL cache.
type CategoriesService struct {
	gw    store.Gateway
	auth  *auth.State
	cache *cache.LRU[[]core.Category]
}

func NewCategoriesService(gw store.Gateway, authState *auth.State) *CategoriesService {
	return &CategoriesService{
		gw:    gw,
		auth:  authState,
		cache: cache.NewLRU[[]core.Category](128, 5*time.Minute),
	}
}

func (s *CategoriesService) owner(ctx context.Context) (string, error) {
	uid, ok := auth.Principal(ctx, s.auth)
	if !ok {
		return "", core.ErrNoPrincipal
	}
	return uid, nil
}

// Get returns the principal's taxonomy, seeding the default one when the
// owner has none yet.
func (s *CategoriesService) Get(ctx context.Context) ([]core.Category, error) {
	owner, err := s.owner(ctx)
	if err != nil {
		return nil, err
	}

	if cats, ok := s.cache.Get(owner); ok {
		return cats, nil
	}

	doc, err := s.gw.Get(ctx, core.CollectionCategories, owner)
	if errors.Is(err, store.ErrNotFound) {
		return s.seed(ctx, owner)
	}
	if err != nil {
		return nil, fmt.Errorf("get categories: %w", err)
	}

	cats := core.CategoriesFromDoc(doc.Data)
	s.cache.Set(owner, cats)
	return cats, nil
}

// Save replaces the principal's taxonomy.
func (s *CategoriesService) Save(ctx context.Context, cats []core.Category) error {
	owner, err := s.owner(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return core.ErrEmptyCategory
	}
	for _, c := range cats {
		if c.Name == "" {
			return core.ErrEmptyCategory
		}
	}

	if err := s.gw.Set(ctx, core.CollectionCategories, owner, core.CategoriesDoc(cats)); err != nil {
		return fmt.Errorf("save categories: %w", err)
	}
	s.cache.Set(owner, cats)
	return nil
}

func (s *CategoriesService) seed(ctx context.Context, owner string) ([]core.Category, error) {
	cats := core.DefaultTaxonomy()
	if err := s.gw.Set(ctx, core.CollectionCategories, owner, core.CategoriesDoc(cats)); err != nil {
		// Seeding is best effort: the default taxonomy is still usable
		// this request, and the next read retries the write.
		slog.WarnContext(ctx, "Failed to seed default categories",
			"owner", owner, "error", err)
		return cats, nil
	}
	s.cache.Set(owner, cats)
	return cats, nil
}
