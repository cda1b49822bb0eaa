package app

import (
	"context"
	"fmt"

	"bookhub/internal/domain"
)

// SeedService loads catalog entries into the repository and drops any stale
// cached reads. Parent row first, then the link list, so links never dangle.
type SeedService struct {
	repo  domain.CatalogRepository
	cache domain.Cache
}

func NewSeedService(r domain.CatalogRepository, cache domain.Cache) *SeedService {
	return &SeedService{repo: r, cache: cache}
}

func (s *SeedService) SeedBook(ctx context.Context, b domain.Book) error {
	if err := s.repo.UpsertBook(ctx, b); err != nil {
		return fmt.Errorf("upsert book %s: %w", b.ID, err)
	}
	if err := s.repo.UpsertLinks(ctx, b.ID, b.Links); err != nil {
		return fmt.Errorf("upsert links for %s: %w", b.ID, err)
	}
	if s.cache != nil {
		_ = s.cache.Del(ctx, fmt.Sprintf("book:%s", b.ID))
		_ = s.cache.Del(ctx, "books:all")
	}
	return nil
}
