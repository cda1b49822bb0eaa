package app

import (
	"context"
	"fmt"
	"time"

	"bookhub/internal/domain"
)

// CatalogService serves the read-only catalog with a cache in front. The
// serving path never mutates the catalog; only the seeder writes it.
type CatalogService struct {
	repo     domain.CatalogRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCatalogService(r domain.CatalogRepository, c domain.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *CatalogService) GetBook(ctx context.Context, id string) (domain.Book, error) {
	key := fmt.Sprintf("book:%s", id)
	var b domain.Book
	if ok, _ := s.cache.Get(ctx, key, &b); ok {
		return b, nil
	}
	b, err := s.repo.GetBook(ctx, id)
	if err != nil {
		return domain.Book{}, err
	}
	_ = s.cache.Set(ctx, key, deepCopyBook(b), int(s.cacheTTL.Seconds()))
	return b, nil
}

func (s *CatalogService) ListBooks(ctx context.Context) ([]domain.Book, error) {
	const key = "books:all"
	var out []domain.Book
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	bs, err := s.repo.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	// copy to avoid aliasing the repo's backing arrays through the cache
	cp := make([]domain.Book, len(bs))
	for i, b := range bs {
		cp[i] = deepCopyBook(b)
	}
	_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	return cp, nil
}

// HasBook satisfies the submission pipeline's catalog check.
func (s *CatalogService) HasBook(ctx context.Context, id string) bool {
	_, err := s.GetBook(ctx, id)
	return err == nil
}

func deepCopyBook(in domain.Book) domain.Book {
	out := in
	if n := len(in.Links); n > 0 {
		out.Links = make([]domain.BookLink, n)
		copy(out.Links, in.Links)
	}
	return out
}
