package services

import (
	"context"
	"log/slog"
	"time"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/repositories"
)

const tagsCacheKey = "tags:all"

// TagService serves the tag catalogue. Tags are only added by Import.
type TagService struct {
	repo  repositories.TagRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewTagService creates a new TagService. c may be nil to disable caching.
func NewTagService(repo repositories.TagRepository, c cache.Cache, ttl time.Duration) *TagService {
	return &TagService{repo: repo, cache: c, ttl: ttl}
}

// List returns every tag.
func (s *TagService) List(ctx context.Context) ([]models.Tag, error) {
	return cached(ctx, s.cache, tagsCacheKey, s.ttl, func() ([]models.Tag, error) {
		return s.repo.GetAll(ctx)
	})
}

// Get returns a single tag.
func (s *TagService) Get(ctx context.Context, id uint) (*models.Tag, error) {
	return s.repo.GetByID(ctx, id)
}

// Import stores tags whose slug is new and drops the cached list when anything was inserted.
func (s *TagService) Import(ctx context.Context, tags []models.Tag) (int64, error) {
	inserted, err := s.repo.CreateBatch(ctx, tags)
	if err != nil {
		return 0, err
	}
	if s.cache != nil && inserted > 0 {
		if err := s.cache.Delete(ctx, tagsCacheKey); err != nil {
			slog.Warn("failed to invalidate tag cache", "error", err)
		}
	}
	return inserted, nil
}
