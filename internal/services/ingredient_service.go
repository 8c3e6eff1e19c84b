package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"foodgram/internal/cache"
	"foodgram/internal/models"
	"foodgram/internal/repositories"
)

const ingredientsGenerationKey = "ingredients:generation"

// IngredientService serves ingredient search and bulk import.
type IngredientService struct {
	repo  repositories.IngredientRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewIngredientService creates a new IngredientService. c may be nil to disable caching.
func NewIngredientService(repo repositories.IngredientRepository, c cache.Cache, ttl time.Duration) *IngredientService {
	return &IngredientService{repo: repo, cache: c, ttl: ttl}
}

// Search returns ingredients whose name contains name, prefix matches first.
func (s *IngredientService) Search(ctx context.Context, name string) ([]models.Ingredient, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	key := fmt.Sprintf("ingredients:%s:search:%s", s.generation(ctx), q)
	return cached(ctx, s.cache, key, s.ttl, func() ([]models.Ingredient, error) {
		return s.repo.Search(ctx, q)
	})
}

// Get returns a single ingredient.
func (s *IngredientService) Get(ctx context.Context, id uint) (*models.Ingredient, error) {
	return s.repo.GetByID(ctx, id)
}

// Import inserts ingredients, skipping pairs that already exist, and drops
// cached search results.
func (s *IngredientService) Import(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	inserted, err := s.repo.CreateBatch(ctx, ingredients)
	if err != nil {
		return 0, err
	}
	if s.cache != nil && inserted > 0 {
		gen := strconv.FormatInt(time.Now().UnixNano(), 36)
		if err := s.cache.Set(ctx, ingredientsGenerationKey, []byte(gen), 0); err != nil {
			slog.Warn("failed to invalidate ingredient cache", "error", err)
		}
	}
	return inserted, nil
}

// generation names the current set of cached search results.
func (s *IngredientService) generation(ctx context.Context) string {
	if s.cache == nil {
		return "0"
	}
	raw, ok, err := s.cache.Get(ctx, ingredientsGenerationKey)
	if err != nil || !ok {
		return "0"
	}
	return string(raw)
}
