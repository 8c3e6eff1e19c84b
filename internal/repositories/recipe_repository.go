package repositories

import (
	"context"

	"foodgram/internal/models"
)

// Membership narrows recipes by presence in a user's favorites or cart.
// Include=false keeps only recipes NOT in the list.
type Membership struct {
	UserID  uint
	Include bool
}

// RecipeFilter narrows the recipe list. Zero values mean "no filter".
type RecipeFilter struct {
	AuthorID       uint
	TagSlugs       []string
	Favorited      *Membership
	InShoppingCart *Membership
}

// RecipeRepository defines the interface for recipe data access.
// Returned recipes have Author, Tags and RecipeIngredients.Ingredient loaded.
type RecipeRepository interface {
	List(ctx context.Context, filter RecipeFilter, page Page) ([]models.Recipe, int64, error)
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	// Create inserts the recipe, its tag links and ingredient rows atomically.
	Create(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error
	// Update saves scalar fields and, when non-nil, replaces tag links and
	// ingredient rows, all in one transaction.
	Update(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error
	Delete(ctx context.Context, id uint) error
	ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error)
	CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	ListInShoppingCart(ctx context.Context, userID uint) ([]models.Recipe, error)
}
