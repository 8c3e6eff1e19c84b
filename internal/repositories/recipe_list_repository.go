package repositories

import (
	"context"

	"gorm.io/gorm"

	"foodgram/internal/models"
)

// RecipeListRepository manages a per-user set of recipes, such as
// favorites or the shopping cart.
type RecipeListRepository interface {
	// Add stores the pair. An existing pair returns ErrDuplicate.
	Add(ctx context.Context, userID, recipeID uint) error
	// Remove deletes the pair and reports whether it existed.
	Remove(ctx context.Context, userID, recipeID uint) (bool, error)
	// RecipeIDs returns which of candidates are in the user's list.
	RecipeIDs(ctx context.Context, userID uint, candidates []uint) (map[uint]bool, error)
}

// GORMRecipeListRepository implements RecipeListRepository over one pair table.
type GORMRecipeListRepository struct {
	db    *gorm.DB
	what  string
	model func(userID, recipeID uint) interface{}
}

// NewGORMFavoriteRepository returns the favorites list.
func NewGORMFavoriteRepository(db *gorm.DB) *GORMRecipeListRepository {
	return &GORMRecipeListRepository{
		db:   db,
		what: "favorite",
		model: func(userID, recipeID uint) interface{} {
			return &models.Favorite{UserID: userID, RecipeID: recipeID}
		},
	}
}

// NewGORMShoppingCartRepository returns the shopping cart list.
func NewGORMShoppingCartRepository(db *gorm.DB) *GORMRecipeListRepository {
	return &GORMRecipeListRepository{
		db:   db,
		what: "shopping cart entry",
		model: func(userID, recipeID uint) interface{} {
			return &models.ShoppingCart{UserID: userID, RecipeID: recipeID}
		},
	}
}

func (r *GORMRecipeListRepository) Add(ctx context.Context, userID, recipeID uint) error {
	if err := r.db.WithContext(ctx).Omit("User", "Recipe").Create(r.model(userID, recipeID)).Error; err != nil {
		return translate(err, r.what)
	}
	return nil
}

func (r *GORMRecipeListRepository) Remove(ctx context.Context, userID, recipeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		Delete(r.model(0, 0))
	if res.Error != nil {
		return false, translate(res.Error, r.what)
	}
	return res.RowsAffected > 0, nil
}

func (r *GORMRecipeListRepository) RecipeIDs(ctx context.Context, userID uint, candidates []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(candidates))
	if userID == 0 || len(candidates) == 0 {
		return found, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(r.model(0, 0)).
		Where("user_id = ? AND recipe_id IN ?", userID, candidates).
		Pluck("recipe_id", &ids).Error
	if err != nil {
		return nil, translate(err, r.what)
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}
