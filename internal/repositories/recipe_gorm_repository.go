package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/internal/models"
)

// GORMRecipeRepository is a GORM implementation of RecipeRepository.
type GORMRecipeRepository struct {
	db *gorm.DB
}

// NewGORMRecipeRepository creates a new instance of GORMRecipeRepository.
func NewGORMRecipeRepository(db *gorm.DB) *GORMRecipeRepository {
	return &GORMRecipeRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.id") }).
		Preload("RecipeIngredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.id") }).
		Preload("RecipeIngredients.Ingredient")
}

func (r *GORMRecipeRepository) filtered(ctx context.Context, f RecipeFilter) *gorm.DB {
	db := r.db.WithContext(ctx)
	q := db.Model(&models.Recipe{})

	if f.AuthorID != 0 {
		q = q.Where("recipes.author_id = ?", f.AuthorID)
	}
	if len(f.TagSlugs) > 0 {
		tagged := db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug IN ?", f.TagSlugs)
		q = q.Where("recipes.id IN (?)", tagged)
	}
	q = membership(db, q, "favorites", f.Favorited)
	q = membership(db, q, "shopping_cart", f.InShoppingCart)
	return q
}

func membership(db, q *gorm.DB, table string, m *Membership) *gorm.DB {
	if m == nil {
		return q
	}
	ids := db.Table(table).Select("recipe_id").Where("user_id = ?", m.UserID)
	if m.Include {
		return q.Where("recipes.id IN (?)", ids)
	}
	return q.Where("recipes.id NOT IN (?)", ids)
}

// List returns one page of recipes, newest first, and the total match count.
func (r *GORMRecipeRepository) List(ctx context.Context, filter RecipeFilter, page Page) ([]models.Recipe, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "recipes")
	}

	var recipes []models.Recipe
	err := withDetails(r.filtered(ctx, filter)).
		Order("recipes.pub_date DESC").
		Order("recipes.id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, translate(err, "recipes")
	}
	return recipes, total, nil
}

// GetByID returns a recipe with its details.
func (r *GORMRecipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := withDetails(r.db.WithContext(ctx)).First(&recipe, "recipes.id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("recipe %d", id))
	}
	return &recipe, nil
}

// Create inserts the recipe and its relations in one transaction.
func (r *GORMRecipeRepository) Create(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(recipe).Error; err != nil {
			return translate(err, "recipe")
		}
		if err := replaceTags(tx, recipe.ID, tagIDs); err != nil {
			return err
		}
		return replaceIngredients(tx, recipe.ID, ingredients)
	})
}

// Update saves name, text, cooking time and image, replacing relations when given.
func (r *GORMRecipeRepository) Update(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recipe{}).
			Where("id = ?", recipe.ID).
			Updates(map[string]interface{}{
				"name":         recipe.Name,
				"text":         recipe.Text,
				"cooking_time": recipe.CookingTime,
				"image":        recipe.Image,
			})
		if res.Error != nil {
			return translate(res.Error, "recipe")
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("recipe %d %w", recipe.ID, ErrNotFound)
		}
		if tagIDs != nil {
			if err := replaceTags(tx, recipe.ID, tagIDs); err != nil {
				return err
			}
		}
		if ingredients != nil {
			return replaceIngredients(tx, recipe.ID, ingredients)
		}
		return nil
	})
}

func replaceTags(tx *gorm.DB, recipeID uint, tagIDs []uint) error {
	if err := tx.Exec("DELETE FROM recipe_tags WHERE recipe_id = ?", recipeID).Error; err != nil {
		return translate(err, "recipe tags")
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, len(tagIDs))
	for i, id := range tagIDs {
		rows[i] = map[string]interface{}{"recipe_id": recipeID, "tag_id": id}
	}
	if err := tx.Table("recipe_tags").Create(rows).Error; err != nil {
		return translate(err, "recipe tags")
	}
	return nil
}

func replaceIngredients(tx *gorm.DB, recipeID uint, ingredients []models.RecipeIngredient) error {
	if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.RecipeIngredient{}).Error; err != nil {
		return translate(err, "recipe ingredients")
	}
	if len(ingredients) == 0 {
		return nil
	}
	rows := make([]models.RecipeIngredient, len(ingredients))
	for i, ri := range ingredients {
		rows[i] = models.RecipeIngredient{RecipeID: recipeID, IngredientID: ri.IngredientID, Amount: ri.Amount}
	}
	if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
		return translate(err, "recipe ingredients")
	}
	return nil
}

// Delete removes a recipe with its links, favorites and cart entries.
func (r *GORMRecipeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range []string{
			"DELETE FROM recipe_tags WHERE recipe_id = ?",
			"DELETE FROM recipe_ingredients WHERE recipe_id = ?",
			"DELETE FROM favorites WHERE recipe_id = ?",
			"DELETE FROM shopping_cart WHERE recipe_id = ?",
		} {
			if err := tx.Exec(stmt, id).Error; err != nil {
				return translate(err, "recipe relations")
			}
		}
		res := tx.Delete(&models.Recipe{}, "id = ?", id)
		if res.Error != nil {
			return translate(res.Error, "recipe")
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("recipe %d %w", id, ErrNotFound)
		}
		return nil
	})
}

// ListByAuthor returns the author's newest recipes; limit <= 0 returns all.
func (r *GORMRecipeRepository) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	q := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("pub_date DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, translate(err, "recipes")
	}
	return recipes, nil
}

// CountByAuthors returns recipe counts keyed by author id. Authors without
// recipes are absent from the map.
func (r *GORMRecipeRepository) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		AuthorID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Recipe{}).
		Select("author_id, COUNT(*) AS total").
		Where("author_id IN ?", authorIDs).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "recipe counts")
	}
	for _, row := range rows {
		counts[row.AuthorID] = row.Total
	}
	return counts, nil
}

// ListInShoppingCart returns the user's cart recipes in the order they were added.
func (r *GORMRecipeRepository) ListInShoppingCart(ctx context.Context, userID uint) ([]models.Recipe, error) {
	var recipes []models.Recipe
	err := r.db.WithContext(ctx).
		Joins("JOIN shopping_cart ON shopping_cart.recipe_id = recipes.id").
		Where("shopping_cart.user_id = ?", userID).
		Order("shopping_cart.id").
		Preload("RecipeIngredients", func(tx *gorm.DB) *gorm.DB { return tx.Order("recipe_ingredients.id") }).
		Preload("RecipeIngredients.Ingredient").
		Find(&recipes).Error
	if err != nil {
		return nil, translate(err, "shopping cart")
	}
	return recipes, nil
}
