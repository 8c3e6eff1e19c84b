package repositories

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/internal/models"
)

// IngredientRepository defines the interface for ingredient data access.
type IngredientRepository interface {
	Search(ctx context.Context, name string) ([]models.Ingredient, error)
	GetByID(ctx context.Context, id uint) (*models.Ingredient, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error)
	// CreateBatch inserts ingredients, skipping (name, unit) pairs that already
	// exist, and reports how many rows were inserted.
	CreateBatch(ctx context.Context, ingredients []models.Ingredient) (int64, error)
}

// GORMIngredientRepository is a GORM implementation of IngredientRepository.
type GORMIngredientRepository struct {
	db *gorm.DB
}

// NewGORMIngredientRepository creates a new instance of GORMIngredientRepository.
func NewGORMIngredientRepository(db *gorm.DB) *GORMIngredientRepository {
	return &GORMIngredientRepository{db: db}
}

// likeEscaper escapes LIKE wildcards so the query is matched literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search matches names case-insensitively: prefix matches first, then
// names containing the query, each group ordered by name.
func (r *GORMIngredientRepository) Search(ctx context.Context, name string) ([]models.Ingredient, error) {
	q := likeEscaper.Replace(strings.ToLower(strings.TrimSpace(name)))

	db := r.db.WithContext(ctx)
	if q != "" {
		db = db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+q+"%").
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:                `CASE WHEN LOWER(name) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, name`,
				Vars:               []interface{}{q + "%"},
				WithoutParentheses: true,
			}})
	} else {
		db = db.Order("id")
	}

	var ingredients []models.Ingredient
	if err := db.Find(&ingredients).Error; err != nil {
		return nil, translate(err, "ingredients")
	}
	return ingredients, nil
}

// GetByID returns a single ingredient.
func (r *GORMIngredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.db.WithContext(ctx).First(&ingredient, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("ingredient %d", id))
	}
	return &ingredient, nil
}

// GetByIDs returns the ingredients that exist among ids.
func (r *GORMIngredientRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error) {
	var ingredients []models.Ingredient
	if len(ids) == 0 {
		return ingredients, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, translate(err, "ingredients")
	}
	return ingredients, nil
}

// CreateBatch inserts in chunks of 500 with ON CONFLICT DO NOTHING.
func (r *GORMIngredientRepository) CreateBatch(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	if len(ingredients) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(ingredients, 500)
	if res.Error != nil {
		return 0, translate(res.Error, "ingredients")
	}
	return res.RowsAffected, nil
}
