package models

import "time"

// Tag labels recipes, e.g. "Breakfast".
type Tag struct {
	ID    uint   `json:"id" gorm:"primaryKey"`
	Name  string `json:"name" gorm:"type:varchar(200);not null"`
	Color string `json:"color" gorm:"type:varchar(7);not null"`
	Slug  string `json:"slug" gorm:"uniqueIndex;type:varchar(200);not null"`
}

// Ingredient is a named substance with a measurement unit. The pair is unique.
type Ingredient struct {
	ID              uint   `json:"id" gorm:"primaryKey"`
	Name            string `json:"name" gorm:"uniqueIndex:idx_ingredient_name_unit;type:varchar(200);not null"`
	MeasurementUnit string `json:"measurement_unit" gorm:"uniqueIndex:idx_ingredient_name_unit;type:varchar(200);not null"`
}

// Recipe is a published dish.
type Recipe struct {
	ID                uint               `json:"id" gorm:"primaryKey"`
	AuthorID          uint               `json:"-" gorm:"not null;index"`
	Author            User               `json:"-" gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
	Name              string             `json:"name" gorm:"type:varchar(200);not null"`
	Text              string             `json:"text" gorm:"type:text;not null"`
	CookingTime       int                `json:"cooking_time" gorm:"not null;check:chk_recipes_cooking_time,cooking_time >= 1 AND cooking_time <= 1440"`
	Image             string             `json:"image" gorm:"type:varchar(500)"`
	PubDate           time.Time          `json:"-" gorm:"autoCreateTime;index"`
	Tags              []Tag              `json:"-" gorm:"many2many:recipe_tags;constraint:OnDelete:CASCADE"`
	RecipeIngredients []RecipeIngredient `json:"-" gorm:"constraint:OnDelete:CASCADE"`
}

// RecipeIngredient joins a recipe to an ingredient with an amount.
type RecipeIngredient struct {
	ID           uint       `gorm:"primaryKey"`
	RecipeID     uint       `gorm:"not null;index"`
	IngredientID uint       `gorm:"not null;index"`
	Ingredient   Ingredient `gorm:"constraint:OnDelete:CASCADE"`
	Amount       int        `gorm:"not null;check:chk_recipe_ingredients_amount,amount >= 1 AND amount <= 100000"`
}
