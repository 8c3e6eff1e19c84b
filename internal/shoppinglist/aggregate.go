// Package shoppinglist turns a shopping cart into a deduplicated list of
// ingredients and renders it as a PDF.
package shoppinglist

import "foodgram/internal/models"

// Item is one line of the shopping list.
type Item struct {
	Name   string `json:"name"`
	Unit   string `json:"measurement_unit"`
	Amount int    `json:"amount"`
}

type itemKey struct {
	name, unit string
}

// Aggregate sums ingredient amounts across recipes, one Item per distinct
// (name, unit) pair, in order of first appearance. Recipes must have
// RecipeIngredients with Ingredient preloaded.
func Aggregate(recipes []models.Recipe) []Item {
	items := make([]Item, 0)
	index := make(map[itemKey]int)

	for _, recipe := range recipes {
		for _, ri := range recipe.RecipeIngredients {
			key := itemKey{name: ri.Ingredient.Name, unit: ri.Ingredient.MeasurementUnit}
			if i, ok := index[key]; ok {
				items[i].Amount += ri.Amount
				continue
			}
			index[key] = len(items)
			items = append(items, Item{Name: key.name, Unit: key.unit, Amount: ri.Amount})
		}
	}
	return items
}
