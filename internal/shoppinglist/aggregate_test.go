package shoppinglist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"foodgram/internal/models"
)

func recipeWith(lines ...models.RecipeIngredient) models.Recipe {
	return models.Recipe{RecipeIngredients: lines}
}

func line(name, unit string, amount int) models.RecipeIngredient {
	return models.RecipeIngredient{
		Ingredient: models.Ingredient{Name: name, MeasurementUnit: unit},
		Amount:     amount,
	}
}

func TestAggregate_SumsOverlappingIngredients(t *testing.T) {
	a := recipeWith(line("Salt", "g", 5))
	b := recipeWith(line("Salt", "g", 3), line("Sugar", "g", 10))

	got := Aggregate([]models.Recipe{a, b})

	assert.Equal(t, []Item{
		{Name: "Salt", Unit: "g", Amount: 8},
		{Name: "Sugar", Unit: "g", Amount: 10},
	}, got)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]models.Recipe{{}}))
	assert.NotNil(t, Aggregate(nil))
}

func TestAggregate_UnitIsPartOfKey(t *testing.T) {
	got := Aggregate([]models.Recipe{
		recipeWith(line("Milk", "ml", 200), line("Milk", "cup", 1)),
		recipeWith(line("Milk", "ml", 300)),
	})

	assert.Equal(t, []Item{
		{Name: "Milk", Unit: "ml", Amount: 500},
		{Name: "Milk", Unit: "cup", Amount: 1},
	}, got)
}

func TestAggregate_FirstEncounterOrder(t *testing.T) {
	got := Aggregate([]models.Recipe{
		recipeWith(line("Eggs", "pcs", 2), line("Flour", "g", 100)),
		recipeWith(line("Butter", "g", 50), line("Eggs", "pcs", 1)),
	})

	names := make([]string, len(got))
	for i, item := range got {
		names[i] = item.Name
	}
	assert.Equal(t, []string{"Eggs", "Flour", "Butter"}, names)
	assert.Equal(t, 3, got[0].Amount)
}
