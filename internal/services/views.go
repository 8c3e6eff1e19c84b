package services

import "foodgram/internal/models"

// Actor is the caller of a service operation. A zero ID means anonymous.
type Actor struct {
	ID       uint
	Username string
	Role     string
}

// Authenticated reports whether the actor is a logged-in user.
func (a Actor) Authenticated() bool {
	return a.ID != 0
}

// UserView is a user as seen by a particular viewer.
type UserView struct {
	models.User
	IsSubscribed bool `json:"is_subscribed"`
}

// AuthorView is a followed author with a preview of their recipes.
type AuthorView struct {
	UserView
	Recipes      []RecipeShort `json:"recipes"`
	RecipesCount int64         `json:"recipes_count"`
}

// RecipeShort is the minified recipe returned by favorite, cart and
// subscription endpoints.
type RecipeShort struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Image       string `json:"image"`
	CookingTime int    `json:"cooking_time"`
}

// IngredientAmount is one ingredient line of a recipe.
type IngredientAmount struct {
	ID              uint   `json:"id"`
	Name            string `json:"name"`
	MeasurementUnit string `json:"measurement_unit"`
	Amount          int    `json:"amount"`
}

// RecipeView is the full recipe representation.
type RecipeView struct {
	ID               uint               `json:"id"`
	Tags             []models.Tag       `json:"tags"`
	Author           UserView           `json:"author"`
	Ingredients      []IngredientAmount `json:"ingredients"`
	IsFavorited      bool               `json:"is_favorited"`
	IsInShoppingCart bool               `json:"is_in_shopping_cart"`
	Name             string             `json:"name"`
	Image            string             `json:"image"`
	Text             string             `json:"text"`
	CookingTime      int                `json:"cooking_time"`
}

func shortRecipe(r *models.Recipe) RecipeShort {
	return RecipeShort{ID: r.ID, Name: r.Name, Image: r.Image, CookingTime: r.CookingTime}
}

func shortRecipes(recipes []models.Recipe) []RecipeShort {
	out := make([]RecipeShort, len(recipes))
	for i := range recipes {
		out[i] = shortRecipe(&recipes[i])
	}
	return out
}
