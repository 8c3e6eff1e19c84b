package services_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"foodgram/internal/models"
	"foodgram/internal/repositories"
	"foodgram/internal/services"
	"foodgram/internal/shoppinglist"
	"foodgram/pkg/rabbitmq"
)

type recipeMocks struct {
	recipes     *MockRecipeRepository
	tags        *MockTagRepository
	ingredients *MockIngredientRepository
	favorites   *MockRecipeListRepository
	cart        *MockRecipeListRepository
	subs        *MockSubscriptionRepository
	images      *MockImageStore
	renderer    *MockRenderer
	events      *MockPublisher
}

func newRecipeService() (*services.RecipeService, *recipeMocks) {
	m := &recipeMocks{
		recipes:     new(MockRecipeRepository),
		tags:        new(MockTagRepository),
		ingredients: new(MockIngredientRepository),
		favorites:   new(MockRecipeListRepository),
		cart:        new(MockRecipeListRepository),
		subs:        new(MockSubscriptionRepository),
		images:      new(MockImageStore),
		renderer:    new(MockRenderer),
		events:      new(MockPublisher),
	}
	svc := services.NewRecipeService(services.RecipeDeps{
		Recipes:       m.recipes,
		Tags:          m.tags,
		Ingredients:   m.ingredients,
		Favorites:     m.favorites,
		Cart:          m.cart,
		Subs:          m.subs,
		Images:        m.images,
		Renderer:      m.renderer,
		Events:        m.events,
		ImageMaxWidth: 1280,
	})
	return svc, m
}

// expectViews stubs the per-viewer flags used when building recipe views.
func (m *recipeMocks) expectViews() {
	m.favorites.On("RecipeIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uint]bool{}, nil)
	m.cart.On("RecipeIDs", mock.Anything, mock.Anything, mock.Anything).Return(map[uint]bool{}, nil)
	m.subs.On("FollowedAmong", mock.Anything, mock.Anything, mock.Anything).Return(map[uint]bool{}, nil)
}

func pngDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func validRecipeInput(t *testing.T) services.RecipeInput {
	return services.RecipeInput{
		Ingredients: []services.RecipeIngredientInput{{ID: 1, Amount: 10}},
		Tags:        []uint{1},
		Image:       pngDataURI(t),
		Name:        "Pancakes",
		Text:        "Whisk and fry.",
		CookingTime: 20,
	}
}

var chef = services.Actor{ID: 5, Username: "chef", Role: models.RoleUser}

func storedRecipe(id, authorID uint) *models.Recipe {
	return &models.Recipe{
		ID:          id,
		AuthorID:    authorID,
		Author:      models.User{Account: models.Account{ID: authorID, Username: "chef"}},
		Name:        "Pancakes",
		Text:        "Whisk and fry.",
		CookingTime: 20,
		Image:       "/media/recipes/old.png",
		Tags:        []models.Tag{{ID: 1, Name: "Breakfast", Slug: "breakfast"}},
		RecipeIngredients: []models.RecipeIngredient{
			{IngredientID: 1, Amount: 10, Ingredient: models.Ingredient{ID: 1, Name: "flour", MeasurementUnit: "g"}},
		},
	}
}

func TestRecipeService_Create(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.expectViews()

	m.tags.On("GetByIDs", ctx, []uint{1}).Return([]models.Tag{{ID: 1}}, nil)
	m.ingredients.On("GetByIDs", ctx, []uint{1}).Return([]models.Ingredient{{ID: 1}}, nil)
	m.images.On("Save", ctx, mock.AnythingOfType("string"), mock.Anything, "image/png").Return("/media/recipes/new.png", nil)
	m.recipes.On("Create", ctx, mock.AnythingOfType("*models.Recipe"), []uint{1}, []models.RecipeIngredient{{IngredientID: 1, Amount: 10}}).
		Return(nil).
		Run(func(args mock.Arguments) { args.Get(1).(*models.Recipe).ID = 42 })
	m.recipes.On("GetByID", ctx, uint(42)).Return(storedRecipe(42, chef.ID), nil)
	m.events.On("PublishRecipeEvent", ctx, mock.MatchedBy(func(e rabbitmq.RecipeEvent) bool {
		return e.Type == rabbitmq.RecipeCreated && e.RecipeID == 42 && e.AuthorID == chef.ID
	})).Return(nil).Once()

	view, err := svc.Create(ctx, chef, validRecipeInput(t))
	require.NoError(t, err)
	assert.Equal(t, uint(42), view.ID)
	require.Len(t, view.Ingredients, 1)
	assert.Equal(t, "flour", view.Ingredients[0].Name)
	assert.Equal(t, 10, view.Ingredients[0].Amount)
	m.recipes.AssertExpectations(t)
	m.events.AssertExpectations(t)
}

func TestRecipeService_Create_PublishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.expectViews()
	m.tags.On("GetByIDs", ctx, []uint{1}).Return([]models.Tag{{ID: 1}}, nil)
	m.ingredients.On("GetByIDs", ctx, []uint{1}).Return([]models.Ingredient{{ID: 1}}, nil)
	m.images.On("Save", ctx, mock.Anything, mock.Anything, mock.Anything).Return("/media/recipes/new.png", nil)
	m.recipes.On("Create", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.recipes.On("GetByID", ctx, mock.Anything).Return(storedRecipe(1, chef.ID), nil)
	m.events.On("PublishRecipeEvent", ctx, mock.Anything).Return(errors.New("broker down"))

	_, err := svc.Create(ctx, chef, validRecipeInput(t))
	assert.NoError(t, err)
}

func TestRecipeService_Create_RemovesImageWhenInsertFails(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.tags.On("GetByIDs", ctx, []uint{1}).Return([]models.Tag{{ID: 1}}, nil)
	m.ingredients.On("GetByIDs", ctx, []uint{1}).Return([]models.Ingredient{{ID: 1}}, nil)
	m.images.On("Save", ctx, mock.Anything, mock.Anything, mock.Anything).Return("/media/recipes/new.png", nil)
	m.images.On("Delete", ctx, "/media/recipes/new.png").Return(nil).Once()
	m.recipes.On("Create", ctx, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.Create(ctx, chef, validRecipeInput(t))
	assert.Error(t, err)
	m.images.AssertExpectations(t)
	m.events.AssertNotCalled(t, "PublishRecipeEvent", mock.Anything, mock.Anything)
}

func TestRecipeService_Create_CookingTimeBounds(t *testing.T) {
	tests := []struct {
		minutes int
		valid   bool
	}{
		{0, false}, {1, true}, {1440, true}, {1441, false},
	}
	for _, tt := range tests {
		svc, m := newRecipeService()
		m.expectViews()
		m.tags.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Tag{{ID: 1}}, nil)
		m.ingredients.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Ingredient{{ID: 1}}, nil)
		m.images.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("/media/recipes/x.png", nil)
		m.recipes.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		m.recipes.On("GetByID", mock.Anything, mock.Anything).Return(storedRecipe(1, chef.ID), nil)
		m.events.On("PublishRecipeEvent", mock.Anything, mock.Anything).Return(nil)

		in := validRecipeInput(t)
		in.CookingTime = tt.minutes
		_, err := svc.Create(context.Background(), chef, in)
		if tt.valid {
			assert.NoError(t, err, "cooking_time=%d", tt.minutes)
		} else {
			assert.Contains(t, validationFields(t, err), "cooking_time", "cooking_time=%d", tt.minutes)
			m.recipes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		}
	}
}

func TestRecipeService_Create_AmountBounds(t *testing.T) {
	tests := []struct {
		amount int
		valid  bool
	}{
		{0, false}, {1, true}, {100000, true}, {100001, false},
	}
	for _, tt := range tests {
		svc, m := newRecipeService()
		m.expectViews()
		m.tags.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Tag{{ID: 1}}, nil)
		m.ingredients.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Ingredient{{ID: 1}}, nil)
		m.images.On("Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("/media/recipes/x.png", nil)
		m.recipes.On("Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		m.recipes.On("GetByID", mock.Anything, mock.Anything).Return(storedRecipe(1, chef.ID), nil)
		m.events.On("PublishRecipeEvent", mock.Anything, mock.Anything).Return(nil)

		in := validRecipeInput(t)
		in.Ingredients[0].Amount = tt.amount
		_, err := svc.Create(context.Background(), chef, in)
		if tt.valid {
			assert.NoError(t, err, "amount=%d", tt.amount)
		} else {
			assert.Contains(t, validationFields(t, err), "ingredients[0].amount", "amount=%d", tt.amount)
		}
	}
}

func TestRecipeService_Create_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*services.RecipeInput)
		field  string
	}{
		{"no ingredients", func(in *services.RecipeInput) { in.Ingredients = nil }, "ingredients"},
		{"repeated ingredient", func(in *services.RecipeInput) {
			in.Ingredients = append(in.Ingredients, services.RecipeIngredientInput{ID: 1, Amount: 5})
		}, "ingredients"},
		{"no tags", func(in *services.RecipeInput) { in.Tags = []uint{} }, "tags"},
		{"repeated tag", func(in *services.RecipeInput) { in.Tags = []uint{1, 1} }, "tags"},
		{"no image", func(in *services.RecipeInput) { in.Image = "" }, "image"},
		{"gif image", func(in *services.RecipeInput) { in.Image = "data:image/gif;base64,R0lGODlhAQABAAAAACw=" }, "image"},
		{"no name", func(in *services.RecipeInput) { in.Name = "" }, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newRecipeService()
			m.tags.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Tag{{ID: 1}}, nil)
			m.ingredients.On("GetByIDs", mock.Anything, mock.Anything).Return([]models.Ingredient{{ID: 1}}, nil)

			in := validRecipeInput(t)
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), chef, in)
			assert.Contains(t, validationFields(t, err), tt.field)
			m.recipes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRecipeService_Create_UnknownRelations(t *testing.T) {
	ctx := context.Background()

	t.Run("tag", func(t *testing.T) {
		svc, m := newRecipeService()
		m.tags.On("GetByIDs", ctx, []uint{1}).Return([]models.Tag{}, nil)
		_, err := svc.Create(ctx, chef, validRecipeInput(t))
		assert.Contains(t, validationFields(t, err), "tags")
	})

	t.Run("ingredient", func(t *testing.T) {
		svc, m := newRecipeService()
		m.tags.On("GetByIDs", ctx, []uint{1}).Return([]models.Tag{{ID: 1}}, nil)
		m.ingredients.On("GetByIDs", ctx, []uint{1}).Return([]models.Ingredient{}, nil)
		_, err := svc.Create(ctx, chef, validRecipeInput(t))
		assert.Contains(t, validationFields(t, err), "ingredients")
	})
}

func TestRecipeService_Create_RequiresAuthentication(t *testing.T) {
	svc, _ := newRecipeService()
	_, err := svc.Create(context.Background(), services.Actor{}, validRecipeInput(t))
	assert.ErrorIs(t, err, services.ErrUnauthorized)
}

func TestRecipeService_Update_Forbidden(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, 99), nil)

	name := "Mine now"
	_, err := svc.Update(ctx, chef, 9, services.RecipeUpdate{Name: &name}, true)
	assert.ErrorIs(t, err, services.ErrForbidden)
	m.recipes.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecipeService_Update_PatchKeepsRelations(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.expectViews()
	m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, chef.ID), nil)
	m.recipes.On("Update", ctx, mock.MatchedBy(func(r *models.Recipe) bool {
		return r.Name == "Crepes" && r.CookingTime == 20 && r.Image == "/media/recipes/old.png"
	}), []uint(nil), []models.RecipeIngredient(nil)).Return(nil).Once()
	m.events.On("PublishRecipeEvent", ctx, mock.Anything).Return(nil)

	name := "Crepes"
	_, err := svc.Update(ctx, chef, 9, services.RecipeUpdate{Name: &name}, true)
	require.NoError(t, err)
	m.recipes.AssertExpectations(t)
	m.images.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRecipeService_Update_PutRequiresFields(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, chef.ID), nil)

	name := "Crepes"
	_, err := svc.Update(ctx, chef, 9, services.RecipeUpdate{Name: &name}, false)
	fields := validationFields(t, err)
	assert.Contains(t, fields, "ingredients")
	assert.Contains(t, fields, "tags")
	assert.NotContains(t, fields, "image")
}

func TestRecipeService_Update_ReplacesImageAndRelations(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.expectViews()
	m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, chef.ID), nil)
	m.tags.On("GetByIDs", ctx, []uint{2}).Return([]models.Tag{{ID: 2}}, nil)
	m.ingredients.On("GetByIDs", ctx, []uint{3}).Return([]models.Ingredient{{ID: 3}}, nil)
	m.images.On("Save", ctx, mock.Anything, mock.Anything, "image/png").Return("/media/recipes/new.png", nil)
	m.recipes.On("Update", ctx, mock.Anything, []uint{2}, []models.RecipeIngredient{{IngredientID: 3, Amount: 7}}).Return(nil).Once()
	m.images.On("Delete", ctx, "/media/recipes/old.png").Return(nil).Once()
	m.events.On("PublishRecipeEvent", ctx, mock.Anything).Return(nil)

	img := pngDataURI(t)
	tags := []uint{2}
	lines := []services.RecipeIngredientInput{{ID: 3, Amount: 7}}
	_, err := svc.Update(ctx, chef, 9, services.RecipeUpdate{Image: &img, Tags: &tags, Ingredients: &lines}, true)
	require.NoError(t, err)
	m.recipes.AssertExpectations(t)
	m.images.AssertExpectations(t)
}

func TestRecipeService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("owner", func(t *testing.T) {
		svc, m := newRecipeService()
		m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, chef.ID), nil)
		m.recipes.On("Delete", ctx, uint(9)).Return(nil).Once()
		m.images.On("Delete", ctx, "/media/recipes/old.png").Return(nil).Once()
		m.events.On("PublishRecipeEvent", ctx, mock.MatchedBy(func(e rabbitmq.RecipeEvent) bool {
			return e.Type == rabbitmq.RecipeDeleted
		})).Return(nil).Once()

		require.NoError(t, svc.Delete(ctx, chef, 9))
		m.recipes.AssertExpectations(t)
		m.events.AssertExpectations(t)
	})

	t.Run("admin", func(t *testing.T) {
		svc, m := newRecipeService()
		m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, 99), nil)
		m.recipes.On("Delete", ctx, uint(9)).Return(nil).Once()
		m.images.On("Delete", ctx, mock.Anything).Return(nil)
		m.events.On("PublishRecipeEvent", ctx, mock.Anything).Return(nil)

		admin := services.Actor{ID: 1, Username: "admin", Role: models.RoleAdmin}
		require.NoError(t, svc.Delete(ctx, admin, 9))
	})

	t.Run("stranger", func(t *testing.T) {
		svc, m := newRecipeService()
		m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, 99), nil)
		assert.ErrorIs(t, svc.Delete(ctx, chef, 9), services.ErrForbidden)
	})

	t.Run("missing", func(t *testing.T) {
		svc, m := newRecipeService()
		m.recipes.On("GetByID", ctx, uint(9)).Return(nil, notFound("recipe 9"))
		assert.ErrorIs(t, svc.Delete(ctx, chef, 9), services.ErrNotFound)
	})
}

func TestRecipeService_Favorites(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.recipes.On("GetByID", ctx, uint(9)).Return(storedRecipe(9, 99), nil)
	m.favorites.On("Add", ctx, chef.ID, uint(9)).Return(nil).Once()

	short, err := svc.AddFavorite(ctx, chef, 9)
	require.NoError(t, err)
	assert.Equal(t, services.RecipeShort{ID: 9, Name: "Pancakes", Image: "/media/recipes/old.png", CookingTime: 20}, *short)

	m.favorites.On("Add", ctx, chef.ID, uint(9)).Return(repositories.ErrDuplicate).Once()
	_, err = svc.AddFavorite(ctx, chef, 9)
	assert.Contains(t, validationFields(t, err), "recipe")

	m.favorites.On("Remove", ctx, chef.ID, uint(9)).Return(false, nil).Once()
	err = svc.RemoveFavorite(ctx, chef, 9)
	assert.Contains(t, validationFields(t, err), "recipe")

	m.recipes.On("GetByID", ctx, uint(404)).Return(nil, notFound("recipe 404"))
	_, err = svc.AddToCart(ctx, chef, 404)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestRecipeService_List_AnonymousMembershipFilters(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	yes, no := true, false

	views, total, err := svc.List(ctx, services.Actor{}, services.RecipeQuery{IsFavorited: &yes}, repositories.Page{Number: 1, Size: 6})
	require.NoError(t, err)
	assert.Empty(t, views)
	assert.Zero(t, total)
	m.recipes.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything)

	m.expectViews()
	m.recipes.On("List", ctx, repositories.RecipeFilter{}, repositories.Page{Number: 1, Size: 6}).Return([]models.Recipe{*storedRecipe(1, 2)}, int64(1), nil).Once()
	views, total, err = svc.List(ctx, services.Actor{}, services.RecipeQuery{IsInShoppingCart: &no}, repositories.Page{Number: 1, Size: 6})
	require.NoError(t, err)
	assert.Len(t, views, 1)
	assert.EqualValues(t, 1, total)
}

func TestRecipeService_List_AuthenticatedFilters(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()
	m.favorites.On("RecipeIDs", ctx, chef.ID, []uint{1}).Return(map[uint]bool{1: true}, nil)
	m.cart.On("RecipeIDs", ctx, chef.ID, []uint{1}).Return(map[uint]bool{}, nil)
	m.subs.On("FollowedAmong", ctx, chef.ID, []uint{2}).Return(map[uint]bool{2: true}, nil)

	yes := true
	want := repositories.RecipeFilter{
		AuthorID:  2,
		TagSlugs:  []string{"breakfast"},
		Favorited: &repositories.Membership{UserID: chef.ID, Include: true},
	}
	m.recipes.On("List", ctx, want, repositories.Page{Number: 1, Size: 6}).Return([]models.Recipe{*storedRecipe(1, 2)}, int64(1), nil).Once()

	views, _, err := svc.List(ctx, chef, services.RecipeQuery{AuthorID: 2, Tags: []string{"breakfast"}, IsFavorited: &yes}, repositories.Page{Number: 1, Size: 6})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.True(t, views[0].IsFavorited)
	assert.False(t, views[0].IsInShoppingCart)
	assert.True(t, views[0].Author.IsSubscribed)
}

func TestRecipeService_DownloadShoppingList(t *testing.T) {
	ctx := context.Background()
	svc, m := newRecipeService()

	line := func(name, unit string, amount int) models.RecipeIngredient {
		return models.RecipeIngredient{Amount: amount, Ingredient: models.Ingredient{Name: name, MeasurementUnit: unit}}
	}
	m.recipes.On("ListInShoppingCart", ctx, chef.ID).Return([]models.Recipe{
		{RecipeIngredients: []models.RecipeIngredient{line("flour", "g", 5), line("sugar", "g", 3)}},
		{RecipeIngredients: []models.RecipeIngredient{line("flour", "g", 3)}},
	}, nil)
	m.renderer.On("Render", []shoppinglist.Item{
		{Name: "flour", Unit: "g", Amount: 8},
		{Name: "sugar", Unit: "g", Amount: 3},
	}, "chef").Return([]byte("%PDF-1.3"), nil).Once()

	doc, filename, err := svc.DownloadShoppingList(ctx, chef)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.3"), doc)
	assert.Equal(t, "chef_shopping_cart.pdf", filename)
	m.renderer.AssertExpectations(t)
}
