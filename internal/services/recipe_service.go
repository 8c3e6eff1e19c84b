package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"foodgram/internal/models"
	"foodgram/internal/repositories"
	"foodgram/internal/shoppinglist"
	"foodgram/internal/storage"
	"foodgram/pkg/rabbitmq"
)

// RecipeIngredientInput is one {id, amount} line of a recipe request.
type RecipeIngredientInput struct {
	ID     uint `json:"id" validate:"required"`
	Amount int  `json:"amount" validate:"gte=1,lte=100000"`
}

// RecipeInput is the body of POST /api/recipes/. Image is a base64 data URI.
type RecipeInput struct {
	Ingredients []RecipeIngredientInput `json:"ingredients" validate:"required,min=1,unique=ID,dive"`
	Tags        []uint                  `json:"tags" validate:"required,min=1,unique,dive,gt=0"`
	Image       string                  `json:"image"`
	Name        string                  `json:"name" validate:"required,max=200"`
	Text        string                  `json:"text" validate:"required"`
	CookingTime int                     `json:"cooking_time" validate:"gte=1,lte=1440"`
}

// RecipeUpdate is the body of PUT and PATCH. Nil fields are left unchanged.
type RecipeUpdate struct {
	Ingredients *[]RecipeIngredientInput `json:"ingredients"`
	Tags        *[]uint                  `json:"tags"`
	Image       *string                  `json:"image"`
	Name        *string                  `json:"name"`
	Text        *string                  `json:"text"`
	CookingTime *int                     `json:"cooking_time"`
}

// RecipeQuery holds the recipe list filters. Nil pointers are not applied.
type RecipeQuery struct {
	AuthorID         uint
	Tags             []string
	IsFavorited      *bool
	IsInShoppingCart *bool
}

// Renderer turns a shopping list into a downloadable document.
type Renderer interface {
	Render(items []shoppinglist.Item, username string) ([]byte, error)
}

// RecipeDeps groups the collaborators of RecipeService.
type RecipeDeps struct {
	Recipes       repositories.RecipeRepository
	Tags          repositories.TagRepository
	Ingredients   repositories.IngredientRepository
	Favorites     repositories.RecipeListRepository
	Cart          repositories.RecipeListRepository
	Subs          repositories.SubscriptionRepository
	Images        storage.ImageStore
	Renderer      Renderer
	Events        rabbitmq.Publisher
	ImageMaxWidth int
}

// RecipeService handles business logic related to recipes, favorites and
// the shopping cart.
type RecipeService struct {
	RecipeDeps
	validate *validator.Validate
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(deps RecipeDeps) *RecipeService {
	if deps.Events == nil {
		deps.Events = rabbitmq.NopPublisher{}
	}
	return &RecipeService{RecipeDeps: deps, validate: newValidator()}
}

// List returns one page of recipes, newest first.
func (s *RecipeService) List(ctx context.Context, viewer Actor, q RecipeQuery, page repositories.Page) ([]RecipeView, int64, error) {
	filter := repositories.RecipeFilter{AuthorID: q.AuthorID, TagSlugs: q.Tags}

	// Anonymous users have empty lists: "only listed" matches nothing and
	// "only unlisted" matches everything.
	for _, m := range []struct {
		want *bool
		dst  **repositories.Membership
	}{
		{q.IsFavorited, &filter.Favorited},
		{q.IsInShoppingCart, &filter.InShoppingCart},
	} {
		if m.want == nil {
			continue
		}
		if !viewer.Authenticated() {
			if *m.want {
				return []RecipeView{}, 0, nil
			}
			continue
		}
		*m.dst = &repositories.Membership{UserID: viewer.ID, Include: *m.want}
	}

	recipes, total, err := s.Recipes.List(ctx, filter, page)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, viewer, recipes)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Get returns a single recipe.
func (s *RecipeService) Get(ctx context.Context, viewer Actor, id uint) (*RecipeView, error) {
	recipe, err := s.Recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, viewer, []models.Recipe{*recipe})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Create publishes a new recipe authored by actor.
func (s *RecipeService) Create(ctx context.Context, actor Actor, in RecipeInput) (*RecipeView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	if err := validate(s.validate, in); err != nil {
		return nil, err
	}
	if in.Image == "" {
		return nil, fieldError("image", "This field is required.")
	}
	lines, err := s.checkRelations(ctx, in.Tags, in.Ingredients)
	if err != nil {
		return nil, err
	}
	imageURL, err := s.saveImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	recipe := &models.Recipe{
		AuthorID:    actor.ID,
		Name:        in.Name,
		Text:        in.Text,
		CookingTime: in.CookingTime,
		Image:       imageURL,
	}
	if err := s.Recipes.Create(ctx, recipe, in.Tags, lines); err != nil {
		s.deleteImage(ctx, imageURL)
		return nil, storageError(err)
	}

	s.publish(ctx, rabbitmq.RecipeCreated, recipe, actor)
	return s.Get(ctx, actor, recipe.ID)
}

// Update changes a recipe owned by actor, or any recipe for admins. Unless
// partial is set, every field except the image must be present.
func (s *RecipeService) Update(ctx context.Context, actor Actor, id uint, in RecipeUpdate, partial bool) (*RecipeView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	recipe, err := s.Recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(actor, recipe) {
		return nil, ErrForbidden
	}
	if !partial {
		if err := requireFields(in); err != nil {
			return nil, err
		}
	}

	merged := RecipeInput{
		Ingredients: currentIngredients(recipe),
		Tags:        currentTags(recipe),
		Name:        recipe.Name,
		Text:        recipe.Text,
		CookingTime: recipe.CookingTime,
	}
	if in.Ingredients != nil {
		merged.Ingredients = *in.Ingredients
	}
	if in.Tags != nil {
		merged.Tags = *in.Tags
	}
	if in.Name != nil {
		merged.Name = *in.Name
	}
	if in.Text != nil {
		merged.Text = *in.Text
	}
	if in.CookingTime != nil {
		merged.CookingTime = *in.CookingTime
	}
	if err := validate(s.validate, merged); err != nil {
		return nil, err
	}

	var (
		tagIDs []uint
		lines  []models.RecipeIngredient
	)
	if in.Tags != nil || in.Ingredients != nil {
		checked, err := s.checkRelations(ctx, merged.Tags, merged.Ingredients)
		if err != nil {
			return nil, err
		}
		if in.Tags != nil {
			tagIDs = merged.Tags
		}
		if in.Ingredients != nil {
			lines = checked
		}
	}

	oldImage := recipe.Image
	newImage := ""
	if in.Image != nil && *in.Image != "" {
		if newImage, err = s.saveImage(ctx, *in.Image); err != nil {
			return nil, err
		}
		recipe.Image = newImage
	}
	recipe.Name = merged.Name
	recipe.Text = merged.Text
	recipe.CookingTime = merged.CookingTime

	if err := s.Recipes.Update(ctx, recipe, tagIDs, lines); err != nil {
		if newImage != "" {
			s.deleteImage(ctx, newImage)
		}
		return nil, storageError(err)
	}
	if newImage != "" {
		s.deleteImage(ctx, oldImage)
	}

	s.publish(ctx, rabbitmq.RecipeUpdated, recipe, actor)
	return s.Get(ctx, actor, recipe.ID)
}

// Delete removes a recipe owned by actor, or any recipe for admins.
func (s *RecipeService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	recipe, err := s.Recipes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canModify(actor, recipe) {
		return ErrForbidden
	}
	if err := s.Recipes.Delete(ctx, id); err != nil {
		return err
	}
	s.deleteImage(ctx, recipe.Image)
	s.publish(ctx, rabbitmq.RecipeDeleted, recipe, actor)
	return nil
}

// AddFavorite bookmarks a recipe for actor.
func (s *RecipeService) AddFavorite(ctx context.Context, actor Actor, id uint) (*RecipeShort, error) {
	return s.addToList(ctx, s.Favorites, actor, id, "Recipe is already in favorites.")
}

// RemoveFavorite drops a bookmark.
func (s *RecipeService) RemoveFavorite(ctx context.Context, actor Actor, id uint) error {
	return s.removeFromList(ctx, s.Favorites, actor, id, "Recipe is not in favorites.")
}

// AddToCart puts a recipe into actor's shopping cart.
func (s *RecipeService) AddToCart(ctx context.Context, actor Actor, id uint) (*RecipeShort, error) {
	return s.addToList(ctx, s.Cart, actor, id, "Recipe is already in the shopping cart.")
}

// RemoveFromCart takes a recipe out of actor's shopping cart.
func (s *RecipeService) RemoveFromCart(ctx context.Context, actor Actor, id uint) error {
	return s.removeFromList(ctx, s.Cart, actor, id, "Recipe is not in the shopping cart.")
}

func (s *RecipeService) addToList(ctx context.Context, list repositories.RecipeListRepository, actor Actor, id uint, duplicate string) (*RecipeShort, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	recipe, err := s.Recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := list.Add(ctx, actor.ID, recipe.ID); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fieldError("recipe", duplicate)
		}
		return nil, err
	}
	short := shortRecipe(recipe)
	return &short, nil
}

func (s *RecipeService) removeFromList(ctx context.Context, list repositories.RecipeListRepository, actor Actor, id uint, missing string) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if _, err := s.Recipes.GetByID(ctx, id); err != nil {
		return err
	}
	removed, err := list.Remove(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	if !removed {
		return fieldError("recipe", missing)
	}
	return nil
}

// ShoppingList sums the ingredients of every recipe in actor's cart.
func (s *RecipeService) ShoppingList(ctx context.Context, actor Actor) ([]shoppinglist.Item, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	recipes, err := s.Recipes.ListInShoppingCart(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return shoppinglist.Aggregate(recipes), nil
}

// DownloadShoppingList renders the shopping list and returns it with its file name.
func (s *RecipeService) DownloadShoppingList(ctx context.Context, actor Actor) ([]byte, string, error) {
	items, err := s.ShoppingList(ctx, actor)
	if err != nil {
		return nil, "", err
	}
	doc, err := s.Renderer.Render(items, actor.Username)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render shopping list: %w", err)
	}
	return doc, fmt.Sprintf("%s_shopping_cart.pdf", actor.Username), nil
}

// checkRelations verifies that every tag and ingredient exists and returns
// the ingredient rows to store.
func (s *RecipeService) checkRelations(ctx context.Context, tagIDs []uint, in []RecipeIngredientInput) ([]models.RecipeIngredient, error) {
	tags, err := s.Tags.GetByIDs(ctx, tagIDs)
	if err != nil {
		return nil, err
	}
	if missing := missingID(tagIDs, len(tags), func(i int) uint { return tags[i].ID }); missing != 0 {
		return nil, fieldError("tags", fmt.Sprintf("Tag with id %d does not exist.", missing))
	}

	ids := make([]uint, len(in))
	for i, line := range in {
		ids[i] = line.ID
	}
	ingredients, err := s.Ingredients.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if missing := missingID(ids, len(ingredients), func(i int) uint { return ingredients[i].ID }); missing != 0 {
		return nil, fieldError("ingredients", fmt.Sprintf("Ingredient with id %d does not exist.", missing))
	}

	lines := make([]models.RecipeIngredient, len(in))
	for i, line := range in {
		lines[i] = models.RecipeIngredient{IngredientID: line.ID, Amount: line.Amount}
	}
	return lines, nil
}

// missingID returns the first of want not among the n found ids, or 0.
func missingID(want []uint, n int, found func(int) uint) uint {
	have := make(map[uint]bool, n)
	for i := 0; i < n; i++ {
		have[found(i)] = true
	}
	for _, id := range want {
		if !have[id] {
			return id
		}
	}
	return 0
}

func (s *RecipeService) saveImage(ctx context.Context, dataURI string) (string, error) {
	img, err := storage.DecodeDataURI(dataURI, s.ImageMaxWidth)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedFormat):
			return "", fieldError("image", "Unsupported image format, use JPEG or PNG.")
		case errors.Is(err, storage.ErrInvalidImage):
			return "", fieldError("image", "Upload a valid image.")
		case errors.Is(err, storage.ErrImageTooLarge):
			return "", fieldError("image", "Image dimensions are too large.")
		}
		return "", err
	}
	url, err := s.Images.Save(ctx, img.FileName(), img.Data, img.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to store image: %w", err)
	}
	return url, nil
}

func (s *RecipeService) deleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.Images.Delete(ctx, url); err != nil {
		slog.WarnContext(ctx, "failed to delete recipe image", "url", url, "error", err)
	}
}

func (s *RecipeService) publish(ctx context.Context, eventType string, recipe *models.Recipe, actor Actor) {
	event := rabbitmq.RecipeEvent{
		Type:       eventType,
		RecipeID:   recipe.ID,
		AuthorID:   recipe.AuthorID,
		UserID:     actor.ID,
		Name:       recipe.Name,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.Events.PublishRecipeEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish recipe event", "type", eventType, "recipe_id", recipe.ID, "error", err)
	}
}

func (s *RecipeService) views(ctx context.Context, viewer Actor, recipes []models.Recipe) ([]RecipeView, error) {
	views := make([]RecipeView, len(recipes))
	if len(recipes) == 0 {
		return views, nil
	}

	ids := make([]uint, len(recipes))
	authors := make([]models.User, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		authors[i] = r.Author
	}
	favorited, err := s.Favorites.RecipeIDs(ctx, viewer.ID, ids)
	if err != nil {
		return nil, err
	}
	inCart, err := s.Cart.RecipeIDs(ctx, viewer.ID, ids)
	if err != nil {
		return nil, err
	}
	authorViews, err := userViews(ctx, s.Subs, viewer, authors)
	if err != nil {
		return nil, err
	}

	for i, r := range recipes {
		lines := make([]IngredientAmount, len(r.RecipeIngredients))
		for j, ri := range r.RecipeIngredients {
			lines[j] = IngredientAmount{
				ID:              ri.Ingredient.ID,
				Name:            ri.Ingredient.Name,
				MeasurementUnit: ri.Ingredient.MeasurementUnit,
				Amount:          ri.Amount,
			}
		}
		tags := r.Tags
		if tags == nil {
			tags = []models.Tag{}
		}
		views[i] = RecipeView{
			ID:               r.ID,
			Tags:             tags,
			Author:           authorViews[i],
			Ingredients:      lines,
			IsFavorited:      favorited[r.ID],
			IsInShoppingCart: inCart[r.ID],
			Name:             r.Name,
			Image:            r.Image,
			Text:             r.Text,
			CookingTime:      r.CookingTime,
		}
	}
	return views, nil
}

func canModify(actor Actor, recipe *models.Recipe) bool {
	return recipe.AuthorID == actor.ID || actor.Role == models.RoleAdmin
}

func requireFields(in RecipeUpdate) error {
	missing := &ValidationError{Fields: map[string]string{}}
	for field, present := range map[string]bool{
		"ingredients":  in.Ingredients != nil,
		"tags":         in.Tags != nil,
		"name":         in.Name != nil,
		"text":         in.Text != nil,
		"cooking_time": in.CookingTime != nil,
	} {
		if !present {
			missing.Fields[field] = "This field is required."
		}
	}
	if len(missing.Fields) > 0 {
		return missing
	}
	return nil
}

func currentIngredients(r *models.Recipe) []RecipeIngredientInput {
	out := make([]RecipeIngredientInput, len(r.RecipeIngredients))
	for i, ri := range r.RecipeIngredients {
		out[i] = RecipeIngredientInput{ID: ri.IngredientID, Amount: ri.Amount}
	}
	return out
}

func currentTags(r *models.Recipe) []uint {
	out := make([]uint, len(r.Tags))
	for i, t := range r.Tags {
		out[i] = t.ID
	}
	return out
}

// storageError turns constraint failures that slipped past validation into
// validation errors.
func storageError(err error) error {
	if errors.Is(err, repositories.ErrConstraint) {
		return &ValidationError{Fields: map[string]string{"non_field_errors": "The recipe violates a data constraint."}}
	}
	return err
}
