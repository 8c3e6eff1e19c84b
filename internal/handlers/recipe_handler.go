package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"foodgram/internal/middleware"
	"foodgram/internal/services"
)

// RecipeHandler handles HTTP requests for recipes, favorites and the shopping cart.
type RecipeHandler struct {
	service   *services.RecipeService
	paginator Paginator
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(service *services.RecipeService, paginator Paginator) *RecipeHandler {
	return &RecipeHandler{service: service, paginator: paginator}
}

// RegisterRoutes registers the recipe routes. download_shopping_cart must
// precede /:id.
func (h *RecipeHandler) RegisterRoutes(router fiber.Router) {
	recipeRoutes := router.Group("/recipes")
	recipeRoutes.Get("/", h.HandleList)
	recipeRoutes.Post("/", middleware.RequireUser, h.HandleCreate)
	recipeRoutes.Get("/download_shopping_cart", middleware.RequireUser, h.HandleDownloadShoppingCart)
	recipeRoutes.Get("/:id", h.HandleGet)
	recipeRoutes.Put("/:id", middleware.RequireUser, h.HandleUpdate(false))
	recipeRoutes.Patch("/:id", middleware.RequireUser, h.HandleUpdate(true))
	recipeRoutes.Delete("/:id", middleware.RequireUser, h.HandleDelete)
	recipeRoutes.Post("/:id/favorite", middleware.RequireUser, h.HandleFavorite)
	recipeRoutes.Delete("/:id/favorite", middleware.RequireUser, h.HandleUnfavorite)
	recipeRoutes.Post("/:id/shopping_cart", middleware.RequireUser, h.HandleAddToCart)
	recipeRoutes.Delete("/:id/shopping_cart", middleware.RequireUser, h.HandleRemoveFromCart)
}

// HandleList returns one page of recipes matching the query filters.
func (h *RecipeHandler) HandleList(c *fiber.Ctx) error {
	q := services.RecipeQuery{
		AuthorID:         uint(max(c.QueryInt("author", 0), 0)),
		IsFavorited:      flagQuery(c, "is_favorited"),
		IsInShoppingCart: flagQuery(c, "is_in_shopping_cart"),
	}
	for _, slug := range c.Context().QueryArgs().PeekMulti("tags") {
		if s := strings.TrimSpace(string(slug)); s != "" {
			q.Tags = append(q.Tags, s)
		}
	}

	page := h.paginator.Page(c)
	recipes, total, err := h.service.List(c.UserContext(), middleware.CurrentActor(c), q, page)
	if err != nil {
		return respondError(c, err)
	}
	return h.paginator.Respond(c, page, total, recipes)
}

// flagQuery parses 1/0 (or true/false). Other values are treated as absent.
func flagQuery(c *fiber.Ctx, key string) *bool {
	var v bool
	switch strings.ToLower(c.Query(key)) {
	case "1", "true":
		v = true
	case "0", "false":
		v = false
	default:
		return nil
	}
	return &v
}

// HandleGet returns a single recipe.
func (h *RecipeHandler) HandleGet(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	recipe, err := h.service.Get(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(recipe)
}

// HandleCreate publishes a new recipe.
func (h *RecipeHandler) HandleCreate(c *fiber.Ctx) error {
	var req services.RecipeInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	recipe, err := h.service.Create(c.UserContext(), middleware.CurrentActor(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(recipe)
}

// HandleUpdate serves PUT (partial=false) and PATCH (partial=true).
func (h *RecipeHandler) HandleUpdate(partial bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := idParam(c)
		if err != nil {
			return respondError(c, err)
		}
		var req services.RecipeUpdate
		if err := c.BodyParser(&req); err != nil {
			return badBody(c, err)
		}
		recipe, err := h.service.Update(c.UserContext(), middleware.CurrentActor(c), id, req, partial)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(recipe)
	}
}

// HandleDelete removes a recipe.
func (h *RecipeHandler) HandleDelete(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.service.Delete(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleFavorite adds a recipe to favorites.
func (h *RecipeHandler) HandleFavorite(c *fiber.Ctx) error {
	return h.addTo(c, h.service.AddFavorite)
}

// HandleUnfavorite removes a recipe from favorites.
func (h *RecipeHandler) HandleUnfavorite(c *fiber.Ctx) error {
	return h.removeFrom(c, h.service.RemoveFavorite)
}

// HandleAddToCart adds a recipe to the shopping cart.
func (h *RecipeHandler) HandleAddToCart(c *fiber.Ctx) error {
	return h.addTo(c, h.service.AddToCart)
}

// HandleRemoveFromCart removes a recipe from the shopping cart.
func (h *RecipeHandler) HandleRemoveFromCart(c *fiber.Ctx) error {
	return h.removeFrom(c, h.service.RemoveFromCart)
}

func (h *RecipeHandler) addTo(c *fiber.Ctx, add func(ctx context.Context, actor services.Actor, id uint) (*services.RecipeShort, error)) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	short, err := add(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(short)
}

func (h *RecipeHandler) removeFrom(c *fiber.Ctx, remove func(ctx context.Context, actor services.Actor, id uint) error) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := remove(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleDownloadShoppingCart sends the aggregated shopping list as a PDF.
func (h *RecipeHandler) HandleDownloadShoppingCart(c *fiber.Ctx) error {
	doc, filename, err := h.service.DownloadShoppingList(c.UserContext(), middleware.CurrentActor(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(doc)
}
