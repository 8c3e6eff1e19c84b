package handlers

import (
	"github.com/gofiber/fiber/v2"

	"foodgram/internal/services"
)

// CatalogueHandler serves the read-only tag and ingredient lists.
type CatalogueHandler struct {
	tags        *services.TagService
	ingredients *services.IngredientService
}

// NewCatalogueHandler creates a new CatalogueHandler.
func NewCatalogueHandler(tags *services.TagService, ingredients *services.IngredientService) *CatalogueHandler {
	return &CatalogueHandler{tags: tags, ingredients: ingredients}
}

// RegisterRoutes registers the tag and ingredient routes.
func (h *CatalogueHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/tags", h.HandleListTags)
	router.Get("/tags/:id", h.HandleGetTag)
	router.Get("/ingredients", h.HandleSearchIngredients)
	router.Get("/ingredients/:id", h.HandleGetIngredient)
}

// HandleListTags returns every tag.
func (h *CatalogueHandler) HandleListTags(c *fiber.Ctx) error {
	tags, err := h.tags.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tags)
}

// HandleGetTag returns a single tag.
func (h *CatalogueHandler) HandleGetTag(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	tag, err := h.tags.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tag)
}

// HandleSearchIngredients filters ingredients by ?name=.
func (h *CatalogueHandler) HandleSearchIngredients(c *fiber.Ctx) error {
	ingredients, err := h.ingredients.Search(c.UserContext(), c.Query("name"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ingredients)
}

// HandleGetIngredient returns a single ingredient.
func (h *CatalogueHandler) HandleGetIngredient(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	ingredient, err := h.ingredients.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ingredient)
}
