package handlers

import (
	"github.com/gofiber/fiber/v2"

	"foodgram/internal/middleware"
	"foodgram/internal/services"
)

// UserHandler handles HTTP requests for users and subscriptions.
type UserHandler struct {
	auth      *services.AuthService
	users     *services.UserService
	subs      *services.SubscriptionService
	paginator Paginator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(auth *services.AuthService, users *services.UserService, subs *services.SubscriptionService, paginator Paginator) *UserHandler {
	return &UserHandler{auth: auth, users: users, subs: subs, paginator: paginator}
}

// RegisterRoutes registers the user routes. Fixed paths come before /:id.
func (h *UserHandler) RegisterRoutes(router fiber.Router) {
	userRoutes := router.Group("/users")
	userRoutes.Get("/", h.HandleList)
	userRoutes.Post("/", h.HandleRegister)
	userRoutes.Get("/me", middleware.RequireUser, h.HandleMe)
	userRoutes.Post("/set_password", middleware.RequireUser, h.HandleSetPassword)
	userRoutes.Get("/subscriptions", middleware.RequireUser, h.HandleSubscriptions)
	userRoutes.Get("/:id", h.HandleGet)
	userRoutes.Post("/:id/subscribe", middleware.RequireUser, h.HandleSubscribe)
	userRoutes.Delete("/:id/subscribe", middleware.RequireUser, h.HandleUnsubscribe)
}

// HandleList returns one page of users.
func (h *UserHandler) HandleList(c *fiber.Ctx) error {
	page := h.paginator.Page(c)
	users, total, err := h.users.List(c.UserContext(), middleware.CurrentActor(c), page)
	if err != nil {
		return respondError(c, err)
	}
	return h.paginator.Respond(c, page, total, users)
}

// HandleRegister creates a new user.
func (h *UserHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	user, err := h.auth.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// HandleMe returns the current user.
func (h *UserHandler) HandleMe(c *fiber.Ctx) error {
	actor := middleware.CurrentActor(c)
	user, err := h.users.Get(c.UserContext(), actor, actor.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleGet returns a single user.
func (h *UserHandler) HandleGet(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	user, err := h.users.Get(c.UserContext(), middleware.CurrentActor(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// HandleSetPassword changes the current user's password.
func (h *UserHandler) HandleSetPassword(c *fiber.Ctx) error {
	var req services.SetPasswordInput
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.auth.SetPassword(c.UserContext(), middleware.CurrentActor(c).ID, req); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleSubscriptions lists the authors the current user follows.
func (h *UserHandler) HandleSubscriptions(c *fiber.Ctx) error {
	page := h.paginator.Page(c)
	authors, total, err := h.subs.List(c.UserContext(), middleware.CurrentActor(c), page, c.QueryInt("recipes_limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return h.paginator.Respond(c, page, total, authors)
}

// HandleSubscribe follows an author.
func (h *UserHandler) HandleSubscribe(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	author, err := h.subs.Subscribe(c.UserContext(), middleware.CurrentActor(c), id, c.QueryInt("recipes_limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(author)
}

// HandleUnsubscribe stops following an author.
func (h *UserHandler) HandleUnsubscribe(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.subs.Unsubscribe(c.UserContext(), middleware.CurrentActor(c), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
