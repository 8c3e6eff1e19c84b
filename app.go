package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"foodgram/internal/cache"
	"foodgram/internal/config"
	"foodgram/internal/handlers"
	"foodgram/internal/middleware"
	"foodgram/internal/repositories"
	"foodgram/internal/services"
	"foodgram/internal/shoppinglist"
	"foodgram/internal/storage"
	"foodgram/pkg/rabbitmq"
)

// bodyLimit leaves room for base64 images in recipe requests.
const bodyLimit = 16 * 1024 * 1024

// Resources are the external collaborators the HTTP app is built on.
type Resources struct {
	DB     *gorm.DB
	Cache  cache.Cache
	Images storage.ImageStore
	Events rabbitmq.Publisher
	// MediaRoot is served at cfg.MediaURL when images are stored locally.
	MediaRoot string
	// LoginLimiter throttles token requests; a fresh one is made when nil.
	LoginLimiter *middleware.RateLimiter
}

// NewApp wires repositories, services and handlers into a Fiber app.
func NewApp(cfg *config.Config, res Resources) *fiber.App {
	// --- Repositories ---
	userRepo := repositories.NewGORMUserRepository(res.DB)
	tagRepo := repositories.NewGORMTagRepository(res.DB)
	ingredientRepo := repositories.NewGORMIngredientRepository(res.DB)
	recipeRepo := repositories.NewGORMRecipeRepository(res.DB)
	subscriptionRepo := repositories.NewGORMSubscriptionRepository(res.DB)

	// --- Services ---
	authService := services.NewAuthService(userRepo, res.Cache, cfg.JWTSecret, cfg.TokenTTL)
	userService := services.NewUserService(userRepo, subscriptionRepo)
	subscriptionService := services.NewSubscriptionService(userRepo, subscriptionRepo, recipeRepo)
	tagService := services.NewTagService(tagRepo, res.Cache, cfg.CacheTTL)
	ingredientService := services.NewIngredientService(ingredientRepo, res.Cache, cfg.CacheTTL)
	recipeService := services.NewRecipeService(services.RecipeDeps{
		Recipes:       recipeRepo,
		Tags:          tagRepo,
		Ingredients:   ingredientRepo,
		Favorites:     repositories.NewGORMFavoriteRepository(res.DB),
		Cart:          repositories.NewGORMShoppingCartRepository(res.DB),
		Subs:          subscriptionRepo,
		Images:        res.Images,
		Renderer:      shoppinglist.NewPDFRenderer(cfg.PDFFontPath),
		Events:        res.Events,
		ImageMaxWidth: cfg.ImageMaxWidth,
	})

	// --- Handlers ---
	paginator := handlers.Paginator{DefaultSize: cfg.PageSize}
	limiter := res.LoginLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.LoginRatePerMinute)
	}
	authHandler := handlers.NewAuthHandler(authService, limiter)
	userHandler := handlers.NewUserHandler(authService, userService, subscriptionService, paginator)
	catalogueHandler := handlers.NewCatalogueHandler(tagService, ingredientService)
	recipeHandler := handlers.NewRecipeHandler(recipeService, paginator)

	app := fiber.New(fiber.Config{
		AppName:   "foodgram",
		BodyLimit: bodyLimit,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New())

	// --- API Routes ---
	api := app.Group("/api", middleware.AuthOptional(authService))
	authHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	catalogueHandler.RegisterRoutes(api)
	recipeHandler.RegisterRoutes(api)

	if res.MediaRoot != "" {
		app.Static(cfg.MediaURL, res.MediaRoot)
	}

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		status, code := "healthy", fiber.StatusOK
		if err := ping(c.UserContext(), res.DB); err != nil {
			slog.Error("health check failed", "error", err)
			status, code = "unhealthy", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return app
}

func ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
