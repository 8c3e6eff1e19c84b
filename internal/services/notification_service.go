package services

import (
	"context"
	"log/slog"

	"foodgram/internal/repositories"
	"foodgram/pkg/rabbitmq"
)

// NotificationService tells subscribers about new recipes from authors they follow.
type NotificationService struct {
	subs   repositories.SubscriptionRepository
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(subs repositories.SubscriptionRepository, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{subs: subs, logger: logger}
}

// HandleRecipeEvent notifies every subscriber of the author on recipe.created.
// Other event types are acknowledged without action.
func (s *NotificationService) HandleRecipeEvent(ctx context.Context, event rabbitmq.RecipeEvent) error {
	if event.Type != rabbitmq.RecipeCreated {
		return nil
	}
	subscribers, err := s.subs.SubscriberIDs(ctx, event.AuthorID)
	if err != nil {
		return err
	}
	for _, id := range subscribers {
		s.logger.InfoContext(ctx, "new recipe from followed author",
			"subscriber_id", id,
			"author_id", event.AuthorID,
			"recipe_id", event.RecipeID,
			"recipe", event.Name,
		)
	}
	return nil
}
