package services

import (
	"context"
	"errors"
	"fmt"

	"foodgram/internal/models"
	"foodgram/internal/repositories"
)

// SubscriptionService manages who follows whom.
type SubscriptionService struct {
	users   repositories.UserRepository
	subs    repositories.SubscriptionRepository
	recipes repositories.RecipeRepository
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(users repositories.UserRepository, subs repositories.SubscriptionRepository, recipes repositories.RecipeRepository) *SubscriptionService {
	return &SubscriptionService{users: users, subs: subs, recipes: recipes}
}

// Subscribe makes actor follow the author. recipesLimit caps the recipe
// preview in the result; zero or less means no cap.
func (s *SubscriptionService) Subscribe(ctx context.Context, actor Actor, authorID uint, recipesLimit int) (*AuthorView, error) {
	if !actor.Authenticated() {
		return nil, ErrUnauthorized
	}
	author, err := s.users.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}
	if author.ID == actor.ID {
		return nil, fieldError("author", "You cannot subscribe to yourself.")
	}
	exists, err := s.subs.Exists(ctx, actor.ID, author.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fieldError("author", "You are already subscribed to this author.")
	}
	if err := s.subs.Create(ctx, actor.ID, author.ID); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fieldError("author", "You are already subscribed to this author.")
		}
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	views, err := s.authorViews(ctx, []models.User{*author}, recipesLimit)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Unsubscribe removes the follow. Not following the author is a validation error.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, actor Actor, authorID uint) error {
	if !actor.Authenticated() {
		return ErrUnauthorized
	}
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		return err
	}
	removed, err := s.subs.Delete(ctx, actor.ID, authorID)
	if err != nil {
		return err
	}
	if !removed {
		return fieldError("author", "You are not subscribed to this author.")
	}
	return nil
}

// List returns one page of the authors actor follows.
func (s *SubscriptionService) List(ctx context.Context, actor Actor, page repositories.Page, recipesLimit int) ([]AuthorView, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, ErrUnauthorized
	}
	authors, total, err := s.subs.ListAuthors(ctx, actor.ID, page)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.authorViews(ctx, authors, recipesLimit)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// authorViews builds views for authors the caller follows.
func (s *SubscriptionService) authorViews(ctx context.Context, authors []models.User, recipesLimit int) ([]AuthorView, error) {
	views := make([]AuthorView, len(authors))
	if len(authors) == 0 {
		return views, nil
	}
	ids := make([]uint, len(authors))
	for i, a := range authors {
		ids[i] = a.ID
	}
	counts, err := s.recipes.CountByAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i, a := range authors {
		recipes, err := s.recipes.ListByAuthor(ctx, a.ID, recipesLimit)
		if err != nil {
			return nil, err
		}
		views[i] = AuthorView{
			UserView:     UserView{User: a, IsSubscribed: true},
			Recipes:      shortRecipes(recipes),
			RecipesCount: counts[a.ID],
		}
	}
	return views, nil
}
