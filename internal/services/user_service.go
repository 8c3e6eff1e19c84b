package services

import (
	"context"

	"foodgram/internal/models"
	"foodgram/internal/repositories"
)

// UserService serves user profiles as seen by the caller.
type UserService struct {
	users repositories.UserRepository
	subs  repositories.SubscriptionRepository
}

// NewUserService creates a new UserService.
func NewUserService(users repositories.UserRepository, subs repositories.SubscriptionRepository) *UserService {
	return &UserService{users: users, subs: subs}
}

// List returns one page of users with is_subscribed relative to viewer.
func (s *UserService) List(ctx context.Context, viewer Actor, page repositories.Page) ([]UserView, int64, error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.views(ctx, viewer, users)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, viewer Actor, id uint) (*UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, viewer, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *UserService) views(ctx context.Context, viewer Actor, users []models.User) ([]UserView, error) {
	return userViews(ctx, s.subs, viewer, users)
}

func userViews(ctx context.Context, subs repositories.SubscriptionRepository, viewer Actor, users []models.User) ([]UserView, error) {
	views := make([]UserView, len(users))
	if len(users) == 0 {
		return views, nil
	}
	followed := map[uint]bool{}
	if viewer.Authenticated() {
		ids := make([]uint, len(users))
		for i, u := range users {
			ids[i] = u.ID
		}
		var err error
		if followed, err = subs.FollowedAmong(ctx, viewer.ID, ids); err != nil {
			return nil, err
		}
	}
	for i, u := range users {
		views[i] = UserView{User: u, IsSubscribed: followed[u.ID]}
	}
	return views, nil
}
