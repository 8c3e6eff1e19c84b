package repositories

import (
	"context"

	"gorm.io/gorm"

	"foodgram/internal/models"
)

// SubscriptionRepository defines the interface for follow relations.
type SubscriptionRepository interface {
	// Create stores the follow. Repeats return ErrDuplicate, self-follows ErrConstraint.
	Create(ctx context.Context, userID, authorID uint) error
	Delete(ctx context.Context, userID, authorID uint) (bool, error)
	Exists(ctx context.Context, userID, authorID uint) (bool, error)
	// FollowedAmong returns which of authorIDs the user follows.
	FollowedAmong(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error)
	// ListAuthors returns one page of followed authors, most recent follow first.
	ListAuthors(ctx context.Context, userID uint, page Page) ([]models.User, int64, error)
	SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error)
}

// GORMSubscriptionRepository is a GORM implementation of SubscriptionRepository.
type GORMSubscriptionRepository struct {
	db *gorm.DB
}

// NewGORMSubscriptionRepository creates a new instance of GORMSubscriptionRepository.
func NewGORMSubscriptionRepository(db *gorm.DB) *GORMSubscriptionRepository {
	return &GORMSubscriptionRepository{db: db}
}

func (r *GORMSubscriptionRepository) Create(ctx context.Context, userID, authorID uint) error {
	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := r.db.WithContext(ctx).Omit("User", "Author").Create(&sub).Error; err != nil {
		return translate(err, "subscription")
	}
	return nil
}

func (r *GORMSubscriptionRepository) Delete(ctx context.Context, userID, authorID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Subscription{})
	if res.Error != nil {
		return false, translate(res.Error, "subscription")
	}
	return res.RowsAffected > 0, nil
}

func (r *GORMSubscriptionRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "subscription")
	}
	return n > 0, nil
}

func (r *GORMSubscriptionRepository) FollowedAmong(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	found := make(map[uint]bool, len(authorIDs))
	if userID == 0 || len(authorIDs) == 0 {
		return found, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ? AND author_id IN ?", userID, authorIDs).
		Pluck("author_id", &ids).Error
	if err != nil {
		return nil, translate(err, "subscriptions")
	}
	for _, id := range ids {
		found[id] = true
	}
	return found, nil
}

func (r *GORMSubscriptionRepository) ListAuthors(ctx context.Context, userID uint, page Page) ([]models.User, int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	if err != nil {
		return nil, 0, translate(err, "subscriptions")
	}

	var authors []models.User
	err = r.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.author_id = users.id").
		Where("subscriptions.user_id = ?", userID).
		Order("subscriptions.id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&authors).Error
	if err != nil {
		return nil, 0, translate(err, "subscriptions")
	}
	return authors, total, nil
}

func (r *GORMSubscriptionRepository) SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("author_id = ?", authorID).
		Order("id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, translate(err, "subscribers")
	}
	return ids, nil
}
