package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"foodgram/internal/models"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create inserts a new user. Email and username collisions return ErrDuplicate.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "user")
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *GORMUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, fmt.Sprintf("user %d", id), "id = ?", id)
}

// GetByEmail retrieves a user by their email.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "user with email "+email, "email = ?", email)
}

// GetByUsername retrieves a user by their username.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "user "+username, "username = ?", username)
}

func (r *GORMUserRepository) first(ctx context.Context, what string, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, args...).First(&user).Error; err != nil {
		return nil, translate(err, what)
	}
	return &user, nil
}

// List returns one page of users ordered by id and the total count.
func (r *GORMUserRepository) List(ctx context.Context, page Page) ([]models.User, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, translate(err, "users")
	}

	var users []models.User
	err := r.db.WithContext(ctx).
		Order("id").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&users).Error
	if err != nil {
		return nil, 0, translate(err, "users")
	}
	return users, total, nil
}

// UpdatePassword stores a new password hash.
func (r *GORMUserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", hash)
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d %w", id, ErrNotFound)
	}
	return nil
}
