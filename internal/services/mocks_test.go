package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"foodgram/internal/models"
	"foodgram/internal/repositories"
	"foodgram/internal/shoppinglist"
	"foodgram/pkg/rabbitmq"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, page repositories.Page) ([]models.User, int64, error) {
	args := m.Called(ctx, page)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock implementation of repositories.SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, userID, authorID uint) error {
	return m.Called(ctx, userID, authorID).Error(0)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, userID, authorID uint) (bool, error) {
	args := m.Called(ctx, userID, authorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) Exists(ctx context.Context, userID, authorID uint) (bool, error) {
	args := m.Called(ctx, userID, authorID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) FollowedAmong(ctx context.Context, userID uint, authorIDs []uint) (map[uint]bool, error) {
	args := m.Called(ctx, userID, authorIDs)
	return args.Get(0).(map[uint]bool), args.Error(1)
}

func (m *MockSubscriptionRepository) ListAuthors(ctx context.Context, userID uint, page repositories.Page) ([]models.User, int64, error) {
	args := m.Called(ctx, userID, page)
	return args.Get(0).([]models.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockSubscriptionRepository) SubscriberIDs(ctx context.Context, authorID uint) ([]uint, error) {
	args := m.Called(ctx, authorID)
	return args.Get(0).([]uint), args.Error(1)
}

// MockRecipeRepository is a mock implementation of repositories.RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

func (m *MockRecipeRepository) List(ctx context.Context, filter repositories.RecipeFilter, page repositories.Page) ([]models.Recipe, int64, error) {
	args := m.Called(ctx, filter, page)
	return args.Get(0).([]models.Recipe), args.Get(1).(int64), args.Error(2)
}

func (m *MockRecipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) Create(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error {
	return m.Called(ctx, recipe, tagIDs, ingredients).Error(0)
}

func (m *MockRecipeRepository) Update(ctx context.Context, recipe *models.Recipe, tagIDs []uint, ingredients []models.RecipeIngredient) error {
	return m.Called(ctx, recipe, tagIDs, ingredients).Error(0)
}

func (m *MockRecipeRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRecipeRepository) ListByAuthor(ctx context.Context, authorID uint, limit int) ([]models.Recipe, error) {
	args := m.Called(ctx, authorID, limit)
	return args.Get(0).([]models.Recipe), args.Error(1)
}

func (m *MockRecipeRepository) CountByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	args := m.Called(ctx, authorIDs)
	return args.Get(0).(map[uint]int64), args.Error(1)
}

func (m *MockRecipeRepository) ListInShoppingCart(ctx context.Context, userID uint) ([]models.Recipe, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Recipe), args.Error(1)
}

// MockTagRepository is a mock implementation of repositories.TagRepository
type MockTagRepository struct {
	mock.Mock
}

func (m *MockTagRepository) GetAll(ctx context.Context) ([]models.Tag, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockTagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tag), args.Error(1)
}

func (m *MockTagRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Tag), args.Error(1)
}

func (m *MockTagRepository) CreateBatch(ctx context.Context, tags []models.Tag) (int64, error) {
	args := m.Called(ctx, tags)
	return args.Get(0).(int64), args.Error(1)
}

// MockIngredientRepository is a mock implementation of repositories.IngredientRepository
type MockIngredientRepository struct {
	mock.Mock
}

func (m *MockIngredientRepository) Search(ctx context.Context, name string) ([]models.Ingredient, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]models.Ingredient), args.Error(1)
}

func (m *MockIngredientRepository) GetByID(ctx context.Context, id uint) (*models.Ingredient, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ingredient), args.Error(1)
}

func (m *MockIngredientRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Ingredient, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Ingredient), args.Error(1)
}

func (m *MockIngredientRepository) CreateBatch(ctx context.Context, ingredients []models.Ingredient) (int64, error) {
	args := m.Called(ctx, ingredients)
	return args.Get(0).(int64), args.Error(1)
}

// MockRecipeListRepository is a mock implementation of repositories.RecipeListRepository
type MockRecipeListRepository struct {
	mock.Mock
}

func (m *MockRecipeListRepository) Add(ctx context.Context, userID, recipeID uint) error {
	return m.Called(ctx, userID, recipeID).Error(0)
}

func (m *MockRecipeListRepository) Remove(ctx context.Context, userID, recipeID uint) (bool, error) {
	args := m.Called(ctx, userID, recipeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRecipeListRepository) RecipeIDs(ctx context.Context, userID uint, candidates []uint) (map[uint]bool, error) {
	args := m.Called(ctx, userID, candidates)
	return args.Get(0).(map[uint]bool), args.Error(1)
}

// MockImageStore is a mock implementation of storage.ImageStore
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Save(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, name, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Delete(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// MockRenderer is a mock implementation of services.Renderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(items []shoppinglist.Item, username string) ([]byte, error) {
	args := m.Called(items, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockPublisher is a mock implementation of rabbitmq.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishRecipeEvent(ctx context.Context, event rabbitmq.RecipeEvent) error {
	return m.Called(ctx, event).Error(0)
}
