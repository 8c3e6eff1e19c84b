package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"foodgram/internal/models"
)

// TagRepository defines the interface for tag data access.
type TagRepository interface {
	GetAll(ctx context.Context) ([]models.Tag, error)
	GetByID(ctx context.Context, id uint) (*models.Tag, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Tag, error)
	// CreateBatch inserts tags, skipping slugs that already exist, and
	// reports how many rows were inserted.
	CreateBatch(ctx context.Context, tags []models.Tag) (int64, error)
}

// GORMTagRepository is a GORM implementation of TagRepository.
type GORMTagRepository struct {
	db *gorm.DB
}

// NewGORMTagRepository creates a new instance of GORMTagRepository.
func NewGORMTagRepository(db *gorm.DB) *GORMTagRepository {
	return &GORMTagRepository{db: db}
}

// GetAll returns every tag ordered by id.
func (r *GORMTagRepository) GetAll(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := r.db.WithContext(ctx).Order("id").Find(&tags).Error; err != nil {
		return nil, translate(err, "tags")
	}
	return tags, nil
}

// GetByID returns a single tag.
func (r *GORMTagRepository) GetByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).First(&tag, "id = ?", id).Error; err != nil {
		return nil, translate(err, fmt.Sprintf("tag %d", id))
	}
	return &tag, nil
}

// GetByIDs returns the tags that exist among ids, ordered by id.
func (r *GORMTagRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Tag, error) {
	var tags []models.Tag
	if len(ids) == 0 {
		return tags, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&tags).Error; err != nil {
		return nil, translate(err, "tags")
	}
	return tags, nil
}

// CreateBatch inserts with ON CONFLICT DO NOTHING, so existing slugs are kept as they are.
func (r *GORMTagRepository) CreateBatch(ctx context.Context, tags []models.Tag) (int64, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(tags, 500)
	if res.Error != nil {
		return 0, translate(res.Error, "tags")
	}
	return res.RowsAffected, nil
}
