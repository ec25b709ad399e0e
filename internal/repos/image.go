package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
)

type ImageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, image *types.ArtifactImage) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ArtifactImage, error)
	GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.ArtifactImage, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error
	All(ctx context.Context, tx *gorm.DB) ([]*types.ArtifactImage, error)
	Clear(ctx context.Context, tx *gorm.DB) error
}

type imageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewImageRepo(db *gorm.DB, baseLog *logger.Logger) ImageRepo {
	repoLog := baseLog.With("repo", "ImageRepo")
	return &imageRepo{db: db, log: repoLog}
}

func (r *imageRepo) Create(ctx context.Context, tx *gorm.DB, image *types.ArtifactImage) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(image).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierr.DuplicateKeyf("image %s already exists", image.ID)
		}
		return apierr.Storage(err)
	}
	return nil
}

func (r *imageRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ArtifactImage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var image types.ArtifactImage
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierr.Storage(err)
	}
	return &image, nil
}

func (r *imageRepo) GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.ArtifactImage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ArtifactImage
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *imageRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ArtifactImage{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *imageRepo) DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&types.ArtifactImage{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *imageRepo) All(ctx context.Context, tx *gorm.DB) ([]*types.ArtifactImage, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ArtifactImage
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *imageRepo) Clear(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.ArtifactImage{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}
