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

type ColorVariantRepo interface {
	Create(ctx context.Context, tx *gorm.DB, variant *types.ColorVariant) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ColorVariant, error)
	GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.ColorVariant, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error
	All(ctx context.Context, tx *gorm.DB) ([]*types.ColorVariant, error)
	Clear(ctx context.Context, tx *gorm.DB) error
}

type colorVariantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewColorVariantRepo(db *gorm.DB, baseLog *logger.Logger) ColorVariantRepo {
	repoLog := baseLog.With("repo", "ColorVariantRepo")
	return &colorVariantRepo{db: db, log: repoLog}
}

func (r *colorVariantRepo) Create(ctx context.Context, tx *gorm.DB, variant *types.ColorVariant) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(variant).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierr.DuplicateKeyf("color variant %s already exists", variant.ID)
		}
		return apierr.Storage(err)
	}
	return nil
}

func (r *colorVariantRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ColorVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var variant types.ColorVariant
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierr.Storage(err)
	}
	return &variant, nil
}

func (r *colorVariantRepo) GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.ColorVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ColorVariant
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *colorVariantRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.ColorVariant{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *colorVariantRepo) DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&types.ColorVariant{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *colorVariantRepo) All(ctx context.Context, tx *gorm.DB) ([]*types.ColorVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ColorVariant
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *colorVariantRepo) Clear(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.ColorVariant{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}
