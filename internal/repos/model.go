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

type ModelRepo interface {
	Create(ctx context.Context, tx *gorm.DB, model *types.Model3D) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Model3D, error)
	GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.Model3D, error)
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error
	All(ctx context.Context, tx *gorm.DB) ([]*types.Model3D, error)
	Clear(ctx context.Context, tx *gorm.DB) error
}

type modelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelRepo(db *gorm.DB, baseLog *logger.Logger) ModelRepo {
	repoLog := baseLog.With("repo", "ModelRepo")
	return &modelRepo{db: db, log: repoLog}
}

func (r *modelRepo) Create(ctx context.Context, tx *gorm.DB, model *types.Model3D) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierr.DuplicateKeyf("model %s already exists", model.ID)
		}
		return apierr.Storage(err)
	}
	return nil
}

func (r *modelRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Model3D, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var model types.Model3D
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierr.Storage(err)
	}
	return &model, nil
}

func (r *modelRepo) GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.Model3D, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Model3D
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *modelRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Model3D{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *modelRepo) DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&types.Model3D{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *modelRepo) All(ctx context.Context, tx *gorm.DB) ([]*types.Model3D, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Model3D
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *modelRepo) Clear(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.Model3D{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}
