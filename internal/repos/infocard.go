package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
)

type InfoCardRepo interface {
	Create(ctx context.Context, tx *gorm.DB, card *types.InfoCard) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.InfoCard, error)
	GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.InfoCard, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error
	All(ctx context.Context, tx *gorm.DB) ([]*types.InfoCard, error)
	Clear(ctx context.Context, tx *gorm.DB) error
}

type infoCardRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInfoCardRepo(db *gorm.DB, baseLog *logger.Logger) InfoCardRepo {
	repoLog := baseLog.With("repo", "InfoCardRepo")
	return &infoCardRepo{db: db, log: repoLog}
}

func (r *infoCardRepo) Create(ctx context.Context, tx *gorm.DB, card *types.InfoCard) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(card).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierr.DuplicateKeyf("info card %s already exists", card.ID)
		}
		return apierr.Storage(err)
	}
	return nil
}

func (r *infoCardRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.InfoCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var card types.InfoCard
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierr.Storage(err)
	}
	return &card, nil
}

func (r *infoCardRepo) GetByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) ([]*types.InfoCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.InfoCard
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *infoCardRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	existing, err := r.GetByID(ctx, transaction, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apierr.NotFoundf("info card %s not found", id)
	}
	// Copy before stamping updated_at; the caller's map stays untouched.
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()
	if err := transaction.WithContext(ctx).
		Model(&types.InfoCard{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *infoCardRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.InfoCard{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *infoCardRepo) DeleteByArtifactID(ctx context.Context, tx *gorm.DB, artifactID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Delete(&types.InfoCard{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *infoCardRepo) All(ctx context.Context, tx *gorm.DB) ([]*types.InfoCard, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.InfoCard
	if err := transaction.WithContext(ctx).Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *infoCardRepo) Clear(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.InfoCard{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}
