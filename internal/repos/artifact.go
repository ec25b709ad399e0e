package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
)

type ArtifactRepo interface {
	Create(ctx context.Context, tx *gorm.DB, artifact *types.Artifact) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error)
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error)
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Artifact, error)
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
	DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Clear(ctx context.Context, tx *gorm.DB) error
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	repoLog := baseLog.With("repo", "ArtifactRepo")
	return &artifactRepo{db: db, log: repoLog}
}

func (r *artifactRepo) Create(ctx context.Context, tx *gorm.DB, artifact *types.Artifact) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(artifact).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apierr.DuplicateKeyf("artifact %s already exists", artifact.ID)
		}
		return apierr.Storage(err)
	}
	return nil
}

func (r *artifactRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var artifact types.Artifact
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierr.Storage(err)
	}
	return &artifact, nil
}

// GetByIDForUpdate reads the artifact holding a row lock until the enclosing
// transaction ends, so a read-modify-write of the denormalized lists cannot
// race a concurrent one. sqlite has no FOR UPDATE syntax; its single write
// connection already serializes whole transactions, so the clause is only
// added on other dialects.
func (r *artifactRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if transaction.Dialector.Name() != "sqlite" {
		transaction = transaction.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var artifact types.Artifact
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&artifact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apierr.Storage(err)
	}
	return &artifact, nil
}

// GetAll returns the canonical gallery order: most recently created first.
func (r *artifactRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.Artifact, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Artifact
	if err := transaction.WithContext(ctx).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, apierr.Storage(err)
	}
	return results, nil
}

func (r *artifactRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	existing, err := r.GetByID(ctx, transaction, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apierr.NotFoundf("artifact %s not found", id)
	}
	// Copy before stamping updated_at; the caller's map stays untouched.
	updates := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now().UTC()
	if err := transaction.WithContext(ctx).
		Model(&types.Artifact{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

// DeleteByID is idempotent: deleting an id that is already gone is a no-op.
func (r *artifactRepo) DeleteByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Artifact{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}

func (r *artifactRepo) Clear(ctx context.Context, tx *gorm.DB) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Where("1 = 1").
		Delete(&types.Artifact{}).Error; err != nil {
		return apierr.Storage(err)
	}
	return nil
}
