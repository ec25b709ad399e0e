package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/relicai/relic-backend/internal/apierr"
	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/repos"
	"github.com/relicai/relic-backend/internal/types"
)

// ArtifactStoreService is the consistency layer over the five entity repos.
// It owns the invariants the repos cannot see: the denormalized imageIds and
// colorVariantIds lists on an Artifact always equal the exact set of child
// rows pointing at it, and a deleted artifact leaves no children behind.
// Every compound mutation runs inside a single gorm transaction, so a failed
// step leaves no partial state visible.
type ArtifactStoreService interface {
	CreateArtifact(ctx context.Context, in CreateArtifactInput) (*types.Artifact, error)
	GetArtifact(ctx context.Context, id uuid.UUID) (*types.Artifact, error)
	ListArtifacts(ctx context.Context) ([]*types.Artifact, error)
	UpdateArtifact(ctx context.Context, id uuid.UUID, upd ArtifactUpdate) (*types.Artifact, error)
	DeleteArtifact(ctx context.Context, id uuid.UUID) error

	AddImage(ctx context.Context, in AddImageInput) (*types.ArtifactImage, error)
	GetImage(ctx context.Context, id uuid.UUID) (*types.ArtifactImage, error)
	GetImagesForArtifact(ctx context.Context, artifactID uuid.UUID) ([]*types.ArtifactImage, error)
	DeleteImage(ctx context.Context, id uuid.UUID) error

	AddColorVariant(ctx context.Context, in AddColorVariantInput) (*types.ColorVariant, error)
	GetColorVariant(ctx context.Context, id uuid.UUID) (*types.ColorVariant, error)
	GetColorVariantsForArtifact(ctx context.Context, artifactID uuid.UUID) ([]*types.ColorVariant, error)
	DeleteColorVariant(ctx context.Context, id uuid.UUID) error

	SaveModel(ctx context.Context, in SaveModelInput) (*types.Model3D, error)
	GetModelForArtifact(ctx context.Context, artifactID uuid.UUID) (*types.Model3D, error)

	SaveInfoCard(ctx context.Context, in SaveInfoCardInput) (*types.InfoCard, error)
	GetInfoCardForArtifact(ctx context.Context, artifactID uuid.UUID) (*types.InfoCard, error)
	UpdateInfoCard(ctx context.Context, id uuid.UUID, upd InfoCardUpdate) (*types.InfoCard, error)
}

type CreateArtifactInput struct {
	ID       uuid.UUID
	Status   types.ArtifactStatus
	Metadata types.ArtifactMetadata
}

type ArtifactUpdate struct {
	Status        *types.ArtifactStatus
	Metadata      *types.ArtifactMetadata
	ThumbnailBlob []byte
}

type AddImageInput struct {
	ArtifactID uuid.UUID
	Blob       []byte
	Angle      types.ImageAngle
}

type AddColorVariantInput struct {
	ArtifactID  uuid.UUID
	Blob        []byte
	ColorScheme types.ColorScheme
	Prompt      string
	AIModel     string
}

type SaveModelInput struct {
	ArtifactID uuid.UUID
	Blob       []byte
	Format     types.ModelFormat
	Source     types.ModelSource
	Metadata   types.ModelMetadata
}

type SaveInfoCardInput struct {
	ArtifactID        uuid.UUID
	Material          string
	EstimatedAge      types.EstimatedAge
	PossibleUse       string
	CulturalContext   string
	SimilarArtifacts  []string
	PreservationNotes string
	AIModel           string
	AIConfidence      float64
	Disclaimer        string
}

type InfoCardUpdate struct {
	Material          *string
	EstimatedAge      *types.EstimatedAge
	PossibleUse       *string
	CulturalContext   *string
	SimilarArtifacts  []string
	PreservationNotes *string
}

type artifactStoreService struct {
	db         *gorm.DB
	log        *logger.Logger
	artifacts  repos.ArtifactRepo
	images     repos.ImageRepo
	models     repos.ModelRepo
	infoCards  repos.InfoCardRepo
	variants   repos.ColorVariantRepo
	thumbnails ThumbnailService
}

func NewArtifactStoreService(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifactRepo repos.ArtifactRepo,
	imageRepo repos.ImageRepo,
	modelRepo repos.ModelRepo,
	infoCardRepo repos.InfoCardRepo,
	variantRepo repos.ColorVariantRepo,
	thumbnails ThumbnailService,
) ArtifactStoreService {
	serviceLog := baseLog.With("service", "ArtifactStoreService")
	return &artifactStoreService{
		db:         db,
		log:        serviceLog,
		artifacts:  artifactRepo,
		images:     imageRepo,
		models:     modelRepo,
		infoCards:  infoCardRepo,
		variants:   variantRepo,
		thumbnails: thumbnails,
	}
}

// =====================================
// Artifacts
// =====================================

func (s *artifactStoreService) CreateArtifact(ctx context.Context, in CreateArtifactInput) (*types.Artifact, error) {
	status := in.Status
	if status == "" {
		status = types.StatusDraft
	}
	if !status.Valid() {
		return nil, apierr.Validationf("unknown artifact status %q", status)
	}
	id := in.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	artifact := &types.Artifact{
		ID:              id,
		CreatedAt:       now,
		UpdatedAt:       now,
		Status:          status,
		ImageIDs:        datatypes.JSONSlice[uuid.UUID]{},
		ColorVariantIDs: datatypes.JSONSlice[uuid.UUID]{},
		Metadata:        datatypes.NewJSONType(in.Metadata),
	}
	if s.thumbnails != nil {
		// Gallery tile until the first image arrives. Best effort.
		if thumb, err := s.thumbnails.Placeholder(in.Metadata.Name); err == nil {
			artifact.ThumbnailBlob = thumb
		}
	}
	if err := s.artifacts.Create(ctx, nil, artifact); err != nil {
		s.log.Error("CreateArtifact failed", "artifact_id", id, "error", err)
		return nil, err
	}
	s.log.Info("Artifact created", "artifact_id", id)
	return artifact, nil
}

// GetArtifact returns (nil, nil) when the id is unknown; absence is not an
// error at this layer.
func (s *artifactStoreService) GetArtifact(ctx context.Context, id uuid.UUID) (*types.Artifact, error) {
	return s.artifacts.GetByID(ctx, nil, id)
}

func (s *artifactStoreService) ListArtifacts(ctx context.Context) ([]*types.Artifact, error) {
	return s.artifacts.GetAll(ctx, nil)
}

func (s *artifactStoreService) UpdateArtifact(ctx context.Context, id uuid.UUID, upd ArtifactUpdate) (*types.Artifact, error) {
	fields := map[string]interface{}{}
	if upd.Status != nil {
		if !upd.Status.Valid() {
			return nil, apierr.Validationf("unknown artifact status %q", *upd.Status)
		}
		fields["status"] = *upd.Status
	}
	if upd.Metadata != nil {
		fields["metadata"] = datatypes.NewJSONType(*upd.Metadata)
	}
	if upd.ThumbnailBlob != nil {
		fields["thumbnail_blob"] = upd.ThumbnailBlob
	}
	if err := s.artifacts.Update(ctx, nil, id, fields); err != nil {
		return nil, err
	}
	return s.artifacts.GetByID(ctx, nil, id)
}

// DeleteArtifact cascades over every child kind and then removes the parent,
// all in one transaction. Unknown ids are a no-op.
func (s *artifactStoreService) DeleteArtifact(ctx context.Context, id uuid.UUID) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.images.DeleteByArtifactID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.models.DeleteByArtifactID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.infoCards.DeleteByArtifactID(ctx, tx, id); err != nil {
			return err
		}
		if err := s.variants.DeleteByArtifactID(ctx, tx, id); err != nil {
			return err
		}
		return s.artifacts.DeleteByID(ctx, tx, id)
	})
	if err != nil {
		s.log.Error("DeleteArtifact failed", "artifact_id", id, "error", err)
		return err
	}
	s.log.Info("Artifact deleted", "artifact_id", id)
	return nil
}

// =====================================
// Images
// =====================================

func (s *artifactStoreService) AddImage(ctx context.Context, in AddImageInput) (*types.ArtifactImage, error) {
	if !in.Angle.Valid() {
		return nil, apierr.Validationf("unknown image angle %q", in.Angle)
	}
	if len(in.Blob) == 0 {
		return nil, apierr.Validationf("image blob is empty")
	}

	image := &types.ArtifactImage{
		ID:         uuid.New(),
		ArtifactID: in.ArtifactID,
		Blob:       in.Blob,
		Angle:      in.Angle,
		CreatedAt:  time.Now().UTC(),
	}

	// Thumbnail and dimensions are derived outside the transaction; decode
	// failures are tolerated (width/height stay zero).
	var thumb []byte
	if s.thumbnails != nil {
		t, w, h, err := s.thumbnails.FromImage(in.Blob)
		if err == nil {
			thumb = t
			image.Width = w
			image.Height = h
		} else {
			s.log.Warn("Image bytes not decodable, storing without dimensions", "artifact_id", in.ArtifactID, "error", err)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		artifact, err := s.artifacts.GetByIDForUpdate(ctx, tx, in.ArtifactID)
		if err != nil {
			return err
		}
		if artifact == nil {
			return apierr.OrphanChildf("artifact %s does not exist, refusing to create orphan image", in.ArtifactID)
		}
		if err := s.images.Create(ctx, tx, image); err != nil {
			return err
		}
		fields := map[string]interface{}{
			"image_ids": append(artifact.ImageIDs, image.ID),
		}
		// First image becomes the artifact thumbnail.
		if len(artifact.ImageIDs) == 0 && thumb != nil {
			fields["thumbnail_blob"] = thumb
		}
		return s.artifacts.Update(ctx, tx, in.ArtifactID, fields)
	})
	if err != nil {
		s.log.Error("AddImage failed", "artifact_id", in.ArtifactID, "error", err)
		return nil, err
	}
	s.log.Info("Image added", "artifact_id", in.ArtifactID, "image_id", image.ID, "angle", in.Angle)
	return image, nil
}

func (s *artifactStoreService) GetImage(ctx context.Context, id uuid.UUID) (*types.ArtifactImage, error) {
	return s.images.GetByID(ctx, nil, id)
}

func (s *artifactStoreService) GetImagesForArtifact(ctx context.Context, artifactID uuid.UUID) ([]*types.ArtifactImage, error) {
	return s.images.GetByArtifactID(ctx, nil, artifactID)
}

// DeleteImage drops the parent's back-reference before the image row itself:
// if the transaction could ever surface partially, a reference whose target
// still exists is detectable, a reference to a deleted row is not.
func (s *artifactStoreService) DeleteImage(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		image, err := s.images.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if image == nil {
			return nil
		}
		artifact, err := s.artifacts.GetByIDForUpdate(ctx, tx, image.ArtifactID)
		if err != nil {
			return err
		}
		if artifact != nil {
			fields := map[string]interface{}{
				"image_ids": removeID(artifact.ImageIDs, id),
			}
			if err := s.artifacts.Update(ctx, tx, image.ArtifactID, fields); err != nil {
				return err
			}
		}
		return s.images.DeleteByID(ctx, tx, id)
	})
}

// =====================================
// Color variants
// =====================================

func (s *artifactStoreService) AddColorVariant(ctx context.Context, in AddColorVariantInput) (*types.ColorVariant, error) {
	if !in.ColorScheme.Valid() {
		return nil, apierr.Validationf("unknown color scheme %q", in.ColorScheme)
	}
	if in.ColorScheme == types.SchemeCustom && in.Prompt == "" {
		return nil, apierr.Validationf("custom color scheme requires a prompt")
	}
	if len(in.Blob) == 0 {
		return nil, apierr.Validationf("variant blob is empty")
	}

	variant := &types.ColorVariant{
		ID:            uuid.New(),
		ArtifactID:    in.ArtifactID,
		Blob:          in.Blob,
		CreatedAt:     time.Now().UTC(),
		ColorScheme:   in.ColorScheme,
		Prompt:        in.Prompt,
		AIModel:       in.AIModel,
		IsSpeculative: true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		artifact, err := s.artifacts.GetByIDForUpdate(ctx, tx, in.ArtifactID)
		if err != nil {
			return err
		}
		if artifact == nil {
			return apierr.OrphanChildf("artifact %s does not exist, refusing to create orphan color variant", in.ArtifactID)
		}
		if err := s.variants.Create(ctx, tx, variant); err != nil {
			return err
		}
		fields := map[string]interface{}{
			"color_variant_ids": append(artifact.ColorVariantIDs, variant.ID),
		}
		return s.artifacts.Update(ctx, tx, in.ArtifactID, fields)
	})
	if err != nil {
		s.log.Error("AddColorVariant failed", "artifact_id", in.ArtifactID, "error", err)
		return nil, err
	}
	s.log.Info("Color variant added", "artifact_id", in.ArtifactID, "variant_id", variant.ID, "scheme", in.ColorScheme)
	return variant, nil
}

func (s *artifactStoreService) GetColorVariant(ctx context.Context, id uuid.UUID) (*types.ColorVariant, error) {
	return s.variants.GetByID(ctx, nil, id)
}

func (s *artifactStoreService) GetColorVariantsForArtifact(ctx context.Context, artifactID uuid.UUID) ([]*types.ColorVariant, error) {
	return s.variants.GetByArtifactID(ctx, nil, artifactID)
}

func (s *artifactStoreService) DeleteColorVariant(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		variant, err := s.variants.GetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if variant == nil {
			return nil
		}
		artifact, err := s.artifacts.GetByIDForUpdate(ctx, tx, variant.ArtifactID)
		if err != nil {
			return err
		}
		if artifact != nil {
			fields := map[string]interface{}{
				"color_variant_ids": removeID(artifact.ColorVariantIDs, id),
			}
			if err := s.artifacts.Update(ctx, tx, variant.ArtifactID, fields); err != nil {
				return err
			}
		}
		return s.variants.DeleteByID(ctx, tx, id)
	})
}

// =====================================
// 3D model
// =====================================

// SaveModel replaces any previous reconstruction: the superseded Model3D row
// is deleted in the same transaction, so regenerating never leaks storage.
func (s *artifactStoreService) SaveModel(ctx context.Context, in SaveModelInput) (*types.Model3D, error) {
	if !in.Format.Valid() {
		return nil, apierr.Validationf("unknown model format %q", in.Format)
	}
	if !in.Source.Valid() {
		return nil, apierr.Validationf("unknown model source %q", in.Source)
	}
	if len(in.Blob) == 0 {
		return nil, apierr.Validationf("model blob is empty")
	}

	model := &types.Model3D{
		ID:         uuid.New(),
		ArtifactID: in.ArtifactID,
		Blob:       in.Blob,
		Format:     in.Format,
		CreatedAt:  time.Now().UTC(),
		Source:     in.Source,
		Metadata:   datatypes.NewJSONType(in.Metadata),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		artifact, err := s.artifacts.GetByIDForUpdate(ctx, tx, in.ArtifactID)
		if err != nil {
			return err
		}
		if artifact == nil {
			return apierr.OrphanChildf("artifact %s does not exist, refusing to create orphan model", in.ArtifactID)
		}
		if err := s.models.DeleteByArtifactID(ctx, tx, in.ArtifactID); err != nil {
			return err
		}
		if err := s.models.Create(ctx, tx, model); err != nil {
			return err
		}
		fields := map[string]interface{}{
			"model3d_id": model.ID,
		}
		return s.artifacts.Update(ctx, tx, in.ArtifactID, fields)
	})
	if err != nil {
		s.log.Error("SaveModel failed", "artifact_id", in.ArtifactID, "error", err)
		return nil, err
	}
	s.log.Info("Model saved", "artifact_id", in.ArtifactID, "model_id", model.ID, "format", in.Format, "source", in.Source)
	return model, nil
}

func (s *artifactStoreService) GetModelForArtifact(ctx context.Context, artifactID uuid.UUID) (*types.Model3D, error) {
	models, err := s.models.GetByArtifactID(ctx, nil, artifactID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	return models[0], nil
}

// =====================================
// Info card
// =====================================

func (s *artifactStoreService) SaveInfoCard(ctx context.Context, in SaveInfoCardInput) (*types.InfoCard, error) {
	// The disclaimer carries legal/ethical meaning; a card without one is
	// rejected before anything is written.
	if in.Disclaimer == "" {
		return nil, apierr.Validationf("info card disclaimer must not be empty")
	}
	if in.EstimatedAge.Confidence != "" && !in.EstimatedAge.Confidence.Valid() {
		return nil, apierr.Validationf("unknown confidence level %q", in.EstimatedAge.Confidence)
	}

	now := time.Now().UTC()
	card := &types.InfoCard{
		ID:                uuid.New(),
		ArtifactID:        in.ArtifactID,
		CreatedAt:         now,
		UpdatedAt:         now,
		Material:          in.Material,
		EstimatedAge:      datatypes.NewJSONType(in.EstimatedAge),
		PossibleUse:       in.PossibleUse,
		CulturalContext:   in.CulturalContext,
		SimilarArtifacts:  datatypes.JSONSlice[string](in.SimilarArtifacts),
		PreservationNotes: in.PreservationNotes,
		AIModel:           in.AIModel,
		AIConfidence:      in.AIConfidence,
		IsHumanEdited:     false,
		Disclaimer:        in.Disclaimer,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		artifact, err := s.artifacts.GetByIDForUpdate(ctx, tx, in.ArtifactID)
		if err != nil {
			return err
		}
		if artifact == nil {
			return apierr.OrphanChildf("artifact %s does not exist, refusing to create orphan info card", in.ArtifactID)
		}
		// At most one card per artifact: regenerating replaces the old row.
		if err := s.infoCards.DeleteByArtifactID(ctx, tx, in.ArtifactID); err != nil {
			return err
		}
		if err := s.infoCards.Create(ctx, tx, card); err != nil {
			return err
		}
		fields := map[string]interface{}{
			"info_card_id": card.ID,
		}
		return s.artifacts.Update(ctx, tx, in.ArtifactID, fields)
	})
	if err != nil {
		s.log.Error("SaveInfoCard failed", "artifact_id", in.ArtifactID, "error", err)
		return nil, err
	}
	s.log.Info("Info card saved", "artifact_id", in.ArtifactID, "card_id", card.ID)
	return card, nil
}

func (s *artifactStoreService) GetInfoCardForArtifact(ctx context.Context, artifactID uuid.UUID) (*types.InfoCard, error) {
	cards, err := s.infoCards.GetByArtifactID(ctx, nil, artifactID)
	if err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}
	return cards[0], nil
}

// UpdateInfoCard merges a user edit. Any edit marks the card as human edited,
// so AI output is never silently passed off as reviewed.
func (s *artifactStoreService) UpdateInfoCard(ctx context.Context, id uuid.UUID, upd InfoCardUpdate) (*types.InfoCard, error) {
	fields := map[string]interface{}{
		"is_human_edited": true,
	}
	if upd.Material != nil {
		fields["material"] = *upd.Material
	}
	if upd.EstimatedAge != nil {
		if upd.EstimatedAge.Confidence != "" && !upd.EstimatedAge.Confidence.Valid() {
			return nil, apierr.Validationf("unknown confidence level %q", upd.EstimatedAge.Confidence)
		}
		fields["estimated_age"] = datatypes.NewJSONType(*upd.EstimatedAge)
	}
	if upd.PossibleUse != nil {
		fields["possible_use"] = *upd.PossibleUse
	}
	if upd.CulturalContext != nil {
		fields["cultural_context"] = *upd.CulturalContext
	}
	if upd.SimilarArtifacts != nil {
		fields["similar_artifacts"] = datatypes.JSONSlice[string](upd.SimilarArtifacts)
	}
	if upd.PreservationNotes != nil {
		fields["preservation_notes"] = *upd.PreservationNotes
	}
	if err := s.infoCards.Update(ctx, nil, id, fields); err != nil {
		return nil, err
	}
	return s.infoCards.GetByID(ctx, nil, id)
}

func removeID(ids datatypes.JSONSlice[uuid.UUID], id uuid.UUID) datatypes.JSONSlice[uuid.UUID] {
	out := make(datatypes.JSONSlice[uuid.UUID], 0, len(ids))
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
