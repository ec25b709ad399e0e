package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/repos"
	"github.com/relicai/relic-backend/internal/types"
)

// ExportService produces whole-store snapshots and the destructive reset.
// Both run inside one transaction: the export is a consistent point-in-time
// view, and a failed clear leaves the store untouched.
type ExportService interface {
	ExportAll(ctx context.Context) (*types.ExportBundle, error)
	ClearAll(ctx context.Context) error
}

type exportService struct {
	db        *gorm.DB
	log       *logger.Logger
	artifacts repos.ArtifactRepo
	images    repos.ImageRepo
	models    repos.ModelRepo
	infoCards repos.InfoCardRepo
	variants  repos.ColorVariantRepo
}

func NewExportService(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifactRepo repos.ArtifactRepo,
	imageRepo repos.ImageRepo,
	modelRepo repos.ModelRepo,
	infoCardRepo repos.InfoCardRepo,
	variantRepo repos.ColorVariantRepo,
) ExportService {
	serviceLog := baseLog.With("service", "ExportService")
	return &exportService{
		db:        db,
		log:       serviceLog,
		artifacts: artifactRepo,
		images:    imageRepo,
		models:    modelRepo,
		infoCards: infoCardRepo,
		variants:  variantRepo,
	}
}

func (s *exportService) ExportAll(ctx context.Context) (*types.ExportBundle, error) {
	bundle := &types.ExportBundle{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if bundle.Artifacts, err = s.artifacts.GetAll(ctx, tx); err != nil {
			return err
		}
		if bundle.Images, err = s.images.All(ctx, tx); err != nil {
			return err
		}
		if bundle.Models, err = s.models.All(ctx, tx); err != nil {
			return err
		}
		if bundle.InfoCards, err = s.infoCards.All(ctx, tx); err != nil {
			return err
		}
		if bundle.ColorVariants, err = s.variants.All(ctx, tx); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		s.log.Error("ExportAll failed", "error", err)
		return nil, err
	}
	s.log.Info("Store exported",
		"artifacts", len(bundle.Artifacts),
		"images", len(bundle.Images),
		"models", len(bundle.Models),
		"info_cards", len(bundle.InfoCards),
		"color_variants", len(bundle.ColorVariants),
	)
	return bundle, nil
}

func (s *exportService) ClearAll(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.images.Clear(ctx, tx); err != nil {
			return err
		}
		if err := s.models.Clear(ctx, tx); err != nil {
			return err
		}
		if err := s.infoCards.Clear(ctx, tx); err != nil {
			return err
		}
		if err := s.variants.Clear(ctx, tx); err != nil {
			return err
		}
		return s.artifacts.Clear(ctx, tx)
	})
	if err != nil {
		s.log.Error("ClearAll failed", "error", err)
		return err
	}
	s.log.Info("Store cleared")
	return nil
}
