package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ArtifactStatus string

const (
	StatusDraft          ArtifactStatus = "draft"
	StatusImagesCaptured ArtifactStatus = "images-captured"
	StatusProcessing3D   ArtifactStatus = "processing-3d"
	StatusProcessingInfo ArtifactStatus = "processing-info"
	StatusComplete       ArtifactStatus = "complete"
	StatusError          ArtifactStatus = "error"
)

// Valid reports enum membership. The status is advisory (no transition table
// is enforced), but unknown labels are rejected at the store boundary.
func (s ArtifactStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusImagesCaptured, StatusProcessing3D, StatusProcessingInfo, StatusComplete, StatusError:
		return true
	}
	return false
}

type Coordinates struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

type ArtifactMetadata struct {
	Name              string       `json:"name,omitempty"`
	DiscoveryLocation string       `json:"discoveryLocation,omitempty"`
	ExcavationLayer   string       `json:"excavationLayer,omitempty"`
	SiteName          string       `json:"siteName,omitempty"`
	DateFound         *time.Time   `json:"dateFound,omitempty"`
	Notes             string       `json:"notes,omitempty"`
	Coordinates       *Coordinates `json:"coordinates,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
	// UI partitioning only (save-the-past vs. past-palette flows).
	CaptureMode string `json:"captureMode,omitempty"`
}

// Artifact is the root record. The imageIds/colorVariantIds columns are
// denormalized back-references and must always match the exact set of child
// rows whose artifact_id points here; the store service owns that invariant.
type Artifact struct {
	ID              uuid.UUID                            `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt       time.Time                            `gorm:"not null;index" json:"createdAt"`
	UpdatedAt       time.Time                            `gorm:"not null" json:"updatedAt"`
	Status          ArtifactStatus                       `gorm:"column:status;not null;index" json:"status"`
	ImageIDs        datatypes.JSONSlice[uuid.UUID]       `gorm:"column:image_ids" json:"imageIds"`
	Model3DID       *uuid.UUID                           `gorm:"type:uuid;column:model3d_id" json:"model3DId,omitempty"`
	InfoCardID      *uuid.UUID                           `gorm:"type:uuid;column:info_card_id" json:"infoCardId,omitempty"`
	ColorVariantIDs datatypes.JSONSlice[uuid.UUID]       `gorm:"column:color_variant_ids" json:"colorVariantIds"`
	Metadata        datatypes.JSONType[ArtifactMetadata] `gorm:"column:metadata" json:"metadata"`
	ThumbnailBlob   []byte                               `gorm:"column:thumbnail_blob" json:"thumbnailBlob,omitempty"`
}

func (Artifact) TableName() string { return "artifact" }
