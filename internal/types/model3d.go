package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ModelFormat string

const (
	FormatGLB  ModelFormat = "glb"
	FormatGLTF ModelFormat = "gltf"
	FormatOBJ  ModelFormat = "obj"
)

func (f ModelFormat) Valid() bool {
	switch f {
	case FormatGLB, FormatGLTF, FormatOBJ:
		return true
	}
	return false
}

// ModelSource records which reconstruction pipeline produced the asset.
type ModelSource string

const (
	Source3DSingle ModelSource = "3d-single"
	Source3DMulti  ModelSource = "3d-multi"
)

func (s ModelSource) Valid() bool {
	return s == Source3DSingle || s == Source3DMulti
}

type ModelMetadata struct {
	Vertices int `json:"vertices,omitempty"`
	Faces    int `json:"faces,omitempty"`
	FileSize int `json:"fileSize,omitempty"`
}

// Model3D: at most one live record per artifact; saving a replacement deletes
// the superseded row inside the same transaction.
type Model3D struct {
	ID         uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	ArtifactID uuid.UUID                         `gorm:"type:uuid;column:artifact_id;not null;index" json:"artifactId"`
	Blob       []byte                            `gorm:"column:blob;not null" json:"blob"`
	Format     ModelFormat                       `gorm:"column:format;not null" json:"format"`
	CreatedAt  time.Time                         `gorm:"not null;index" json:"createdAt"`
	Source     ModelSource                       `gorm:"column:source;not null" json:"source"`
	Metadata   datatypes.JSONType[ModelMetadata] `gorm:"column:metadata" json:"metadata"`
}

func (Model3D) TableName() string { return "model3d" }
