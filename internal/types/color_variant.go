package types

import (
	"time"

	"github.com/google/uuid"
)

type ColorScheme string

const (
	SchemeRoman        ColorScheme = "roman"
	SchemeGreek        ColorScheme = "greek"
	SchemeEgyptian     ColorScheme = "egyptian"
	SchemeMesopotamian ColorScheme = "mesopotamian"
	SchemeWeathered    ColorScheme = "weathered"
	SchemeOriginal     ColorScheme = "original"
	SchemeCustom       ColorScheme = "custom"
)

func (s ColorScheme) Valid() bool {
	switch s {
	case SchemeRoman, SchemeGreek, SchemeEgyptian, SchemeMesopotamian, SchemeWeathered, SchemeOriginal, SchemeCustom:
		return true
	}
	return false
}

// ColorVariant is an AI-colorized rendition of an artifact image.
// IsSpeculative is forced true on save: colorization is never presented as
// verified fact.
type ColorVariant struct {
	ID         uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ArtifactID uuid.UUID   `gorm:"type:uuid;column:artifact_id;not null;index" json:"artifactId"`
	Blob       []byte      `gorm:"column:blob;not null" json:"blob"`
	CreatedAt  time.Time   `gorm:"not null;index" json:"createdAt"`

	ColorScheme ColorScheme `gorm:"column:color_scheme;not null;index" json:"colorScheme"`
	Prompt      string      `gorm:"column:prompt" json:"prompt"`

	AIModel       string `gorm:"column:ai_model" json:"aiModel"`
	IsSpeculative bool   `gorm:"column:is_speculative;not null" json:"isSpeculative"`
}

func (ColorVariant) TableName() string { return "color_variant" }
