package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

func (c ConfidenceLevel) Valid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

type EstimatedAge struct {
	Range      string          `json:"range"`
	Confidence ConfidenceLevel `json:"confidence"`
	Reasoning  string          `json:"reasoning,omitempty"`
}

// InfoCard is the persisted AI analysis of one artifact. Disclaimer is
// mandatory: the save path rejects a card without it, the field carries
// legal/ethical meaning and is never defaulted silently at read time.
type InfoCard struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ArtifactID uuid.UUID `gorm:"type:uuid;column:artifact_id;not null;index" json:"artifactId"`
	CreatedAt  time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`

	Material          string                           `gorm:"column:material" json:"material"`
	EstimatedAge      datatypes.JSONType[EstimatedAge] `gorm:"column:estimated_age" json:"estimatedAge"`
	PossibleUse       string                           `gorm:"column:possible_use" json:"possibleUse"`
	CulturalContext   string                           `gorm:"column:cultural_context" json:"culturalContext"`
	SimilarArtifacts  datatypes.JSONSlice[string]      `gorm:"column:similar_artifacts" json:"similarArtifacts"`
	PreservationNotes string                           `gorm:"column:preservation_notes" json:"preservationNotes"`

	AIModel       string  `gorm:"column:ai_model" json:"aiModel"`
	AIConfidence  float64 `gorm:"column:ai_confidence" json:"aiConfidence"`
	IsHumanEdited bool    `gorm:"column:is_human_edited;not null" json:"isHumanEdited"`

	Disclaimer string `gorm:"column:disclaimer;not null" json:"disclaimer"`
}

func (InfoCard) TableName() string { return "info_card" }
