package types

import (
	"time"

	"github.com/google/uuid"
)

type ImageAngle string

const (
	AngleFront   ImageAngle = "front"
	AngleBack    ImageAngle = "back"
	AngleLeft    ImageAngle = "left"
	AngleRight   ImageAngle = "right"
	AngleTop     ImageAngle = "top"
	AngleBottom  ImageAngle = "bottom"
	AngleDetail  ImageAngle = "detail"
	AngleContext ImageAngle = "context"
)

func (a ImageAngle) Valid() bool {
	switch a {
	case AngleFront, AngleBack, AngleLeft, AngleRight, AngleTop, AngleBottom, AngleDetail, AngleContext:
		return true
	}
	return false
}

// ArtifactImage holds one captured or uploaded photo. Width/Height stay zero
// when the bytes could not be decoded as an image.
type ArtifactImage struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ArtifactID uuid.UUID  `gorm:"type:uuid;column:artifact_id;not null;index" json:"artifactId"`
	Blob       []byte     `gorm:"column:blob;not null" json:"blob"`
	Angle      ImageAngle `gorm:"column:angle;not null;index" json:"angle"`
	CreatedAt  time.Time  `gorm:"not null;index" json:"createdAt"`
	Width      int        `gorm:"column:width" json:"width"`
	Height     int        `gorm:"column:height" json:"height"`
}

func (ArtifactImage) TableName() string { return "artifact_image" }
