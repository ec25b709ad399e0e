package types

// ExportBundle is the portable whole-store dump: five named arrays of full
// records. Blobs serialize as base64 through encoding/json.
type ExportBundle struct {
	Artifacts     []*Artifact      `json:"artifacts"`
	Images        []*ArtifactImage `json:"images"`
	Models        []*Model3D       `json:"models"`
	InfoCards     []*InfoCard      `json:"infoCards"`
	ColorVariants []*ColorVariant  `json:"colorVariants"`
}
