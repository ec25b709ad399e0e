package services

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"

	_ "image/png"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"

	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/utils"
)

const thumbnailSize = 256

// ThumbnailService derives the small gallery preview stored on the Artifact:
// either a downscaled crop of the first captured image, or a generated
// initials tile for artifacts that have no image yet.
type ThumbnailService interface {
	// FromImage decodes raw image bytes and returns a compressed square
	// thumbnail plus the source dimensions.
	FromImage(raw []byte) (thumb []byte, width, height int, err error)
	// Placeholder renders a deterministic tile from the artifact name.
	Placeholder(name string) ([]byte, error)
}

type thumbnailService struct {
	log      *logger.Logger
	fontFace font.Face
	palette  []color.NRGBA
}

func NewThumbnailService(log *logger.Logger) ThumbnailService {
	serviceLog := log.With("service", "ThumbnailService")

	var face font.Face
	fontPath := utils.GetEnv("THUMBNAIL_FONT_PATH", "", log)
	if fontPath != "" {
		raw, err := os.ReadFile(fontPath)
		if err != nil {
			serviceLog.Warn("Could not read thumbnail font, placeholders will have no initials", "path", fontPath, "error", err)
		} else if parsed, err := truetype.Parse(raw); err != nil {
			serviceLog.Warn("Could not parse thumbnail font", "path", fontPath, "error", err)
		} else {
			face = truetype.NewFace(parsed, &truetype.Options{Size: 96})
		}
	}

	return &thumbnailService{
		log:      serviceLog,
		fontFace: face,
		palette: []color.NRGBA{
			{R: 0x8d, G: 0x6e, B: 0x63, A: 0xff}, // clay
			{R: 0xa1, G: 0x88, B: 0x7f, A: 0xff}, // sand
			{R: 0x6d, G: 0x4c, B: 0x41, A: 0xff}, // umber
			{R: 0x78, G: 0x90, B: 0x9c, A: 0xff}, // slate
			{R: 0x8e, G: 0x7c, B: 0x54, A: 0xff}, // bronze
		},
	}
}

func (s *thumbnailService) FromImage(raw []byte) ([]byte, int, int, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode image: %w", err)
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Center-crop to a square before scaling so the gallery tiles line up.
	side := width
	if height < side {
		side = height
	}
	x0 := bounds.Min.X + (width-side)/2
	y0 := bounds.Min.Y + (height-side)/2
	cropRect := image.Rect(0, 0, side, side)
	cropped := image.NewRGBA(cropRect)
	draw.Draw(cropped, cropRect, img, image.Point{X: x0, Y: y0}, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, thumbnailSize, thumbnailSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), cropped, cropped.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), width, height, nil
}

func (s *thumbnailService) Placeholder(name string) ([]byte, error) {
	bg := s.palette[hashName(name)%uint32(len(s.palette))]

	dc := gg.NewContext(thumbnailSize, thumbnailSize)
	dc.SetRGBA255(int(bg.R), int(bg.G), int(bg.B), 255)
	dc.Clear()

	if s.fontFace != nil {
		dc.SetFontFace(s.fontFace)
		dc.SetRGB255(0xff, 0xff, 0xff)
		dc.DrawStringAnchored(initials(name), thumbnailSize/2, thumbnailSize/2, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

func hashName(name string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(name))))
	return h.Sum32()
}

func initials(name string) string {
	fields := strings.Fields(strings.TrimSpace(name))
	if len(fields) == 0 {
		return "?"
	}
	out := strings.ToUpper(string([]rune(fields[0])[:1]))
	if len(fields) > 1 {
		out += strings.ToUpper(string([]rune(fields[len(fields)-1])[:1]))
	}
	return out
}
