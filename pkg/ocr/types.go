package ocr

import (
	"context"
	"strings"
)

// Media types accepted for upload and normalization.
const (
	MediaJPEG = "image/jpeg"
	MediaPNG  = "image/png"
	MediaWEBP = "image/webp"
	MediaHEIC = "image/heic"
	MediaHEIF = "image/heif"
)

var allowedMedia = map[string]struct{}{
	MediaJPEG: {},
	MediaPNG:  {},
	MediaWEBP: {},
	MediaHEIC: {},
	MediaHEIF: {},
}

// IsAllowedMediaType reports whether mt (parameters ignored) is one of the accepted image types.
func IsAllowedMediaType(mt string) bool {
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = mt[:i]
	}
	_, ok := allowedMedia[strings.ToLower(strings.TrimSpace(mt))]
	return ok
}

// RawImage is an uploaded photo as received.
type RawImage struct {
	Data      []byte
	MediaType string
}

// NormalizedImage is an encoded grayscale image ready for recognition.
type NormalizedImage struct {
	Data   []byte
	Width  int
	Height int
}

// RecognitionResult is the outcome of one orientation attempt.
type RecognitionResult struct {
	Text        string `json:"text"`
	Orientation int    `json:"orientation"`
	Score       int    `json:"score"`
	Err         error  `json:"-"`
}

// VehicleRecord holds the fields parsed from a registration document. Nil means not found.
type VehicleRecord struct {
	Chassis      *string `json:"chasis"`
	Engine       *string `json:"motor"`
	Brand        *string `json:"marca"`
	Model        *string `json:"modelo"`
	Year         *string `json:"anio"`
	Displacement *string `json:"cilindrada"`
	Plate        *string `json:"matricula"`
	Titleholders *string `json:"titulares"`
}

// Recognizer detects full-page text in an encoded image.
type Recognizer interface {
	Name() string
	DetectDocumentText(ctx context.Context, image []byte, languageHints []string) (string, error)
}
