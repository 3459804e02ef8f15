package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	_ "github.com/gen2brain/heic"
	_ "golang.org/x/image/webp"
)

// Normalizer prepares photos for recognition.
type Normalizer struct {
	MaxWidth    int
	Brightness  float64
	Saturation  float64 // percentage, see imaging.AdjustSaturation
	JPEGQuality int
}

// NewNormalizer returns a Normalizer with the default document settings.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		MaxWidth:    1600,
		Brightness:  1.08,
		Saturation:  15,
		JPEGQuality: 92,
	}
}

// Normalize auto-orients, downscales, converts to grayscale, stretches the histogram and
// applies the brightness/saturation modulation. The result is a fully encoded JPEG.
func (n *Normalizer) Normalize(raw RawImage) (NormalizedImage, error) {
	if !IsAllowedMediaType(raw.MediaType) {
		return NormalizedImage{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw.MediaType)
	}
	img, err := imaging.Decode(bytes.NewReader(raw.Data), imaging.AutoOrientation(true))
	if err != nil {
		return NormalizedImage{}, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	if n.MaxWidth > 0 && img.Bounds().Dx() > n.MaxWidth {
		img = imaging.Resize(img, n.MaxWidth, 0, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)
	gray = stretchHistogram(gray, 0.01, 0.99)
	if n.Brightness > 0 && n.Brightness != 1 {
		gray = multiplyBrightness(gray, n.Brightness)
	}
	if n.Saturation != 0 {
		gray = imaging.AdjustSaturation(gray, n.Saturation)
	}

	data, err := encodeGray(gray, n.JPEGQuality)
	if err != nil {
		return NormalizedImage{}, err
	}
	b := gray.Bounds()
	return NormalizedImage{Data: data, Width: b.Dx(), Height: b.Dy()}, nil
}

// stretchHistogram maps the [lowPct, highPct] luminance percentiles to the full 0..255 range.
func stretchHistogram(img *image.NRGBA, lowPct, highPct float64) *image.NRGBA {
	hist := imaging.Histogram(img)
	lo, hi := -1, -1
	var cum float64
	for i, p := range hist {
		cum += p
		if lo < 0 && cum >= lowPct {
			lo = i
		}
		if hi < 0 && cum >= highPct {
			hi = i
			break
		}
	}
	if lo < 0 || hi <= lo {
		return img
	}
	scale := 255.0 / float64(hi-lo)
	var lut [256]uint8
	for i := range lut {
		v := (float64(i) - float64(lo)) * scale
		lut[i] = clamp8(v)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

func multiplyBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(float64(i) * factor)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// encodeGray writes img as a single-channel JPEG.
func encodeGray(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, g, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}
	return buf.Bytes(), nil
}
