package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"sort"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// markedDoc is a white 80x40 image with a black 20x20 block in the top-left corner, so the
// orientation a recognizer receives can be read back from the pixels.
func markedDoc() *image.NRGBA {
	img := imaging.New(80, 40, color.NRGBA{255, 255, 255, 255})
	black := imaging.New(20, 20, color.NRGBA{0, 0, 0, 255})
	return imaging.Paste(img, black, image.Pt(0, 0))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func normalizedDoc(t *testing.T) NormalizedImage {
	t.Helper()
	data, err := encodeGray(markedDoc(), 92)
	require.NoError(t, err)
	return NormalizedImage{Data: data, Width: 80, Height: 40}
}

// orientationOf locates the black marker and maps its corner back to the applied rotation.
func orientationOf(data []byte) int {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return -1
	}
	b := img.Bounds()
	dark := func(x, y int) bool {
		r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return r>>8 < 128
	}
	w, h := b.Dx(), b.Dy()
	switch {
	case dark(5, 5):
		return 0
	case dark(w-6, 5):
		return 90
	case dark(w-6, h-6):
		return 180
	case dark(5, h-6):
		return 270
	}
	return -1
}

type fakeRecognizer struct {
	mu    sync.Mutex
	calls []int
	hints [][]string
	texts map[int]string
	errs  map[int]error
	block bool
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) DetectDocumentText(ctx context.Context, img []byte, hints []string) (string, error) {
	deg := orientationOf(img)
	f.mu.Lock()
	f.calls = append(f.calls, deg)
	f.hints = append(f.hints, hints)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err := f.errs[deg]; err != nil {
		return "", err
	}
	return f.texts[deg], nil
}

func (f *fakeRecognizer) sortedCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]int(nil), f.calls...)
	sort.Ints(out)
	return out
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
