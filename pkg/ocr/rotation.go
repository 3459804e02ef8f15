package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Orientations are the clockwise rotations tried for every image, in tie-break order.
var Orientations = [...]int{0, 90, 180, 270}

// RotationSearcher runs recognition on every orientation of an image and keeps the best one.
type RotationSearcher struct {
	Recognizer    Recognizer
	LanguageHints []string
	// Parallelism bounds concurrent recognition calls; values < 1 mean all at once.
	Parallelism int
	JPEGQuality int
	Log         logrus.FieldLogger
}

// NewRotationSearcher wires a searcher around rec with Spanish hints.
func NewRotationSearcher(rec Recognizer, log logrus.FieldLogger) *RotationSearcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RotationSearcher{
		Recognizer:    rec,
		LanguageHints: []string{"es"},
		Parallelism:   len(Orientations),
		JPEGQuality:   92,
		Log:           log,
	}
}

// Search calls the recognizer once per orientation and returns the best result together with
// every attempt in orientation order. The best text is empty when nothing was recognized.
func (s *RotationSearcher) Search(ctx context.Context, img NormalizedImage) (RecognitionResult, []RecognitionResult, error) {
	src, err := imaging.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return RecognitionResult{}, nil, fmt.Errorf("%w: %v", ErrCorruptImage, err)
	}

	attempts := make([]RecognitionResult, len(Orientations))
	var g errgroup.Group
	if s.Parallelism > 0 {
		g.SetLimit(s.Parallelism)
	}
	for i, deg := range Orientations {
		g.Go(func() error {
			attempts[i] = s.attempt(ctx, src, deg)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, a := range attempts {
		if a.Err != nil {
			errs = append(errs, fmt.Errorf("orientation %d: %w", a.Orientation, a.Err))
		}
	}
	if len(errs) > 0 && ctx.Err() != nil {
		return RecognitionResult{}, attempts, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
	best, ok := pickBest(attempts)
	if !ok {
		return RecognitionResult{}, attempts, fmt.Errorf("%w: %w", ErrRecognition, errors.Join(errs...))
	}
	for _, e := range errs {
		s.Log.WithError(e).Warn("recognition attempt failed")
	}
	s.Log.WithFields(logrus.Fields{
		"engine":      s.Recognizer.Name(),
		"orientation": best.Orientation,
		"score":       best.Score,
	}).Info("best orientation selected")
	return best, attempts, nil
}

func (s *RotationSearcher) attempt(ctx context.Context, src image.Image, deg int) RecognitionResult {
	res := RecognitionResult{Orientation: deg, Score: -1}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	data, err := encodeGray(rotateClockwise(src, deg), s.JPEGQuality)
	if err != nil {
		res.Err = err
		return res
	}
	start := time.Now()
	text, err := s.Recognizer.DetectDocumentText(ctx, data, s.LanguageHints)
	if err != nil {
		res.Err = err
		return res
	}
	res.Text = text
	res.Score = AnchorScore(text)
	s.Log.WithFields(logrus.Fields{
		"orientation": deg,
		"score":       res.Score,
		"elapsed_ms":  time.Since(start).Milliseconds(),
		"snippet":     snippet(text, 80),
	}).Debug("recognition attempt")
	return res
}

// rotateClockwise rotates by a multiple of 90 degrees; imaging rotates counter-clockwise.
func rotateClockwise(img image.Image, deg int) image.Image {
	switch ((deg % 360) + 360) % 360 {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}
