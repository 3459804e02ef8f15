package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Outcome is the result of processing one document photo.
type Outcome struct {
	Record   VehicleRecord
	Best     RecognitionResult
	Attempts []RecognitionResult
	Elapsed  time.Duration
}

// Service sequences normalization, rotation search and parsing.
type Service struct {
	Normalizer *Normalizer
	Searcher   *RotationSearcher
	Log        logrus.FieldLogger
}

// NewService builds a Service around one long-lived recognizer.
func NewService(rec Recognizer, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		Normalizer: NewNormalizer(),
		Searcher:   NewRotationSearcher(rec, log),
		Log:        log,
	}
}

// Process runs the full pipeline on raw. Errors wrap one of ErrUnsupportedFormat, ErrCorruptImage,
// ErrRecognition, ErrTimeout or ErrNoText. On ErrNoText the returned Outcome still carries the
// attempts.
func (s *Service) Process(ctx context.Context, raw RawImage) (Outcome, error) {
	start := time.Now()
	norm, err := s.Normalizer.Normalize(raw)
	if err != nil {
		return Outcome{}, fmt.Errorf("normalize: %w", err)
	}

	best, attempts, err := s.Searcher.Search(ctx, norm)
	out := Outcome{Best: best, Attempts: attempts}
	if err != nil {
		if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrCorruptImage) && !errors.Is(err, ErrRecognition) {
			err = fmt.Errorf("%w: %w", ErrRecognition, err)
		}
		out.Elapsed = time.Since(start)
		return out, fmt.Errorf("rotation search: %w", err)
	}
	if strings.TrimSpace(best.Text) == "" {
		out.Elapsed = time.Since(start)
		return out, ErrNoText
	}

	out.Record = Parse(best.Text)
	out.Elapsed = time.Since(start)
	s.Log.WithFields(logrus.Fields{
		"orientation": best.Orientation,
		"score":       best.Score,
		"elapsed_ms":  out.Elapsed.Milliseconds(),
	}).Debug("document parsed")
	return out, nil
}
