// Package engine builds the configured text recognizer.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"taller-ocr/pkg/ocr"
	"taller-ocr/pkg/tesseract"
	"taller-ocr/pkg/vision"
)

// Engine names accepted by New.
const (
	Vision    = "vision"
	Tesseract = "tesseract"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns the recognizer named by name and a closer for its resources. lookup resolves
// credential environment variables (os.LookupEnv when nil).
func New(ctx context.Context, name string, lookup func(string) (string, bool)) (ocr.Recognizer, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Vision, "":
		creds, err := vision.ResolveCredentials(lookup)
		if err != nil {
			return nil, nil, err
		}
		e, err := vision.New(ctx, creds)
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	case Tesseract:
		return tesseract.New(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown OCR engine %q", name)
	}
}
