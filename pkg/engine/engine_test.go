package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taller-ocr/pkg/vision"
)

func noEnv(string) (string, bool) { return "", false }

func TestNewTesseract(t *testing.T) {
	rec, closer, err := New(context.Background(), "Tesseract", noEnv)
	require.NoError(t, err)
	assert.Equal(t, "tesseract", rec.Name())
	assert.NoError(t, closer.Close())
}

func TestNewVisionWithoutCredentials(t *testing.T) {
	_, _, err := New(context.Background(), "vision", noEnv)
	assert.ErrorIs(t, err, vision.ErrNoCredentials)
}

func TestNewUnknown(t *testing.T) {
	_, _, err := New(context.Background(), "abbyy", noEnv)
	assert.ErrorContains(t, err, "unknown OCR engine")
}
