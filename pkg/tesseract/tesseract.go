package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// languages maps Vision-style BCP-47 hints to Tesseract traineddata names.
var languages = map[string]string{
	"es": "spa",
	"en": "eng",
	"pt": "por",
}

// Engine runs Tesseract locally. Each call uses its own client, so Engine is safe for
// concurrent use.
type Engine struct {
	clientFactory func() *gosseract.Client
	pageSegMode   gosseract.PageSegMode
}

// New returns a Tesseract engine using automatic page segmentation.
func New() *Engine {
	return &Engine{clientFactory: gosseract.NewClient, pageSegMode: gosseract.PSM_AUTO}
}

func (e *Engine) Name() string { return "tesseract" }

// DetectDocumentText recognizes the whole page. The cgo call cannot be interrupted, so a
// cancelled context returns immediately while the client finishes in the background.
func (e *Engine) DetectDocumentText(ctx context.Context, image []byte, languageHints []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := e.recognize(image, languageHints)
		done <- result{text, err}
	}()
	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *Engine) recognize(image []byte, languageHints []string) (string, error) {
	c := e.clientFactory()
	defer c.Close()
	if langs := TesseractLanguages(languageHints); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(e.pageSegMode); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// TesseractLanguages converts hints, keeping unknown values as given.
func TesseractLanguages(hints []string) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if l, ok := languages[h]; ok {
			h = l
		}
		out = append(out, h)
	}
	return out
}
