// Package vision adapts Google Cloud Vision document text detection to ocr.Recognizer.
package vision

import (
	"context"
	"fmt"

	visionapi "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
)

// Engine calls DOCUMENT_TEXT_DETECTION. The underlying client is safe for concurrent use.
type Engine struct {
	client *visionapi.ImageAnnotatorClient
}

// New dials the Vision API once; callers share the returned Engine for the process lifetime.
func New(ctx context.Context, creds *Credentials) (*Engine, error) {
	client, err := visionapi.NewImageAnnotatorClient(ctx, creds.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &Engine{client: client}, nil
}

func (e *Engine) Name() string { return "vision" }

// DetectDocumentText returns the full-page text, or "" when nothing was found.
func (e *Engine) DetectDocumentText(ctx context.Context, image []byte, languageHints []string) (string, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:        &visionpb.Image{Content: image},
			Features:     []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
			ImageContext: &visionpb.ImageContext{LanguageHints: languageHints},
		}},
	}
	resp, err := e.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.GetResponses()) == 0 {
		return "", nil
	}
	res := resp.GetResponses()[0]
	if st := res.GetError(); st != nil && st.GetCode() != 0 {
		return "", fmt.Errorf("annotate image: code %d: %s", st.GetCode(), st.GetMessage())
	}
	return res.GetFullTextAnnotation().GetText(), nil
}

// Close releases the gRPC connection.
func (e *Engine) Close() error {
	return e.client.Close()
}
