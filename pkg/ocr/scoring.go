package ocr

import "regexp"

// anchorRE matches the label words that appear on every registration document.
var anchorRE = regexp.MustCompile(`(?i)(Matric|Motor|Chasis|Titular)`)

// AnchorScore counts anchor keyword occurrences in text (substring, case-insensitive).
func AnchorScore(text string) int {
	return len(anchorRE.FindAllStringIndex(text, -1))
}

// pickBest folds results in slice order and keeps the first strictly higher score.
// Results carrying an error are skipped. ok is false when every result failed.
func pickBest(results []RecognitionResult) (best RecognitionResult, ok bool) {
	best = RecognitionResult{Score: -1}
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		if !ok || r.Score > best.Score {
			best = r
			ok = true
		}
	}
	return best, ok
}
