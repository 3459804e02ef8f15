package ocr

import (
	"regexp"
	"strings"
)

// fieldMatcher extracts one capture group from the flattened document text.
type fieldMatcher struct {
	re    *regexp.Regexp
	group int
	// bounded cuts the capture where the next field label begins.
	bounded bool
}

var (
	vinMatcher          = fieldMatcher{re: regexp.MustCompile(`([A-HJ-NPR-Za-hj-npr-z0-9]{17})`), group: 1}
	engineMatcher       = fieldMatcher{re: regexp.MustCompile(`(?i)motor\s*[:\-]?\s*([A-Z0-9\-]{6,})`), group: 1}
	brandMatcher        = fieldMatcher{re: regexp.MustCompile(`(?i)marca\s*[:\-]?\s*([^\s]{2,30})`), group: 1}
	modelMatcher        = fieldMatcher{re: regexp.MustCompile(`(?i)modelo\s*[:\-]?\s*([A-Z0-9 \-]{2,40})`), group: 1, bounded: true}
	yearMatcher         = fieldMatcher{re: regexp.MustCompile(`(?i)a[ñn]o\s*[:\-]?\s*(\d{4})`), group: 1}
	displacementMatcher = fieldMatcher{re: regexp.MustCompile(`(?i)cilindrada\s*[:\-]?\s*([\d.]{3,5})`), group: 1}
	plateMatcher        = fieldMatcher{re: regexp.MustCompile(`(?i)matr[ií]cula\s*[:\-]?\s*([A-Z]{2,3}\s?\d{3,4})`), group: 1}

	// nextLabelRE finds where the following field starts inside a bounded window.
	nextLabelRE = regexp.MustCompile(`(?i)\b(chasis|motor|marca|modelo|a[ñn]o|cilindrada|matr[ií]cula|titular(es)?)`)

	titularRE   = regexp.MustCompile(`(?i)titular(es)?[:\-]?`)
	stopLabelRE = regexp.MustCompile(`(?i)(chasis|motor|marca|modelo|año|cilindrada|matr[ií]cula)`)
)

// find returns the first capture in flat, or nil.
func (m fieldMatcher) find(flat string) *string {
	loc := m.re.FindStringSubmatchIndex(flat)
	if loc == nil || loc[2*m.group] < 0 {
		return nil
	}
	start, end := loc[2*m.group], loc[2*m.group+1]
	if m.bounded {
		if next := nextLabelRE.FindStringIndex(flat[start:]); next != nil && next[0] > 0 && start+next[0] < end {
			end = start + next[0]
		}
	}
	v := strings.TrimSpace(flat[start:end])
	if v == "" {
		return nil
	}
	return &v
}

// Parse extracts the vehicle record from recognized text. It never fails; fields that do not
// match stay nil.
func Parse(text string) VehicleRecord {
	flat := flatten(text)
	return VehicleRecord{
		Chassis:      vinMatcher.find(flat),
		Engine:       engineMatcher.find(flat),
		Brand:        brandMatcher.find(flat),
		Model:        modelMatcher.find(flat),
		Year:         yearMatcher.find(flat),
		Displacement: displacementMatcher.find(flat),
		Plate:        plateMatcher.find(flat),
		Titleholders: parseTitleholders(splitLines(text)),
	}
}

// parseTitleholders starts at the first titular line and appends the following lines until a
// line carrying another field label.
func parseTitleholders(lines []string) *string {
	for i, line := range lines {
		loc := titularRE.FindStringIndex(line)
		if loc == nil {
			continue
		}
		parts := []string{strings.TrimSpace(line[:loc[0]] + line[loc[1]:])}
		for _, next := range lines[i+1:] {
			if stopLabelRE.MatchString(next) {
				break
			}
			if next != "" {
				parts = append(parts, next)
			}
		}
		return strPtr(strings.TrimSpace(strings.Join(parts, " ")))
	}
	return nil
}
