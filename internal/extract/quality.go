package extract

import "strings"

// QualityPolicy decides whether layout-extracted text is trustworthy enough
// to index, or should be discarded in favor of OCR. The defaults flag
// documents with too few words or a dominant watermark token; both
// thresholds are empirical and meant to be tuned per deployment.
type QualityPolicy struct {
	// MinWords is the minimum word count below which text is considered
	// low quality.
	MinWords int

	// WatermarkToken is matched case-insensitively as a substring; more
	// than MaxWatermarkHits occurrences classify the text as low quality.
	// An empty token disables the watermark check.
	WatermarkToken   string
	MaxWatermarkHits int
}

func DefaultQualityPolicy() QualityPolicy {
	return QualityPolicy{
		MinWords:         100,
		WatermarkToken:   "essaypro",
		MaxWatermarkHits: 3,
	}
}

func (p QualityPolicy) IsLowQuality(text string) bool {
	return wordCount(text) < p.MinWords || p.watermarkHits(text) > p.MaxWatermarkHits
}

func (p QualityPolicy) watermarkHits(text string) int {
	if p.WatermarkToken == "" {
		return 0
	}
	return strings.Count(strings.ToLower(text), strings.ToLower(p.WatermarkToken))
}
