package nlp

// Sentiment label thresholds. Scores inside (-0.2, 0.2] are neutral.
const (
	sentimentPositiveAbove = 0.2
	sentimentNegativeBelow = -0.2
)

// lexiconSentiment scores the note by summing each category's weight scaled by
// its match confidence. The result is clamped to [-1, 1]. Only the primary
// language lexicon contributes; secondary-language hits are evidence for
// emotions, not for overall tone.
func lexiconSentiment(text string, ll *languageLexicon) (float64, string) {
	m := newMatcher(text, ll)
	score := 0.0
	for _, key := range ll.categoryOrder {
		cat := ll.Categories[key]
		matches := 0
		for _, kw := range cat.Keywords {
			matches += m.count(kw)
		}
		if matches == 0 {
			continue
		}
		conf := float64(matches) * 0.3
		if conf > 1.0 {
			conf = 1.0
		}
		score += cat.Weight * conf
	}
	score = clamp(score, -1, 1)
	return score, sentimentLabel(score)
}

func sentimentLabel(score float64) string {
	switch {
	case score > sentimentPositiveAbove:
		return SentimentPositive
	case score < sentimentNegativeBelow:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
