package nlp

import (
	"strings"
	"unicode"
)

// Keyword matching works on a token stream rather than regexp word boundaries:
// Go's \b is ASCII-only and silently breaks on Vietnamese diacritics, so a
// keyword like "sợ lỡ" would match inside unrelated words. Tokens are runs of
// letters and digits; keywords and text are tokenized the same way, which makes
// phrase matching exact and whole-word by construction.

// tokenize splits lowercased text into letter/digit runs.
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			cur.WriteRune(r)
			continue
		}
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens
}

// findPhrase returns the start indices of every occurrence of phrase within
// tokens. Phrase tokens must match consecutively.
func findPhrase(tokens, phrase []string) []int {
	if len(phrase) == 0 || len(tokens) < len(phrase) {
		return nil
	}
	var starts []int
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		ok := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				ok = false
				break
			}
		}
		if ok {
			starts = append(starts, i)
		}
	}
	return starts
}

// Negation windows: a matched keyword is discarded when a negation word
// precedes it with at most 4 intervening tokens or follows it with at most 2
// ("không fomo", "fomo thì không").
const (
	negationWindowBefore = 4
	negationWindowAfter  = 2
)

// matcher resolves keyword occurrences against one language lexicon with
// negation filtering. Token streams are computed once per text.
type matcher struct {
	tokens []string
	// negSpans holds [start, end) token spans of every negation occurrence.
	negSpans [][2]int
}

func newMatcher(text string, ll *languageLexicon) *matcher {
	m := &matcher{tokens: tokenize(text)}
	for _, neg := range ll.Negations {
		phrase := tokenize(neg)
		for _, start := range findPhrase(m.tokens, phrase) {
			m.negSpans = append(m.negSpans, [2]int{start, start + len(phrase)})
		}
	}
	return m
}

// count returns the number of non-negated occurrences of keyword.
func (m *matcher) count(keyword string) int {
	phrase := tokenize(keyword)
	n := 0
	for _, start := range findPhrase(m.tokens, phrase) {
		if !m.negated(start, len(phrase)) {
			n++
		}
	}
	return n
}

func (m *matcher) negated(start, length int) bool {
	end := start + length
	for _, span := range m.negSpans {
		// Negation inside the phrase itself is part of the keyword
		// ("không fomo" as a discipline keyword), not a negation of it.
		if span[0] >= start && span[1] <= end {
			continue
		}
		if span[1] <= start && start-span[1] <= negationWindowBefore {
			return true
		}
		if span[0] >= end && span[0]-end <= negationWindowAfter {
			return true
		}
	}
	return false
}

// confidenceBoosted marks the emotion types whose primary-pass confidence is
// amplified: these carry the highest behavioral risk, so partial evidence
// should already register strongly. The secondary-language pass stays
// unboosted so its confidence never exceeds its cap.
var confidenceBoosted = map[EmotionType]bool{
	EmotionFOMO:         true,
	EmotionRevenge:      true,
	EmotionManipulation: true,
}

// extractEmotions runs the primary-language lexicon over the text, then a
// reduced-confidence pass with the secondary lexicon for emotion types the
// primary pass did not find (traders mix Vietnamese and English freely).
func extractEmotions(text string, lex *Lexicon, lang string) []Emotion {
	primary := lex.forLanguage(lang)
	secondary := lex.otherLanguage(lang)

	found := make(map[EmotionType]Emotion)

	pm := newMatcher(text, primary)
	for _, key := range primary.categoryOrder {
		cat := primary.Categories[key]
		if e, ok := scanCategory(pm, cat, 0.3, 1.0, true); ok {
			found[cat.Emotion] = e
		}
	}

	sm := newMatcher(text, secondary)
	for _, key := range secondary.categoryOrder {
		cat := secondary.Categories[key]
		if _, exists := found[cat.Emotion]; exists {
			continue
		}
		if e, ok := scanCategory(sm, cat, 0.2, 0.9, false); ok {
			found[cat.Emotion] = e
		}
	}

	emotions := make([]Emotion, 0, len(found))
	for _, t := range emotionOrder {
		if e, ok := found[t]; ok {
			emotions = append(emotions, e)
		}
	}
	return emotions
}

// scanCategory counts the distinct keywords of one category present in the
// text and converts the count to a confidence. Repeating a keyword does not
// raise confidence. perMatch and cap differ between the primary pass (0.3
// capped at 1.0) and the secondary-language pass (0.2 capped at 0.9); boost
// applies the high-risk amplifier and is set on the primary pass only.
func scanCategory(m *matcher, cat Category, perMatch, capAt float64, boost bool) (Emotion, bool) {
	var terms []string
	for _, kw := range cat.Keywords {
		if m.count(kw) > 0 {
			terms = append(terms, kw)
		}
	}
	if len(terms) == 0 {
		return Emotion{}, false
	}
	conf := float64(len(terms)) * perMatch
	if conf > capAt {
		conf = capAt
	}
	if boost && confidenceBoosted[cat.Emotion] {
		conf *= 1.2
		if conf > 1.0 {
			conf = 1.0
		}
	}
	return Emotion{
		Type:         cat.Emotion,
		Confidence:   conf,
		MatchedTerms: terms,
		Weight:       cat.Weight,
	}, true
}
