package nlp

import (
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
)

// vietnameseDiacritics contains every Vietnamese-specific letter. The presence
// of these characters is a much stronger signal than word statistics on the
// short, slangy notes traders actually write.
const vietnameseDiacritics = "àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ"

// vietnameseFunctionWords are common Vietnamese words written without
// diacritics, used as a fallback for unaccented typing.
var vietnameseFunctionWords = []string{
	"la", "cua", "va", "nhung", "trong", "khong",
	"duoc", "toi", "minh", "em", "anh", "chi",
}

// DetectLanguage classifies a note as Vietnamese or English. Empty input
// returns LangUnknown. Statistical detection runs first; the heuristics catch
// the short, slangy or unaccented notes whatlanggo is unreliable on.
func DetectLanguage(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return LangUnknown
	}

	// 1. Statistical detection
	info := whatlanggo.Detect(trimmed)
	if info.Lang == whatlanggo.Vie && info.IsReliable() {
		return LangVietnamese
	}

	lower := strings.ToLower(trimmed)

	// 2. Diacritic density fallback
	var letters, viLetters int
	for _, r := range lower {
		if unicode.IsLetter(r) {
			letters++
			if strings.ContainsRune(vietnameseDiacritics, r) {
				viLetters++
			}
		}
	}
	if letters > 0 && float64(viLetters)/float64(letters) > 0.03 {
		return LangVietnamese
	}

	// 3. Unaccented Vietnamese function words
	words := strings.Fields(lower)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?;:\"'()")] = true
	}
	hits := 0
	for _, fw := range vietnameseFunctionWords {
		if wordSet[fw] {
			hits++
		}
	}
	if hits >= 2 {
		return LangVietnamese
	}

	return LangEnglish
}
