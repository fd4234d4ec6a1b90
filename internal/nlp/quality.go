package nlp

import "strings"

// planningKeywords are substrings whose presence signals the trader reasoned
// about the entry instead of reacting. Substring matching is intentional:
// notes abbreviate heavily ("sl 42k, tp 45k") and these terms are specific
// enough not to collide.
var planningKeywords = []string{
	"stop loss", "sl", "take profit", "tp",
	"rr", "risk reward", "quản lý vốn", "risk management",
	"kế hoạch", "plan", "chiến lược", "strategy",
	"phân tích", "analysis", "backtest",
	"entry point", "điểm vào", "target",
}

const (
	qualityBaseline       = 0.5
	planningKeywordBonus  = 0.08
	impulsivePenalty      = 0.15 // FOMO, REVENGE, GREED
	fearPenalty           = 0.08
	overconfidencePenalty = 0.10
	protectiveBonus       = 0.10 // RATIONAL, CONFIDENT, DISCIPLINE
)

// assessQuality scores the reasoning quality of a note in [0, 1]. Planning
// vocabulary raises it, emotional evidence moves it by emotion confidence.
func assessQuality(lowerText string, emotions []Emotion) float64 {
	score := qualityBaseline

	for _, kw := range planningKeywords {
		if containsSubstring(lowerText, kw) {
			score += planningKeywordBonus
		}
	}

	for _, e := range emotions {
		switch e.Type {
		case EmotionFOMO, EmotionRevenge, EmotionGreed:
			score -= impulsivePenalty * e.Confidence
		case EmotionFear:
			score -= fearPenalty * e.Confidence
		case EmotionOverconfidence:
			score -= overconfidencePenalty * e.Confidence
		case EmotionRational, EmotionConfident, EmotionDiscipline:
			score += protectiveBonus * e.Confidence
		}
	}

	return clamp(score, 0, 1)
}

// warningThreshold is the minimum confidence before an emotion produces a
// user-facing warning; weaker signals stay in the emotion list only.
const warningThreshold = 0.3

// warningMessages keeps the bilingual coaching texts the product ships to
// Vietnamese traders. Only risk emotions warn.
var warningMessages = map[EmotionType]string{
	EmotionFOMO:           "⚠️ CẢNH BÁO FOMO: Hãy kiểm tra lại lý do vào lệnh. Đợi pullback?",
	EmotionRevenge:        "🛑 CẢNH BÁO REVENGE: Nghỉ ngơi ít nhất 30 phút trước khi trade tiếp!",
	EmotionGreed:          "⚠️ CẢNH BÁO GREED: Consider giảm position size 50%",
	EmotionFear:           "📊 Phát hiện FEAR: Stick to your plan, avoid panic selling",
	EmotionOverconfidence: "⚠️ CẢNH BÁO: Quá tự tin có thể dẫn đến sai lầm. Double-check analysis.",
	EmotionManipulation:   "🚨 CẢNH BÁO MANIPULATION: Có dấu hiệu thao túng thị trường. Kiểm tra nguồn thông tin!",
}

// generateWarnings turns confident risk emotions into warning strings, in
// detection order.
func generateWarnings(emotions []Emotion) []string {
	var warnings []string
	for _, e := range emotions {
		if e.Confidence < warningThreshold {
			continue
		}
		if msg, ok := warningMessages[e.Type]; ok {
			warnings = append(warnings, msg)
		}
	}
	return warnings
}

func containsSubstring(haystack, needle string) bool {
	// Short tokens like "sl" and "tp" must still match as whole words inside
	// longer notes; plain substring matching would fire on "tps" or "slow".
	if len(needle) <= 2 {
		for _, tok := range tokenize(haystack) {
			if tok == needle {
				return true
			}
		}
		return false
	}
	return strings.Contains(haystack, needle)
}
