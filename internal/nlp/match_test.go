package nlp

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"simple english", "Buy Now!", []string{"buy", "now"}},
		{"vietnamese diacritics", "Sợ lỡ tàu, mua gấp", []string{"sợ", "lỡ", "tàu", "mua", "gấp"}},
		{"numbers kept", "x10 in 5 minutes", []string{"x10", "in", "5", "minutes"}},
		{"punctuation stripped", "sl: 42k, tp: 45k (rr 1:3)", []string{"sl", "42k", "tp", "45k", "rr", "1", "3"}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestFindPhrase(t *testing.T) {
	tokens := tokenize("pump and dump then pump again")
	if got := findPhrase(tokens, tokenize("pump and dump")); len(got) != 1 || got[0] != 0 {
		t.Errorf("expected one phrase match at 0, got %v", got)
	}
	if got := findPhrase(tokens, tokenize("pump")); len(got) != 2 {
		t.Errorf("expected two single-word matches, got %v", got)
	}
	if got := findPhrase(tokens, tokenize("dump pump")); got != nil {
		t.Errorf("non-consecutive tokens must not match, got %v", got)
	}
}

func TestMatcherWholeWordOnly(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	m := newMatcher("the market moves slowly", lex.forLanguage(LangVietnamese))
	// "sl" must not fire inside "slowly"
	if n := m.count("sl"); n != 0 {
		t.Errorf("sl matched inside a longer word %d times", n)
	}
	m = newMatcher("đặt sl ở 42k", lex.forLanguage(LangVietnamese))
	if n := m.count("sl"); n != 1 {
		t.Errorf("standalone sl should match once, got %d", n)
	}
}

func TestMatcherNegation(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	vi := lex.forLanguage(LangVietnamese)

	tests := []struct {
		name    string
		text    string
		keyword string
		want    int
	}{
		{"direct negation before", "không sợ lỡ gì cả", "sợ lỡ", 0},
		{"negation within window before", "không hề có cảm giác sợ lỡ", "sợ lỡ", 0},
		{"negation outside window before", "không biết sao nhưng mà giờ thấy sợ lỡ", "sợ lỡ", 1},
		{"negation after keyword", "sợ lỡ thì không", "sợ lỡ", 0},
		{"no negation", "sợ lỡ quá rồi", "sợ lỡ", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMatcher(tt.text, vi)
			if got := m.count(tt.keyword); got != tt.want {
				t.Errorf("count(%q) in %q = %d, want %d", tt.keyword, tt.text, got, tt.want)
			}
		})
	}
}

func TestNegationInsideKeywordIsKept(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	// "không fomo" is itself a discipline keyword; its embedded negation must
	// not cancel it.
	m := newMatcher("hôm nay không fomo, chờ signal", lex.forLanguage(LangVietnamese))
	if n := m.count("không fomo"); n != 1 {
		t.Errorf("discipline phrase with embedded negation should match, got %d", n)
	}
	// while the bare FOMO keyword it contains is negated
	if n := m.count("fomo"); n != 0 {
		t.Errorf("negated fomo keyword should not match, got %d", n)
	}
}

func TestExtractEmotionsDeterministicOrder(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	text := "sợ lỡ tàu rồi, phải gỡ lại, x10 lần này chắc thắng"
	first := extractEmotions(text, lex, LangVietnamese)
	for i := 0; i < 20; i++ {
		again := extractEmotions(text, lex, LangVietnamese)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("extraction is not deterministic: %v vs %v", first, again)
		}
	}
}

func TestExtractEmotionsSecondaryLanguagePass(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	// Vietnamese note with an English-only manipulation phrase: the secondary
	// pass should pick it up at reduced confidence.
	emotions := extractEmotions("coin này đang bị pump and dump", lex, LangVietnamese)
	var manip *Emotion
	for i := range emotions {
		if emotions[i].Type == EmotionManipulation {
			manip = &emotions[i]
		}
	}
	if manip == nil {
		t.Fatal("expected MANIPULATION from the secondary-language pass")
	}
	// one keyword at 0.2, no boost on the secondary pass
	if manip.Confidence < 0.19 || manip.Confidence > 0.21 {
		t.Errorf("secondary-pass confidence = %.3f, want 0.2", manip.Confidence)
	}
}

func TestSecondaryPassCapsAtPointNine(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	// Vietnamese note carrying far more English FOMO keywords than the cap
	// allows: confidence holds at 0.9, never 1.0.
	text := "đang xem chart: hurry, must buy now, going up fast, pump, fear of missing out"
	emotions := extractEmotions(text, lex, LangVietnamese)
	var fomo *Emotion
	for i := range emotions {
		if emotions[i].Type == EmotionFOMO {
			fomo = &emotions[i]
		}
	}
	if fomo == nil {
		t.Fatal("expected FOMO from the secondary-language pass")
	}
	if fomo.Confidence > 0.9 {
		t.Errorf("secondary-pass confidence = %.4f, want <= 0.9", fomo.Confidence)
	}
	if fomo.Confidence < 0.89 {
		t.Errorf("secondary-pass confidence = %.4f, want 0.9 at saturation", fomo.Confidence)
	}
}

func TestRepeatedKeywordCountsOnce(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	// Shouting the same keyword is one piece of evidence, not three.
	emotions := extractEmotions("fomo fomo fomo", lex, LangVietnamese)
	var fomo *Emotion
	for i := range emotions {
		if emotions[i].Type == EmotionFOMO {
			fomo = &emotions[i]
		}
	}
	if fomo == nil {
		t.Fatal("expected FOMO emotion")
	}
	// one keyword at 0.3, boosted 1.2x
	if fomo.Confidence < 0.35 || fomo.Confidence > 0.37 {
		t.Errorf("repeated keyword confidence = %.3f, want 0.36", fomo.Confidence)
	}
	if len(fomo.MatchedTerms) != 1 {
		t.Errorf("matched terms = %v, want the keyword once", fomo.MatchedTerms)
	}
}

func TestScanCategoryConfidenceCaps(t *testing.T) {
	lex, err := loadLexicon()
	if err != nil {
		t.Fatalf("loadLexicon: %v", err)
	}
	// Pile on FOMO keywords: confidence must cap at 1.0, never above.
	text := "sợ lỡ, phải vào ngay, mua gấp, đuổi giá, lỡ tàu, fomo quá"
	emotions := extractEmotions(text, lex, LangVietnamese)
	for _, e := range emotions {
		if e.Confidence > 1.0 || e.Confidence < 0 {
			t.Errorf("emotion %s confidence %.3f outside [0,1]", e.Type, e.Confidence)
		}
		if e.Type == EmotionFOMO && e.Confidence != 1.0 {
			t.Errorf("FOMO with 6 matches should cap at 1.0, got %.3f", e.Confidence)
		}
	}
}
