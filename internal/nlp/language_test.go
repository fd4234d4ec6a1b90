package nlp

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "", LangUnknown},
		{"whitespace only", "   \n\t ", LangUnknown},
		{"vietnamese with diacritics", "sợ lỡ tàu rồi, phải vào ngay", LangVietnamese},
		{"vietnamese short", "mua gấp đi", LangVietnamese},
		{"english", "waiting for the pullback, stop loss at 42k", LangEnglish},
		{"english trading slang", "this setup is backtested, high win rate", LangEnglish},
		{"unaccented vietnamese", "toi khong biet minh dang lam gi", LangVietnamese},
		{"mixed leaning vietnamese", "btc đang pump mạnh quá", LangVietnamese},
		{"numbers and symbols default english", "x10 !!!", LangEnglish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}
