package nlp

import "context"

// EmotionType identifies a trading emotion category.
type EmotionType string

const (
	EmotionFOMO           EmotionType = "FOMO"
	EmotionFear           EmotionType = "FEAR"
	EmotionGreed          EmotionType = "GREED"
	EmotionRevenge        EmotionType = "REVENGE"
	EmotionOverconfidence EmotionType = "OVERCONFIDENCE"
	EmotionManipulation   EmotionType = "MANIPULATION"
	EmotionRational       EmotionType = "RATIONAL"
	EmotionConfident      EmotionType = "CONFIDENT"
	EmotionDiscipline     EmotionType = "DISCIPLINE"
)

// emotionOrder fixes the output ordering of detected emotions so that
// repeated analysis of the same text yields identical results.
var emotionOrder = []EmotionType{
	EmotionFOMO,
	EmotionFear,
	EmotionGreed,
	EmotionRevenge,
	EmotionOverconfidence,
	EmotionManipulation,
	EmotionRational,
	EmotionConfident,
	EmotionDiscipline,
}

// emotionWeights maps each emotion type to its signed weight. Negative
// weights are risk emotions, positive weights are protective emotions.
var emotionWeights = map[EmotionType]float64{
	EmotionFOMO:           -0.8,
	EmotionFear:           -0.6,
	EmotionGreed:          -0.5,
	EmotionRevenge:        -0.9,
	EmotionOverconfidence: -0.4,
	EmotionManipulation:   -0.95,
	EmotionRational:       0.7,
	EmotionConfident:      0.5,
	EmotionDiscipline:     0.6,
}

// Emotion is one detected emotion with its evidence.
type Emotion struct {
	Type         EmotionType `json:"type"`
	Confidence   float64     `json:"confidence"` // 0 to 1
	MatchedTerms []string    `json:"matched_terms"`
	Weight       float64     `json:"weight"`
}

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Supported languages. LangUnknown is only produced for empty input.
const (
	LangVietnamese = "vi"
	LangEnglish    = "en"
	LangUnknown    = "unknown"
)

// Result is the full text-analysis output for one trading note.
// It is created fresh per call and never mutated afterwards.
type Result struct {
	Text            string        `json:"text"`
	Language        string        `json:"language"`
	SentimentScore  float64       `json:"sentiment_score"` // -1 to 1
	SentimentLabel  string        `json:"sentiment_label"`
	Emotions        []Emotion     `json:"emotions"`
	BehavioralFlags []EmotionType `json:"behavioral_flags"`
	QualityScore    float64       `json:"quality_score"` // 0 to 1
	Warnings        []string      `json:"warnings"`
}

// Emotion returns the detected emotion of the given type, or nil.
func (r *Result) Emotion(t EmotionType) *Emotion {
	if r == nil {
		return nil
	}
	for i := range r.Emotions {
		if r.Emotions[i].Type == t {
			return &r.Emotions[i]
		}
	}
	return nil
}

// Confidence returns the confidence of the given emotion type, 0 when absent.
func (r *Result) Confidence(t EmotionType) float64 {
	if e := r.Emotion(t); e != nil {
		return e.Confidence
	}
	return 0
}

// Prediction is one emotion label returned by an external classifier.
type Prediction struct {
	Type       EmotionType `json:"type"`
	Confidence float64     `json:"confidence"`
}

// Classifier is an optional machine-learned emotion classifier. When
// configured on the engine its confidences override the lexicon ones while
// matched keywords are kept for explainability. Implementations must be safe
// for concurrent use; any error is treated as "no prediction".
type Classifier interface {
	Predict(ctx context.Context, text string) ([]Prediction, error)
}

// SentimentModel is an optional external sentiment scorer. On error the
// engine falls back to lexicon-weighted scoring.
type SentimentModel interface {
	Score(ctx context.Context, text, language string) (score float64, label string, err error)
}
