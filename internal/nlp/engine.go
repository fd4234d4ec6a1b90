package nlp

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Engine analyzes free-text trading notes: language, sentiment, emotions,
// reasoning quality and coaching warnings. It is stateless per call and safe
// for concurrent use; the lexicon tables are shared and read-only.
type Engine struct {
	lex        *Lexicon
	classifier Classifier
	sentiment  SentimentModel
	log        zerolog.Logger
}

// NewEngine builds an analysis engine. classifier and sentimentModel are
// optional; pass nil to run on the lexicon alone. Returns an error when the
// embedded lexicon data is malformed, which callers must treat as fatal.
func NewEngine(log zerolog.Logger, classifier Classifier, sentimentModel SentimentModel) (*Engine, error) {
	lex, err := loadLexicon()
	if err != nil {
		return nil, err
	}
	return &Engine{
		lex:        lex,
		classifier: classifier,
		sentiment:  sentimentModel,
		log:        log.With().Str("component", "nlp").Logger(),
	}, nil
}

// Analyze runs the full pipeline over one note. It never returns an error:
// empty input yields a neutral result and external model failures fall back
// to the lexicon path.
func (e *Engine) Analyze(ctx context.Context, text string) *Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return emptyResult()
	}

	language := DetectLanguage(trimmed)

	score, label := e.scoreSentiment(ctx, trimmed, language)
	emotions := e.detectEmotions(ctx, trimmed, language)

	var flags []EmotionType
	for _, em := range emotions {
		if em.Weight < 0 {
			flags = append(flags, em.Type)
		}
	}

	return &Result{
		Text:            trimmed,
		Language:        language,
		SentimentScore:  score,
		SentimentLabel:  label,
		Emotions:        emotions,
		BehavioralFlags: flags,
		QualityScore:    assessQuality(strings.ToLower(trimmed), emotions),
		Warnings:        generateWarnings(emotions),
	}
}

func (e *Engine) scoreSentiment(ctx context.Context, text, language string) (float64, string) {
	if e.sentiment != nil {
		score, label, err := e.sentiment.Score(ctx, text, language)
		if err == nil {
			return clamp(score, -1, 1), label
		}
		e.log.Debug().Err(err).Msg("sentiment model unavailable, using lexicon")
	}
	return lexiconSentiment(text, e.lex.forLanguage(language))
}

// modelEvidenceTerm is the matched-terms marker for emotions whose only
// evidence is a classifier prediction, so consumers can tell model output
// from lexicon hits.
const modelEvidenceTerm = "ML prediction"

// detectEmotions merges the optional classifier with the keyword pass: model
// confidences are better calibrated, keyword hits provide the evidence shown
// to the user. Classifier predictions for types the keywords never saw are
// kept with the model marker as their only term.
func (e *Engine) detectEmotions(ctx context.Context, text, language string) []Emotion {
	fromModel := make(map[EmotionType]float64)
	if e.classifier != nil {
		preds, err := e.classifier.Predict(ctx, text)
		if err != nil {
			e.log.Debug().Err(err).Msg("classifier unavailable, using keywords only")
		}
		for _, p := range preds {
			if _, known := emotionWeights[p.Type]; known && p.Confidence >= warningThreshold {
				fromModel[p.Type] = clamp(p.Confidence, 0, 1)
			}
		}
	}

	byType := make(map[EmotionType]Emotion)
	for _, em := range extractEmotions(text, e.lex, language) {
		if conf, ok := fromModel[em.Type]; ok {
			em.Confidence = conf
		}
		byType[em.Type] = em
	}
	for t, conf := range fromModel {
		if _, ok := byType[t]; !ok {
			byType[t] = Emotion{
				Type:         t,
				Confidence:   conf,
				MatchedTerms: []string{modelEvidenceTerm},
				Weight:       emotionWeights[t],
			}
		}
	}

	emotions := make([]Emotion, 0, len(byType))
	for _, t := range emotionOrder {
		if em, ok := byType[t]; ok {
			emotions = append(emotions, em)
		}
	}
	return emotions
}

// emptyResult is what blank input analyzes to: no language, neutral tone,
// baseline quality.
func emptyResult() *Result {
	return &Result{
		Text:           "",
		Language:       LangUnknown,
		SentimentScore: 0,
		SentimentLabel: SentimentNeutral,
		QualityScore:   qualityBaseline,
	}
}
