package nlp

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon/vi.yaml lexicon/en.yaml
var lexiconFS embed.FS

// Category is one lexicon entry: a keyword list tied to an emotion and weight.
type Category struct {
	Emotion  EmotionType `yaml:"emotion"`
	Weight   float64     `yaml:"weight"`
	Keywords []string    `yaml:"keywords"`
}

// languageLexicon holds all categories and negation words for one language.
type languageLexicon struct {
	Language   string              `yaml:"language"`
	Negations  []string            `yaml:"negations"`
	Categories map[string]Category `yaml:"categories"`

	// categoryOrder keeps categories in a stable iteration order.
	categoryOrder []string
}

// Lexicon holds the loaded keyword tables for both supported languages.
type Lexicon struct {
	byLanguage map[string]*languageLexicon
}

var (
	lexiconOnce   sync.Once
	sharedLexicon *Lexicon
	lexiconErr    error
)

// loadLexicon parses and validates the embedded lexicon files exactly once.
// A malformed lexicon is a fatal condition: the caller must refuse to start
// rather than run with an empty keyword table.
func loadLexicon() (*Lexicon, error) {
	lexiconOnce.Do(func() {
		sharedLexicon, lexiconErr = parseLexiconFiles()
	})
	return sharedLexicon, lexiconErr
}

func parseLexiconFiles() (*Lexicon, error) {
	lex := &Lexicon{byLanguage: make(map[string]*languageLexicon)}
	for _, name := range []string{"lexicon/vi.yaml", "lexicon/en.yaml"} {
		raw, err := lexiconFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read lexicon %s: %w", name, err)
		}
		var ll languageLexicon
		if err := yaml.Unmarshal(raw, &ll); err != nil {
			return nil, fmt.Errorf("parse lexicon %s: %w", name, err)
		}
		if err := validateLexicon(&ll, name); err != nil {
			return nil, err
		}
		normalizeLexicon(&ll)
		lex.byLanguage[ll.Language] = &ll
	}
	for _, lang := range []string{LangVietnamese, LangEnglish} {
		if lex.byLanguage[lang] == nil {
			return nil, fmt.Errorf("lexicon for language %q missing", lang)
		}
	}
	return lex, nil
}

func validateLexicon(ll *languageLexicon, name string) error {
	if ll.Language != LangVietnamese && ll.Language != LangEnglish {
		return fmt.Errorf("lexicon %s: unsupported language %q", name, ll.Language)
	}
	if len(ll.Categories) == 0 {
		return fmt.Errorf("lexicon %s: no categories defined", name)
	}
	if len(ll.Negations) == 0 {
		return fmt.Errorf("lexicon %s: no negation words defined", name)
	}
	for key, cat := range ll.Categories {
		if _, ok := emotionWeights[cat.Emotion]; !ok {
			return fmt.Errorf("lexicon %s: category %q has unknown emotion %q", name, key, cat.Emotion)
		}
		if cat.Weight == 0 {
			return fmt.Errorf("lexicon %s: category %q has zero weight", name, key)
		}
		if len(cat.Keywords) == 0 {
			return fmt.Errorf("lexicon %s: category %q has no keywords", name, key)
		}
		for _, kw := range cat.Keywords {
			if strings.TrimSpace(kw) == "" {
				return fmt.Errorf("lexicon %s: category %q contains an empty keyword", name, key)
			}
		}
	}
	return nil
}

// normalizeLexicon lowercases all keywords and negations and fixes the
// category iteration order (emotion detection order must be deterministic).
func normalizeLexicon(ll *languageLexicon) {
	for key, cat := range ll.Categories {
		for i, kw := range cat.Keywords {
			cat.Keywords[i] = strings.ToLower(strings.TrimSpace(kw))
		}
		ll.Categories[key] = cat
	}
	for i, neg := range ll.Negations {
		ll.Negations[i] = strings.ToLower(strings.TrimSpace(neg))
	}
	ll.categoryOrder = make([]string, 0, len(ll.Categories))
	for _, t := range emotionOrder {
		for key, cat := range ll.Categories {
			if cat.Emotion == t {
				ll.categoryOrder = append(ll.categoryOrder, key)
			}
		}
	}
}

// forLanguage returns the lexicon of the given language.
func (l *Lexicon) forLanguage(lang string) *languageLexicon {
	return l.byLanguage[lang]
}

// otherLanguage returns the secondary lexicon for mixed-language notes.
func (l *Lexicon) otherLanguage(lang string) *languageLexicon {
	if lang == LangVietnamese {
		return l.byLanguage[LangEnglish]
	}
	return l.byLanguage[LangVietnamese]
}
