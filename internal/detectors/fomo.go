package detectors

import (
	"fmt"

	"trading-psychology-engine/internal/nlp"
)

// FOMO entry detector scoring table. Each term is monotonic in its input so a
// worse situation can never score lower.
const (
	fomoNoteWeight    = 55 // note FOMO confidence scaled into points
	fomoNoteBonus     = 10 // extra when confidence is strong
	fomoNoteBonusMin  = 0.6
	fomoPumpExtremeP  = 8.0 // 1h price change thresholds, percent
	fomoPumpStrongP   = 5.0
	fomoPumpNotableP  = 3.0
	fomoPumpExtreme   = 40
	fomoPumpStrong    = 25
	fomoPumpNotable   = 12
	fomoNearHigh      = 15
	fomoVolumeSpikeHi = 3.0 // volume ratio thresholds
	fomoVolumeSpikeLo = 2.0
	fomoVolumeHi      = 15
	fomoVolumeLo      = 8
)

// FOMODetector flags entries chased into a running pump: emotional language
// about missing out combined with a sharply rising price near its recent high.
type FOMODetector struct{}

func NewFOMODetector() *FOMODetector { return &FOMODetector{} }

func (d *FOMODetector) Name() AlertType { return AlertFOMO }

func (d *FOMODetector) Detect(notes *nlp.Result, ctx Context) *Alert {
	var score float64
	var reasons []string

	if conf := notes.Confidence(nlp.EmotionFOMO); conf > 0 {
		pts := conf * fomoNoteWeight
		if conf >= fomoNoteBonusMin {
			pts += fomoNoteBonus
		}
		score += pts
		reasons = append(reasons, fmt.Sprintf("note shows FOMO language (confidence %.2f)", conf))
	}

	if m := ctx.Market; m != nil {
		switch {
		case m.PriceChange1hP > fomoPumpExtremeP:
			score += fomoPumpExtreme
			reasons = append(reasons, fmt.Sprintf("price pumped %.1f%% in the last hour", m.PriceChange1hP))
		case m.PriceChange1hP > fomoPumpStrongP:
			score += fomoPumpStrong
			reasons = append(reasons, fmt.Sprintf("price up %.1f%% in the last hour", m.PriceChange1hP))
		case m.PriceChange1hP > fomoPumpNotableP:
			score += fomoPumpNotable
			reasons = append(reasons, fmt.Sprintf("price rising fast (%.1f%%/1h)", m.PriceChange1hP))
		}
		if m.NearHigh {
			score += fomoNearHigh
			reasons = append(reasons, "entry near the 24h high")
		}
		switch {
		case m.VolumeRatio > fomoVolumeSpikeHi:
			score += fomoVolumeHi
			reasons = append(reasons, fmt.Sprintf("volume %.1fx above average", m.VolumeRatio))
		case m.VolumeRatio > fomoVolumeSpikeLo:
			score += fomoVolumeLo
			reasons = append(reasons, fmt.Sprintf("volume %.1fx above average", m.VolumeRatio))
		}
	}

	return newAlert(AlertFOMO, score, reasons, fomoRecommendation, ctx.Now)
}

func fomoRecommendation(sev Severity) string {
	switch sev {
	case SeverityCritical:
		return "Do not enter. This is a textbook FOMO chase; wait for a pullback and re-evaluate the setup."
	case SeverityHigh:
		return "Hold off. Wait for a retest of support before entering, or skip the trade."
	default:
		return "Re-check your entry reason. If the only reason is that price is moving, stay out."
	}
}

var _ Detector = (*FOMODetector)(nil)
