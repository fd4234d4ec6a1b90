package detectors

import (
	"fmt"

	"trading-psychology-engine/internal/nlp"
)

// Tilt detector scoring table. Tilt is a session-level state, so most
// evidence comes from session stats rather than the single note.
const (
	tiltDrawdownSevereP  = 10.0
	tiltDrawdownHeavyP   = 7.0
	tiltDrawdownNotableP = 5.0
	tiltDrawdownMildP    = 3.0
	tiltDrawdownSevere   = 30
	tiltDrawdownHeavy    = 25
	tiltDrawdownNotable  = 15
	tiltDrawdownMild     = 8

	tiltCadenceFrantic  = 4.0 // trades last hour vs hourly average
	tiltCadenceRushed   = 3.0
	tiltCadenceElevated = 2.0
	tiltCadencePtsHi    = 30
	tiltCadencePtsMid   = 25
	tiltCadencePtsLo    = 15

	tiltWinRateMinTrades = 5
	tiltWinRateBadly     = 0.3
	tiltWinRatePoor      = 0.4
	tiltWinRateBadlyPts  = 20
	tiltWinRatePoorPts   = 10

	tiltEmotionConfMin = 0.3
	tiltEmotionPts     = 15
	tiltSentimentMin   = -0.3
	tiltSentimentPts   = 10
)

// TiltDetector flags a degrading session: mounting drawdown, frantic trade
// cadence and a collapsing win rate, reinforced by fear or revenge language.
type TiltDetector struct{}

func NewTiltDetector() *TiltDetector { return &TiltDetector{} }

func (d *TiltDetector) Name() AlertType { return AlertTilt }

func (d *TiltDetector) Detect(notes *nlp.Result, ctx Context) *Alert {
	var score float64
	var reasons []string

	if s := ctx.Session; s != nil {
		switch {
		case s.DrawdownPercent >= tiltDrawdownSevereP:
			score += tiltDrawdownSevere
			reasons = append(reasons, fmt.Sprintf("session drawdown %.1f%%", s.DrawdownPercent))
		case s.DrawdownPercent >= tiltDrawdownHeavyP:
			score += tiltDrawdownHeavy
			reasons = append(reasons, fmt.Sprintf("session drawdown %.1f%%", s.DrawdownPercent))
		case s.DrawdownPercent >= tiltDrawdownNotableP:
			score += tiltDrawdownNotable
			reasons = append(reasons, fmt.Sprintf("session drawdown %.1f%%", s.DrawdownPercent))
		case s.DrawdownPercent >= tiltDrawdownMildP:
			score += tiltDrawdownMild
			reasons = append(reasons, fmt.Sprintf("session drawdown %.1f%%", s.DrawdownPercent))
		}

		if s.AvgTradesPerHour > 0 {
			cadence := float64(s.TradesLastHour) / s.AvgTradesPerHour
			switch {
			case cadence >= tiltCadenceFrantic:
				score += tiltCadencePtsHi
				reasons = append(reasons, fmt.Sprintf("trading %.1fx faster than usual", cadence))
			case cadence >= tiltCadenceRushed:
				score += tiltCadencePtsMid
				reasons = append(reasons, fmt.Sprintf("trading %.1fx faster than usual", cadence))
			case cadence >= tiltCadenceElevated:
				score += tiltCadencePtsLo
				reasons = append(reasons, fmt.Sprintf("trading %.1fx faster than usual", cadence))
			}
		}

		if s.TradeCount >= tiltWinRateMinTrades {
			switch {
			case s.WinRate < tiltWinRateBadly:
				score += tiltWinRateBadlyPts
				reasons = append(reasons, fmt.Sprintf("win rate collapsed to %.0f%%", s.WinRate*100))
			case s.WinRate < tiltWinRatePoor:
				score += tiltWinRatePoorPts
				reasons = append(reasons, fmt.Sprintf("win rate down to %.0f%%", s.WinRate*100))
			}
		}
	}

	if notes != nil {
		if notes.Confidence(nlp.EmotionFear) >= tiltEmotionConfMin ||
			notes.Confidence(nlp.EmotionRevenge) >= tiltEmotionConfMin {
			score += tiltEmotionPts
			reasons = append(reasons, "note shows fear or revenge language")
		}
		if notes.SentimentScore < tiltSentimentMin {
			score += tiltSentimentPts
			reasons = append(reasons, fmt.Sprintf("strongly negative tone (%.2f)", notes.SentimentScore))
		}
	}

	return newAlert(AlertTilt, score, reasons, tiltRecommendation, ctx.Now)
}

func tiltRecommendation(sev Severity) string {
	switch sev {
	case SeverityCritical:
		return "End the session. Close the terminal; the statistics say the next trade will be worse."
	case SeverityHigh:
		return "Take a long break. Halve your size for the rest of the day if you must continue."
	default:
		return "Slow down. Review your last few entries before taking another trade."
	}
}

var _ Detector = (*TiltDetector)(nil)
