package detectors

import (
	"fmt"
	"time"

	"trading-psychology-engine/internal/nlp"
)

// Revenge trade detector scoring table.
const (
	revengeReentryImmediate = 5 * time.Minute
	revengeReentryFast      = 15 * time.Minute
	revengeReentrySoon      = 30 * time.Minute
	revengeReentryRecent    = 60 * time.Minute
	revengePtsImmediate     = 30
	revengePtsFast          = 25
	revengePtsSoon          = 15
	revengePtsRecent        = 8

	revengeSizeDoubled   = 2.0 // proposed size vs average
	revengeSizeRaisedHi  = 1.5
	revengeSizeRaisedLo  = 1.3
	revengeSizePtsHi     = 30
	revengeSizePtsMid    = 20
	revengeSizePtsLo     = 10
	revengeBigLossP      = -5.0 // last loss pnl percent
	revengeNotableLossP  = -2.0
	revengeBigLossPts    = 10
	revengeSmallLossPts  = 5
	revengeNoteWeight    = 30
	revengeNoteBonus     = 10
	revengeNoteBonusMin  = 0.6
	revengeDrawdownP     = 5.0
	revengeDrawdownPts   = 10
)

// RevengeDetector flags the loss-chasing pattern: re-entering quickly after a
// losing trade with an oversized position, often with explicit "win it back"
// language in the note.
type RevengeDetector struct{}

func NewRevengeDetector() *RevengeDetector { return &RevengeDetector{} }

func (d *RevengeDetector) Name() AlertType { return AlertRevenge }

func (d *RevengeDetector) Detect(notes *nlp.Result, ctx Context) *Alert {
	var score float64
	var reasons []string

	if loss := ctx.LastLoss; loss != nil && loss.PnLPercent < 0 {
		now := ctx.Now
		if now.IsZero() {
			now = time.Now()
		}
		since := now.Sub(loss.ClosedAt)
		switch {
		case since < revengeReentryImmediate:
			score += revengePtsImmediate
			reasons = append(reasons, fmt.Sprintf("re-entering %s after a loss", roundMinutes(since)))
		case since < revengeReentryFast:
			score += revengePtsFast
			reasons = append(reasons, fmt.Sprintf("re-entering %s after a loss", roundMinutes(since)))
		case since < revengeReentrySoon:
			score += revengePtsSoon
			reasons = append(reasons, fmt.Sprintf("re-entering %s after a loss", roundMinutes(since)))
		case since < revengeReentryRecent:
			score += revengePtsRecent
			reasons = append(reasons, fmt.Sprintf("re-entering %s after a loss", roundMinutes(since)))
		}
		switch {
		case loss.PnLPercent <= revengeBigLossP:
			score += revengeBigLossPts
			reasons = append(reasons, fmt.Sprintf("last loss was heavy (%.1f%%)", loss.PnLPercent))
		case loss.PnLPercent <= revengeNotableLossP:
			score += revengeSmallLossPts
			reasons = append(reasons, fmt.Sprintf("last trade lost %.1f%%", loss.PnLPercent))
		}
	}

	if ctx.AverageSize > 0 && ctx.ProposedSize > 0 {
		ratio := ctx.ProposedSize / ctx.AverageSize
		switch {
		case ratio >= revengeSizeDoubled:
			score += revengeSizePtsHi
			reasons = append(reasons, fmt.Sprintf("position size %.1fx the recent average", ratio))
		case ratio >= revengeSizeRaisedHi:
			score += revengeSizePtsMid
			reasons = append(reasons, fmt.Sprintf("position size %.1fx the recent average", ratio))
		case ratio >= revengeSizeRaisedLo:
			score += revengeSizePtsLo
			reasons = append(reasons, fmt.Sprintf("position size %.1fx the recent average", ratio))
		}
	}

	if conf := notes.Confidence(nlp.EmotionRevenge); conf > 0 {
		pts := conf * revengeNoteWeight
		if conf >= revengeNoteBonusMin {
			pts += revengeNoteBonus
		}
		score += pts
		reasons = append(reasons, fmt.Sprintf("note shows revenge language (confidence %.2f)", conf))
	}

	if s := ctx.Session; s != nil && s.DrawdownPercent > revengeDrawdownP {
		score += revengeDrawdownPts
		reasons = append(reasons, fmt.Sprintf("session already down %.1f%% from its peak", s.DrawdownPercent))
	}

	return newAlert(AlertRevenge, score, reasons, revengeRecommendation, ctx.Now)
}

func revengeRecommendation(sev Severity) string {
	switch sev {
	case SeverityCritical:
		return "Stop trading now. Take at least a 30 minute break and come back with a written plan."
	case SeverityHigh:
		return "Step away from the screen. Re-enter only at your normal size and only with a planned setup."
	default:
		return "Reduce the position to your normal size and confirm the setup matches your rules."
	}
}

func roundMinutes(d time.Duration) string {
	m := int(d.Minutes())
	if m < 1 {
		return "under a minute"
	}
	return fmt.Sprintf("%dm", m)
}

var _ Detector = (*RevengeDetector)(nil)
