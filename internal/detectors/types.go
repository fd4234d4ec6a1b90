// Package detectors holds the closed set of behavioral risk detectors. Each
// detector scores one failure mode of a trading decision from the trader's
// own note plus whatever quantitative context is available, and emits an
// alert only when the evidence clears its severity floor.
package detectors

import (
	"time"

	"github.com/google/uuid"

	"trading-psychology-engine/internal/nlp"
)

// Severity orders alert urgency. Comparisons use the numeric value.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON emits the symbolic name so API consumers never see raw ints.
func (s Severity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// AlertType identifies which detector raised an alert.
type AlertType string

const (
	AlertFOMO    AlertType = "FOMO"
	AlertRevenge AlertType = "REVENGE_TRADING"
	AlertTilt    AlertType = "TILT"
)

// Alert is one detector finding. Score is the raw 0-100 evidence score the
// severity was derived from; Reasons list the contributing observations in
// evaluation order.
type Alert struct {
	ID             string    `json:"id"`
	Type           AlertType `json:"type"`
	Severity       Severity  `json:"severity"`
	Score          float64   `json:"score"`
	Reasons        []string  `json:"reasons"`
	Recommendation string    `json:"recommendation"`
	CreatedAt      time.Time `json:"created_at"`
}

// MarketContext is the quantitative market snapshot at decision time. Any
// field may be zero when the caller has no market data; detectors only score
// the evidence present.
type MarketContext struct {
	Symbol          string  `json:"symbol"`
	PriceChange1hP  float64 `json:"price_change_1h_pct"`
	PriceChange24hP float64 `json:"price_change_24h_pct"`
	DistanceHighP   float64 `json:"distance_from_24h_high_pct"`
	NearHigh        bool    `json:"near_24h_high"`
	VolumeRatio     float64 `json:"volume_ratio"` // current vs average
	RSI             float64 `json:"rsi"`
	ATRPercent      float64 `json:"atr_pct"`
}

// TradeInfo describes one recent closed trade.
type TradeInfo struct {
	Symbol     string    `json:"symbol"`
	ClosedAt   time.Time `json:"closed_at"`
	PnLPercent float64   `json:"pnl_pct"`
	Size       float64   `json:"size"`
}

// SessionStats summarizes the trader's current session.
type SessionStats struct {
	DrawdownPercent  float64 `json:"drawdown_pct"` // peak-to-now, positive number
	TradesLastHour   int     `json:"trades_last_hour"`
	AvgTradesPerHour float64 `json:"avg_trades_per_hour"`
	WinRate          float64 `json:"win_rate"`
	TradeCount       int     `json:"trade_count"`
	PnLPercent       float64 `json:"pnl_pct"`
}

// Context carries everything a detector may look at besides the analyzed
// note. All pointer fields are optional; a detector scores only what it sees.
type Context struct {
	Now          time.Time      `json:"now"`
	Market       *MarketContext `json:"market,omitempty"`
	LastLoss     *TradeInfo     `json:"last_loss,omitempty"`
	ProposedSize float64        `json:"proposed_size"`
	AverageSize  float64        `json:"average_size"`
	Session      *SessionStats  `json:"session,omitempty"`
}

// Detector scores one behavioral failure mode. Detect returns nil when the
// evidence stays below the detector's alert floor; notes may be nil when the
// trader wrote nothing.
type Detector interface {
	Name() AlertType
	Detect(notes *nlp.Result, ctx Context) *Alert
}

// Severity bands shared by all detectors. A score below the medium floor
// produces no alert at all.
const (
	scoreCritical = 80
	scoreHigh     = 60
	scoreMedium   = 40
	scoreMax      = 100
)

// newAlert assembles an alert from an accumulated score, or nil below the
// floor. The score is capped at 100 before banding.
func newAlert(t AlertType, score float64, reasons []string, recommend func(Severity) string, now time.Time) *Alert {
	if score > scoreMax {
		score = scoreMax
	}
	var sev Severity
	switch {
	case score >= scoreCritical:
		sev = SeverityCritical
	case score >= scoreHigh:
		sev = SeverityHigh
	case score >= scoreMedium:
		sev = SeverityMedium
	default:
		return nil
	}
	if now.IsZero() {
		now = time.Now()
	}
	return &Alert{
		ID:             uuid.NewString(),
		Type:           t,
		Severity:       sev,
		Score:          score,
		Reasons:        reasons,
		Recommendation: recommend(sev),
		CreatedAt:      now,
	}
}
