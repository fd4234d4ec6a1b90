// Package analyzer combines the nlp engine and the detector set into the two
// product-facing evaluations: real-time pre-trade risk verdicts and
// historical behavior reports.
package analyzer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/detectors"
	"trading-psychology-engine/internal/events"
	"trading-psychology-engine/internal/nlp"
)

// TradeContext carries everything known about a proposed trade. Only UserID
// and Symbol are expected to be set; every other field degrades gracefully
// when absent.
type TradeContext struct {
	UserID     string    `json:"user_id"`
	Symbol     string    `json:"symbol"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	Notes      string    `json:"notes"`
	EntryTime  time.Time `json:"entry_time"`

	Market          *detectors.MarketContext `json:"market,omitempty"`
	LastLoss        *detectors.TradeInfo     `json:"last_loss,omitempty"`
	AvgPositionSize float64                  `json:"avg_position_size"`
	Session         *detectors.SessionStats  `json:"session,omitempty"`
}

// QuickContext is the reduced-input variant for callers that have no session
// tracking: just the note and a few headline numbers.
type QuickContext struct {
	UserID          string  `json:"user_id"`
	Notes           string  `json:"notes"`
	PriceChange1hP  float64 `json:"price_change_1h_pct"`
	RecentLossPct   float64 `json:"recent_loss_pct"` // positive number, percent lost
	DrawdownPercent float64 `json:"drawdown_pct"`
	TradesLastHour  int     `json:"trades_last_hour"`
}

// Verdict is the real-time risk assessment for one proposed trade.
type Verdict struct {
	Alerts      []*detectors.Alert `json:"alerts"`
	HasCritical bool               `json:"has_critical"`
	HasHigh     bool               `json:"has_high"`
	ShouldBlock bool               `json:"should_block_trade"`
	OverallRisk float64            `json:"overall_risk_score"` // 0-100
	Notes       *nlp.Result        `json:"notes_analysis,omitempty"`
	EvaluatedAt time.Time          `json:"evaluated_at"`
}

// Active runs the detector set against proposed trades. All methods are safe
// for concurrent use.
type Active struct {
	engine    *nlp.Engine
	detectors []detectors.Detector
	bus       *events.EventBus
	log       zerolog.Logger
}

// NewActive builds the real-time analyzer. bus may be nil; verdicts are then
// simply returned without being published.
func NewActive(engine *nlp.Engine, bus *events.EventBus, log zerolog.Logger) *Active {
	return &Active{
		engine: engine,
		detectors: []detectors.Detector{
			detectors.NewFOMODetector(),
			detectors.NewRevengeDetector(),
			detectors.NewTiltDetector(),
		},
		bus: bus,
		log: log.With().Str("component", "active_analyzer").Logger(),
	}
}

// Evaluate analyzes a proposed trade with full context.
func (a *Active) Evaluate(ctx context.Context, tc TradeContext) *Verdict {
	now := tc.EntryTime
	if now.IsZero() {
		now = time.Now()
	}

	var notes *nlp.Result
	if tc.Notes != "" {
		notes = a.engine.Analyze(ctx, tc.Notes)
	}

	dctx := detectors.Context{
		Now:          now,
		Market:       tc.Market,
		LastLoss:     tc.LastLoss,
		ProposedSize: tc.Quantity,
		AverageSize:  tc.AvgPositionSize,
		Session:      tc.Session,
	}

	verdict := a.run(notes, dctx, now)
	a.publish(tc.UserID, tc.Symbol, verdict)
	return verdict
}

// EvaluateQuick analyzes with minimal context. The same detectors and the
// same verdict rule run over a context synthesized from the few fields
// provided, so a given level of evidence always produces the same verdict
// regardless of which entry point saw it.
func (a *Active) EvaluateQuick(ctx context.Context, qc QuickContext) *Verdict {
	now := time.Now()

	var notes *nlp.Result
	if qc.Notes != "" {
		notes = a.engine.Analyze(ctx, qc.Notes)
	}

	dctx := detectors.Context{
		Now: now,
		Market: &detectors.MarketContext{
			PriceChange1hP: qc.PriceChange1hP,
			NearHigh:       qc.PriceChange1hP > 5,
		},
		Session: &detectors.SessionStats{
			DrawdownPercent:  qc.DrawdownPercent,
			TradesLastHour:   qc.TradesLastHour,
			AvgTradesPerHour: 2, // assume an average cadence
		},
	}
	if qc.RecentLossPct > 0 {
		dctx.LastLoss = &detectors.TradeInfo{
			ClosedAt:   now,
			PnLPercent: -qc.RecentLossPct,
		}
	}

	verdict := a.run(notes, dctx, now)
	a.publish(qc.UserID, "", verdict)
	return verdict
}

func (a *Active) run(notes *nlp.Result, dctx detectors.Context, now time.Time) *Verdict {
	var alerts []*detectors.Alert
	for _, d := range a.detectors {
		if alert := d.Detect(notes, dctx); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	v := mergeVerdict(alerts)
	v.Notes = notes
	v.EvaluatedAt = now
	return v
}

// mergeVerdict folds detector alerts into the final verdict. This is the one
// place the block rule and the overall score live; both evaluation paths go
// through it.
func mergeVerdict(alerts []*detectors.Alert) *Verdict {
	v := &Verdict{Alerts: alerts}

	highCount := 0
	var sum float64
	for _, a := range alerts {
		sum += a.Score
		switch a.Severity {
		case detectors.SeverityCritical:
			v.HasCritical = true
		case detectors.SeverityHigh:
			v.HasHigh = true
			highCount++
		}
	}

	v.ShouldBlock = v.HasCritical || highCount >= 2

	if len(alerts) > 0 {
		v.OverallRisk = sum/float64(len(alerts)) + float64(len(alerts))*10
		if v.OverallRisk > 100 {
			v.OverallRisk = 100
		}
	}
	return v
}

func (a *Active) publish(userID, symbol string, v *Verdict) {
	if a.bus == nil {
		return
	}
	for _, alert := range v.Alerts {
		a.bus.PublishAlertRaised(userID, symbol, alert)
	}
	if v.ShouldBlock {
		a.bus.PublishTradeBlocked(userID, symbol, v.OverallRisk)
		a.log.Warn().
			Str("user_id", userID).
			Str("symbol", symbol).
			Float64("overall_risk", v.OverallRisk).
			Msg("trade blocked by behavioral risk verdict")
	}
}
