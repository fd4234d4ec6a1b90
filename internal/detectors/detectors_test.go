package detectors

import (
	"testing"
	"time"

	"trading-psychology-engine/internal/nlp"
)

func noteWith(t nlp.EmotionType, conf float64) *nlp.Result {
	return &nlp.Result{
		Emotions: []nlp.Emotion{{Type: t, Confidence: conf, Weight: -0.8}},
	}
}

// Alert types are serialized into API responses and persisted rows; these
// values are a wire contract and must not drift.
func TestAlertTypeWireValues(t *testing.T) {
	if AlertFOMO != "FOMO" {
		t.Errorf("FOMO alert type = %q", AlertFOMO)
	}
	if AlertRevenge != "REVENGE_TRADING" {
		t.Errorf("revenge alert type = %q", AlertRevenge)
	}
	if AlertTilt != "TILT" {
		t.Errorf("tilt alert type = %q", AlertTilt)
	}
}

func TestSeverityBands(t *testing.T) {
	rec := func(Severity) string { return "" }
	tests := []struct {
		score float64
		want  Severity
		nil_  bool
	}{
		{39, 0, true},
		{40, SeverityMedium, false},
		{59.9, SeverityMedium, false},
		{60, SeverityHigh, false},
		{80, SeverityCritical, false},
		{150, SeverityCritical, false},
	}
	for _, tt := range tests {
		a := newAlert(AlertFOMO, tt.score, nil, rec, time.Now())
		if tt.nil_ {
			if a != nil {
				t.Errorf("score %.1f should not alert, got %+v", tt.score, a)
			}
			continue
		}
		if a == nil {
			t.Fatalf("score %.1f should alert", tt.score)
		}
		if a.Severity != tt.want {
			t.Errorf("score %.1f severity = %s, want %s", tt.score, a.Severity, tt.want)
		}
		if a.Score > 100 {
			t.Errorf("score %.1f not capped: %.1f", tt.score, a.Score)
		}
		if a.ID == "" {
			t.Error("alert missing ID")
		}
	}
}

func TestFOMOKeywordOnly(t *testing.T) {
	d := NewFOMODetector()

	// Scenario: strong FOMO language, no market data at all.
	a := d.Detect(noteWith(nlp.EmotionFOMO, 0.72), Context{Now: time.Now()})
	if a == nil {
		t.Fatal("strong FOMO note alone should alert")
	}
	if a.Severity < SeverityMedium {
		t.Errorf("severity = %s, want at least MEDIUM", a.Severity)
	}
	if len(a.Reasons) == 0 || a.Recommendation == "" {
		t.Error("alert missing reasons or recommendation")
	}
}

func TestFOMOMarketOnly(t *testing.T) {
	d := NewFOMODetector()

	// Scenario: violent pump near the high, trader wrote nothing.
	a := d.Detect(nil, Context{
		Now: time.Now(),
		Market: &MarketContext{
			PriceChange1hP: 8.5,
			NearHigh:       true,
		},
	})
	if a == nil {
		t.Fatal("8.5% pump near the high should alert without notes")
	}
	if a.Score < 50 {
		t.Errorf("score = %.1f, want >= 50", a.Score)
	}
}

func TestFOMORationalEntryStaysQuiet(t *testing.T) {
	d := NewFOMODetector()

	// Scenario: planned entry, mild 1% move. No alert.
	notes := &nlp.Result{Emotions: []nlp.Emotion{
		{Type: nlp.EmotionRational, Confidence: 0.9, Weight: 0.7},
	}}
	a := d.Detect(notes, Context{
		Now:    time.Now(),
		Market: &MarketContext{PriceChange1hP: 1.0},
	})
	if a != nil {
		t.Errorf("rational entry on a quiet market alerted: %+v", a)
	}
}

func TestFOMOScoreMonotonicInPump(t *testing.T) {
	d := NewFOMODetector()
	prev := 0.0
	for _, pump := range []float64{1, 3.5, 5.5, 9} {
		a := d.Detect(noteWith(nlp.EmotionFOMO, 0.72), Context{
			Now:    time.Now(),
			Market: &MarketContext{PriceChange1hP: pump},
		})
		if a == nil {
			t.Fatalf("pump %.1f%% with FOMO note should alert", pump)
		}
		if a.Score < prev {
			t.Errorf("score decreased from %.1f to %.1f as pump rose to %.1f%%", prev, a.Score, pump)
		}
		prev = a.Score
	}
}

func TestRevengeFastOversizedReentry(t *testing.T) {
	d := NewRevengeDetector()
	now := time.Now()

	// Scenario: lost 3% five minutes ago, coming back at double size.
	a := d.Detect(nil, Context{
		Now: now,
		LastLoss: &TradeInfo{
			ClosedAt:   now.Add(-4 * time.Minute),
			PnLPercent: -3.0,
		},
		ProposedSize: 2000,
		AverageSize:  1000,
	})
	if a == nil {
		t.Fatal("fast oversized re-entry after a loss should alert")
	}
	if a.Severity < SeverityHigh {
		t.Errorf("severity = %s, want HIGH or CRITICAL", a.Severity)
	}
}

func TestRevengeLanguagePushesSeverity(t *testing.T) {
	d := NewRevengeDetector()
	now := time.Now()
	ctx := Context{
		Now:          now,
		LastLoss:     &TradeInfo{ClosedAt: now.Add(-4 * time.Minute), PnLPercent: -6.0},
		ProposedSize: 2100,
		AverageSize:  1000,
	}

	quiet := d.Detect(nil, ctx)
	loud := d.Detect(noteWith(nlp.EmotionRevenge, 0.9), ctx)
	if quiet == nil || loud == nil {
		t.Fatal("both variants should alert")
	}
	if loud.Score <= quiet.Score {
		t.Errorf("revenge language should raise the score: %.1f vs %.1f", loud.Score, quiet.Score)
	}
	if loud.Severity != SeverityCritical {
		t.Errorf("full revenge pattern severity = %s, want CRITICAL", loud.Severity)
	}
}

func TestRevengeCalmTraderStaysQuiet(t *testing.T) {
	d := NewRevengeDetector()
	now := time.Now()

	a := d.Detect(nil, Context{
		Now:          now,
		LastLoss:     &TradeInfo{ClosedAt: now.Add(-3 * time.Hour), PnLPercent: -1.0},
		ProposedSize: 1000,
		AverageSize:  1000,
	})
	if a != nil {
		t.Errorf("normal-size entry hours after a small loss alerted: %+v", a)
	}
}

func TestTiltDegradedSession(t *testing.T) {
	d := NewTiltDetector()

	// Scenario: deep drawdown, frantic cadence, collapsing win rate.
	a := d.Detect(nil, Context{
		Now: time.Now(),
		Session: &SessionStats{
			DrawdownPercent:  12,
			TradesLastHour:   8,
			AvgTradesPerHour: 2,
			WinRate:          0.25,
			TradeCount:       8,
		},
	})
	if a == nil {
		t.Fatal("degraded session should alert")
	}
	if a.Severity != SeverityCritical {
		t.Errorf("severity = %s, want CRITICAL", a.Severity)
	}
}

func TestTiltHealthySession(t *testing.T) {
	d := NewTiltDetector()
	a := d.Detect(nil, Context{
		Now: time.Now(),
		Session: &SessionStats{
			DrawdownPercent:  1,
			TradesLastHour:   2,
			AvgTradesPerHour: 2,
			WinRate:          0.6,
			TradeCount:       10,
		},
	})
	if a != nil {
		t.Errorf("healthy session alerted: %+v", a)
	}
}

func TestTiltWinRateNeedsSample(t *testing.T) {
	d := NewTiltDetector()
	// Two losing trades are not a win-rate signal yet.
	a := d.Detect(nil, Context{
		Now: time.Now(),
		Session: &SessionStats{
			WinRate:    0,
			TradeCount: 2,
		},
	})
	if a != nil {
		t.Errorf("two trades should not trigger the win-rate term: %+v", a)
	}
}

func TestDetectorsHandleEmptyContext(t *testing.T) {
	for _, d := range []Detector{NewFOMODetector(), NewRevengeDetector(), NewTiltDetector()} {
		if a := d.Detect(nil, Context{}); a != nil {
			t.Errorf("%s alerted on empty input: %+v", d.Name(), a)
		}
	}
}
