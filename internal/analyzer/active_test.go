package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/detectors"
	"trading-psychology-engine/internal/events"
	"trading-psychology-engine/internal/nlp"
)

func newActive(t *testing.T, bus *events.EventBus) *Active {
	t.Helper()
	engine, err := nlp.NewEngine(zerolog.Nop(), nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return NewActive(engine, bus, zerolog.Nop())
}

func TestEvaluateCleanTrade(t *testing.T) {
	a := newActive(t, nil)

	v := a.Evaluate(context.Background(), TradeContext{
		UserID: "u1",
		Symbol: "BTCUSDT",
		Notes:  "vào lệnh theo kế hoạch, sl 42k tp 45k",
	})
	if len(v.Alerts) != 0 {
		t.Errorf("clean trade produced alerts: %+v", v.Alerts)
	}
	if v.ShouldBlock {
		t.Error("clean trade should not be blocked")
	}
	if v.OverallRisk != 0 {
		t.Errorf("overall risk = %.1f, want 0", v.OverallRisk)
	}
	if v.Notes == nil || v.Notes.Language != "vi" {
		t.Error("notes analysis missing from verdict")
	}
}

func TestEvaluateBlocksOnCritical(t *testing.T) {
	a := newActive(t, nil)
	now := time.Now()

	// Scenario: full revenge pattern with explicit revenge language.
	v := a.Evaluate(context.Background(), TradeContext{
		UserID:    "u1",
		Symbol:    "BTCUSDT",
		Notes:     "thua đủ rồi, phải gỡ lại ngay, tăng size đánh lớn hơn",
		EntryTime: now,
		Quantity:  2100,
		LastLoss: &detectors.TradeInfo{
			ClosedAt:   now.Add(-4 * time.Minute),
			PnLPercent: -6,
		},
		AvgPositionSize: 1000,
	})
	if !v.HasCritical {
		t.Fatalf("expected a critical alert, got %+v", v.Alerts)
	}
	if !v.ShouldBlock {
		t.Error("critical alert must block the trade")
	}
}

func TestEvaluateBlocksOnTwoHighs(t *testing.T) {
	a := newActive(t, nil)
	now := time.Now()

	// Scenario: revenge and tilt both land HIGH, neither critical.
	v := a.Evaluate(context.Background(), TradeContext{
		UserID:    "u1",
		Symbol:    "ETHUSDT",
		EntryTime: now,
		Quantity:  2100,
		LastLoss: &detectors.TradeInfo{
			ClosedAt:   now.Add(-4 * time.Minute),
			PnLPercent: -1.5,
		},
		AvgPositionSize: 1000,
		Session: &detectors.SessionStats{
			DrawdownPercent:  12,
			TradesLastHour:   8,
			AvgTradesPerHour: 2,
			WinRate:          0.5,
			TradeCount:       4,
		},
	})
	if v.HasCritical {
		t.Fatalf("scenario should not reach critical: %+v", v.Alerts)
	}
	highs := 0
	for _, al := range v.Alerts {
		if al.Severity == detectors.SeverityHigh {
			highs++
		}
	}
	if highs < 2 {
		t.Fatalf("expected two HIGH alerts, got %d (%+v)", highs, v.Alerts)
	}
	if !v.ShouldBlock {
		t.Error("two HIGH alerts must block the trade")
	}
}

func TestMergeVerdictFormula(t *testing.T) {
	mk := func(score float64, sev detectors.Severity) *detectors.Alert {
		return &detectors.Alert{Type: detectors.AlertFOMO, Score: score, Severity: sev}
	}
	tests := []struct {
		name    string
		alerts  []*detectors.Alert
		overall float64
		block   bool
	}{
		{"no alerts", nil, 0, false},
		{"one medium", []*detectors.Alert{mk(45, detectors.SeverityMedium)}, 55, false},
		{"one high", []*detectors.Alert{mk(70, detectors.SeverityHigh)}, 80, false},
		{"two highs", []*detectors.Alert{mk(70, detectors.SeverityHigh), mk(60, detectors.SeverityHigh)}, 85, true},
		{"critical", []*detectors.Alert{mk(90, detectors.SeverityCritical)}, 100, true},
		{"capped", []*detectors.Alert{
			mk(95, detectors.SeverityCritical),
			mk(95, detectors.SeverityCritical),
			mk(95, detectors.SeverityCritical),
		}, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := mergeVerdict(tt.alerts)
			if v.OverallRisk != tt.overall {
				t.Errorf("overall = %.1f, want %.1f", v.OverallRisk, tt.overall)
			}
			if v.ShouldBlock != tt.block {
				t.Errorf("block = %v, want %v", v.ShouldBlock, tt.block)
			}
		})
	}
}

func TestEvaluateQuick(t *testing.T) {
	a := newActive(t, nil)

	// Scenario: just a note and a recent loss, no session tracking.
	v := a.EvaluateQuick(context.Background(), QuickContext{
		UserID:        "u2",
		Notes:         "phải gỡ lại ngay, tăng size lần này",
		RecentLossPct: 3,
	})
	var revenge *detectors.Alert
	for _, al := range v.Alerts {
		if al.Type == detectors.AlertRevenge {
			revenge = al
		}
	}
	if revenge == nil {
		t.Fatalf("expected a revenge alert, got %+v", v.Alerts)
	}
	if revenge.Severity < detectors.SeverityHigh {
		t.Errorf("severity = %s, want at least HIGH", revenge.Severity)
	}
	if v.ShouldBlock {
		t.Error("a single HIGH alert must not block")
	}
}

func TestEvaluatePublishesEvents(t *testing.T) {
	bus := events.NewEventBus()
	blocked := make(chan events.Event, 1)
	bus.Subscribe(events.EventTradeBlocked, func(e events.Event) {
		blocked <- e
	})
	a := newActive(t, bus)
	now := time.Now()

	a.Evaluate(context.Background(), TradeContext{
		UserID:    "u3",
		Symbol:    "BTCUSDT",
		Notes:     "thua đủ rồi, phải gỡ lại ngay, tăng size đánh lớn hơn",
		EntryTime: now,
		Quantity:  2100,
		LastLoss: &detectors.TradeInfo{
			ClosedAt:   now.Add(-4 * time.Minute),
			PnLPercent: -6,
		},
		AvgPositionSize: 1000,
	})

	select {
	case e := <-blocked:
		if e.Data["user_id"] != "u3" {
			t.Errorf("blocked event user_id = %v, want u3", e.Data["user_id"])
		}
	case <-time.After(time.Second):
		t.Fatal("TRADE_BLOCKED event never arrived")
	}
}
