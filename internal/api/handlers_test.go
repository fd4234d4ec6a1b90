package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trading-psychology-engine/internal/analyzer"
	"trading-psychology-engine/internal/detectors"
	"trading-psychology-engine/internal/events"
	"trading-psychology-engine/internal/nlp"
	"trading-psychology-engine/internal/session"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	log := zerolog.Nop()

	engine, err := nlp.NewEngine(log, nil, nil)
	if err != nil {
		t.Fatalf("failed to build nlp engine: %v", err)
	}

	bus := events.NewEventBus()
	return NewServer(
		ServerConfig{Port: 0, Host: "127.0.0.1", ProductionMode: true},
		engine,
		analyzer.NewActive(engine, bus, log),
		analyzer.NewPassive(bus, log),
		session.NewTracker(nil, 0, log),
		nil, // no database
		nil, // no cache
		bus,
		log,
	)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid health body: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", resp["status"])
	}
}

func TestAnalyzeTextEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/nlp/analyze", map[string]string{
		"user_id": "u1",
		"text":    "sợ lỡ tàu quá, mọi người đều vào rồi, phải vào ngay thôi",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("analyze status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool       `json:"success"`
		Data    nlp.Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if !resp.Success {
		t.Error("success flag not set")
	}
	if resp.Data.Language != nlp.LangVietnamese {
		t.Errorf("language = %q, want vi", resp.Data.Language)
	}
	if resp.Data.Emotion(nlp.EmotionFOMO) == nil {
		t.Error("FOMO not detected in a textbook FOMO note")
	}
}

func TestAnalyzeTextRequiresText(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/nlp/analyze", map[string]string{"user_id": "u1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing text status = %d, want 400", w.Code)
	}
}

func TestEvaluateQuickEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/analysis/evaluate/quick", map[string]interface{}{
		"user_id":         "u1",
		"notes":           "phải gỡ lại ngay, thua đủ rồi",
		"recent_loss_pct": 3.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("quick evaluate status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data analyzer.Verdict `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(resp.Data.Alerts) == 0 {
		t.Error("revenge note after a fresh loss raised no alerts")
	}
	if resp.Data.OverallRisk <= 0 {
		t.Errorf("overall risk = %.1f, want > 0", resp.Data.OverallRisk)
	}
}

func TestEvaluateRequiresUserID(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/analysis/evaluate", map[string]interface{}{
		"symbol": "BTCUSDT",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing user_id status = %d, want 400", w.Code)
	}
}

func TestEvaluateFillsSessionFromTracker(t *testing.T) {
	s := newTestServer(t)

	// Seed a session with a fresh loss, then evaluate a bigger re-entry.
	now := time.Now()
	rec := doJSON(t, s, http.MethodPost, "/api/session/trades", map[string]interface{}{
		"user_id": "u1",
		"trade": map[string]interface{}{
			"symbol":    "BTCUSDT",
			"closed_at": now.Add(-4 * time.Minute).Format(time.RFC3339),
			"pnl_pct":   -3.0,
			"size":      100.0,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("record trade status = %d, body %s", rec.Code, rec.Body.String())
	}

	w := doJSON(t, s, http.MethodPost, "/api/analysis/evaluate", map[string]interface{}{
		"user_id":  "u1",
		"symbol":   "BTCUSDT",
		"quantity": 200.0,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("evaluate status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data analyzer.Verdict `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	found := false
	for _, a := range resp.Data.Alerts {
		if a.Type == detectors.AlertRevenge {
			found = true
		}
	}
	if !found {
		t.Errorf("re-entry minutes after a loss at double size raised no revenge alert: %+v", resp.Data.Alerts)
	}
}

func TestSessionStatsLifecycle(t *testing.T) {
	s := newTestServer(t)

	if w := doJSON(t, s, http.MethodGet, "/api/session/ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown session status = %d, want 404", w.Code)
	}

	doJSON(t, s, http.MethodPost, "/api/session/trades", map[string]interface{}{
		"user_id": "u2",
		"trade":   map[string]interface{}{"symbol": "ETHUSDT", "pnl_pct": 2.0, "size": 50.0},
	})
	if w := doJSON(t, s, http.MethodGet, "/api/session/u2", nil); w.Code != http.StatusOK {
		t.Errorf("session stats status = %d, want 200", w.Code)
	}

	if w := doJSON(t, s, http.MethodDelete, "/api/session/u2", nil); w.Code != http.StatusOK {
		t.Errorf("reset status = %d, want 200", w.Code)
	}
	if w := doJSON(t, s, http.MethodGet, "/api/session/u2", nil); w.Code != http.StatusNotFound {
		t.Errorf("session survived reset, status = %d", w.Code)
	}
}

func TestAlertsUnavailableWithoutDB(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/alerts/u1", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("alerts without db status = %d, want 503", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	for i := 0; i < 3; i++ {
		if !rl.Allow("/api/test") {
			t.Fatalf("request %d denied under the limit", i+1)
		}
	}
	if rl.Allow("/api/test") {
		t.Error("request over the limit allowed")
	}
	if !rl.Allow("/api/other") {
		t.Error("separate endpoint shares the limit")
	}
}

func TestMarketContextEndpoint(t *testing.T) {
	s := newTestServer(t)

	candles := make([]map[string]interface{}, 30)
	t0 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = map[string]interface{}{
			"open_time": t0.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			"open":      100.0, "high": 100.0, "low": 100.0, "close": 100.0,
			"volume": 1000.0,
		}
	}
	w := doJSON(t, s, http.MethodPost, "/api/market/context", map[string]interface{}{
		"symbol":  "BTCUSDT",
		"candles": candles,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("market context status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Symbol string `json:"symbol"`
			Trend  string `json:"trend"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Data.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q", resp.Data.Symbol)
	}
}
