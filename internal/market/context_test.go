package market

import (
	"testing"
	"time"
)

func flatCandles(n int, price, volume float64) []Candle {
	t0 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	candles := make([]Candle, n)
	for i := range candles {
		candles[i] = Candle{
			OpenTime: t0.Add(time.Duration(i) * time.Hour),
			Open:     price, High: price, Low: price, Close: price,
			Volume: volume,
		}
	}
	return candles
}

func TestAnalyzeEmptyCandles(t *testing.T) {
	s := Analyze("BTCUSDT", nil, 0)
	if s.Trend != "neutral" || s.Volatility != "normal" || s.FOMORisk != "low" {
		t.Errorf("empty snapshot = %+v", s)
	}
}

func TestPriceChange(t *testing.T) {
	closes := []float64{100, 102, 105}
	if got := priceChange(closes, 1); got < 2.9 || got > 3.0 {
		t.Errorf("1-candle change = %.3f, want ~2.94", got)
	}
	// window longer than the series clamps to the oldest close
	if got := priceChange(closes, 24); got != 5 {
		t.Errorf("clamped change = %.3f, want 5", got)
	}
	if got := priceChange([]float64{100}, 1); got != 0 {
		t.Errorf("single close change = %.3f, want 0", got)
	}
}

func TestAnalyzePumpScenario(t *testing.T) {
	candles := flatCandles(60, 100, 1000)
	// last candle: violent pump on 5x volume
	candles[59].Open = 100
	candles[59].Close = 110
	candles[59].High = 110.5
	candles[59].Low = 99.8
	candles[59].Volume = 5000

	s := Analyze("BTCUSDT", candles, 0)

	if s.PriceChange1hP < 9.9 || s.PriceChange1hP > 10.1 {
		t.Errorf("1h change = %.2f, want ~10", s.PriceChange1hP)
	}
	if !s.NearHigh {
		t.Errorf("price at the top of the range should be near high (dist %.2f%%)", s.DistanceFromHigh24h)
	}
	if s.Indicators.VolumeRatio <= 3 {
		t.Errorf("volume ratio = %.2f, want > 3", s.Indicators.VolumeRatio)
	}
	if s.FOMORisk != "high" {
		t.Errorf("fomo risk = %q, want high", s.FOMORisk)
	}
	if s.Trend != "uptrend" {
		t.Errorf("trend = %q, want uptrend", s.Trend)
	}

	dc := s.DetectorContext()
	if dc.PriceChange1hP != s.PriceChange1hP || !dc.NearHigh {
		t.Errorf("detector context lost fields: %+v", dc)
	}
}

func TestDetectPatternsBullishEngulfing(t *testing.T) {
	candles := flatCandles(3, 100, 1000)
	// red candle then a green one engulfing it
	candles[1] = Candle{Open: 101, High: 101.5, Low: 99, Close: 99.5, Volume: 1000}
	candles[2] = Candle{Open: 99, High: 103, Low: 98.8, Close: 102, Volume: 1000}

	found := false
	for _, p := range detectPatterns(candles) {
		if p.Name == "Bullish Engulfing" {
			found = true
			if p.Type != "bullish" || p.Reliability != "high" {
				t.Errorf("engulfing metadata wrong: %+v", p)
			}
		}
	}
	if !found {
		t.Error("bullish engulfing not detected")
	}
}

func TestDetectPatternsThreeWhiteSoldiers(t *testing.T) {
	t0 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	var candles []Candle
	price := 100.0
	for i := 0; i < 3; i++ {
		candles = append(candles, Candle{
			OpenTime: t0.Add(time.Duration(i) * time.Hour),
			Open:     price, High: price + 2.2, Low: price - 0.2, Close: price + 2,
			Volume: 1000,
		})
		price += 2
	}
	found := false
	for _, p := range detectPatterns(candles) {
		if p.Name == "Three White Soldiers" {
			found = true
		}
	}
	if !found {
		t.Error("three white soldiers not detected")
	}
}
