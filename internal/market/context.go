// Package market builds the quantitative market snapshot the detectors
// consume when the caller supplies raw OHLCV candles instead of precomputed
// fields. Candles are expected on the 1h timeframe, oldest first.
package market

import (
	"math"
	"time"

	"github.com/markcheno/go-talib"

	"trading-psychology-engine/internal/detectors"
)

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
}

// Indicators holds the technical indicator values at the latest candle. A
// zero value means the series was too short to compute that indicator.
type Indicators struct {
	SMA20          float64 `json:"sma_20,omitempty"`
	SMA50          float64 `json:"sma_50,omitempty"`
	EMA12          float64 `json:"ema_12,omitempty"`
	EMA26          float64 `json:"ema_26,omitempty"`
	RSI14          float64 `json:"rsi_14,omitempty"`
	MACD           float64 `json:"macd,omitempty"`
	MACDSignal     float64 `json:"macd_signal,omitempty"`
	MACDHistogram  float64 `json:"macd_histogram,omitempty"`
	ATR14          float64 `json:"atr_14,omitempty"`
	BollingerUpper float64 `json:"bollinger_upper,omitempty"`
	BollingerLower float64 `json:"bollinger_lower,omitempty"`
	BollingerWidth float64 `json:"bollinger_width,omitempty"`
	VolumeSMA20    float64 `json:"volume_sma_20,omitempty"`
	VolumeRatio    float64 `json:"volume_ratio,omitempty"`
}

// Pattern is one detected candlestick formation.
type Pattern struct {
	Name        string `json:"name"`
	Type        string `json:"type"`        // bullish, bearish, neutral
	Reliability string `json:"reliability"` // low, medium, high
	Description string `json:"description"`
}

// Snapshot is the complete market context at entry time.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`

	PriceChange1hP  float64 `json:"price_change_1h"`
	PriceChange24hP float64 `json:"price_change_24h"`
	PriceChange7dP  float64 `json:"price_change_7d"`

	DistanceFromHigh24h float64 `json:"distance_from_high_24h"` // percent below the high
	DistanceFromLow24h  float64 `json:"distance_from_low_24h"`
	NearHigh            bool    `json:"is_near_high"`
	NearLow             bool    `json:"is_near_low"`

	Indicators Indicators `json:"indicators"`
	Patterns   []Pattern  `json:"patterns"`

	Trend      string `json:"trend"`      // uptrend, downtrend, neutral, ranging
	Volatility string `json:"volatility"` // low, normal, high, extreme
	FOMORisk   string `json:"fomo_risk"`  // low, medium, high
}

// DetectorContext converts the snapshot into the reduced form the detectors
// score against.
func (s *Snapshot) DetectorContext() *detectors.MarketContext {
	atrPct := 0.0
	if s.Indicators.SMA20 > 0 {
		atrPct = s.Indicators.ATR14 / s.Indicators.SMA20 * 100
	}
	return &detectors.MarketContext{
		Symbol:          s.Symbol,
		PriceChange1hP:  s.PriceChange1hP,
		PriceChange24hP: s.PriceChange24hP,
		DistanceHighP:   s.DistanceFromHigh24h,
		NearHigh:        s.NearHigh,
		VolumeRatio:     s.Indicators.VolumeRatio,
		RSI:             s.Indicators.RSI14,
		ATRPercent:      atrPct,
	}
}

const nearRangeEdgePct = 2 // within 2% of the 24h extreme

// Analyze computes the market snapshot from hourly candles, oldest first.
// currentPrice overrides the last close when non-zero (the caller may have a
// fresher ticker price than the last closed candle).
func Analyze(symbol string, candles []Candle, currentPrice float64) *Snapshot {
	now := time.Now().UTC()
	if len(candles) == 0 {
		return &Snapshot{Symbol: symbol, Timestamp: now, Trend: "neutral", Volatility: "normal", FOMORisk: "low"}
	}

	price := candles[len(candles)-1].Close
	if currentPrice > 0 {
		price = currentPrice
	}

	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	volumes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	window := candles
	if len(candles) > 24 {
		window = candles[len(candles)-24:]
	}
	high24 := window[0].High
	low24 := window[0].Low
	for _, c := range window[1:] {
		if c.High > high24 {
			high24 = c.High
		}
		if c.Low < low24 {
			low24 = c.Low
		}
	}

	distHigh := 0.0
	if high24 > 0 {
		distHigh = (high24 - price) / high24 * 100
	}
	distLow := 0.0
	if low24 > 0 {
		distLow = (price - low24) / low24 * 100
	}

	ind := computeIndicators(closes, highs, lows, volumes)

	s := &Snapshot{
		Symbol:              symbol,
		Timestamp:           now,
		Price:               price,
		PriceChange1hP:      priceChange(closes, 1),
		PriceChange24hP:     priceChange(closes, 24),
		PriceChange7dP:      priceChange(closes, 7*24),
		DistanceFromHigh24h: distHigh,
		DistanceFromLow24h:  distLow,
		NearHigh:            distHigh < nearRangeEdgePct,
		NearLow:             distLow < nearRangeEdgePct,
		Indicators:          ind,
		Patterns:            detectPatterns(candles),
	}
	s.Trend = determineTrend(price, ind)
	s.Volatility = determineVolatility(ind)
	s.FOMORisk = assessFOMORisk(s.PriceChange1hP, s.NearHigh, ind)
	return s
}

// priceChange is the percent move of the close over the last n candles.
func priceChange(closes []float64, n int) float64 {
	if len(closes) < 2 {
		return 0
	}
	if n > len(closes)-1 {
		n = len(closes) - 1
	}
	past := closes[len(closes)-1-n]
	if past == 0 {
		return 0
	}
	return (closes[len(closes)-1] - past) / past * 100
}

func computeIndicators(closes, highs, lows, volumes []float64) Indicators {
	var ind Indicators

	if len(closes) >= 20 {
		ind.SMA20 = last(talib.Sma(closes, 20))
	}
	if len(closes) >= 50 {
		ind.SMA50 = last(talib.Sma(closes, 50))
	}
	if len(closes) >= 12 {
		ind.EMA12 = last(talib.Ema(closes, 12))
	}
	if len(closes) >= 26 {
		ind.EMA26 = last(talib.Ema(closes, 26))
	}
	if len(closes) >= 15 {
		ind.RSI14 = last(talib.Rsi(closes, 14))
	}
	if len(closes) >= 35 { // slow period + signal period
		macd, signal, hist := talib.Macd(closes, 12, 26, 9)
		ind.MACD = last(macd)
		ind.MACDSignal = last(signal)
		ind.MACDHistogram = last(hist)
	}
	if len(closes) >= 15 {
		ind.ATR14 = last(talib.Atr(highs, lows, closes, 14))
	}
	if len(closes) >= 20 {
		upper, middle, lower := talib.BBands(closes, 20, 2, 2, talib.SMA)
		ind.BollingerUpper = last(upper)
		ind.BollingerLower = last(lower)
		if m := last(middle); m > 0 {
			ind.BollingerWidth = (ind.BollingerUpper - ind.BollingerLower) / m * 100
		}
	}
	if len(volumes) >= 20 {
		ind.VolumeSMA20 = last(talib.Sma(volumes, 20))
		if ind.VolumeSMA20 > 0 {
			ind.VolumeRatio = volumes[len(volumes)-1] / ind.VolumeSMA20
		}
	}
	return ind
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// detectPatterns scans the last candles for the handful of formations the
// coaching layer mentions to the user.
func detectPatterns(candles []Candle) []Pattern {
	if len(candles) < 3 {
		return nil
	}
	c2 := candles[len(candles)-2]
	c3 := candles[len(candles)-1]

	var patterns []Pattern

	body := math.Abs(c3.Close - c3.Open)
	rng := c3.High - c3.Low
	if rng > 0 && body/rng < 0.1 {
		patterns = append(patterns, Pattern{
			Name: "Doji", Type: "neutral", Reliability: "medium",
			Description: "Thị trường đang phân vân, có thể đảo chiều",
		})
	}

	if c3.Close > c3.Open {
		lowerShadow := min(c3.Open, c3.Close) - c3.Low
		upperShadow := c3.High - max(c3.Open, c3.Close)
		if lowerShadow > body*2 && upperShadow < body*0.5 {
			patterns = append(patterns, Pattern{
				Name: "Hammer", Type: "bullish", Reliability: "medium",
				Description: "Tín hiệu đảo chiều tăng sau downtrend",
			})
		}
	}

	if c2.Close < c2.Open && c3.Close > c3.Open &&
		c3.Open < c2.Close && c3.Close > c2.Open {
		patterns = append(patterns, Pattern{
			Name: "Bullish Engulfing", Type: "bullish", Reliability: "high",
			Description: "Nến xanh bao trùm nến đỏ - tín hiệu tăng mạnh",
		})
	}
	if c2.Close > c2.Open && c3.Close < c3.Open &&
		c3.Open > c2.Close && c3.Close < c2.Open {
		patterns = append(patterns, Pattern{
			Name: "Bearish Engulfing", Type: "bearish", Reliability: "high",
			Description: "Nến đỏ bao trùm nến xanh - tín hiệu giảm mạnh",
		})
	}

	lastThree := candles[len(candles)-3:]
	allGreen, allRed := true, true
	for _, c := range lastThree {
		if c.Close <= c.Open {
			allGreen = false
		}
		if c.Close >= c.Open {
			allRed = false
		}
	}
	if allGreen {
		patterns = append(patterns, Pattern{
			Name: "Three White Soldiers", Type: "bullish", Reliability: "high",
			Description: "3 nến xanh liên tiếp - uptrend mạnh",
		})
	}
	if allRed {
		patterns = append(patterns, Pattern{
			Name: "Three Black Crows", Type: "bearish", Reliability: "high",
			Description: "3 nến đỏ liên tiếp - downtrend mạnh",
		})
	}
	return patterns
}

func determineTrend(price float64, ind Indicators) string {
	if ind.SMA20 == 0 || ind.SMA50 == 0 {
		return "neutral"
	}
	switch {
	case price > ind.SMA20 && ind.SMA20 > ind.SMA50:
		return "uptrend"
	case price < ind.SMA20 && ind.SMA20 < ind.SMA50:
		return "downtrend"
	case ind.BollingerWidth > 0 && ind.BollingerWidth < 5:
		return "ranging"
	default:
		return "neutral"
	}
}

func determineVolatility(ind Indicators) string {
	if ind.ATR14 == 0 || ind.SMA20 == 0 {
		return "normal"
	}
	atrPct := ind.ATR14 / ind.SMA20 * 100
	switch {
	case atrPct > 5:
		return "extreme"
	case atrPct > 3:
		return "high"
	case atrPct < 1:
		return "low"
	default:
		return "normal"
	}
}

// assessFOMORisk pre-scores the market itself: how tempting is this chart to
// chase, before any trader behavior is considered.
func assessFOMORisk(change1h float64, nearHigh bool, ind Indicators) string {
	score := 0
	switch {
	case change1h > 8:
		score += 3
	case change1h > 5:
		score += 2
	case change1h > 3:
		score += 1
	}
	if nearHigh {
		score += 2
	}
	switch {
	case ind.RSI14 > 70:
		score += 2
	case ind.RSI14 > 60:
		score += 1
	}
	if ind.VolumeRatio > 3 {
		score++
	}
	switch {
	case score >= 5:
		return "high"
	case score >= 3:
		return "medium"
	default:
		return "low"
	}
}

